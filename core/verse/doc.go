// Package verse defines the schema types for segmented canonical texts.
//
// A Corpus holds the ordered Books of one ingested translation; each Book
// holds its Verses in canonical order. A Verse is the smallest addressable
// unit and is immutable once produced by the segmenter. All components
// downstream of the segmenter (feature extraction, aggregation, rendering)
// should import these types rather than defining their own.
package verse
