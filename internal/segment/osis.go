package segment

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/core/verse"
)

// Compiled XPath expressions for OSIS documents.
var (
	verseExpr   = xpath.MustCompile("//verse[@osisID]")
	chapterExpr = xpath.MustCompile("//chapter")
)

// OSIS segments an OSIS-style XML document. Verses are <verse> elements
// with an osisID attribute of the form "Book.Chapter.Verse"; book order
// follows document order of first appearance.
func OSIS(data []byte, opts Options) (*verse.Corpus, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &errors.SegmentationError{Message: fmt.Sprintf("parsing OSIS XML: %v", err)}
	}

	c := &verse.Corpus{ID: opts.CorpusID}
	books := map[string]*verse.Book{}

	for _, node := range xmlquery.QuerySelectorAll(root, verseExpr) {
		osisID := node.SelectAttr("osisID")
		ref, err := parseOSISID(osisID)
		if err != nil {
			return nil, err
		}

		book := books[ref.Book]
		if book == nil {
			book = &verse.Book{Name: ref.Book, Order: len(c.Books) + 1}
			books[ref.Book] = book
			c.Books = append(c.Books, book)
		}

		if err := checkOrder(book, ref.Chapter, ref.Verse); err != nil {
			return nil, err
		}

		text := cleanText(node.InnerText())
		if text == "" {
			continue
		}
		book.Verses = append(book.Verses, &verse.Verse{Ref: *ref, Text: text})
	}

	// A chapter element containing no verse elements is an inconsistent
	// boundary marker.
	for _, ch := range xmlquery.QuerySelectorAll(root, chapterExpr) {
		if hasVerseChild(ch) {
			continue
		}
		ref := ch.SelectAttr("osisID")
		return nil, &errors.SegmentationError{
			Book:    ref,
			Message: "chapter has no verses",
		}
	}

	verse.ComputeAllHashes(c)
	return c, nil
}

func hasVerseChild(n *xmlquery.Node) bool {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == "verse" {
			return true
		}
		if hasVerseChild(child) {
			return true
		}
	}
	return false
}

// parseOSISID parses "Book.Chapter.Verse" identifiers.
func parseOSISID(id string) (*verse.Ref, error) {
	parts := strings.Split(id, ".")
	if len(parts) != 3 {
		return nil, &errors.SegmentationError{
			Message: fmt.Sprintf("malformed osisID %q", id),
		}
	}
	chapter, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, &errors.SegmentationError{
			Book:    parts[0],
			Message: fmt.Sprintf("malformed chapter in osisID %q", id),
		}
	}
	vnum, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, &errors.SegmentationError{
			Book:    parts[0],
			Chapter: chapter,
			Message: fmt.Sprintf("malformed verse in osisID %q", id),
		}
	}
	return &verse.Ref{Book: parts[0], Chapter: chapter, Verse: vnum}, nil
}
