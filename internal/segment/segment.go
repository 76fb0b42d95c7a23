// Package segment splits normalized source text into addressable verses.
//
// Two boundary-marker schemes are recognized: the plain-text scheme
// (ALL-CAPS book headings with inline chapter:verse digit markers, as found
// in Project Gutenberg transcriptions) and OSIS-style XML. Segmentation is
// deterministic: identical input always yields an identical verse sequence.
package segment

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/core/verse"
)

// Options controls segmentation behavior.
type Options struct {
	// CorpusID identifies the resulting corpus (e.g., "kjv").
	CorpusID string

	// Strict rejects verses that appear before any book heading instead
	// of collecting them under the fallback book.
	Strict bool
}

// FallbackBook is the book name used for verses that precede any heading
// when Strict is off.
const FallbackBook = "Unknown"

// markerRegex matches chapter:verse digit markers.
var markerRegex = regexp.MustCompile(`(\d+):(\d+)`)

var titleCaser = cases.Title(language.English)

// Segment chooses a scheme by sniffing the input and segments it.
// Input starting with an XML declaration or element is treated as OSIS.
func Segment(text string, opts Options) (*verse.Corpus, error) {
	trimmed := strings.TrimLeft(text, " \t\n")
	if strings.HasPrefix(trimmed, "<") {
		return OSIS([]byte(text), opts)
	}
	return Plain(text, opts)
}

// Plain segments plain text with ALL-CAPS book headings and inline
// chapter:verse markers. Verse text runs from its marker to the next
// marker or heading; inner whitespace is collapsed.
func Plain(text string, opts Options) (*verse.Corpus, error) {
	c := &verse.Corpus{ID: opts.CorpusID}

	var book *verse.Book
	var pending *verse.Verse
	var pendingText strings.Builder
	books := make(map[string]*verse.Book)

	flush := func() {
		if pending == nil {
			return
		}
		pending.Text = cleanText(pendingText.String())
		if pending.Text != "" {
			book.Verses = append(book.Verses, pending)
		}
		pending = nil
		pendingText.Reset()
	}

	// Gutenberg texts repeat headings as page headers; a repeated name
	// continues the existing book instead of opening a duplicate.
	openBook := func(name string) {
		if b, ok := books[name]; ok {
			book = b
			return
		}
		book = &verse.Book{Name: name}
		books[name] = book
		c.Books = append(c.Books, book)
	}

	lines := strings.Split(text, "\n")
	for lineNo, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}

		if isBookHeading(stripped) {
			flush()
			openBook(titleCaser.String(strings.ToLower(stripped)))
			continue
		}

		matches := markerRegex.FindAllStringSubmatchIndex(line, -1)
		if len(matches) == 0 {
			if pending != nil {
				pendingText.WriteByte(' ')
				pendingText.WriteString(line)
			}
			continue
		}

		if book == nil {
			if opts.Strict {
				return nil, &errors.SegmentationError{
					Line:    lineNo + 1,
					Message: "verse marker before any book heading",
				}
			}
			openBook(FallbackBook)
		}

		// Text before the first marker belongs to the pending verse.
		if pending != nil && matches[0][0] > 0 {
			pendingText.WriteByte(' ')
			pendingText.WriteString(line[:matches[0][0]])
		}

		for i, m := range matches {
			flush()

			chapter := atoi(line[m[2]:m[3]])
			vnum := atoi(line[m[4]:m[5]])

			if err := checkOrder(book, chapter, vnum); err != nil {
				return nil, err
			}

			end := len(line)
			if i+1 < len(matches) {
				end = matches[i+1][0]
			}

			pending = &verse.Verse{
				Ref: verse.Ref{Book: book.Name, Chapter: chapter, Verse: vnum},
			}
			pendingText.WriteString(line[m[1]:end])
		}
	}
	flush()

	// Table-of-contents lines and trailing headings leave empty books.
	kept := c.Books[:0]
	for _, b := range c.Books {
		if len(b.Verses) > 0 {
			kept = append(kept, b)
		}
	}
	c.Books = kept
	for i, b := range c.Books {
		b.Order = i + 1
	}

	verse.ComputeAllHashes(c)
	return c, nil
}

// checkOrder enforces monotonic chapter and verse numbering within a book.
func checkOrder(book *verse.Book, chapter, vnum int) error {
	if len(book.Verses) == 0 {
		return nil
	}
	last := book.Verses[len(book.Verses)-1].Ref
	if chapter < last.Chapter {
		return &errors.SegmentationError{
			Book:    book.Name,
			Chapter: chapter,
			Verse:   vnum,
			Message: fmt.Sprintf("chapter number decreased after %s", last),
		}
	}
	if chapter == last.Chapter && vnum <= last.Verse {
		return &errors.SegmentationError{
			Book:    book.Name,
			Chapter: chapter,
			Verse:   vnum,
			Message: fmt.Sprintf("verse number did not increase after %s", last),
		}
	}
	return nil
}

// isBookHeading reports whether a stripped line looks like a book heading:
// short, all uppercase, contains letters, no digits.
func isBookHeading(line string) bool {
	if len(line) >= 100 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		}
	}
	return hasLetter
}

// cleanText strips leading punctuation left over from markers and
// collapses inner whitespace.
func cleanText(s string) string {
	s = strings.TrimLeft(s, " .:-\n\r\t")
	return strings.Join(strings.Fields(s), " ")
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
