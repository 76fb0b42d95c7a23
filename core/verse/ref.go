package verse

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Ref identifies a verse by (book, chapter, verse). Chapter 0 addresses a
// whole book; Verse 0 addresses a whole chapter.
type Ref struct {
	// Book is the book name (e.g., "Genesis", "1 John").
	Book string `json:"book"`

	// Chapter is the chapter number (1-indexed).
	Chapter int `json:"chapter,omitempty"`

	// Verse is the verse number (1-indexed).
	Verse int `json:"verse,omitempty"`

	// VerseEnd is the ending verse for ranges (optional).
	VerseEnd int `json:"verse_end,omitempty"`
}

// refGrammar is the participle grammar for verse references.
// Examples: "Genesis", "Genesis 3", "Genesis 3:16", "Gen.3.16",
// "1 John 3:16-18", "Song of Solomon 2:1"
//
//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	BookPrefix string       `parser:"@Int?"`
	BookWords  []string     `parser:"@Ident+"`
	ChapterRef *chapterPart `parser:"( '.'? @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type chapterPart struct {
	Chapter  int        `parser:"@Int"`
	VerseRef *versePart `parser:"( ( ':' | '.' ) @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type versePart struct {
	Verse int  `parser:"@Int"`
	End   *int `parser:"( '-' @Int )?"`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z][A-Za-z]*`},
	{Name: "Punct", Pattern: `[.:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// ParseRef parses a verse reference string.
// Supported formats:
//   - "Genesis" (book only)
//   - "Genesis 3" (book and chapter)
//   - "Genesis 3:16" (book, chapter, and verse)
//   - "Gen.3.16" (dotted form)
//   - "Genesis 3:16-18" (verse range)
//   - "1 John 3:16" (numbered book)
func ParseRef(s string) (*Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty reference string")
	}

	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("invalid reference format: %q: %w", s, err)
	}

	book := strings.Join(parsed.BookWords, " ")
	if parsed.BookPrefix != "" {
		book = parsed.BookPrefix + " " + book
	}

	ref := &Ref{Book: book}

	if parsed.ChapterRef != nil {
		ref.Chapter = parsed.ChapterRef.Chapter

		if parsed.ChapterRef.VerseRef != nil {
			ref.Verse = parsed.ChapterRef.VerseRef.Verse
			if parsed.ChapterRef.VerseRef.End != nil {
				ref.VerseEnd = *parsed.ChapterRef.VerseRef.End
			}
		}
	}

	return ref, nil
}

// String returns the "Book C:V" representation of the reference.
func (r Ref) String() string {
	switch {
	case r.Chapter == 0:
		return r.Book
	case r.Verse == 0:
		return fmt.Sprintf("%s %d", r.Book, r.Chapter)
	case r.VerseEnd > 0:
		return fmt.Sprintf("%s %d:%d-%d", r.Book, r.Chapter, r.Verse, r.VerseEnd)
	default:
		return fmt.Sprintf("%s %d:%d", r.Book, r.Chapter, r.Verse)
	}
}

// IsRange returns true if the reference addresses a verse range.
func (r Ref) IsRange() bool {
	return r.VerseEnd > r.Verse && r.Verse > 0
}

// Contains reports whether this reference addresses the other.
// A book reference contains all its chapters; a chapter reference
// contains all its verses; a range contains the verses inside it.
func (r Ref) Contains(other Ref) bool {
	if r.Book != other.Book {
		return false
	}
	if r.Chapter == 0 {
		return true
	}
	if r.Chapter != other.Chapter {
		return false
	}
	if r.Verse == 0 {
		return true
	}
	if r.IsRange() {
		return other.Verse >= r.Verse && other.Verse <= r.VerseEnd
	}
	return r.Verse == other.Verse
}

// Less reports whether r sorts before other in canonical order,
// assuming both belong to the same book ordering context.
func (r Ref) Less(other Ref) bool {
	if r.Book != other.Book {
		return r.Book < other.Book
	}
	if r.Chapter != other.Chapter {
		return r.Chapter < other.Chapter
	}
	return r.Verse < other.Verse
}
