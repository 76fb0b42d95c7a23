// Package ingest loads canonical source texts from local paths or URLs and
// normalizes them to clean UTF-8 for segmentation.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/FocuswithJustin/CanonScope/core/errors"
	"github.com/FocuswithJustin/CanonScope/core/verse"
)

// SourceMeta describes the provenance of an ingested text.
type SourceMeta struct {
	// Source is the path or URL the text was read from.
	Source string `json:"source"`

	// Translation is the caller-supplied translation name (e.g., "KJV").
	Translation string `json:"translation,omitempty"`

	// RetrievedAt records when the source was read.
	RetrievedAt time.Time `json:"retrieved_at"`

	// SHA256 is the hash of the raw source bytes before normalization.
	SHA256 string `json:"sha256"`

	// Fingerprint is the BLAKE3 hash of the normalized text.
	Fingerprint string `json:"fingerprint"`

	// Encoding names the source encoding that was detected ("utf-8",
	// "utf-16le", "utf-16be", or "latin-1").
	Encoding string `json:"encoding"`

	// Compressed is true when the source was xz-compressed.
	Compressed bool `json:"compressed,omitempty"`
}

// Document is a normalized text blob plus its source metadata.
type Document struct {
	Text string
	Meta SourceMeta
}

// Options controls ingestion behavior.
type Options struct {
	// Translation is stored in the resulting metadata.
	Translation string

	// KeepBoilerplate disables Project Gutenberg preamble/footer stripping.
	KeepBoilerplate bool

	// HTTPClient overrides the default client for URL sources.
	HTTPClient *http.Client
}

// maxControlRatio is the fraction of C0 control bytes (excluding
// tab/newline) above which input is rejected as binary.
const maxControlRatio = 0.05

// Ingest reads a canonical source from a path or http(s) URL, decompresses
// xz if needed, and normalizes the text. The returned Document is the input
// to the segmenter.
func Ingest(ctx context.Context, source string, opts Options) (*Document, error) {
	raw, err := fetch(ctx, source, opts)
	if err != nil {
		return nil, err
	}

	meta := SourceMeta{
		Source:      source,
		Translation: opts.Translation,
		RetrievedAt: time.Now().UTC(),
		SHA256:      verse.HashBytes(raw),
	}

	if isXZ(source, raw) {
		raw, err = decompress(raw)
		if err != nil {
			return nil, errors.NewSource("decompress", source, err)
		}
		meta.Compressed = true
	}

	text, enc, err := Normalize(source, raw)
	if err != nil {
		return nil, err
	}
	meta.Encoding = enc

	if !opts.KeepBoilerplate {
		text = StripBoilerplate(text)
	}

	meta.Fingerprint = verse.Fingerprint([]byte(text))

	return &Document{Text: text, Meta: meta}, nil
}

func fetch(ctx context.Context, source string, opts Options) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := opts.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 60 * time.Second}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, errors.NewSource("fetch", source, err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, errors.NewSource("fetch", source, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.NewSource("fetch", source, fmt.Errorf("HTTP %d", resp.StatusCode))
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.NewSource("read", source, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, errors.NewSource("open", source, err)
	}
	return data, nil
}

// xzMagic is the xz stream header.
var xzMagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

func isXZ(source string, data []byte) bool {
	if strings.HasSuffix(source, ".xz") {
		return true
	}
	return bytes.HasPrefix(data, xzMagic)
}

func decompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// Normalize converts raw source bytes to clean UTF-8 text: BOM handling,
// UTF-16 and Latin-1 fallback decoding, CRLF normalization. It returns the
// text and the name of the encoding that was applied.
func Normalize(source string, raw []byte) (string, string, error) {
	text, enc, err := decode(source, raw)
	if err != nil {
		return "", "", err
	}

	if off := binaryOffset(text); off >= 0 {
		return "", "", errors.NewEncoding(source, off, "input looks like binary data")
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text, enc, nil
}

func decode(source string, raw []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xff, 0xfe}):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", "", errors.NewEncoding(source, -1, fmt.Sprintf("UTF-16LE decode: %v", err))
		}
		return string(out), "utf-16le", nil

	case bytes.HasPrefix(raw, []byte{0xfe, 0xff}):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", "", errors.NewEncoding(source, -1, fmt.Sprintf("UTF-16BE decode: %v", err))
		}
		return string(out), "utf-16be", nil

	case bytes.HasPrefix(raw, []byte{0xef, 0xbb, 0xbf}):
		return string(raw[3:]), "utf-8", nil

	case utf8.Valid(raw):
		return string(raw), "utf-8", nil

	default:
		// Latin-1 covers every byte value, so this cannot fail; binary
		// detection below is the real guard.
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return "", "", errors.NewEncoding(source, -1, fmt.Sprintf("Latin-1 decode: %v", err))
		}
		return string(out), "latin-1", nil
	}
}

// binaryOffset returns the byte offset of the first NUL, or a non-negative
// offset when the control-character ratio marks the input as binary.
// Returns -1 for acceptable text.
func binaryOffset(text string) int {
	if i := strings.IndexByte(text, 0); i >= 0 {
		return i
	}
	if len(text) == 0 {
		return -1
	}
	controls, firstControl := 0, -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < 0x20 && c != '\t' && c != '\n' && c != '\r' {
			controls++
			if firstControl < 0 {
				firstControl = i
			}
		}
	}
	if float64(controls)/float64(len(text)) > maxControlRatio {
		return firstControl
	}
	return -1
}

// Project Gutenberg boundary markers.
const (
	gutenbergStart = "*** START"
	gutenbergEnd   = "*** END"
)

// StripBoilerplate removes Project Gutenberg header and footer boilerplate.
// Text before the line containing "*** START" and after the line containing
// "*** END" is dropped; texts without markers pass through unchanged.
func StripBoilerplate(text string) string {
	if i := strings.Index(text, gutenbergStart); i >= 0 {
		if nl := strings.IndexByte(text[i:], '\n'); nl >= 0 {
			text = text[i+nl+1:]
		} else {
			text = ""
		}
	}
	if i := strings.Index(text, gutenbergEnd); i >= 0 {
		text = text[:i]
	}
	return text
}
