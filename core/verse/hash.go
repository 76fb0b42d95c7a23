package verse

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/zeebo/blake3"
)

// jsonMarshal is a variable to allow testing of marshal errors.
var jsonMarshal = json.Marshal

// HashBytes computes the SHA-256 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashString computes the SHA-256 hash of a string and returns it as a hex string.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// Fingerprint computes the BLAKE3 hash of bytes and returns it as a hex string.
// BLAKE3 is used for fast fingerprinting of normalized text; SHA-256 remains
// the primary content hash.
func Fingerprint(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashVerse computes the SHA-256 hash of a verse's text.
func HashVerse(v *Verse) string {
	return HashString(v.Text)
}

// VerifyVerseHash checks if the stored hash matches the computed hash.
func VerifyVerseHash(v *Verse) bool {
	if v.Hash == "" {
		return false
	}
	return v.Hash == HashVerse(v)
}

// HashCorpus computes the SHA-256 hash of a Corpus by serializing to JSON.
// Identical segmentation output always yields an identical hash, so this is
// the determinism check for the segmenter.
func HashCorpus(c *Corpus) (string, error) {
	data, err := jsonMarshal(c)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// ComputeAllHashes computes and stores hashes for all verses in a corpus.
func ComputeAllHashes(c *Corpus) {
	for _, b := range c.Books {
		for _, v := range b.Verses {
			v.Hash = HashVerse(v)
		}
	}
}

// VerifyAllHashes verifies all verse hashes in a corpus.
// Returns the references of any verses with invalid hashes.
func VerifyAllHashes(c *Corpus) []string {
	var invalid []string
	for _, b := range c.Books {
		for _, v := range b.Verses {
			if !VerifyVerseHash(v) {
				invalid = append(invalid, v.Ref.String())
			}
		}
	}
	return invalid
}
