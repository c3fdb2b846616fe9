package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fingerprint is the content address of a generated artifact. It is a hex
// SHA-256 digest and is embedded verbatim in cache filenames.
type Fingerprint string

// String implements fmt.Stringer.
func (f Fingerprint) String() string {
	return string(f)
}

// Short returns the first 12 characters, for log lines.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}

var folder = cases.Fold()

// NormalizeText applies NFKC normalization, Unicode case folding and
// whitespace collapsing. Texts that differ only in casing or spacing
// normalize to the same string.
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)
	text = folder.String(text)
	return strings.Join(strings.Fields(text), " ")
}

// NewFingerprint digests the normalized text together with the generation
// parameters (voice id, visual style, model...). Parameter order matters.
func NewFingerprint(text string, params ...string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(NormalizeText(text)))
	for _, p := range params {
		h.Write([]byte{0x1f})
		h.Write([]byte(strings.TrimSpace(p)))
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
