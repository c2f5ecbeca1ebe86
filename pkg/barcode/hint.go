// Package barcode defines the barcode formats a scan can be restricted to,
// the raw symbology identifiers reported by detectors, and the mapping
// between the two.
package barcode

import (
	"fmt"
	"strings"
)

// Hint is an abstract barcode format. It is used both as an input filter
// (scan only this format) and as the classification of a scan result.
type Hint int

const (
	HintQRCode Hint = iota
	HintAztec
	HintCodabar
	HintCode39
	HintCode93
	HintCode128
	HintDataMatrix
	HintMaxicode
	HintITF
	HintEAN13
	HintEAN8
	HintPDF417
	HintRSS14
	HintRSSExpanded
	HintUPCA
	HintUPCE
	HintUPCEANExtension
	// HintUnknown accepts every format as a filter and marks an
	// undetermined format as a classification.
	HintUnknown
)

var hintNames = [...]string{
	HintQRCode:          "qrCode",
	HintAztec:           "aztec",
	HintCodabar:         "codabar",
	HintCode39:          "code39",
	HintCode93:          "code93",
	HintCode128:         "code128",
	HintDataMatrix:      "dataMatrix",
	HintMaxicode:        "maxicode",
	HintITF:             "itf",
	HintEAN13:           "ean13",
	HintEAN8:            "ean8",
	HintPDF417:          "pdf417",
	HintRSS14:           "rss14",
	HintRSSExpanded:     "rssExpanded",
	HintUPCA:            "upcA",
	HintUPCE:            "upcE",
	HintUPCEANExtension: "upcEanExtension",
	HintUnknown:         "unknown",
}

// Hints returns every hint, HintUnknown last.
func Hints() []Hint {
	hints := make([]Hint, 0, len(hintNames))
	for h := HintQRCode; h <= HintUnknown; h++ {
		hints = append(hints, h)
	}
	return hints
}

// String returns the camelCase name of the hint.
func (h Hint) String() string {
	if h < HintQRCode || h > HintUnknown {
		return fmt.Sprintf("Hint(%d)", int(h))
	}
	return hintNames[h]
}

// Valid reports whether h is one of the declared hints.
func (h Hint) Valid() bool {
	return h >= HintQRCode && h <= HintUnknown
}

// ParseHint parses a hint name. Matching ignores case, dashes and
// underscores, so "upc-a", "UPC_A" and "upcA" are equivalent.
func ParseHint(s string) (Hint, error) {
	key := normalize(s)
	for h, name := range hintNames {
		if normalize(name) == key {
			return Hint(h), nil
		}
	}
	return HintUnknown, fmt.Errorf("barcode: unknown hint %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (h Hint) MarshalText() ([]byte, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("barcode: invalid hint %d", int(h))
	}
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hint) UnmarshalText(text []byte) error {
	parsed, err := ParseHint(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}
