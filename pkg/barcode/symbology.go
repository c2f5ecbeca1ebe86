package barcode

// Symbology is a concrete format identifier as requested from, and
// reported by, a symbol detector.
type Symbology string

const (
	SymbologyQR                 Symbology = "qr"
	SymbologyAztec              Symbology = "aztec"
	SymbologyCodabar            Symbology = "codabar"
	SymbologyCode39             Symbology = "code39"
	SymbologyCode93             Symbology = "code93"
	SymbologyCode128            Symbology = "code128"
	SymbologyDataMatrix         Symbology = "dataMatrix"
	SymbologyITF14              Symbology = "itf14"
	SymbologyI2of5              Symbology = "i2of5"
	SymbologyEAN13              Symbology = "ean13"
	SymbologyEAN8               Symbology = "ean8"
	SymbologyPDF417             Symbology = "pdf417"
	SymbologyGS1DataBar         Symbology = "gs1DataBar"
	SymbologyGS1DataBarExpanded Symbology = "gs1DataBarExpanded"
	SymbologyUPCE               Symbology = "upce"
	SymbologyMicroPDF417        Symbology = "microPDF417"
	SymbologyMicroQR            Symbology = "microQR"
)

// hintMappings lists, per hint, the symbologies a detector must be asked
// for. UPC-A shares EAN-13 because detectors report UPC-A codes as
// EAN-13 with a leading zero.
var hintMappings = map[Hint][]Symbology{
	HintQRCode:      {SymbologyQR},
	HintAztec:       {SymbologyAztec},
	HintCodabar:     {SymbologyCodabar},
	HintCode39:      {SymbologyCode39},
	HintCode93:      {SymbologyCode93},
	HintCode128:     {SymbologyCode128},
	HintDataMatrix:  {SymbologyDataMatrix},
	HintITF:         {SymbologyITF14, SymbologyI2of5},
	HintEAN13:       {SymbologyEAN13},
	HintEAN8:        {SymbologyEAN8},
	HintPDF417:      {SymbologyPDF417},
	HintRSS14:       {SymbologyGS1DataBar},
	HintRSSExpanded: {SymbologyGS1DataBarExpanded},
	HintUPCA:        {SymbologyEAN13},
	HintUPCE:        {SymbologyUPCE},
}

// detectorOnly are symbologies that can be detected but have no hint of
// their own.
var detectorOnly = []Symbology{SymbologyMicroPDF417, SymbologyMicroQR}

// AllSymbologies returns every supported symbology without duplicates,
// in hint order followed by the detector-only ones.
func AllSymbologies() []Symbology {
	seen := make(map[Symbology]bool)
	var all []Symbology
	for _, h := range Hints() {
		for _, s := range hintMappings[h] {
			if !seen[s] {
				seen[s] = true
				all = append(all, s)
			}
		}
	}
	return append(all, detectorOnly...)
}

// Symbologies returns the symbologies to request for h. Hints without a
// mapping, including HintUnknown, request everything.
func (h Hint) Symbologies() []Symbology {
	if mapped, ok := hintMappings[h]; ok {
		out := make([]Symbology, len(mapped))
		copy(out, mapped)
		return out
	}
	return AllSymbologies()
}

// SymbologiesFor is Symbologies for an optional hint; nil requests
// everything.
func SymbologiesFor(hint *Hint) []Symbology {
	if hint == nil {
		return AllSymbologies()
	}
	return hint.Symbologies()
}

// Resolve classifies a detected symbology. EAN-13 is ambiguous with UPC-A,
// so when the caller hinted either of the two that hint wins; otherwise
// the first hint in declaration order that maps to s is returned, which
// makes EAN-13 the default. Unmapped symbologies resolve to HintUnknown.
func Resolve(s Symbology, hint *Hint) Hint {
	if s == SymbologyEAN13 && hint != nil {
		switch *hint {
		case HintUPCA, HintEAN13:
			return *hint
		}
	}
	for _, h := range Hints() {
		for _, mapped := range hintMappings[h] {
			if mapped == s {
				return h
			}
		}
	}
	return HintUnknown
}

// Ambiguous reports whether h shares its symbologies with another hint,
// so that Resolve cannot recover it without the caller's hint.
func (h Hint) Ambiguous() bool {
	mapped, ok := hintMappings[h]
	if !ok {
		return false
	}
	for other, syms := range hintMappings {
		if other == h {
			continue
		}
		for _, s := range syms {
			for _, m := range mapped {
				if s == m {
					return true
				}
			}
		}
	}
	return false
}
