package decode

import (
	"fmt"
	"image"
	"image/draw"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/aztec"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/teslashibe/go-barcode/pkg/barcode"
)

// zxingConfidence is reported for every decode. gozxing verifies error
// correction and check digits but has no confidence score.
const zxingConfidence = 1.0

// zxingFormats maps symbologies to the gozxing formats that produce them.
var zxingFormats = map[barcode.Symbology][]gozxing.BarcodeFormat{
	barcode.SymbologyQR:                 {gozxing.BarcodeFormat_QR_CODE},
	barcode.SymbologyAztec:              {gozxing.BarcodeFormat_AZTEC},
	barcode.SymbologyDataMatrix:         {gozxing.BarcodeFormat_DATA_MATRIX},
	barcode.SymbologyCodabar:            {gozxing.BarcodeFormat_CODABAR},
	barcode.SymbologyCode39:             {gozxing.BarcodeFormat_CODE_39},
	barcode.SymbologyCode93:             {gozxing.BarcodeFormat_CODE_93},
	barcode.SymbologyCode128:            {gozxing.BarcodeFormat_CODE_128},
	barcode.SymbologyITF14:              {gozxing.BarcodeFormat_ITF},
	barcode.SymbologyI2of5:              {gozxing.BarcodeFormat_ITF},
	barcode.SymbologyEAN13:              {gozxing.BarcodeFormat_EAN_13, gozxing.BarcodeFormat_UPC_A},
	barcode.SymbologyEAN8:               {gozxing.BarcodeFormat_EAN_8},
	barcode.SymbologyUPCE:               {gozxing.BarcodeFormat_UPC_E},
	barcode.SymbologyGS1DataBar:         {gozxing.BarcodeFormat_RSS_14},
	barcode.SymbologyGS1DataBarExpanded: {gozxing.BarcodeFormat_RSS_EXPANDED},
}

// symbologyOf classifies a gozxing result. UPC-A is reported as EAN-13,
// which is how it is encoded on the wire.
func symbologyOf(format gozxing.BarcodeFormat, text string) (barcode.Symbology, bool) {
	switch format {
	case gozxing.BarcodeFormat_QR_CODE:
		return barcode.SymbologyQR, true
	case gozxing.BarcodeFormat_AZTEC:
		return barcode.SymbologyAztec, true
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return barcode.SymbologyDataMatrix, true
	case gozxing.BarcodeFormat_CODABAR:
		return barcode.SymbologyCodabar, true
	case gozxing.BarcodeFormat_CODE_39:
		return barcode.SymbologyCode39, true
	case gozxing.BarcodeFormat_CODE_93:
		return barcode.SymbologyCode93, true
	case gozxing.BarcodeFormat_CODE_128:
		return barcode.SymbologyCode128, true
	case gozxing.BarcodeFormat_ITF:
		if len(text) == 14 {
			return barcode.SymbologyITF14, true
		}
		return barcode.SymbologyI2of5, true
	case gozxing.BarcodeFormat_EAN_13, gozxing.BarcodeFormat_UPC_A:
		return barcode.SymbologyEAN13, true
	case gozxing.BarcodeFormat_EAN_8:
		return barcode.SymbologyEAN8, true
	case gozxing.BarcodeFormat_UPC_E:
		return barcode.SymbologyUPCE, true
	case gozxing.BarcodeFormat_RSS_14:
		return barcode.SymbologyGS1DataBar, true
	case gozxing.BarcodeFormat_RSS_EXPANDED:
		return barcode.SymbologyGS1DataBarExpanded, true
	}
	return "", false
}

// ZXingDetector detects symbols with gozxing. PDF417 and the micro
// variants are not supported and are ignored when requested.
type ZXingDetector struct {
	tryHarder bool

	mu     sync.Mutex // Readers are stateful
	qr     gozxing.Reader
	aztec  gozxing.Reader
	matrix gozxing.Reader
	oneD   map[string]gozxing.Reader // By requested format set
}

// ZXingOption configures a ZXingDetector.
type ZXingOption func(*ZXingDetector)

// WithTryHarder trades speed for accuracy, including rotated 1D scans.
func WithTryHarder(on bool) ZXingOption {
	return func(d *ZXingDetector) { d.tryHarder = on }
}

// NewZXingDetector creates a gozxing-backed detector.
func NewZXingDetector(opts ...ZXingOption) *ZXingDetector {
	d := &ZXingDetector{
		tryHarder: true,
		qr:        qrcode.NewQRCodeReader(),
		aztec:     aztec.NewAztecReader(),
		matrix:    datamatrix.NewDataMatrixReader(),
		oneD:      make(map[string]gozxing.Reader),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Supports reports whether s can be detected.
func (d *ZXingDetector) Supports(s barcode.Symbology) bool {
	_, ok := zxingFormats[s]
	return ok
}

// Detect implements Detector. It returns at most one observation.
func (d *ZXingDetector) Detect(req Request) ([]Observation, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("decode: no image")
	}

	wanted := make(map[barcode.Symbology]bool, len(req.Symbologies))
	var formats []gozxing.BarcodeFormat
	seen := make(map[gozxing.BarcodeFormat]bool)
	for _, s := range req.Symbologies {
		wanted[s] = true
		for _, f := range zxingFormats[s] {
			if !seen[f] {
				seen[f] = true
				formats = append(formats, f)
			}
		}
	}
	if len(formats) == 0 {
		return nil, nil
	}

	img, err := crop(req.Image, req.RegionOfInterest)
	if err != nil {
		return nil, err
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("decode: binarize: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_POSSIBLE_FORMATS: gozxing.BarcodeFormats(formats),
	}
	if d.tryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, reader := range d.readersFor(seen, formats, hints) {
		// Decode errors (not found, checksum, format) mean no symbol.
		res, err := reader.Decode(bmp, hints)
		reader.Reset()
		if err != nil {
			continue
		}
		sym, ok := symbologyOf(res.GetBarcodeFormat(), res.GetText())
		if !ok || !wanted[sym] {
			continue
		}
		return []Observation{{
			Payload:    res.GetText(),
			Symbology:  sym,
			Confidence: zxingConfidence,
		}}, nil
	}
	return nil, nil
}

// readersFor returns the readers covering formats. Callers hold d.mu.
func (d *ZXingDetector) readersFor(seen map[gozxing.BarcodeFormat]bool, formats []gozxing.BarcodeFormat, hints map[gozxing.DecodeHintType]interface{}) []gozxing.Reader {
	var readers []gozxing.Reader
	if seen[gozxing.BarcodeFormat_QR_CODE] {
		readers = append(readers, d.qr)
	}
	if seen[gozxing.BarcodeFormat_DATA_MATRIX] {
		readers = append(readers, d.matrix)
	}
	if seen[gozxing.BarcodeFormat_AZTEC] {
		readers = append(readers, d.aztec)
	}

	var linear []gozxing.BarcodeFormat
	for _, f := range formats {
		switch f {
		case gozxing.BarcodeFormat_QR_CODE, gozxing.BarcodeFormat_DATA_MATRIX, gozxing.BarcodeFormat_AZTEC:
		default:
			linear = append(linear, f)
		}
	}
	if len(linear) > 0 {
		key := formatKey(linear)
		r, ok := d.oneD[key]
		if !ok {
			r = oned.NewMultiFormatOneDReader(hints)
			d.oneD[key] = r
		}
		readers = append(readers, r)
	}
	return readers
}

func formatKey(formats []gozxing.BarcodeFormat) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = strconv.Itoa(int(f))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// crop returns the part of img inside roi.
func crop(img image.Image, roi Rect) (image.Image, error) {
	if roi.Empty() || roi == FullFrame {
		return img, nil
	}
	bounds := roi.Pixels(img.Bounds())
	if bounds.Empty() {
		return nil, fmt.Errorf("decode: region of interest %+v is outside the image", roi)
	}
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(bounds), nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst, nil
}
