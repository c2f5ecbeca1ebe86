// Command qrgen renders test barcodes: QR codes to the terminal or a PNG,
// and linear codes to a PNG. The PNGs can be fed to `scan -replay`.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"
)

var levels = map[string]qr.Level{
	"L": qr.L,
	"M": qr.M,
	"Q": qr.Q,
	"H": qr.H,
}

type linear struct {
	format gozxing.BarcodeFormat
	writer func() gozxing.Writer
}

var linearFormats = map[string]linear{
	"code128": {gozxing.BarcodeFormat_CODE_128, func() gozxing.Writer { return oned.NewCode128Writer() }},
	"code39":  {gozxing.BarcodeFormat_CODE_39, func() gozxing.Writer { return oned.NewCode39Writer() }},
	"ean13":   {gozxing.BarcodeFormat_EAN_13, func() gozxing.Writer { return oned.NewEAN13Writer() }},
	"ean8":    {gozxing.BarcodeFormat_EAN_8, func() gozxing.Writer { return oned.NewEAN8Writer() }},
	"upca":    {gozxing.BarcodeFormat_UPC_A, func() gozxing.Writer { return oned.NewUPCAWriter() }},
	"itf":     {gozxing.BarcodeFormat_ITF, func() gozxing.Writer { return oned.NewITFWriter() }},
}

func main() {
	format := flag.String("format", "qr", "Symbology: qr, code128, code39, ean13, ean8, upca, itf")
	level := flag.String("level", "M", "QR error correction: L, M, Q, H")
	out := flag.String("png", "", "Write a PNG instead of printing to the terminal")
	scale := flag.Int("scale", 8, "QR module size in pixels for -png")
	width := flag.Int("width", 400, "Linear barcode width in pixels")
	height := flag.Int("height", 120, "Linear barcode height in pixels")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: qrgen [flags] <text>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	text := flag.Arg(0)

	if err := generate(text, strings.ToLower(*format), *level, *out, *scale, *width, *height); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func generate(text, format, level, out string, scale, width, height int) error {
	if format == "qr" {
		l, ok := levels[strings.ToUpper(level)]
		if !ok {
			return fmt.Errorf("unknown level %q", level)
		}
		if out == "" {
			qrterminal.GenerateHalfBlock(text, l, os.Stdout)
			return nil
		}
		code, err := qr.Encode(text, l)
		if err != nil {
			return err
		}
		code.Scale = scale
		return os.WriteFile(out, code.PNG(), 0644)
	}

	lf, ok := linearFormats[format]
	if !ok {
		return fmt.Errorf("unknown format %q", format)
	}
	if out == "" {
		return fmt.Errorf("%s needs -png <file>", format)
	}
	matrix, err := lf.writer().Encode(text, lf.format, width, height, nil)
	if err != nil {
		return err
	}
	return writePNG(out, matrix)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
