// Package raster converts PDF pages to image files.
//
// Rendering is delegated to a [Rasterizer]; the default one runs the
// poppler pdftoppm tool. Encoding to PNG, JPEG, TIFF or BMP is done in
// process.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/seyaytua/manken/format"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Resolution limits in dots per inch.
const (
	DefaultDPI = 200
	MinDPI     = 72
	MaxDPI     = 600
)

// ErrInvalidDPI is returned for a resolution outside [MinDPI, MaxDPI].
var ErrInvalidDPI = errors.New("resolution out of range")

// Rasterizer renders every page of a PDF file, in page order.
type Rasterizer interface {
	Render(ctx context.Context, path string, dpi int, password string) ([]image.Image, error)
}

// CheckDPI validates a resolution.
func CheckDPI(dpi int) error {
	if dpi < MinDPI || dpi > MaxDPI {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidDPI, dpi, MinDPI, MaxDPI)
	}
	return nil
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f format.Format) error {
	switch f {
	case format.PNG:
		return png.Encode(w, img)
	case format.JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpeg.DefaultQuality})
	case format.TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case format.BMP:
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("cannot encode images as %s", f)
}

// FileNames returns the output names for the pages of the file with the
// given stem: "{stem}.{ext}" for a single page, "{stem}_page_{n}.{ext}"
// otherwise.
func FileNames(stem string, pages int, f format.Format) []string {
	if pages == 1 {
		return []string{stem + f.Extension()}
	}
	names := make([]string, pages)
	for i := range names {
		names[i] = fmt.Sprintf("%s_page_%d%s", stem, i+1, f.Extension())
	}
	return names
}
