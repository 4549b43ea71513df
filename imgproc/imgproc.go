// Package imgproc holds the raster primitives used to prepare a page region
// for OCR: exact cropping, luminance grayscale and global thresholding.
package imgproc

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ErrOutOfBounds is returned when a crop rectangle is not fully contained in
// the source image.
var ErrOutOfBounds = errors.New("imgproc: rectangle outside image bounds")

// Crop copies rect out of img. rect is expressed relative to the image's
// bounds origin and must lie fully inside the image. The returned image always
// starts at (0, 0).
func Crop(img image.Image, rect image.Rectangle) (*image.NRGBA, error) {
	b := img.Bounds()
	abs := rect.Add(b.Min)
	if rect.Empty() || !abs.In(b) {
		return nil, ErrOutOfBounds
	}
	return imaging.Crop(img, abs), nil
}

// Grayscale reduces img to a single channel using ITU-R BT.601 luminance
// weights (0.299 R + 0.587 G + 0.114 B).
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	src := imaging.Grayscale(img)
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+b.Dx()*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+b.Dx()]
		for x := range out {
			out[x] = row[x*4]
		}
	}
	return dst
}
