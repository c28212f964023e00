package facedet

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/histogram"
)

// blurRadius gives bild's gaussian kernel a 5x5 footprint.
const blurRadius = 2.0

// Preprocess converts a color frame into the single channel image the classifiers scan.
// With enhance set the luminance is smoothed and its histogram equalized.
// The input frame is never modified and the result is always a new buffer
// with its origin at (0, 0).
func Preprocess(frame *image.NRGBA, enhance bool) *image.Gray {
	gray := Grayscale(frame)
	if !enhance {
		return gray
	}
	return Equalize(Blur(gray))
}

// Grayscale converts the image to its BT.601 luminance.
func Grayscale(src *image.NRGBA) *image.Gray {
	b := src.Bounds()
	dx, dy := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, dx, dy))

	for y := 0; y < dy; y++ {
		si := src.PixOffset(b.Min.X, b.Min.Y+y)
		di := dst.PixOffset(0, y)
		for x := 0; x < dx; x++ {
			pix := src.Pix[si : si+3 : si+3]
			lum := 0.299*float64(pix[0]) + 0.587*float64(pix[1]) + 0.114*float64(pix[2])
			dst.Pix[di+x] = uint8(math.Min(lum+0.5, 255))
			si += 4
		}
	}
	return dst
}

// Blur suppresses sensor noise with a small gaussian kernel.
func Blur(src *image.Gray) *image.Gray {
	return rgbaToGray(blur.Gaussian(src, blurRadius))
}

// Equalize stretches the luminance histogram over the full 0-255 range.
// The darkest populated level maps to 0, the brightest to 255.
func Equalize(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	total := b.Dx() * b.Dy()
	if total == 0 {
		return dst
	}

	bins := histogram.NewRGBAHistogram(src).R.Bins

	first := 0
	for first < len(bins) && bins[first] == 0 {
		first++
	}
	if first == len(bins) || bins[first] == total {
		copyGray(dst, src)
		return dst
	}

	var lut [256]uint8
	scale := 255.0 / float64(total-bins[first])
	sum := 0
	for i := first + 1; i < len(bins) && i < 256; i++ {
		sum += bins[i]
		lut[i] = uint8(math.Min(math.Round(float64(sum)*scale), 255))
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		si := src.PixOffset(b.Min.X, y)
		di := dst.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[di+x] = lut[src.Pix[si+x]]
		}
	}
	return dst
}

// rgbaToGray keeps the red channel of an image whose channels are all equal.
func rgbaToGray(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		si := src.PixOffset(b.Min.X, y)
		di := dst.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[di+x] = src.Pix[si+x*4]
		}
	}
	return dst
}

func copyGray(dst, src *image.Gray) {
	b := src.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		copy(dst.Pix[dst.PixOffset(b.Min.X, y):dst.PixOffset(b.Max.X, y)],
			src.Pix[src.PixOffset(b.Min.X, y):src.PixOffset(b.Max.X, y)])
	}
}
