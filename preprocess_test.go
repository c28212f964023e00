package facedet

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	imgWidth  = 10
	imgHeight = 10
)

func uniformFrame(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestPreprocess_GrayscaleKeepsNeutralTones(t *testing.T) {
	img := uniformFrame(imgWidth, imgHeight, color.NRGBA{177, 177, 177, 255})
	gray := Grayscale(img)

	for y := 0; y < imgHeight; y++ {
		for x := 0; x < imgWidth; x++ {
			if v := gray.GrayAt(x, y).Y; v != 177 {
				t.Fatalf("expected luminance 177 at (%d,%d), got %d", x, y, v)
			}
		}
	}
}

func TestPreprocess_GrayscaleWeightsChannels(t *testing.T) {
	assert := assert.New(t)

	red := Grayscale(uniformFrame(1, 1, color.NRGBA{255, 0, 0, 255})).GrayAt(0, 0).Y
	green := Grayscale(uniformFrame(1, 1, color.NRGBA{0, 255, 0, 255})).GrayAt(0, 0).Y
	blue := Grayscale(uniformFrame(1, 1, color.NRGBA{0, 0, 255, 255})).GrayAt(0, 0).Y

	assert.Equal(uint8(76), red)
	assert.Equal(uint8(150), green)
	assert.Equal(uint8(29), blue)
}

func TestPreprocess_GrayscaleRebasesSubImages(t *testing.T) {
	img := uniformFrame(20, 20, color.NRGBA{10, 10, 10, 255})
	img.SetNRGBA(12, 12, color.NRGBA{200, 200, 200, 255})

	sub := img.SubImage(image.Rect(10, 10, 20, 20)).(*image.NRGBA)
	gray := Grayscale(sub)

	assert.Equal(t, image.Rect(0, 0, 10, 10), gray.Bounds())
	assert.Equal(t, uint8(200), gray.GrayAt(2, 2).Y)
}

func TestPreprocess_EqualizeStretchesRange(t *testing.T) {
	assert := assert.New(t)

	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range gray.Pix {
		gray.Pix[i] = 100
	}
	gray.Pix[0] = 120
	gray.Pix[1] = 140

	eq := Equalize(gray)
	assert.Equal(uint8(0), eq.Pix[5])
	assert.Equal(uint8(128), eq.Pix[0])
	assert.Equal(uint8(255), eq.Pix[1])
}

func TestPreprocess_EqualizeFlatImageIsUnchanged(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 3))
	for i := range gray.Pix {
		gray.Pix[i] = 42
	}
	assert.Equal(t, gray.Pix, Equalize(gray).Pix)
}

func TestPreprocess_BlurKeepsUniformRegions(t *testing.T) {
	gray := Grayscale(uniformFrame(imgWidth, imgHeight, color.NRGBA{90, 90, 90, 255}))
	blurred := Blur(gray)

	assert.Equal(t, gray.Bounds(), blurred.Bounds())
	for y := 2; y < imgHeight-2; y++ {
		for x := 2; x < imgWidth-2; x++ {
			assert.InDelta(t, 90, int(blurred.GrayAt(x, y).Y), 1)
		}
	}
}

func TestPreprocess_DoesNotMutateFrame(t *testing.T) {
	assert := assert.New(t)

	img := uniformFrame(imgWidth, imgHeight, color.NRGBA{30, 60, 90, 255})
	img.SetNRGBA(4, 4, color.NRGBA{250, 250, 250, 255})
	before := append([]uint8(nil), img.Pix...)

	lean := Preprocess(img, false)
	rich := Preprocess(img, true)

	assert.Equal(before, img.Pix)
	assert.Equal(Grayscale(img).Pix, lean.Pix)
	assert.Equal(img.Bounds(), rich.Bounds())

	lean.Pix[0] = 0
	assert.Equal(before, img.Pix)
}
