package facedet

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"github.com/esimov/facedet/utils"
	"github.com/stretchr/testify/assert"
)

func TestImage_ToNRGBA(t *testing.T) {
	rect := image.Rect(-1, -1, 15, 15)
	colors := palette.Plan9
	testCases := []struct {
		name string
		img  image.Image
	}{
		{
			name: "NRGBA",
			img:  makeNRGBAImage(rect, colors),
		},
		{
			name: "Gray",
			img:  makeGrayImage(rect, colors),
		},
		{
			name: "YCbCr-444",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio444),
		},
		{
			name: "YCbCr-422",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio422),
		},
		{
			name: "YCbCr-420",
			img:  makeYCbCrImage(rect, colors, image.YCbCrSubsampleRatio420),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dst := toNRGBA(tc.img)
			r := tc.img.Bounds()

			assert.Equal(t, image.Rect(0, 0, r.Dx(), r.Dy()), dst.Bounds())
			for y := r.Min.Y; y < r.Max.Y; y++ {
				got := readRow(dst, y-r.Min.Y)
				want := readRow(tc.img, y)
				if !compareBytes(got, want, 1) {
					t.Errorf("row y=%d: got %v want %v", y, got, want)
				}
			}
		})
	}
}

func TestImage_ToNRGBADoesNotAlias(t *testing.T) {
	src := makeNRGBAImage(image.Rect(0, 0, 4, 4), palette.Plan9)
	dst := toNRGBA(src)

	dst.Pix[0] ^= 0xff
	assert.NotEqual(t, src.Pix[0], dst.Pix[0])
}

func TestImage_DecodeFrame(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	if err := png.Encode(&buf, makeNRGBAImage(image.Rect(0, 0, 8, 6), palette.Plan9)); err != nil {
		t.Fatalf("could not encode fixture: %v", err)
	}

	frame, err := decodeFrame(&buf)
	assert.NoError(err)
	assert.Equal(image.Rect(0, 0, 8, 6), frame.Bounds())

	_, err = decodeFrame(strings.NewReader("definitely not an image"))
	assert.True(errors.Is(err, ErrUndecodable))
}

func TestImage_EncodeImageByExtension(t *testing.T) {
	assert := assert.New(t)
	img := makeNRGBAImage(image.Rect(0, 0, 8, 8), palette.Plan9)

	var pngBuf, jpgBuf, fallback bytes.Buffer
	assert.NoError(encodeImage(&pngBuf, img, "face.png"))
	assert.NoError(encodeImage(&jpgBuf, img, "face.jpg"))
	assert.NoError(encodeImage(&fallback, img, "face"))

	_, pngFormat, err := image.DecodeConfig(&pngBuf)
	assert.NoError(err)
	assert.Equal("png", pngFormat)

	_, jpgFormat, err := image.DecodeConfig(&jpgBuf)
	assert.NoError(err)
	assert.Equal("jpeg", jpgFormat)

	_, fallbackFormat, err := image.DecodeConfig(&fallback)
	assert.NoError(err)
	assert.Equal("png", fallbackFormat)
}

func TestImage_IsSupportedImage(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsSupportedImage("face.jpg"))
	assert.True(IsSupportedImage("dir/FACE.PNG"))
	assert.True(IsSupportedImage("face.webp"))
	assert.False(IsSupportedImage("clip.avi"))
	assert.False(IsSupportedImage("noext"))
}

func makeYCbCrImage(rect image.Rectangle, colors []color.Color, sr image.YCbCrSubsampleRatio) *image.YCbCr {
	img := image.NewYCbCr(rect, sr)
	j := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			iy := img.YOffset(x, y)
			ic := img.COffset(x, y)
			c := color.NRGBAModel.Convert(colors[j]).(color.NRGBA)
			img.Y[iy], img.Cb[ic], img.Cr[ic] = color.RGBToYCbCr(c.R, c.G, c.B)
			j++
		}
	}
	return img
}

func makeNRGBAImage(rect image.Rectangle, colors []color.Color) *image.NRGBA {
	img := image.NewNRGBA(rect)
	fillDrawImage(img, colors)
	return img
}

func makeGrayImage(rect image.Rectangle, colors []color.Color) *image.Gray {
	img := image.NewGray(rect)
	fillDrawImage(img, colors)
	return img
}

func fillDrawImage(img draw.Image, colors []color.Color) {
	rect := img.Bounds()
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			c := color.NRGBAModel.Convert(colors[i%len(colors)]).(color.NRGBA)
			c.A = 0xff
			img.Set(x, y, c)
			i++
		}
	}
}

func readRow(img image.Image, y int) []uint8 {
	row := make([]byte, img.Bounds().Dx()*4)
	i := 0
	for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		row[i+0] = c.R
		row[i+1] = c.G
		row[i+2] = c.B
		row[i+3] = c.A
		i += 4
	}
	return row
}

func compareBytes(a, b []uint8, delta int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if utils.Abs(int(a[i])-int(b[i])) > delta {
			return false
		}
	}
	return true
}
