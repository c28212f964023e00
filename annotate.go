package facedet

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// MarkerStyle is the shape drawn at the center of every eye.
type MarkerStyle string

const (
	// Circle draws a one pixel ring whose radius is a quarter of the eye's smaller side.
	Circle MarkerStyle = "circle"
	// Dot draws a small filled disc, readable on moving video.
	Dot MarkerStyle = "dot"
)

// dotRadius is the radius of the Dot marker.
const dotRadius = 2

// Style holds the annotation palette.
type Style struct {
	Face      color.NRGBA
	Eye       color.NRGBA
	Marker    color.NRGBA
	Thickness int
}

// DefaultStyle draws cyan faces, green eyes and yellow eye markers.
func DefaultStyle() Style {
	return Style{
		Face:      color.NRGBA{R: 0x00, G: 0xff, B: 0xff, A: 0xff},
		Eye:       color.NRGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff},
		Marker:    color.NRGBA{R: 0xff, G: 0xff, B: 0x00, A: 0xff},
		Thickness: 2,
	}
}

// ParseStyle builds a style from hex color strings such as "#00ffff".
func ParseStyle(face, eye, marker string) (Style, error) {
	style := DefaultStyle()
	for _, c := range []struct {
		hex string
		dst *color.NRGBA
	}{
		{face, &style.Face},
		{eye, &style.Eye},
		{marker, &style.Marker},
	} {
		parsed, err := colorful.Hex(c.hex)
		if err != nil {
			return Style{}, fmt.Errorf("invalid annotation color %q: %w", c.hex, err)
		}
		r, g, b := parsed.RGB255()
		*c.dst = color.NRGBA{R: r, G: g, B: b, A: 0xff}
	}
	return style, nil
}

// Annotate draws every face and its eyes on the color frame in place.
// Eye rectangles go through the face-space transform carried by each region,
// so they land on the same pixels that were scanned in the gray frame.
func Annotate(frame *image.NRGBA, faces []Face, style Style, markers bool, marker MarkerStyle) {
	for _, face := range faces {
		strokeRect(frame, face.Frame(), style.Face, style.Thickness)

		for _, eye := range face.Eyes {
			strokeRect(frame, eye.Frame(), style.Eye, style.Thickness)
			if !markers {
				continue
			}

			center := eye.Center()
			switch marker {
			case Dot:
				fillCircle(frame, center, dotRadius, style.Marker)
			default:
				radius := min(eye.Rect.Dx(), eye.Rect.Dy()) / 4
				strokeCircle(frame, center, radius, style.Marker)
			}
		}
	}
}

// strokeRect draws the outline of r growing inwards by thickness pixels.
func strokeRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	for t := 0; t < thickness; t++ {
		inner := r.Inset(t)
		if inner.Empty() {
			return
		}
		for x := inner.Min.X; x < inner.Max.X; x++ {
			setPixel(img, x, inner.Min.Y, c)
			setPixel(img, x, inner.Max.Y-1, c)
		}
		for y := inner.Min.Y; y < inner.Max.Y; y++ {
			setPixel(img, inner.Min.X, y, c)
			setPixel(img, inner.Max.X-1, y, c)
		}
	}
}

// strokeCircle draws a one pixel ring with the midpoint circle algorithm.
func strokeCircle(img *image.NRGBA, center image.Point, radius int, c color.NRGBA) {
	if radius <= 0 {
		setPixel(img, center.X, center.Y, c)
		return
	}
	x, y := radius, 0
	err := 1 - radius
	for x >= y {
		for _, p := range [8]image.Point{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			setPixel(img, center.X+p.X, center.Y+p.Y, c)
		}
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

// fillCircle draws a filled disc.
func fillCircle(img *image.NRGBA, center image.Point, radius int, c color.NRGBA) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				setPixel(img, center.X+dx, center.Y+dy, c)
			}
		}
	}
}

// setPixel writes c at (x, y), ignoring points outside the image.
func setPixel(img *image.NRGBA, x, y int, c color.NRGBA) {
	if !(image.Point{X: x, Y: y}).In(img.Rect) {
		return
	}
	i := img.PixOffset(x, y)
	img.Pix[i+0] = c.R
	img.Pix[i+1] = c.G
	img.Pix[i+2] = c.B
	img.Pix[i+3] = c.A
}
