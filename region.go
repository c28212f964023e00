package facedet

import "image"

// Kind tells which cascade produced a region.
type Kind int

const (
	// FaceKind marks a region found by the face pass over the whole frame.
	FaceKind Kind = iota
	// EyeKind marks a region found inside the sub-image of a face.
	EyeKind
)

func (k Kind) String() string {
	switch k {
	case FaceKind:
		return "face"
	case EyeKind:
		return "eye"
	}
	return "unknown"
}

// Region is a single detection. Rect is expressed in the coordinate space of the
// image that was scanned: the frame for faces, the face sub-image for eyes.
// Origin is the offset of that space inside the frame.
type Region struct {
	Kind   Kind
	Rect   image.Rectangle
	Origin image.Point
}

// Frame translates the region into frame coordinates.
func (r Region) Frame() image.Rectangle {
	return r.Rect.Add(r.Origin)
}

// Center returns the region's midpoint in frame coordinates.
func (r Region) Center() image.Point {
	f := r.Frame()
	return image.Pt((f.Min.X+f.Max.X)/2, (f.Min.Y+f.Max.Y)/2)
}

// Face groups a face region with the eyes found inside it.
type Face struct {
	Region
	Eyes []Region
}

// IoU returns the intersection over union of two rectangles.
func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := area(inter)
	union := area(a) + area(b) - ia
	if union <= 0 {
		return 0
	}
	return float64(ia) / float64(union)
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// clip restricts every rectangle to bounds and drops the ones left empty.
func clip(rects []image.Rectangle, bounds image.Rectangle) []image.Rectangle {
	out := make([]image.Rectangle, 0, len(rects))
	for _, r := range rects {
		r = r.Canon().Intersect(bounds)
		if r.Empty() {
			continue
		}
		out = append(out, r)
	}
	return out
}
