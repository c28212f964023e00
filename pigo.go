package facedet

import (
	"fmt"
	"image"

	"github.com/esimov/facedet/utils"
	pigo "github.com/esimov/pigo/core"
)

const (
	// defaultMinSize is the smallest window pigo scans when no bound is given.
	defaultMinSize = 20
	// defaultShiftFactor moves the sliding window by 10% of its size.
	defaultShiftFactor = 0.1
	// perturbFact is the number of perturbations used for pupil localization.
	perturbFact = 63
)

// PigoClassifier runs a pigo cascade (such as facefinder) and groups its raw hits
// with the min-neighbors rule.
type PigoClassifier struct {
	cascade *pigo.Pigo

	// ShiftFactor is the sliding window step relative to its size.
	ShiftFactor float64
	// Angle is the cascade rotation: 0.0 is 0 radians and 1.0 is 2*pi radians.
	Angle float64
	// MinQuality discards raw hits scoring below it before grouping.
	MinQuality float32
}

// NewPigoClassifier loads a pigo cascade file from disk.
func NewPigoClassifier(path string) (*PigoClassifier, error) {
	data, err := readModel(path)
	if err != nil {
		return nil, err
	}
	c, err := NewPigoClassifierFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// NewPigoClassifierFromBytes unpacks an in-memory pigo cascade.
func NewPigoClassifierFromBytes(data []byte) (c *PigoClassifier, err error) {
	// pigo indexes the packet without length checks.
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("%w: error unpacking the cascade file: %v", ErrModelInvalid, r)
		}
	}()

	// Unpack the binary file. This will return the number of cascade trees,
	// the tree depth, the threshold and the prediction from tree's leaf nodes.
	cascade, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%w: error unpacking the cascade file: %v", ErrModelInvalid, err)
	}
	return &PigoClassifier{
		cascade:     cascade,
		ShiftFactor: defaultShiftFactor,
	}, nil
}

// Scan runs the cascade over img and returns the grouped detections.
func (c *PigoClassifier) Scan(img *image.Gray, p ScanParams) []image.Rectangle {
	bounds := localBounds(img)
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols == 0 || rows == 0 {
		return nil
	}

	minSize, maxSize := windowBounds(p, cols, rows)
	if minSize > maxSize {
		return nil
	}

	scale := p.ScaleFactor
	if scale <= 1 {
		scale = 1.1
	}

	cParams := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     maxSize,
		ShiftFactor: c.ShiftFactor,
		ScaleFactor: scale,

		// Pix starts at the image origin even for sub-images, so the
		// stride doubles as the row dimension.
		ImageParams: pigo.ImageParams{
			Pixels: img.Pix,
			Rows:   rows,
			Cols:   cols,
			Dim:    img.Stride,
		},
	}

	// Run the classifier over the obtained leaf nodes and return the detection results.
	// The result contains quadruplets representing the row, column, scale and detection score.
	dets := c.cascade.RunCascade(cParams, c.Angle)

	raw := make([]image.Rectangle, 0, len(dets))
	for _, det := range dets {
		if det.Q < c.MinQuality {
			continue
		}
		half := det.Scale / 2
		raw = append(raw, image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half))
	}

	return clip(groupRectangles(raw, p.MinNeighbors, groupEps), bounds)
}

// windowBounds resolves the scan window limits for an image of the given size.
func windowBounds(p ScanParams, cols, rows int) (int, int) {
	maxSide := utils.Max(cols, rows)

	minSize := p.MinSize
	if minSize <= 0 {
		minSize = defaultMinSize
	}
	maxSize := maxSide
	if p.MaxSize > 0 {
		maxSize = utils.Clamp(p.MaxSize, utils.Min(minSize, maxSide), maxSide)
	}
	return minSize, maxSize
}

// PuplocClassifier localizes the two pupils of a face crop with pigo's puploc
// cascade and reports each one as a square eye box a quarter of the face wide.
// The crop itself plays the role of the face detection, so ScaleFactor and
// MinNeighbors do not apply. MinSize, when set, is the minimal box side.
type PuplocClassifier struct {
	cascade *pigo.PuplocCascade

	// Perturbs is the number of randomized runs averaged per pupil.
	Perturbs int
	// Angle is the face rotation: 0.0 is 0 radians and 1.0 is 2*pi radians.
	Angle float64
}

// NewPuplocClassifier loads a pigo puploc cascade file from disk.
func NewPuplocClassifier(path string) (*PuplocClassifier, error) {
	data, err := readModel(path)
	if err != nil {
		return nil, err
	}
	c, err := NewPuplocClassifierFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// NewPuplocClassifierFromBytes unpacks an in-memory puploc cascade.
func NewPuplocClassifierFromBytes(data []byte) (c *PuplocClassifier, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("%w: error unpacking the puploc cascade file: %v", ErrModelInvalid, r)
		}
	}()

	cascade, err := pigo.NewPuplocCascade().UnpackCascade(data)
	if err != nil {
		return nil, fmt.Errorf("%w: error unpacking the puploc cascade file: %v", ErrModelInvalid, err)
	}
	return &PuplocClassifier{
		cascade:  cascade,
		Perturbs: perturbFact,
	}, nil
}

// Scan returns up to two eye boxes, left pupil first.
func (c *PuplocClassifier) Scan(img *image.Gray, p ScanParams) []image.Rectangle {
	bounds := localBounds(img)
	cols, rows := bounds.Dx(), bounds.Dy()
	if cols == 0 || rows == 0 {
		return nil
	}

	imgParams := pigo.ImageParams{
		Pixels: img.Pix,
		Rows:   rows,
		Cols:   cols,
		Dim:    img.Stride,
	}

	scale := utils.Max(cols, rows)
	side := utils.Max(scale/4, p.MinSize)
	half := side / 2

	eyes := make([]image.Rectangle, 0, 2)
	for _, dir := range []int{-1, 1} {
		puploc := pigo.Puploc{
			Row:      rows/2 - int(0.085*float32(scale)),
			Col:      cols/2 + dir*int(0.185*float32(scale)),
			Scale:    float32(scale) * 0.4,
			Perturbs: c.Perturbs,
		}
		eye := c.cascade.RunDetector(puploc, imgParams, c.Angle, false)
		if eye == nil || eye.Row <= 0 || eye.Col <= 0 {
			continue
		}
		eyes = append(eyes, image.Rect(eye.Col-half, eye.Row-half, eye.Col+half, eye.Row+half))
	}
	return clip(eyes, bounds)
}
