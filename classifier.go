package facedet

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
)

var (
	// ErrModelNotFound is returned when a cascade file cannot be located.
	ErrModelNotFound = errors.New("cascade model not found")
	// ErrModelInvalid is returned when a cascade file exists but cannot be loaded.
	ErrModelInvalid = errors.New("cascade model could not be loaded")
	// ErrNoClassifier is returned when a detector is built without one of its classifiers.
	ErrNoClassifier = errors.New("missing classifier")
	// ErrOpenCVUnavailable is returned by the OpenCV backend in builds without the gocv tag.
	ErrOpenCVUnavailable = errors.New("built without OpenCV support")
)

// ScanParams are the tunables of one multi-scale classifier pass.
type ScanParams struct {
	// ScaleFactor is the growth of the search window between two scales (1.1 means 10%).
	ScaleFactor float64
	// MinNeighbors is the number of overlapping raw hits a candidate needs to be accepted.
	// Zero or less returns the raw hits ungrouped.
	MinNeighbors int
	// MinSize and MaxSize bound the window side in pixels. Zero means no bound.
	MinSize int
	MaxSize int
}

// Classifier is a pre-trained cascaded detector treated as an opaque capability.
// Scan returns the accepted detections as rectangles relative to the scanned
// image's top-left corner, in no particular order.
type Classifier interface {
	Scan(img *image.Gray, p ScanParams) []image.Rectangle
}

// ClassifierFunc adapts an ordinary function to the Classifier interface.
type ClassifierFunc func(img *image.Gray, p ScanParams) []image.Rectangle

// Scan calls f(img, p).
func (f ClassifierFunc) Scan(img *image.Gray, p ScanParams) []image.Rectangle {
	return f(img, p)
}

// readModel loads a cascade file from disk, failing fast when it is missing.
func readModel(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrModelNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrModelInvalid, path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrModelInvalid, path)
	}
	return data, nil
}

// localBounds is the scanned image rectangle rebased at (0, 0).
func localBounds(img image.Image) image.Rectangle {
	b := img.Bounds()
	return image.Rect(0, 0, b.Dx(), b.Dy())
}
