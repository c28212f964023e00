package facedet

import "fmt"

// PersistMode selects what a saving session writes to disk.
type PersistMode int

const (
	// PersistAuto writes the annotated frame for static images and a video for streams.
	PersistAuto PersistMode = iota
	// PersistFrame writes every annotated frame as an image file.
	PersistFrame
	// PersistFaceCrops writes one image file per detected face, cropped from the frame.
	PersistFaceCrops
	// PersistVideo records the annotated frames into a single video file.
	PersistVideo
)

var persistModes = map[string]PersistMode{
	"auto":  PersistAuto,
	"frame": PersistFrame,
	"crops": PersistFaceCrops,
	"video": PersistVideo,
}

// ParsePersistMode maps a command line value to its PersistMode.
func ParsePersistMode(s string) (PersistMode, error) {
	if m, ok := persistModes[s]; ok {
		return m, nil
	}
	return PersistAuto, fmt.Errorf("unknown persist mode %q (want auto, frame, crops or video)", s)
}

func (m PersistMode) String() string {
	for name, mode := range persistModes {
		if mode == m {
			return name
		}
	}
	return "unknown"
}

// resolve picks the concrete mode for a source kind.
func (m PersistMode) resolve(kind SourceKind) PersistMode {
	if m != PersistAuto {
		return m
	}
	if kind == Stream {
		return PersistVideo
	}
	return PersistFrame
}

// Options is the detection configuration of a session. It is read-only during a run.
type Options struct {
	Face ScanParams
	Eye  ScanParams

	// Preprocess enables the blur and histogram equalization steps.
	Preprocess bool
	// DetectEyes enables the nested eye pass inside every face.
	DetectEyes bool
	// EyeMarkers draws a marker centered on every eye.
	EyeMarkers bool

	// Save enables persistence. Nothing is written when it is false.
	Save    bool
	Persist PersistMode

	Style Style
}

// DefaultOptions returns the full pipeline: enhanced preprocessing, eyes with
// markers, faces accepted at 5 neighbors and eyes at 3.
func DefaultOptions() Options {
	return Options{
		Face:       ScanParams{ScaleFactor: 1.1, MinNeighbors: 5},
		Eye:        ScanParams{ScaleFactor: 1.1, MinNeighbors: 3},
		Preprocess: true,
		DetectEyes: true,
		EyeMarkers: true,
		Persist:    PersistAuto,
		Style:      DefaultStyle(),
	}
}

// LeanOptions returns the lightweight pipeline: grayscale only, faces only,
// and per-face crops when saving.
func LeanOptions() Options {
	opts := DefaultOptions()
	opts.Preprocess = false
	opts.DetectEyes = false
	opts.EyeMarkers = false
	opts.Persist = PersistFaceCrops
	return opts
}

// Validate rejects tunables the classifiers cannot work with.
func (o Options) Validate() error {
	for name, p := range map[string]ScanParams{"face": o.Face, "eye": o.Eye} {
		if p.ScaleFactor <= 1 {
			return fmt.Errorf("%s scale factor must be greater than 1, got %v", name, p.ScaleFactor)
		}
		if p.MinNeighbors < 0 {
			return fmt.Errorf("%s min neighbors must not be negative, got %d", name, p.MinNeighbors)
		}
		if p.MaxSize > 0 && p.MinSize > p.MaxSize {
			return fmt.Errorf("%s min size %d exceeds max size %d", name, p.MinSize, p.MaxSize)
		}
	}
	return nil
}
