package facedet

import (
	"image"
	"log/slog"
)

// Detector holds the two classifiers of the pipeline. It keeps no per-frame
// state, so one Detector can serve any number of sequential runs.
type Detector struct {
	Face   Classifier
	Eye    Classifier
	Logger *slog.Logger
}

// NewDetector builds a detector from a face and an eye classifier.
func NewDetector(face, eye Classifier, logger *slog.Logger) (*Detector, error) {
	if face == nil {
		return nil, ErrNoClassifier
	}
	if eye == nil {
		return nil, ErrNoClassifier
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		Face:   face,
		Eye:    eye,
		Logger: logger,
	}, nil
}

// DetectFaces scans the whole preprocessed frame for faces.
// Every returned rectangle lies within the frame bounds.
func (d *Detector) DetectFaces(gray *image.Gray, p ScanParams) []Region {
	rects := clip(d.Face.Scan(gray, p), localBounds(gray))

	faces := make([]Region, 0, len(rects))
	for _, r := range rects {
		faces = append(faces, Region{Kind: FaceKind, Rect: r})
	}
	return faces
}

// DetectEyes scans the preprocessed sub-image covered by face for eyes.
// The returned rectangles are local to the face and lie within its bounds;
// their Origin carries the face position inside the frame.
func (d *Detector) DetectEyes(gray *image.Gray, face Region, p ScanParams) []Region {
	fr := face.Frame()
	origin := gray.Bounds().Min
	roi, ok := gray.SubImage(fr.Add(origin)).(*image.Gray)
	if !ok || roi.Bounds().Empty() {
		return nil
	}

	rects := clip(d.Eye.Scan(roi, p), localBounds(roi))

	eyes := make([]Region, 0, len(rects))
	for _, r := range rects {
		eyes = append(eyes, Region{Kind: EyeKind, Rect: r, Origin: fr.Min})
	}
	return eyes
}

// Detect runs the face pass and, when enabled, the eye pass inside every face.
func (d *Detector) Detect(gray *image.Gray, opts Options) []Face {
	regions := d.DetectFaces(gray, opts.Face)

	faces := make([]Face, 0, len(regions))
	for _, r := range regions {
		face := Face{Region: r}
		if opts.DetectEyes {
			face.Eyes = d.DetectEyes(gray, r, opts.Eye)
		}
		faces = append(faces, face)
	}
	return faces
}

// Result is the outcome of processing one frame.
type Result struct {
	Faces []Face
	// Gray is the preprocessed frame the classifiers scanned.
	Gray *image.Gray
}

// Eyes returns the total number of eyes found across all faces.
func (r *Result) Eyes() int {
	n := 0
	for _, f := range r.Faces {
		n += len(f.Eyes)
	}
	return n
}

// Process runs the pipeline over one frame: preprocessing, face and eye
// detection, then annotation of the frame in place.
func (d *Detector) Process(frame *image.NRGBA, opts Options, marker MarkerStyle) *Result {
	gray := Preprocess(frame, opts.Preprocess)
	faces := d.Detect(gray, opts)

	// Preprocess rebases the gray frame at (0, 0), move regions back onto the color frame.
	if off := frame.Bounds().Min; off != (image.Point{}) {
		for i := range faces {
			faces[i].Origin = faces[i].Origin.Add(off)
			for j := range faces[i].Eyes {
				faces[i].Eyes[j].Origin = faces[i].Eyes[j].Origin.Add(off)
			}
		}
	}

	Annotate(frame, faces, opts.Style, opts.EyeMarkers, marker)

	d.Logger.Debug("frame processed",
		slog.Int("faces", len(faces)),
		slog.Int("width", frame.Bounds().Dx()),
		slog.Int("height", frame.Bounds().Dy()),
	)

	return &Result{Faces: faces, Gray: gray}
}
