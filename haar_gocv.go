//go:build gocv

package facedet

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"

	"gocv.io/x/gocv"
)

const (
	keyEsc = 27
	keyQ   = 'q'
)

// OpenCVAvailable reports whether the binary was built with OpenCV support.
func OpenCVAvailable() bool { return true }

// HaarClassifier runs an OpenCV Haar cascade such as haarcascade_frontalface_default.xml.
type HaarClassifier struct {
	cascade gocv.CascadeClassifier
}

// NewHaarClassifier loads a Haar cascade XML file.
func NewHaarClassifier(path string) (*HaarClassifier, error) {
	// The cascade loader only reports success, check the file first for a precise error.
	if _, err := readModel(path); err != nil {
		return nil, err
	}
	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(path) {
		cascade.Close()
		return nil, fmt.Errorf("%w: %s", ErrModelInvalid, path)
	}
	return &HaarClassifier{cascade: cascade}, nil
}

// Scan implements Classifier through detectMultiScale.
func (c *HaarClassifier) Scan(img *image.Gray, p ScanParams) []image.Rectangle {
	// The Mat conversion needs a compact buffer, sub-images share their parent's stride.
	gray := image.NewGray(img.Bounds())
	copyGray(gray, img)

	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil
	}
	defer mat.Close()

	rects := c.cascade.DetectMultiScaleWithParams(mat, p.ScaleFactor, p.MinNeighbors, 0,
		image.Pt(p.MinSize, p.MinSize), image.Pt(p.MaxSize, p.MaxSize))
	return clip(rects, localBounds(img))
}

// Close releases the cascade.
func (c *HaarClassifier) Close() error {
	return c.cascade.Close()
}

// CaptureSource reads frames from a camera or video file through OpenCV.
type CaptureSource struct {
	device  string
	capture *gocv.VideoCapture
	mat     gocv.Mat
	closed  bool
}

// NewCaptureSource opens a camera index such as "0", or a video file path.
func NewCaptureSource(device string) (*CaptureSource, error) {
	var id interface{} = device
	if n, err := strconv.Atoi(device); err == nil {
		id = n
	}
	capture, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceOpen, device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", ErrSourceOpen, device)
	}
	return &CaptureSource{device: device, capture: capture, mat: gocv.NewMat()}, nil
}

// Kind implements FrameSource.
func (s *CaptureSource) Kind() SourceKind { return Stream }

// Next reads one frame. A failed read ends the stream.
func (s *CaptureSource) Next() (*image.NRGBA, error) {
	if s.closed {
		return nil, io.EOF
	}
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, io.EOF
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return toNRGBA(img), nil
}

// Close releases the camera or file.
func (s *CaptureSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.mat.Close(), s.capture.Close())
}

// cvEncoder records frames through an OpenCV XVID VideoWriter.
type cvEncoder struct {
	writer *gocv.VideoWriter
	size   image.Point
}

// NewCVEncoder is an EncoderFactory backed by OpenCV.
func NewCVEncoder(path string, width, height int, fps float64) (VideoEncoder, error) {
	writer, err := gocv.VideoWriterFile(path, "XVID", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("could not open video writer: %w", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("could not open video writer for %s", path)
	}
	return &cvEncoder{writer: writer, size: image.Pt(width, height)}, nil
}

// WriteFrame implements VideoEncoder.
func (e *cvEncoder) WriteFrame(frame *image.NRGBA) error {
	if size := frame.Bounds().Size(); size != e.size {
		return fmt.Errorf("%w: got %v, want %v", ErrFrameSize, size, e.size)
	}
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return fmt.Errorf("could not convert frame: %w", err)
	}
	defer mat.Close()
	return e.writer.Write(mat)
}

// Close finalizes the video file.
func (e *cvEncoder) Close() error {
	return e.writer.Close()
}

// Window shows processed frames in an OpenCV window.
// Pressing q or Esc, or closing the window, stops the run.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) (*Window, error) {
	return &Window{win: gocv.NewWindow(title)}, nil
}

// Show implements Display. Static images stay until a key press,
// streams poll the keyboard for one millisecond per frame.
func (w *Window) Show(frame *image.NRGBA, hold bool) bool {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return true
	}
	defer mat.Close()

	w.win.IMShow(mat)
	delay := 1
	if hold {
		delay = 0
	}
	switch w.win.WaitKey(delay) {
	case keyQ, keyEsc:
		return false
	}
	return w.win.IsOpen()
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
