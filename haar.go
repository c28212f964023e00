//go:build !gocv

package facedet

import (
	"image"
	"io"
)

// OpenCVAvailable reports whether the binary was built with OpenCV support.
// Build with -tags gocv to enable the OpenCV backend.
func OpenCVAvailable() bool { return false }

// HaarClassifier is only functional in builds with the gocv tag.
type HaarClassifier struct{}

// NewHaarClassifier always fails without OpenCV support.
func NewHaarClassifier(path string) (*HaarClassifier, error) {
	return nil, ErrOpenCVUnavailable
}

// Scan finds nothing.
func (c *HaarClassifier) Scan(*image.Gray, ScanParams) []image.Rectangle { return nil }

// Close is a no-op.
func (c *HaarClassifier) Close() error { return nil }

// CaptureSource is only functional in builds with the gocv tag.
type CaptureSource struct{}

// NewCaptureSource always fails without OpenCV support.
func NewCaptureSource(device string) (*CaptureSource, error) {
	return nil, ErrOpenCVUnavailable
}

func (s *CaptureSource) Kind() SourceKind            { return Stream }
func (s *CaptureSource) Next() (*image.NRGBA, error) { return nil, io.EOF }
func (s *CaptureSource) Close() error                { return nil }

// NewCVEncoder always fails without OpenCV support.
func NewCVEncoder(path string, width, height int, fps float64) (VideoEncoder, error) {
	return nil, ErrOpenCVUnavailable
}

// Window is only functional in builds with the gocv tag.
type Window struct{}

// NewWindow always fails without OpenCV support.
func NewWindow(title string) (*Window, error) {
	return nil, ErrOpenCVUnavailable
}

func (w *Window) Show(*image.NRGBA, bool) bool { return false }
func (w *Window) Close() error                 { return nil }
