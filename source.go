package facedet

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/esimov/facedet/utils"
	"golang.org/x/term"
)

// PipeName is the source name that reads the image from stdin.
const PipeName = "-"

// ErrSourceOpen is returned when a frame source cannot be opened.
var ErrSourceOpen = errors.New("unable to open frame source")

// SourceKind distinguishes single images from frame streams.
type SourceKind int

const (
	// Static sources produce exactly one frame.
	Static SourceKind = iota
	// Stream sources produce frames until end of file or an external stop.
	Stream
)

func (k SourceKind) String() string {
	if k == Stream {
		return "stream"
	}
	return "static"
}

// FrameSource produces the frames of one run. Next returns io.EOF once the
// source is exhausted. Close releases the underlying file, process or device
// and is safe to call more than once.
type FrameSource interface {
	Next() (*image.NRGBA, error)
	Kind() SourceKind
	Close() error
}

// ImageSource is a static source reading one image from a file, a URL or stdin.
// Decoding is deferred to the first Next call.
type ImageSource struct {
	ctx  context.Context
	name string
	read bool
	tmp  string
}

// NewImageSource returns a static source for a path, an http(s) URL or PipeName.
func NewImageSource(ctx context.Context, name string) *ImageSource {
	return &ImageSource{ctx: ctx, name: name}
}

// Name returns the path, URL or pipe name the source reads from.
func (s *ImageSource) Name() string {
	return s.name
}

// Kind implements FrameSource.
func (s *ImageSource) Kind() SourceKind {
	return Static
}

// Next decodes the image on the first call and returns io.EOF afterwards.
// Any failure to reach or decode the image is reported as ErrUndecodable.
func (s *ImageSource) Next() (*image.NRGBA, error) {
	if s.read {
		return nil, io.EOF
	}
	s.read = true

	r, err := s.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	defer r.Close()

	return decodeFrame(r)
}

func (s *ImageSource) open() (io.ReadCloser, error) {
	switch {
	case s.name == PipeName:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdin")
		}
		return io.NopCloser(os.Stdin), nil
	case utils.IsValidUrl(s.name):
		path, err := utils.DownloadImage(s.ctx, s.name)
		if err != nil {
			return nil, err
		}
		s.tmp = path
		return os.Open(path)
	default:
		return os.Open(s.name)
	}
}

// Close removes the temporary file of a downloaded image.
func (s *ImageSource) Close() error {
	if s.tmp == "" {
		return nil
	}
	err := os.Remove(s.tmp)
	s.tmp = ""
	return err
}

// MemorySource serves frames held in memory.
type MemorySource struct {
	frames []*image.NRGBA
	kind   SourceKind
	pos    int
	closed bool
}

// NewMemorySource returns a source yielding frames in order.
func NewMemorySource(kind SourceKind, frames ...*image.NRGBA) *MemorySource {
	return &MemorySource{frames: frames, kind: kind}
}

// Kind implements FrameSource.
func (s *MemorySource) Kind() SourceKind {
	return s.kind
}

// Next returns the next frame, or io.EOF once all frames were served.
// A nil frame is reported as ErrUndecodable.
func (s *MemorySource) Next() (*image.NRGBA, error) {
	if s.closed || s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	frame := s.frames[s.pos]
	s.pos++
	if frame == nil {
		return nil, ErrUndecodable
	}
	return frame, nil
}

// Close marks the source as released.
func (s *MemorySource) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *MemorySource) Closed() bool {
	return s.closed
}

// WalkImages starts a new goroutine to walk the directory tree in recursive manner
// and sends the path of each supported image file to the returned channel.
// The walk stops when ctx is cancelled; its final error is sent on the error channel.
func WalkImages(ctx context.Context, dir string) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() || !IsSupportedImage(path) {
				return nil
			}

			select {
			case <-ctx.Done():
				return fmt.Errorf("directory walk cancelled: %w", ctx.Err())
			case pathChan <- path:
			}
			return nil
		})
	}()
	return pathChan, errChan
}
