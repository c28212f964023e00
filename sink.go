package facedet

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const (
	// DefaultImageDir receives the annotated frames and face crops.
	DefaultImageDir = "visages_detectes"
	// DefaultVideoDir receives the recorded streams.
	DefaultVideoDir = "videos_enregistrees"
	// RecordFPS is the frame rate of every recording, whatever the source rate.
	RecordFPS = 20.0

	stampLayout = "20060102_150405"
)

var (
	// ErrFrameSize is returned when a frame does not match the size the video was opened with.
	ErrFrameSize = errors.New("frame size does not match the recording")
	// ErrSinkClosed is returned when writing to a sink that was already closed.
	ErrSinkClosed = errors.New("sink is closed")
)

// VideoEncoder writes equally sized frames into a video container.
type VideoEncoder interface {
	WriteFrame(*image.NRGBA) error
	Close() error
}

// EncoderFactory opens an encoder writing width x height frames at fps into path.
type EncoderFactory func(path string, width, height int, fps float64) (VideoEncoder, error)

// namer builds timestamped file names.
type namer struct {
	now func() time.Time
}

func (n namer) clock() time.Time {
	if n.now == nil {
		return time.Now()
	}
	return n.now()
}

// face returns face_<stamp>.png, or face_<stamp>_<i>.png for the i-th crop of a frame.
func (n namer) face(t time.Time, i int) string {
	if i < 0 {
		return "face_" + t.Format(stampLayout) + ".png"
	}
	return fmt.Sprintf("face_%s_%d.png", t.Format(stampLayout), i)
}

func (n namer) video(t time.Time) string {
	return "record_" + t.Format(stampLayout) + ".avi"
}

// createExclusive creates dir/name without ever replacing an existing file.
// On a collision it retries with a -1, -2, ... suffix before the extension.
func createExclusive(dir, name string) (*os.File, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return f, err
	}
}

// reserve returns a path under dir that did not exist when it was claimed.
func reserve(dir, name string) (string, error) {
	f, err := createExclusive(dir, name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return f.Name(), nil
}

// ImageSink writes annotated frames or face crops as PNG files into Dir.
// The directory is created on the first write.
type ImageSink struct {
	Dir   string
	namer namer
}

// NewImageSink returns a sink writing into dir.
func NewImageSink(dir string) *ImageSink {
	return &ImageSink{Dir: dir}
}

// WriteFrame saves the whole frame and returns the written path.
func (s *ImageSink) WriteFrame(frame *image.NRGBA) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("could not create image directory: %w", err)
	}
	return s.write(frame, s.namer.face(s.namer.clock(), -1))
}

// WriteCrops saves one file per face, cropped from the frame, and returns the written paths.
// Failures on single crops do not stop the others.
func (s *ImageSink) WriteCrops(frame *image.NRGBA, faces []Face) ([]string, error) {
	if len(faces) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create image directory: %w", err)
	}

	stamp := s.namer.clock()
	var (
		paths []string
		errs  []error
	)
	for i, face := range faces {
		r := face.Frame().Intersect(frame.Bounds())
		if r.Empty() {
			continue
		}
		path, err := s.write(imaging.Crop(frame, r), s.namer.face(stamp, i))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}

func (s *ImageSink) write(img image.Image, name string) (string, error) {
	f, err := createExclusive(s.Dir, name)
	if err != nil {
		return "", fmt.Errorf("could not create image file: %w", err)
	}
	defer f.Close()

	if err := encodeImage(f, img, name); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("could not encode %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}

// VideoSink records annotated frames into a single video file.
// The encoder is opened from the size of the first frame and owned by the sink
// until Close, which is safe to call on every exit path.
type VideoSink struct {
	Dir     string
	factory EncoderFactory
	namer   namer

	enc    VideoEncoder
	path   string
	size   image.Point
	frames int
	closed bool
}

// NewVideoSink returns a sink recording into dir through encoders built by factory.
func NewVideoSink(dir string, factory EncoderFactory) *VideoSink {
	return &VideoSink{Dir: dir, factory: factory}
}

// WriteFrame appends a frame, opening the recording on the first call.
func (s *VideoSink) WriteFrame(frame *image.NRGBA) error {
	if s.closed {
		return ErrSinkClosed
	}

	size := frame.Bounds().Size()
	if s.enc == nil {
		if err := s.open(size); err != nil {
			return err
		}
	}
	if size != s.size {
		return fmt.Errorf("%w: got %v, want %v", ErrFrameSize, size, s.size)
	}
	if err := s.enc.WriteFrame(frame); err != nil {
		return err
	}
	s.frames++
	return nil
}

func (s *VideoSink) open(size image.Point) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("could not create video directory: %w", err)
	}
	path, err := reserve(s.Dir, s.namer.video(s.namer.clock()))
	if err != nil {
		return fmt.Errorf("could not create video file: %w", err)
	}
	enc, err := s.factory(path, size.X, size.Y, RecordFPS)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("could not open video encoder: %w", err)
	}
	s.enc = enc
	s.path = path
	s.size = size
	return nil
}

// Close finalizes the recording. Only the first call does any work.
func (s *VideoSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.enc == nil {
		return nil
	}
	return s.enc.Close()
}

// Closed reports whether Close has been called.
func (s *VideoSink) Closed() bool { return s.closed }

// Frames returns the number of frames written so far.
func (s *VideoSink) Frames() int { return s.frames }

// Path returns the recording path, empty until the first frame.
func (s *VideoSink) Path() string { return s.path }

// FPS returns the recording frame rate.
func (s *VideoSink) FPS() float64 { return RecordFPS }
