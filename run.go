package facedet

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrSessionBusy is returned when Run is called on a session that is already running.
var ErrSessionBusy = errors.New("session is already running")

// Display shows processed frames. Show returns false when the viewer asks the run to stop.
// hold is set for static images, which stay on screen until the viewer dismisses them.
type Display interface {
	Show(frame *image.NRGBA, hold bool) bool
}

// NopDisplay discards every frame, for headless runs.
type NopDisplay struct{}

// Show implements Display.
func (NopDisplay) Show(*image.NRGBA, bool) bool { return true }

// Session binds a detector to its options, output directories and display.
// A session runs one source at a time; sequential runs may reuse it.
type Session struct {
	ID       uuid.UUID
	Detector *Detector
	Options  Options

	ImageDir string
	VideoDir string

	Display Display
	Encoder EncoderFactory
	Logger  *slog.Logger

	// OnFrame, when set, is called with the result of every processed frame.
	OnFrame func(*Result)

	running atomic.Bool
}

// NewSession returns a headless session writing into the default directories
// and recording through ffmpeg.
func NewSession(det *Detector, opts Options) *Session {
	logger := slog.Default()
	if det != nil && det.Logger != nil {
		logger = det.Logger
	}
	return &Session{
		ID:       uuid.New(),
		Detector: det,
		Options:  opts,
		ImageDir: DefaultImageDir,
		VideoDir: DefaultVideoDir,
		Display:  NopDisplay{},
		Encoder:  DefaultFFmpeg.NewEncoder,
		Logger:   logger,
	}
}

// Summary reports what a run did.
type Summary struct {
	SessionID uuid.UUID
	Frames    int
	Faces     int
	Eyes      int
	// Saved lists the image files written during the run, plus the recording if any.
	Saved []string
	// Video is the recording sink, nil unless the run recorded a stream.
	Video *VideoSink
	// Cancelled is set when the context ended the run.
	Cancelled bool
	// Stopped is set when the display asked the run to stop.
	Stopped bool
	// PersistErr joins every persistence failure. Detection keeps running on them.
	PersistErr error
}

// Run pulls frames from src until it is exhausted, ctx is cancelled or the display
// asks to stop. Each frame is processed, persisted when saving is enabled, then shown.
// The source and any open sink are closed before Run returns, whatever the exit path.
//
// A static image that cannot be decoded makes the run a no-op. A stream read
// error ends the stream. Cancellation is not an error: the summary reports it.
func (s *Session) Run(ctx context.Context, src FrameSource) (sum *Summary, err error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSessionBusy
	}
	defer s.running.Store(false)

	kind := src.Kind()
	logger := s.logger().With(
		slog.String("session", s.ID.String()),
		slog.String("source", kind.String()),
	)

	sum = &Summary{SessionID: s.ID}
	var video *VideoSink

	defer func() {
		if video != nil {
			if cerr := video.Close(); cerr != nil {
				sum.PersistErr = errors.Join(sum.PersistErr, cerr)
			}
			if video.Frames() > 0 {
				sum.Saved = append(sum.Saved, video.Path())
				logger.Info("recording saved", slog.String("path", video.Path()), slog.Int("frames", video.Frames()))
			}
		}
		if cerr := src.Close(); cerr != nil {
			logger.Warn("could not release frame source", slog.Any("error", cerr))
		}
	}()

	if s.Detector == nil {
		return nil, ErrNoClassifier
	}
	if err := s.Options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detection options: %w", err)
	}

	mode := s.Options.Persist.resolve(kind)
	if s.Options.Save && mode == PersistVideo {
		video = NewVideoSink(s.VideoDir, s.Encoder)
		sum.Video = video
	}
	images := NewImageSink(s.ImageDir)
	persisting := s.Options.Save

	marker := Circle
	if kind == Stream {
		marker = Dot
	}
	display := s.Display
	if display == nil {
		display = NopDisplay{}
	}

	logger.Debug("run started", slog.String("persist", mode.String()), slog.Bool("save", s.Options.Save))

	for {
		if ctx.Err() != nil {
			break
		}

		frame, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if kind == Static {
				logger.Warn("image could not be decoded, nothing processed", slog.Any("error", err))
			} else {
				logger.Warn("stream ended on a read error", slog.Any("error", err))
			}
			break
		}

		res := s.Detector.Process(frame, s.Options, marker)
		sum.Frames++
		sum.Faces += len(res.Faces)
		sum.Eyes += res.Eyes()

		if persisting {
			if perr := s.persist(mode, frame, res, images, video, sum); perr != nil {
				logger.Error("could not persist frame", slog.Int("frame", sum.Frames), slog.Any("error", perr))
				sum.PersistErr = errors.Join(sum.PersistErr, perr)
				// A recording that failed to start or was closed cannot recover.
				if mode == PersistVideo && !errors.Is(perr, ErrFrameSize) {
					persisting = false
				}
			}
		}

		if s.OnFrame != nil {
			s.OnFrame(res)
		}

		if !display.Show(frame, kind == Static) {
			sum.Stopped = true
			break
		}
	}

	if ctx.Err() != nil {
		sum.Cancelled = true
	}
	logger.Info("run finished",
		slog.Int("frames", sum.Frames),
		slog.Int("faces", sum.Faces),
		slog.Int("eyes", sum.Eyes),
		slog.Bool("cancelled", sum.Cancelled),
		slog.Bool("stopped", sum.Stopped),
	)
	return sum, nil
}

func (s *Session) persist(mode PersistMode, frame *image.NRGBA, res *Result, images *ImageSink, video *VideoSink, sum *Summary) error {
	switch mode {
	case PersistVideo:
		return video.WriteFrame(frame)
	case PersistFaceCrops:
		paths, err := images.WriteCrops(frame, res.Faces)
		sum.Saved = append(sum.Saved, paths...)
		return err
	default:
		path, err := images.WriteFrame(frame)
		if err != nil {
			return err
		}
		sum.Saved = append(sum.Saved, path)
		return nil
	}
}

func (s *Session) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
