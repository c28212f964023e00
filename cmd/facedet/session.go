package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/esimov/facedet"
	"github.com/esimov/facedet/config"
	"github.com/spf13/cobra"
)

// app wires the configuration, the classifiers and the session of one command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	ffmpeg  facedet.FFmpeg
	sess    *facedet.Session
	closers []io.Closer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if flags.verbose {
		level = slog.LevelDebug
	}
	a := &app{
		cfg:    cfg,
		logger: config.NewLogger(cfg.Environment, level),
		ffmpeg: cfg.FFmpegTools(),
	}

	face, eye, err := a.loadClassifiers()
	if err != nil {
		a.Close()
		return nil, err
	}
	det, err := facedet.NewDetector(face, eye, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts, err := a.options(cmd)
	if err != nil {
		a.Close()
		return nil, err
	}

	sess := facedet.NewSession(det, opts)
	sess.ImageDir = cfg.ImageDir
	sess.VideoDir = cfg.VideoDir
	sess.Logger = a.logger
	sess.Encoder = a.ffmpeg.NewEncoder
	if cfg.Backend == config.BackendOpenCV {
		sess.Encoder = facedet.NewCVEncoder
	}

	if flags.show {
		win, err := facedet.NewWindow("facedet")
		if err != nil {
			a.Close()
			return nil, err
		}
		sess.Display = win
		a.closers = append(a.closers, win)
	}

	a.sess = sess
	return a, nil
}

// applyFlags overrides the environment with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	set := cmd.Flags().Changed

	if flags.backend != "" {
		cfg.Backend = flags.backend
	}
	if flags.faceCascade != "" {
		cfg.FaceCascade = flags.faceCascade
	}
	if flags.eyeCascade != "" {
		cfg.EyeCascade = flags.eyeCascade
	}
	if flags.imageDir != "" {
		cfg.ImageDir = flags.imageDir
	}
	if flags.videoDir != "" {
		cfg.VideoDir = flags.videoDir
	}
	if set("face-scale") {
		cfg.FaceScaleFactor = flags.faceScale
	}
	if set("face-neighbors") {
		cfg.FaceMinNeighbors = flags.faceNeighbors
	}
	if set("face-min-size") {
		cfg.FaceMinSize = flags.faceMinSize
	}
	if set("eye-scale") {
		cfg.EyeScaleFactor = flags.eyeScale
	}
	if set("eye-neighbors") {
		cfg.EyeMinNeighbors = flags.eyeNeighbors
	}
	return cfg.Validate()
}

func (a *app) options(cmd *cobra.Command) (facedet.Options, error) {
	opts := a.cfg.Options(flags.lean)
	opts.Save = flags.save
	if flags.noPreprocess {
		opts.Preprocess = false
	}
	if flags.noEyes {
		opts.DetectEyes = false
	}
	if flags.noMarkers {
		opts.EyeMarkers = false
	}
	if cmd.Flags().Changed("persist") {
		mode, err := facedet.ParsePersistMode(flags.persist)
		if err != nil {
			return opts, err
		}
		opts.Persist = mode
	}
	return opts, opts.Validate()
}

func (a *app) loadClassifiers() (face, eye facedet.Classifier, err error) {
	if a.cfg.Backend == config.BackendOpenCV {
		f, err := facedet.NewHaarClassifier(a.cfg.FaceCascade)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, f)
		e, err := facedet.NewHaarClassifier(a.cfg.EyeCascade)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, e)
		return f, e, nil
	}

	f, err := facedet.NewPigoClassifier(a.cfg.FaceCascade)
	if err != nil {
		return nil, nil, err
	}
	e, err := facedet.NewPuplocClassifier(a.cfg.EyeCascade)
	if err != nil {
		return nil, nil, err
	}
	return f, e, nil
}

// requireFFmpeg fails early when the stream backend has no ffmpeg to run.
func (a *app) requireFFmpeg() error {
	if !a.ffmpeg.Available() {
		return fmt.Errorf("%w: install ffmpeg or set FACEDET_FFMPEG", facedet.ErrFFmpegNotFound)
	}
	return nil
}

// Close releases the cascades and the window.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
