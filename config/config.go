package config

import (
	"fmt"
	"log/slog"

	"github.com/esimov/facedet"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable, e.g. FACEDET_BACKEND.
const Prefix = "facedet"

const (
	BackendPigo   = "pigo"
	BackendOpenCV = "opencv"
)

type Config struct {
	Environment string     `envconfig:"ENV" default:"development"`
	LogLevel    slog.Level `envconfig:"LOG_LEVEL" default:"warn"`

	// Classifiers
	Backend     string `envconfig:"BACKEND" default:"pigo"`
	FaceCascade string `envconfig:"FACE_CASCADE" default:"cascade/facefinder"`
	EyeCascade  string `envconfig:"EYE_CASCADE" default:"cascade/puploc"`

	// Output
	ImageDir string `envconfig:"IMAGE_DIR" default:"visages_detectes"`
	VideoDir string `envconfig:"VIDEO_DIR" default:"videos_enregistrees"`

	// Detection tunables
	FaceScaleFactor  float64 `envconfig:"FACE_SCALE_FACTOR" default:"1.1"`
	FaceMinNeighbors int     `envconfig:"FACE_MIN_NEIGHBORS" default:"5"`
	FaceMinSize      int     `envconfig:"FACE_MIN_SIZE" default:"20"`
	EyeScaleFactor   float64 `envconfig:"EYE_SCALE_FACTOR" default:"1.1"`
	EyeMinNeighbors  int     `envconfig:"EYE_MIN_NEIGHBORS" default:"3"`

	// Annotation
	FaceColor   string `envconfig:"FACE_COLOR" default:"#00ffff"`
	EyeColor    string `envconfig:"EYE_COLOR" default:"#00ff00"`
	MarkerColor string `envconfig:"MARKER_COLOR" default:"#ffff00"`

	// External tools
	FFmpeg  string `envconfig:"FFMPEG" default:"ffmpeg"`
	FFprobe string `envconfig:"FFPROBE" default:"ffprobe"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPigo, BackendOpenCV:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendPigo, BackendOpenCV)
	}
	if c.FaceMinSize < 0 {
		return fmt.Errorf("face min size must not be negative, got %d", c.FaceMinSize)
	}
	if _, err := c.Style(); err != nil {
		return err
	}
	return c.Options(false).Validate()
}

// Options returns the detection options described by the configuration.
// lean selects the grayscale-only pipeline saving face crops.
func (c *Config) Options(lean bool) facedet.Options {
	opts := facedet.DefaultOptions()
	if lean {
		opts = facedet.LeanOptions()
	}
	opts.Face.ScaleFactor = c.FaceScaleFactor
	opts.Face.MinNeighbors = c.FaceMinNeighbors
	opts.Face.MinSize = c.FaceMinSize
	opts.Eye.ScaleFactor = c.EyeScaleFactor
	opts.Eye.MinNeighbors = c.EyeMinNeighbors

	if style, err := c.Style(); err == nil {
		opts.Style = style
	}
	return opts
}

// Style returns the annotation palette.
func (c *Config) Style() (facedet.Style, error) {
	return facedet.ParseStyle(c.FaceColor, c.EyeColor, c.MarkerColor)
}

// FFmpegTools returns the ffmpeg binaries to run.
func (c *Config) FFmpegTools() facedet.FFmpeg {
	return facedet.FFmpeg{Bin: c.FFmpeg, Probe: c.FFprobe}
}

// IsDevelopment enables source locations in log records.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction switches logging to JSON.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
