package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name:    "uses defaults when nothing is set",
			envVars: map[string]string{},
			wantErr: false,
			check: func(c *Config) bool {
				return c.Environment == "development" &&
					c.Backend == BackendPigo &&
					c.ImageDir == "visages_detectes" &&
					c.VideoDir == "videos_enregistrees" &&
					c.FaceScaleFactor == 1.1 &&
					c.FaceMinNeighbors == 5 &&
					c.EyeMinNeighbors == 3 &&
					c.LogLevel == slog.LevelWarn &&
					c.FFmpeg == "ffmpeg"
			},
		},
		{
			name: "reads prefixed vars",
			envVars: map[string]string{
				"FACEDET_ENV":                "production",
				"FACEDET_BACKEND":            "opencv",
				"FACEDET_FACE_CASCADE":       "haarcascade_frontalface_default.xml",
				"FACEDET_EYE_CASCADE":        "haarcascade_eye.xml",
				"FACEDET_FACE_MIN_NEIGHBORS": "3",
				"FACEDET_EYE_SCALE_FACTOR":   "1.2",
				"FACEDET_IMAGE_DIR":          "/tmp/faces",
				"FACEDET_LOG_LEVEL":          "debug",
			},
			wantErr: false,
			check: func(c *Config) bool {
				return c.IsProduction() &&
					c.Backend == BackendOpenCV &&
					c.FaceCascade == "haarcascade_frontalface_default.xml" &&
					c.EyeCascade == "haarcascade_eye.xml" &&
					c.FaceMinNeighbors == 3 &&
					c.EyeScaleFactor == 1.2 &&
					c.ImageDir == "/tmp/faces" &&
					c.LogLevel == slog.LevelDebug
			},
		},
		{
			name:    "fails on unknown backend",
			envVars: map[string]string{"FACEDET_BACKEND": "dlib"},
			wantErr: true,
		},
		{
			name:    "fails on scale factor not above one",
			envVars: map[string]string{"FACEDET_FACE_SCALE_FACTOR": "1.0"},
			wantErr: true,
		},
		{
			name:    "fails on negative neighbors",
			envVars: map[string]string{"FACEDET_EYE_MIN_NEIGHBORS": "-1"},
			wantErr: true,
		},
		{
			name:    "fails on malformed number",
			envVars: map[string]string{"FACEDET_FACE_MIN_NEIGHBORS": "five"},
			wantErr: true,
		},
		{
			name:    "fails on invalid color",
			envVars: map[string]string{"FACEDET_FACE_COLOR": "cyan"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("Load() config check failed, got: %+v", cfg)
			}
		})
	}
}

func TestConfig_Options(t *testing.T) {
	assert := assert.New(t)

	os.Clearenv()
	os.Setenv("FACEDET_FACE_MIN_NEIGHBORS", "7")
	os.Setenv("FACEDET_EYE_COLOR", "#ff0000")
	cfg, err := Load()
	if !assert.NoError(err) {
		return
	}

	opts := cfg.Options(false)
	assert.Equal(7, opts.Face.MinNeighbors)
	assert.Equal(20, opts.Face.MinSize)
	assert.True(opts.Preprocess)
	assert.True(opts.EyeMarkers)
	assert.Equal(uint8(0xff), opts.Style.Eye.R)
	assert.Zero(opts.Style.Eye.G)

	lean := cfg.Options(true)
	assert.False(lean.Preprocess)
	assert.False(lean.EyeMarkers)
	assert.Equal(7, lean.Face.MinNeighbors)

	tools := cfg.FFmpegTools()
	assert.Equal("ffmpeg", tools.Bin)
	assert.Equal("ffprobe", tools.Probe)
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsDevelopment(); got != tt.want {
				t.Errorf("IsDevelopment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			if got := c.IsProduction(); got != tt.want {
				t.Errorf("IsProduction() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	newLogger("production", slog.LevelInfo, &buf).Debug("hidden")
	assert.Empty(buf.String())

	newLogger("production", slog.LevelInfo, &buf).Info("frame processed", slog.Int("faces", 2))
	var entry map[string]any
	assert.NoError(json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal("frame processed", entry["msg"])
	assert.Equal(float64(2), entry["faces"])

	buf.Reset()
	newLogger("development", slog.LevelDebug, &buf).Debug("shown")
	assert.True(strings.Contains(buf.String(), "msg=shown"))
	assert.True(strings.Contains(buf.String(), "source="))

	buf.Reset()
	newLogger("staging", slog.LevelInfo, &buf).Info("plain")
	assert.True(strings.Contains(buf.String(), "msg=plain"))
	assert.False(strings.Contains(buf.String(), "source="))
}
