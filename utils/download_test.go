package utils

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func samplePNG(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("could not encode sample image: %v", err)
	}
	return buf.Bytes()
}

func TestUtils_ShouldDownloadImage(t *testing.T) {
	assert := assert.New(t)
	data := samplePNG(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	path, err := DownloadImage(context.Background(), srv.URL+"/face.png")
	if err != nil {
		t.Fatalf("couldn't download test file: %v", err)
	}
	defer os.Remove(path)

	got, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Equal(data, got)
}

func TestUtils_ShouldRejectNonImageDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>not an image</body></html>"))
	}))
	defer srv.Close()

	_, err := DownloadImage(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestUtils_ShouldRejectFailedStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := DownloadImage(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestUtils_ShouldBeValidUrl(t *testing.T) {
	assert := assert.New(t)

	assert.True(IsValidUrl("https://github.com/esimov/facedet/"))
	assert.False(IsValidUrl("testdata/face.png"))
	assert.False(IsValidUrl("/dev/video0"))
	assert.False(IsValidUrl("ftp://example.com/face.png"))
}

func TestUtils_ShouldDetectValidFileType(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "sample.png")
	if err := os.WriteFile(fname, samplePNG(t), 0644); err != nil {
		t.Fatalf("could not write sample image: %v", err)
	}

	ftype, err := DetectContentType(fname)
	if err != nil {
		t.Fatalf("could not detect content type: %v", err)
	}
	assert.Equal(t, "image/png", ftype)
}
