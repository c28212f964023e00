package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeImages(t *testing.T, names ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("could not write %s: %v", name, err)
		}
	}
	return dir
}

func TestDetectDir_VisitsEveryImage(t *testing.T) {
	assert := assert.New(t)
	dir := writeImages(t, "a.png", "b.jpg", "notes.txt")

	var seen []string
	err := detectDir(context.Background(), dir, func(_ context.Context, path string) error {
		seen = append(seen, filepath.Base(path))
		return nil
	})
	assert.NoError(err)
	assert.ElementsMatch([]string{"a.png", "b.jpg"}, seen)
}

func TestDetectDir_StopsAtFirstFailure(t *testing.T) {
	assert := assert.New(t)
	dir := writeImages(t, "a.png", "b.png", "c.png")

	failed := errors.New("detection failed")
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- detectDir(context.Background(), dir, func(context.Context, string) error {
			calls++
			return failed
		})
	}()

	// detectDir only returns once the walker has stopped sending.
	assert.ErrorIs(<-done, failed)
	assert.Equal(1, calls)
}
