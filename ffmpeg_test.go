package facedet

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"image/color"
	"io"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFFmpeg_SplitJPEG(t *testing.T) {
	assert := assert.New(t)

	first := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	second := []byte{0xFF, 0xD8, 0x03, 0xFF, 0xD9}

	var stream bytes.Buffer
	stream.Write([]byte{0x00, 0x00}) // leading garbage
	stream.Write(first)
	stream.Write(second)
	stream.Write([]byte{0xFF, 0xD8, 0x04}) // truncated trailing frame

	scanner := bufio.NewScanner(&stream)
	scanner.Split(splitJPEG)

	var frames [][]byte
	for scanner.Scan() {
		frames = append(frames, append([]byte(nil), scanner.Bytes()...))
	}
	assert.NoError(scanner.Err())
	assert.Equal([][]byte{first, second}, frames)
}

func TestFFmpeg_SplitJPEGWaitsForMoreData(t *testing.T) {
	assert := assert.New(t)

	advance, token, err := splitJPEG([]byte{0xFF, 0xD8, 0x01}, false)
	assert.NoError(err)
	assert.Zero(advance)
	assert.Nil(token)

	advance, token, err = splitJPEG([]byte{0x01, 0x02}, false)
	assert.NoError(err)
	assert.Zero(advance)
	assert.Nil(token)
}

func TestFFmpeg_ParseRate(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(25.0, parseRate("25/1"))
	assert.InDelta(29.97, parseRate("30000/1001"), 0.01)
	assert.Equal(20.0, parseRate("20"))
	assert.Zero(parseRate("0/0"))
	assert.Zero(parseRate("N/A"))
}

func TestFFmpeg_CameraInput(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("device naming is checked on linux only")
	}
	format, input := CameraInput("0")
	assert.Equal(t, "v4l2", format)
	assert.Equal(t, "/dev/video0", input)

	_, input = CameraInput("/dev/video2")
	assert.Equal(t, "/dev/video2", input)
}

func TestFFmpeg_OpenVideoMissingFile(t *testing.T) {
	_, err := DefaultFFmpeg.OpenVideo(context.Background(), filepath.Join(t.TempDir(), "missing.avi"))
	assert.True(t, errors.Is(err, ErrSourceOpen))
}

func TestFFmpeg_MissingBinary(t *testing.T) {
	assert := assert.New(t)

	ff := FFmpeg{Bin: "facedet-no-such-ffmpeg", Probe: "facedet-no-such-ffprobe"}
	assert.False(ff.Available())

	_, err := ff.NewEncoder(filepath.Join(t.TempDir(), "out.avi"), 8, 8, 20)
	assert.True(errors.Is(err, ErrFFmpegNotFound))

	_, err = ff.ProbeVideo(context.Background(), "whatever.avi")
	assert.True(errors.Is(err, ErrFFmpegNotFound))
}

func TestFFmpeg_EncodeThenDecode(t *testing.T) {
	if !DefaultFFmpeg.Available() {
		t.Skip("ffmpeg is not installed")
	}
	assert := assert.New(t)

	const width, height, frames = 64, 48, 5
	path := filepath.Join(t.TempDir(), "clip.avi")

	enc, err := DefaultFFmpeg.NewEncoder(path, width, height, 20)
	if err != nil {
		t.Fatalf("could not start encoder: %v", err)
	}
	for i := 0; i < frames; i++ {
		frame := uniformFrame(width, height, color.NRGBA{uint8(i * 40), 80, 160, 255})
		assert.NoError(enc.WriteFrame(frame))
	}
	assert.True(errors.Is(enc.WriteFrame(uniformFrame(width+1, height, black)), ErrFrameSize))
	assert.NoError(enc.Close())

	info, err := DefaultFFmpeg.ProbeVideo(context.Background(), path)
	assert.NoError(err)
	assert.Equal(width, info.Width)
	assert.Equal(height, info.Height)

	src, err := DefaultFFmpeg.OpenVideo(context.Background(), path)
	if err != nil {
		t.Fatalf("could not open clip: %v", err)
	}
	assert.Equal(Stream, src.Kind())

	n := 0
	for {
		frame, err := src.Next()
		if err == io.EOF {
			break
		}
		if !assert.NoError(err) {
			break
		}
		assert.Equal(width, frame.Bounds().Dx())
		n++
	}
	assert.Equal(frames, n)
	assert.NoError(src.Close())
	assert.NoError(src.Close())
}
