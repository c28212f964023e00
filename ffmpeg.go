package facedet

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

const megabyte = 1024 * 1024

var (
	// ErrFFmpegNotFound is returned when the ffmpeg or ffprobe binary is not installed.
	ErrFFmpegNotFound = errors.New("ffmpeg not found")

	jpegSOI = []byte{0xFF, 0xD8} // Start of Image
	jpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// FFmpeg names the binaries used to decode streams and encode recordings.
type FFmpeg struct {
	Bin   string
	Probe string
}

// DefaultFFmpeg resolves both binaries from PATH.
var DefaultFFmpeg = FFmpeg{Bin: "ffmpeg", Probe: "ffprobe"}

// Available reports whether the ffmpeg binary can be found.
func (f FFmpeg) Available() bool {
	_, err := exec.LookPath(f.Bin)
	return err == nil
}

// StreamInfo describes the first video stream of a file.
type StreamInfo struct {
	Width  int
	Height int
	FPS    float64
	// Frames is the frame count from the container metadata, 0 when unknown.
	Frames int
}

// ProbeVideo uses ffprobe to read the dimensions, frame rate and frame count of a video file.
func (f FFmpeg) ProbeVideo(ctx context.Context, path string) (*StreamInfo, error) {
	if _, err := exec.LookPath(f.Probe); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFFmpegNotFound, f.Probe, err)
	}

	// Helper struct for structured JSON parsing
	type ffprobeOutput struct {
		Streams []struct {
			Width        int    `json:"width"`
			Height       int    `json:"height"`
			AvgFrameRate string `json:"avg_frame_rate"`
			NbFrames     string `json:"nb_frames"`
		} `json:"streams"`
	}

	cmd := exec.CommandContext(ctx, f.Probe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate,nb_frames",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	var res ffprobeOutput
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, fmt.Errorf("ffprobe JSON parse error: %w", err)
	}
	if len(res.Streams) == 0 {
		return nil, fmt.Errorf("no video stream found in %s", path)
	}

	s := res.Streams[0]
	info := &StreamInfo{
		Width:  s.Width,
		Height: s.Height,
		FPS:    parseRate(s.AvgFrameRate),
	}
	// nb_frames is "N/A" for containers without metadata, leave it at 0.
	if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
		info.Frames = n
	}
	return info, nil
}

// parseRate converts an ffprobe rational such as "30000/1001" to frames per second.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// CameraInput returns the ffmpeg input format and device name for a camera on this platform.
// A numeric device is interpreted as the camera index.
func CameraInput(device string) (format string, input string) {
	_, numeric := strconv.Atoi(device)
	isIndex := numeric == nil

	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", device
	case "windows":
		return "dshow", "video=" + device
	default:
		if isIndex {
			return "v4l2", "/dev/video" + device
		}
		return "v4l2", device
	}
}

// StreamSource decodes a video file or a camera through an ffmpeg subprocess.
// Frames are piped as MJPEG and split on the JPEG start and end markers.
type StreamSource struct {
	name    string
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	scanner *bufio.Scanner
	pending *image.NRGBA
	done    bool
	closed  bool
}

// OpenVideo starts decoding a video file. It fails when the file is missing
// or ffmpeg cannot produce a first frame from it.
func (f FFmpeg) OpenVideo(ctx context.Context, path string) (*StreamSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceOpen, err)
	}
	return f.open(ctx, path, nil, path)
}

// OpenCamera starts capturing from a camera device (an index such as "0" or a device name).
// The stream never ends on its own, cancel ctx or Close it to stop.
func (f FFmpeg) OpenCamera(ctx context.Context, device string) (*StreamSource, error) {
	format, input := CameraInput(device)
	args := []string{"-f", format}
	if format == "avfoundation" {
		args = append(args, "-framerate", "30")
	}
	return f.open(ctx, input, args, "camera "+device)
}

func (f FFmpeg) open(ctx context.Context, input string, inputArgs []string, name string) (*StreamSource, error) {
	if _, err := exec.LookPath(f.Bin); err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %v", ErrSourceOpen, ErrFFmpegNotFound, f.Bin, err)
	}

	// -hide_banner and -loglevel error keep the stderr buffer small.
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, inputArgs...)
	args = append(args, "-i", input, "-an", "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "2", "-")

	cmd := exec.CommandContext(ctx, f.Bin, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create decoder pipe: %v", ErrSourceOpen, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start decoder: %v", ErrSourceOpen, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, megabyte), 64*megabyte)
	scanner.Split(splitJPEG)

	s := &StreamSource{
		name:    name,
		cmd:     cmd,
		stdout:  stdout,
		stderr:  stderr,
		scanner: scanner,
	}

	// A source that cannot deliver its first frame was never really opened.
	first, err := s.read()
	if err != nil {
		s.Close()
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrSourceOpen, name, reason)
	}
	s.pending = first
	return s, nil
}

// Name describes the file or device being decoded.
func (s *StreamSource) Name() string {
	return s.name
}

// Kind implements FrameSource.
func (s *StreamSource) Kind() SourceKind {
	return Stream
}

// Next returns the next decoded frame, or io.EOF at the end of the stream.
func (s *StreamSource) Next() (*image.NRGBA, error) {
	if s.pending != nil {
		frame := s.pending
		s.pending = nil
		return frame, nil
	}
	if s.closed {
		return nil, io.EOF
	}
	return s.read()
}

func (s *StreamSource) read() (*image.NRGBA, error) {
	if !s.scanner.Scan() {
		s.done = true
		if err := s.scanner.Err(); err != nil {
			return nil, fmt.Errorf("frame scanner failed: %w", err)
		}
		return nil, io.EOF
	}
	img, err := jpeg.Decode(bytes.NewReader(s.scanner.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return toNRGBA(img), nil
}

// Close stops the decoder process and releases the device or file.
func (s *StreamSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if !s.done && s.cmd.Process != nil {
		// The stream did not reach its end: a camera or an interrupted file.
		s.cmd.Process.Kill()
		s.cmd.Wait()
		return nil
	}
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("decoder process failed: %v: %s", err, strings.TrimSpace(s.stderr.String()))
	}
	return nil
}

// splitJPEG is the custom splitter for bufio.Scanner.
// It locates the Start Of Image (FFD8) and End Of Image (FFD9) markers to extract full JPEG frames.
func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start:], jpegEOI)
	if end == -1 {
		if atEOF {
			return len(data), nil, nil
		}
		return 0, nil, nil
	}
	return start + end + 2, data[start : start+end+2], nil
}

// ffmpegEncoder pipes raw RGBA frames into an ffmpeg process writing an XVID AVI file.
type ffmpegEncoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	width  int
	height int
	row    []byte
}

// NewEncoder starts an ffmpeg process encoding width x height frames at fps into path.
// The process is not bound to any context: a cancelled run must still finalize the container.
func (f FFmpeg) NewEncoder(path string, width, height int, fps float64) (VideoEncoder, error) {
	if _, err := exec.LookPath(f.Bin); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFFmpegNotFound, f.Bin, err)
	}

	cmd := exec.Command(f.Bin,
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "mpeg4", "-vtag", "xvid", "-q:v", "5",
		path,
	)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start encoder: %w", err)
	}

	return &ffmpegEncoder{
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
		width:  width,
		height: height,
		row:    make([]byte, width*4),
	}, nil
}

// WriteFrame implements VideoEncoder.
func (e *ffmpegEncoder) WriteFrame(frame *image.NRGBA) error {
	b := frame.Bounds()
	if b.Dx() != e.width || b.Dy() != e.height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, b.Dx(), b.Dy(), e.width, e.height)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := frame.PixOffset(b.Min.X, y)
		copy(e.row, frame.Pix[i:i+e.width*4])
		if _, err := e.stdin.Write(e.row); err != nil {
			return fmt.Errorf("encoder write failed: %w", err)
		}
	}
	return nil
}

// Close flushes the pipe and waits for ffmpeg to finalize the file.
func (e *ffmpegEncoder) Close() error {
	e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("encoder process failed: %v: %s", err, strings.TrimSpace(e.stderr.String()))
	}
	return nil
}
