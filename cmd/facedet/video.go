package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/esimov/facedet"
	"github.com/esimov/facedet/config"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var device string

var videoCmd = &cobra.Command{
	Use:   "video <file>",
	Short: "Detect faces in every frame of a video file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runVideo(cmd, args[0])
	},
}

var cameraCmd = &cobra.Command{
	Use:   "camera",
	Short: "Detect faces on a live camera until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runCamera(cmd)
	},
}

func init() {
	cameraCmd.Flags().StringVarP(&device, "device", "d", "0", "Camera index or device name")

	rootCmd.AddCommand(videoCmd)
	rootCmd.AddCommand(cameraCmd)
}

func runVideo(cmd *cobra.Command, path string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	var src facedet.FrameSource
	if a.cfg.Backend == config.BackendOpenCV {
		src, err = facedet.NewCaptureSource(path)
	} else {
		if err := a.requireFFmpeg(); err != nil {
			return err
		}
		src, err = a.ffmpeg.OpenVideo(ctx, path)
	}
	if err != nil {
		return err
	}

	// The frame count is only used by the progress bar, an unknown count shows a spinner.
	total := int64(-1)
	if info, err := a.ffmpeg.ProbeVideo(ctx, path); err == nil {
		a.logger.Debug("video probed",
			slog.String("path", path),
			slog.Int("width", info.Width),
			slog.Int("height", info.Height),
			slog.Float64("fps", info.FPS),
			slog.Int("frames", info.Frames),
		)
		if info.Frames > 0 {
			total = int64(info.Frames)
		}
	}
	return a.runStream(ctx, path, src, total, "Detecting")
}

func runCamera(cmd *cobra.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	var src facedet.FrameSource
	if a.cfg.Backend == config.BackendOpenCV {
		src, err = facedet.NewCaptureSource(device)
	} else {
		if err := a.requireFFmpeg(); err != nil {
			return err
		}
		src, err = a.ffmpeg.OpenCamera(ctx, device)
	}
	if err != nil {
		return err
	}
	return a.runStream(ctx, "camera "+device, src, -1, "Watching")
}

func (a *app) runStream(ctx context.Context, name string, src facedet.FrameSource, total int64, desc string) error {
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)
	a.sess.OnFrame = func(*facedet.Result) {
		bar.Add(1)
	}

	sum, err := a.sess.Run(ctx, src)
	bar.Finish()
	os.Stderr.WriteString("\n")
	if err != nil {
		return err
	}
	printSummary(name, sum)
	return nil
}
