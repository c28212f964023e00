package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/esimov/facedet"
	"github.com/esimov/facedet/utils"
	"github.com/spf13/cobra"
)

const HelpBanner = `
┌─┐┌─┐┌─┐┌─┐┌┬┐┌─┐┌┬┐
├┤ ├─┤│  ├┤  ││├┤  │
└  ┴ ┴└─┘└─┘─┴┘└─┘ ┴

Face and eye detection for images, video files and cameras.
    Version: %s

`

// Version indicates the current build version.
var Version string

// flags holds the persistent command line switches. Numeric tunables only
// override the environment when they are set explicitly.
var flags struct {
	save         bool
	persist      string
	lean         bool
	noPreprocess bool
	noEyes       bool
	noMarkers    bool
	show         bool
	verbose      bool

	backend     string
	faceCascade string
	eyeCascade  string
	imageDir    string
	videoDir    string

	faceScale     float64
	faceNeighbors int
	faceMinSize   int
	eyeScale      float64
	eyeNeighbors  int
}

var rootCmd = &cobra.Command{
	Use:     "facedet",
	Short:   "Detect faces and eyes in images, video files and camera streams",
	Long:    fmt.Sprintf(HelpBanner, version()),
	Version: version(),
}

func version() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.save, "save", "s", false, "Save the annotated output")
	pf.StringVar(&flags.persist, "persist", "auto", "What to save: auto, frame, crops or video")
	pf.BoolVar(&flags.lean, "lean", false, "Grayscale only pipeline saving one crop per face")
	pf.BoolVar(&flags.noPreprocess, "no-preprocess", false, "Skip blur and histogram equalization")
	pf.BoolVar(&flags.noEyes, "no-eyes", false, "Skip the eye pass")
	pf.BoolVar(&flags.noMarkers, "no-markers", false, "Do not draw eye markers")
	pf.BoolVar(&flags.show, "show", false, "Show the frames in a window (requires a gocv build)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log every processed frame")

	pf.StringVar(&flags.backend, "backend", "", "Classifier backend: pigo or opencv (env FACEDET_BACKEND)")
	pf.StringVar(&flags.faceCascade, "face-cascade", "", "Face cascade file (env FACEDET_FACE_CASCADE)")
	pf.StringVar(&flags.eyeCascade, "eye-cascade", "", "Eye cascade file (env FACEDET_EYE_CASCADE)")
	pf.StringVar(&flags.imageDir, "image-dir", "", "Directory for saved images (env FACEDET_IMAGE_DIR)")
	pf.StringVar(&flags.videoDir, "video-dir", "", "Directory for saved videos (env FACEDET_VIDEO_DIR)")

	pf.Float64Var(&flags.faceScale, "face-scale", 1.1, "Face search window growth between scales")
	pf.IntVar(&flags.faceNeighbors, "face-neighbors", 5, "Overlapping hits needed to accept a face")
	pf.IntVar(&flags.faceMinSize, "face-min-size", 20, "Smallest face side in pixels")
	pf.Float64Var(&flags.eyeScale, "eye-scale", 1.1, "Eye search window growth between scales")
	pf.IntVar(&flags.eyeNeighbors, "eye-neighbors", 3, "Overlapping hits needed to accept an eye")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, utils.DecorateText(err.Error(), utils.ErrorMessage))
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// printSummary displays the relevant information about one run.
func printSummary(name string, sum *facedet.Summary) {
	if sum.Frames == 0 {
		fmt.Fprintln(os.Stderr, utils.StatusLine(fmt.Sprintf("%s could not be read", name), false))
		return
	}

	msg := fmt.Sprintf("%d face(s), %d eye(s) in %s", sum.Faces, sum.Eyes, name)
	if sum.Frames > 1 {
		msg = fmt.Sprintf("%d face(s), %d eye(s) over %d frames of %s", sum.Faces, sum.Eyes, sum.Frames, name)
	}
	fmt.Fprintln(os.Stderr, utils.StatusLine(msg, true))

	for _, path := range sum.Saved {
		fmt.Fprintf(os.Stderr, "\tsaved as: %s\n", utils.DecorateText(filepath.Base(path), utils.SuccessMessage))
	}
	if sum.PersistErr != nil {
		fmt.Fprintf(os.Stderr, "\t%s\n", utils.DecorateText("could not save: "+sum.PersistErr.Error(), utils.ErrorMessage))
	}
	switch {
	case sum.Cancelled:
		fmt.Fprintln(os.Stderr, utils.DecorateText("\tinterrupted", utils.StatusMessage))
	case sum.Stopped:
		fmt.Fprintln(os.Stderr, utils.DecorateText("\tstopped from the window", utils.StatusMessage))
	}
}
