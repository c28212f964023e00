package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/esimov/facedet"
	"github.com/esimov/facedet/utils"
	"github.com/spf13/cobra"
)

var imageCmd = &cobra.Command{
	Use:   "image <path|url|->",
	Short: "Detect faces in an image, every image of a directory, an image URL or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runImage(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)
}

func runImage(cmd *cobra.Command, input string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	now := time.Now()

	if fi, err := os.Stat(input); err == nil && fi.IsDir() {
		if err := detectDir(ctx, input, a.detectImage); err != nil {
			return err
		}
	} else if err := a.detectImage(ctx, input); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nExecution time: %s\n", utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
	return nil
}

// detectDir runs detect on every image below dir and stops at the first failure.
// The walker is released before detectDir returns.
func detectDir(ctx context.Context, dir string, detect func(context.Context, string) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	paths, errc := facedet.WalkImages(ctx, dir)
	for path := range paths {
		if err := detect(ctx, path); err != nil {
			cancel()
			for range paths {
			}
			return err
		}
	}
	if err := <-errc; err != nil && ctx.Err() == nil {
		return fmt.Errorf("could not walk %s: %w", dir, err)
	}
	return nil
}

func (a *app) detectImage(ctx context.Context, name string) error {
	var spinner *utils.Spinner
	// A window waiting for a key press and a spinner do not mix.
	if !flags.show {
		msg := fmt.Sprintf("%s %s",
			utils.DecorateText(utils.Tag, utils.StatusMessage),
			utils.DecorateText("is looking for faces...", utils.DefaultMessage))
		spinner = utils.NewSpinner(msg, 200*time.Millisecond, true)
		spinner.Start()
	}

	sum, err := a.sess.Run(ctx, facedet.NewImageSource(ctx, name))
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	printSummary(name, sum)
	return nil
}
