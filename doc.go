/*
Package facedet locates faces, and eyes within each face, in still images, video files
and camera streams, draws the detections over the frames and optionally saves the result.

Every frame goes through the same pipeline: grayscale conversion, optional blur and
histogram equalization, a face scan over the whole frame, then an eye scan restricted
to each face. The classifiers are pluggable: the pure Go pigo cascades are the default,
OpenCV Haar cascades are available in builds with the gocv tag.

The package provides a command line interface. To check the supported commands type:

	$ facedet --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"log"

		"github.com/esimov/facedet"
	)

	func main() {
		face, err := facedet.NewPigoClassifier("cascade/facefinder")
		if err != nil {
			log.Fatal(err)
		}
		eye, err := facedet.NewPuplocClassifier("cascade/puploc")
		if err != nil {
			log.Fatal(err)
		}
		det, err := facedet.NewDetector(face, eye, nil)
		if err != nil {
			log.Fatal(err)
		}

		opts := facedet.DefaultOptions()
		opts.Save = true

		sess := facedet.NewSession(det, opts)
		sum, err := sess.Run(context.Background(), facedet.NewImageSource(context.Background(), "group.jpg"))
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("%d faces, saved as %v", sum.Faces, sum.Saved)
	}
*/
package facedet
