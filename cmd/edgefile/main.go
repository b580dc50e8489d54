// edgefile runs edge detection on a single image file.
//
//	edgefile -in photo.jpg -out edges.png [-effect invert] [-low 80] [-high 150]
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/teslashibe/go-edgeview/internal/log"
	"github.com/teslashibe/go-edgeview/pkg/capture"
	"github.com/teslashibe/go-edgeview/pkg/edge"
	"github.com/teslashibe/go-edgeview/pkg/effects"
	"gocv.io/x/gocv"
)

func main() {
	in := flag.String("in", "", "Input image (required)")
	out := flag.String("out", "edges.png", "Output image; format follows the extension")
	low := flag.Float64("low", edge.LowThreshold, "Canny low threshold")
	high := flag.Float64("high", edge.HighThreshold, "Canny high threshold")
	effect := flag.String("effect", string(effects.Normal), "Display effect: normal, invert, grayscale, sepia")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	log.Init(*logLevel)

	if *in == "" {
		fmt.Fprintln(os.Stderr, "Usage: edgefile -in <image> [-out edges.png]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(*in, *out, float32(*low), float32(*high), *effect); err != nil {
		log.Error("edge detection failed", "error", err)
		os.Exit(1)
	}
}

func run(inPath, outPath string, low, high float32, effectName string) error {
	fx, err := effects.Parse(effectName)
	if err != nil {
		return err
	}

	cfg := edge.DefaultConfig()
	cfg.LowThreshold, cfg.HighThreshold = low, high
	processor, err := edge.New(cfg)
	if err != nil {
		return err
	}

	src, err := capture.LoadImage(inPath)
	if err != nil {
		return err
	}
	defer src.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	if err := src.Read(&frame); err != nil {
		return err
	}

	edges := gocv.NewMat()
	defer edges.Close()
	start := time.Now()
	if err := processor.Process(&frame, &edges); err != nil {
		return err
	}

	result := gocv.NewMat()
	defer result.Close()
	if err := effects.Apply(fx, edges, &result); err != nil {
		return err
	}

	if err := capture.SaveImage(outPath, result); err != nil {
		return err
	}

	log.Info("edges written",
		"in", inPath,
		"out", outPath,
		"size", fmt.Sprintf("%dx%d", result.Cols(), result.Rows()),
		"edge_pixels", countEdges(edges),
		"elapsed", time.Since(start))
	return nil
}

// countEdges counts marked pixels in an RGBA edge map.
func countEdges(rgba gocv.Mat) int {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(rgba, &gray, gocv.ColorRGBAToGray)
	return gocv.CountNonZero(gray)
}
