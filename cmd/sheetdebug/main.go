// Command sheetdebug runs recognition on a single sheet image and prints
// what the pipeline saw: marker confidences, sampled intensities, the
// adaptive threshold and the assembled answers. Use it to tune a bubble
// table or diagnose a misbehaving scan.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/maxslarsson/exam-grading/internal/alignment"
	"github.com/maxslarsson/exam-grading/internal/bubble"
	"github.com/maxslarsson/exam-grading/internal/omr"
	"github.com/maxslarsson/exam-grading/internal/scan"

	"gocv.io/x/gocv"
)

func main() {
	markerPath := flag.String("marker", "", "Path to the corner marker template image")
	bubblesPath := flag.String("bubbles", "", "Path to the bubble definition CSV")
	imagePath := flag.String("image", "", "Path to one sheet scan")
	page := flag.Int("page", 1, "Page number to use from the bubble table")
	overlayOut := flag.String("overlay", "", "Optional path to save the annotated overlay image")
	flag.Parse()

	if *markerPath == "" || *bubblesPath == "" || *imagePath == "" {
		fmt.Println("Usage: sheetdebug -marker <image> -bubbles <csv> -image <scan> [-page <n>] [-overlay <out.png>]")
		os.Exit(1)
	}

	params := omr.DefaultParams()

	table, err := bubble.LoadTable(*bubblesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load bubble table: %v\n", err)
		os.Exit(1)
	}

	marker, err := scan.LoadGray(*markerPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load marker: %v\n", err)
		os.Exit(1)
	}
	defer marker.Close()

	img, err := scan.LoadGray(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	defer img.Close()

	xdpi, ydpi, err := scan.DPI(*imagePath)
	if err != nil || xdpi == 0 || ydpi == 0 {
		xdpi, ydpi = params.DefaultDPI, params.DefaultDPI
	}
	fmt.Printf("=== %s (%.0fx%.0f dpi) ===\n", *imagePath, xdpi, ydpi)

	scan.Preprocess(&img)

	tmpl := alignment.PrepareTemplate(marker, xdpi, params.AlignmentOptions())
	defer tmpl.Close()

	markers, err := alignment.FindMarkers(img, tmpl, params.AlignmentOptions())
	if err != nil {
		fmt.Printf("Markers: not usable (%v)\n", err)
	} else {
		for _, m := range markers {
			fmt.Printf("Marker %-12s (%6.0f,%6.0f)  confidence %.3f\n",
				m.Corner, m.Center.X, m.Center.Y, m.Confidence)
		}
	}

	proc := omr.NewProcessor(marker, table, params)
	defer proc.Close()

	res, err := proc.ProcessImage(*imagePath, *page)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Processing failed: %v\n", err)
		os.Exit(1)
	}
	defer res.Overlay.Close()

	fmt.Printf("\nAligned: %v\nThreshold: %.2f\n\n", res.Aligned, res.Threshold)

	for _, r := range res.Readings {
		mark := " "
		if r.Marked(res.Threshold, params) {
			mark = "*"
		}
		fmt.Printf("%s %-20s %7.2f\n", mark, r.Bubble.Column(), r.Value)
	}

	keys := make([]bubble.AnswerKey, 0, len(res.Answers))
	for k := range res.Answers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Problem != keys[j].Problem {
			return keys[i].Problem < keys[j].Problem
		}
		return keys[i].Subquestion < keys[j].Subquestion
	})
	fmt.Println("\nAnswers:")
	for _, k := range keys {
		fmt.Printf("  %-8s %v\n", k, res.Answers[k])
	}

	if *overlayOut != "" {
		if gocv.IMWrite(*overlayOut, res.Overlay) {
			fmt.Printf("\nOverlay saved to %s\n", *overlayOut)
		} else {
			fmt.Fprintf(os.Stderr, "Failed to write overlay to %s\n", *overlayOut)
		}
	}
}
