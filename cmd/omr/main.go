// Command omr runs optical mark recognition on a parsed exam scan tree
// and writes per-page CSVs, review PDFs and the consolidated answer table.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/maxslarsson/exam-grading/internal/omr"
	"github.com/maxslarsson/exam-grading/internal/version"
)

func main() {
	marker := flag.String("marker", "", "Path to the corner marker template image")
	bubbles := flag.String("bubbles", "", "Path to the bubble definition CSV")
	parsed := flag.String("parsed", "", "Path to the parsed scan folder (one subfolder per page)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("omr %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	if *marker == "" || *bubbles == "" || *parsed == "" {
		fmt.Println("Usage: omr -marker <image> -bubbles <csv> -parsed <folder>")
		os.Exit(1)
	}

	outDir, err := omr.Run(*marker, *bubbles, *parsed, omr.DefaultParams())
	if err != nil {
		fmt.Fprintf(os.Stderr, "OMR failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OMR results saved to: %s\n", outDir)
}
