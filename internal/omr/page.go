package omr

import (
	"fmt"
	"log"

	"github.com/maxslarsson/exam-grading/internal/alignment"
	"github.com/maxslarsson/exam-grading/internal/bubble"
	"github.com/maxslarsson/exam-grading/internal/report"
	"github.com/maxslarsson/exam-grading/internal/scan"

	"gocv.io/x/gocv"
)

// PageResult holds everything extracted from one processed sheet image.
type PageResult struct {
	Student   string
	Page      int
	Aligned   bool
	Threshold float64
	Readings  []Reading
	Answers   map[bubble.AnswerKey][]string
	// Overlay is the annotated BGR page, owned by the caller.
	Overlay gocv.Mat
}

// Processor runs recognition on individual sheet images. It owns the raw
// marker template and caches the scaled-and-preprocessed variant per DPI,
// since every sheet of a scan batch normally shares one resolution.
type Processor struct {
	marker   gocv.Mat
	table    *bubble.Table
	params   Params
	prepared map[float64]gocv.Mat
}

// NewProcessor creates a Processor. The marker Mat is borrowed for the
// Processor's lifetime.
func NewProcessor(marker gocv.Mat, table *bubble.Table, p Params) *Processor {
	return &Processor{
		marker:   marker,
		table:    table,
		params:   p,
		prepared: map[float64]gocv.Mat{},
	}
}

// Close releases the cached marker templates.
func (pr *Processor) Close() {
	for _, tmpl := range pr.prepared {
		tmpl.Close()
	}
	pr.prepared = map[float64]gocv.Mat{}
}

func (pr *Processor) template(dpi float64) gocv.Mat {
	if tmpl, ok := pr.prepared[dpi]; ok {
		return tmpl
	}
	tmpl := alignment.PrepareTemplate(pr.marker, dpi, pr.params.AlignmentOptions())
	pr.prepared[dpi] = tmpl
	return tmpl
}

// ProcessImage runs the full recognition pass on one sheet scan: load,
// preprocess, align, sample, threshold, assemble, annotate. page selects
// which bubble definitions apply. A page with no bubble definitions still
// produces an overlay (the plain page) so the review PDF stays complete,
// but contributes no readings or answers.
func (pr *Processor) ProcessImage(path string, page int) (*PageResult, error) {
	student, _, ok := scan.ParseName(path)
	if !ok {
		return nil, fmt.Errorf("filename %q does not follow student_page naming", path)
	}

	img, err := scan.LoadGray(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	xdpi, ydpi, err := scan.DPI(path)
	if err != nil || xdpi == 0 || ydpi == 0 {
		xdpi, ydpi = pr.params.DefaultDPI, pr.params.DefaultDPI
	}

	scan.Preprocess(&img)

	aligned, didAlign := alignment.Align(img, pr.template(xdpi), xdpi, pr.params.AlignmentOptions())
	defer aligned.Close()
	if !didAlign {
		log.Printf("Warning: %s processed unaligned", path)
	}

	result := &PageResult{
		Student: student,
		Page:    page,
		Aligned: didAlign,
	}

	bubbles := pr.table.ForPage(page)
	if len(bubbles) == 0 {
		log.Printf("Warning: no bubbles defined for page %d", page)
		result.Overlay = gocv.NewMat()
		gocv.CvtColor(aligned, &result.Overlay, gocv.ColorGrayToBGR)
		return result, nil
	}

	result.Readings = SampleBubbles(aligned, bubbles, xdpi, ydpi, pr.params)

	values := ThresholdValues(result.Readings)
	if len(values) == 0 {
		result.Threshold = pr.params.GlobalThreshold
	} else {
		result.Threshold = Threshold(values, pr.params)
	}

	result.Answers = AssemblePage(result.Readings, result.Threshold, page, pr.table, pr.params)
	result.Overlay = report.Overlay(aligned, Marks(result.Readings, result.Threshold, pr.params), pr.params.Style)

	return result, nil
}
