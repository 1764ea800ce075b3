package report

import (
	"bytes"
	"fmt"
	"image"

	"github.com/jung-kurt/gofpdf"
	"gocv.io/x/gocv"
)

// renderDPI fixes the pixel-to-point scale of review PDF pages. Review
// PDFs are for on-screen checking, so a modest density keeps them small.
const renderDPI = 100.0

// pxToPt converts image pixels to PDF points at the render density.
func pxToPt(px int) float64 {
	return float64(px) * 72.0 / renderDPI
}

// ReviewPDF builds the per-student review document: the annotated primary
// sheet followed by any replacement pages, each PDF page sized to its
// image.
type ReviewPDF struct {
	pdf   *gofpdf.Fpdf
	pages int
}

// NewReviewPDF creates an empty review document.
func NewReviewPDF() *ReviewPDF {
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	return &ReviewPDF{pdf: pdf}
}

// Pages returns the number of pages added so far.
func (r *ReviewPDF) Pages() int {
	return r.pages
}

// AddImage appends a page containing the image, with the top topCrop
// fraction cut off to drop the sheet header. The Mat may be grayscale or
// BGR.
func (r *ReviewPDF) AddImage(img gocv.Mat, topCrop float64) error {
	crop := int(float64(img.Rows()) * topCrop)
	if crop < 0 || crop >= img.Rows() {
		crop = 0
	}
	region := img.Region(image.Rect(0, crop, img.Cols(), img.Rows()))
	defer region.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, region)
	if err != nil {
		return fmt.Errorf("failed to encode page image: %w", err)
	}
	defer buf.Close()

	w := pxToPt(region.Cols())
	h := pxToPt(region.Rows())
	r.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})

	r.pages++
	name := fmt.Sprintf("page%d", r.pages)
	opts := gofpdf.ImageOptions{ImageType: "JPEG"}
	r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(buf.GetBytes()))
	r.pdf.ImageOptions(name, 0, 0, w, h, false, opts, 0, "")

	return r.pdf.Error()
}

// Save writes the document to path and releases it.
func (r *ReviewPDF) Save(path string) error {
	if r.pages == 0 {
		return fmt.Errorf("review PDF has no pages")
	}
	return r.pdf.OutputFileAndClose(path)
}
