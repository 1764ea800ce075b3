package omr

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/maxslarsson/exam-grading/internal/bubble"
	"github.com/maxslarsson/exam-grading/internal/report"
	"github.com/maxslarsson/exam-grading/internal/scan"
)

// Group is one student's scans of one page: the primary sheet plus any
// replacement pages appended after it. Files are sorted, which puts the
// bare "{student}_{page}.{ext}" name before its "_{n}" replacements.
type Group struct {
	Key   string
	Files []string
}

// PageDir is one directory of sheet scans discovered under the parsed
// tree.
type PageDir struct {
	Dir    string
	Name   string // directory base name, used in output paths
	Number int    // page number; 1 when the name is not numeric
	Groups []Group
}

// discoverPages walks the parsed tree and returns every directory that
// directly contains sheet images, with its files grouped per student.
// Discovery is separate from processing so results fold in a single place
// regardless of tree shape.
func discoverPages(root string) ([]PageDir, error) {
	var pages []PageDir

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}

		groups := map[string][]string{}
		for _, e := range entries {
			if e.IsDir() || !scan.IsImage(e.Name()) {
				continue
			}
			key, ok := scan.GroupKey(e.Name())
			if !ok {
				log.Printf("Warning: skipping %s: name does not follow student_page convention", filepath.Join(path, e.Name()))
				continue
			}
			groups[key] = append(groups[key], filepath.Join(path, e.Name()))
		}
		if len(groups) == 0 {
			return nil
		}

		name := filepath.Base(path)
		number := 1
		if n, err := strconv.Atoi(name); err == nil {
			number = n
		}

		pd := PageDir{Dir: path, Name: name, Number: number}
		keys := make([]string, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			files := groups[k]
			sort.Strings(files)
			pd.Groups = append(pd.Groups, Group{Key: k, Files: files})
		}
		pages = append(pages, pd)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return pages, nil
}

// Run executes the whole recognition batch: every page directory under
// parsedDir is processed into per-page CSVs, review PDFs and threshold
// graphs in a sibling "<parsedDir>_OMR" directory, and all answers are
// consolidated into one student×question CSV. Individual bad sheets are
// logged and skipped; one unreadable scan must not block grading the rest
// of the class.
func Run(markerPath, tablePath, parsedDir string, p Params) (string, error) {
	if fi, err := os.Stat(markerPath); err != nil || fi.IsDir() {
		return "", fmt.Errorf("OMR marker file is not a readable file: %s", markerPath)
	}
	if fi, err := os.Stat(parsedDir); err != nil || !fi.IsDir() {
		return "", fmt.Errorf("parsed folder is not a directory: %s", parsedDir)
	}

	table, err := bubble.LoadTable(tablePath)
	if err != nil {
		return "", err
	}

	marker, err := scan.LoadGray(markerPath)
	if err != nil {
		return "", fmt.Errorf("failed to load marker template: %w", err)
	}
	defer marker.Close()

	outDir := filepath.Join(filepath.Dir(parsedDir), filepath.Base(parsedDir)+"_OMR")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}

	pages, err := discoverPages(parsedDir)
	if err != nil {
		return "", err
	}

	proc := NewProcessor(marker, table, p)
	defer proc.Close()

	answers := NewAnswerTable()
	for _, pd := range pages {
		if err := processPageDir(proc, pd, outDir, answers, p); err != nil {
			return "", err
		}
	}

	if answers.Empty() {
		log.Printf("no student answers to consolidate")
	} else if err := answers.WriteCSV(filepath.Join(outDir, "consolidated_answers.csv")); err != nil {
		return "", err
	}

	return outDir, nil
}

// processPageDir recognizes every student group in one page directory and
// writes that directory's outputs.
func processPageDir(proc *Processor, pd PageDir, outDir string, answers *AnswerTable, p Params) error {
	total := 0
	for _, g := range pd.Groups {
		total += len(g.Files)
	}
	log.Printf("processing %d images in %s", total, pd.Dir)

	pageDir := filepath.Join(outDir, "page_"+pd.Name)
	if err := os.MkdirAll(pageDir, 0755); err != nil {
		return fmt.Errorf("failed to create page folder: %w", err)
	}

	results := newPageTable(pageColumns(proc.table, pd.Number))
	thresholds := map[string]float64{}

	for _, g := range pd.Groups {
		res, err := proc.ProcessImage(g.Files[0], pd.Number)
		if err != nil {
			log.Printf("Error: could not process %s: %v", g.Files[0], err)
			continue
		}

		if len(res.Readings) > 0 {
			for _, r := range res.Readings {
				if r.Bubble.Sentinel() {
					continue
				}
				results.Set(res.Student, r.Bubble.Column(), r.Value)
			}
			results.Set(res.Student, thresholdColumn(pd.Number), res.Threshold)
			thresholds[res.Student] = res.Threshold
			answers.Merge(res.Student, res.Answers)
		}

		if err := writeReviewPDF(res, g, pd, pageDir, p); err != nil {
			log.Printf("Error: could not write review PDF for %s: %v", g.Key, err)
		}
		res.Overlay.Close()
	}

	// Written even when every sheet failed: collaborators expect one CSV
	// per page directory, header-only if need be.
	if err := results.Write(filepath.Join(pageDir, pd.Name+"_OMR.csv")); err != nil {
		return err
	}

	writeThresholdGraph(thresholds, pd, pageDir, p)
	return nil
}

// writeReviewPDF assembles one student's review document: the annotated
// primary sheet plus any replacement pages, unprocessed.
func writeReviewPDF(res *PageResult, g Group, pd PageDir, pageDir string, p Params) error {
	pdf := report.NewReviewPDF()
	if err := pdf.AddImage(res.Overlay, p.TopCrop); err != nil {
		return err
	}

	for _, extra := range g.Files[1:] {
		img, err := scan.LoadGray(extra)
		if err != nil {
			log.Printf("Error: could not load additional page %s: %v", extra, err)
			continue
		}
		err = pdf.AddImage(img, p.TopCrop)
		img.Close()
		if err != nil {
			return err
		}
	}

	return pdf.Save(filepath.Join(pageDir, fmt.Sprintf("%s_%s.pdf", res.Student, pd.Name)))
}

func writeThresholdGraph(thresholds map[string]float64, pd PageDir, pageDir string, p Params) {
	if len(thresholds) < 2 {
		return
	}
	var buf bytes.Buffer
	title := fmt.Sprintf("Page %s thresholds", pd.Name)
	if err := report.ThresholdGraph(thresholds, title, p.GlobalThreshold, &buf); err != nil {
		log.Printf("Error: could not graph thresholds for page %s: %v", pd.Name, err)
		return
	}
	path := filepath.Join(pageDir, pd.Name+"_thresholds.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		log.Printf("Error: could not write %s: %v", path, err)
	}
}

// pageColumns returns the per-page CSV column order: every non-sentinel
// bubble in table order, then the threshold column.
func pageColumns(table *bubble.Table, page int) []string {
	var columns []string
	for _, b := range table.ForPage(page) {
		if b.Sentinel() {
			continue
		}
		columns = append(columns, b.Column())
	}
	return append(columns, thresholdColumn(page))
}

func thresholdColumn(page int) string {
	return fmt.Sprintf("page%d_threshold", page)
}
