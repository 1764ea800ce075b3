package omr

import (
	"bytes"
	"encoding/csv"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/maxslarsson/exam-grading/pkg/geometry"
)

// choiceCenters are the bubble positions (LaTeX points) of the four
// choices of question 3.i in the fixture table.
var choiceCenters = []float64{100, 130, 160, 190}

const (
	fixtureDPI = 200 // images carry no metadata, so DefaultDPI applies
	fixtureY   = 100
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(file, img); err != nil {
		t.Fatal(err)
	}
	if err := file.Close(); err != nil {
		t.Fatal(err)
	}
}

// sheetImage draws a white page with a solid black square over each
// marked choice. The squares are padded well past the sampled area, so
// marked bubbles read exactly 0 and unmarked exactly 255.
func sheetImage(marked ...int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 700, 400))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	// Ink patch away from every corner window and sample box. It keeps
	// the min-max normalize anchored on a blank sheet; a constant page
	// would collapse to zero.
	for y := 340; y < 360; y++ {
		for x := 280; x < 320; x++ {
			img.SetGray(x, y, image.Gray{})
		}
	}
	cy := geometry.PointToPixel(fixtureY, fixtureDPI)
	for _, choice := range marked {
		cx := geometry.PointToPixel(choiceCenters[choice], fixtureDPI)
		for y := cy - 20; y <= cy+20; y++ {
			for x := cx - 20; x <= cx+20; x++ {
				img.SetGray(x, y, image.Gray{})
			}
		}
	}
	return img
}

func markerImage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if (x-20)*(x-20)+(y-20)*(y-20) <= 14*14 {
				img.SetGray(x, y, image.Gray{})
			}
		}
	}
	return img
}

// fixtureTree builds a complete batch under a temp dir: a marker
// template, a bubble table with one four-choice question on page 3, and
// a parsed folder with three students (one all-blank sheet) plus one
// unreadable scan. No sheet carries corner markers, so all take the
// unaligned path and the drawn squares line up with the table
// coordinates directly.
func fixtureTree(t *testing.T) (markerPath, tablePath, parsedDir string) {
	t.Helper()
	root := t.TempDir()

	markerPath = filepath.Join(root, "marker.png")
	writePNG(t, markerPath, markerImage())

	tablePath = filepath.Join(root, "bubbles.csv")
	table := "page,question,subquestion,choice,Xpos,Ypos\n" +
		"3,3,i,a,100,100\n" +
		"3,3,i,b,130,100\n" +
		"3,3,i,c,160,100\n" +
		"3,3,i,d,190,100\n"
	if err := os.WriteFile(tablePath, []byte(table), 0644); err != nil {
		t.Fatal(err)
	}

	parsedDir = filepath.Join(root, "parsed")
	pageDir := filepath.Join(parsedDir, "3")
	if err := os.MkdirAll(pageDir, 0755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(pageDir, "abc123_3.png"), sheetImage(0, 2))
	writePNG(t, filepath.Join(pageDir, "abc123_3_1.png"), sheetImage())
	writePNG(t, filepath.Join(pageDir, "def456_3.png"), sheetImage(1))
	writePNG(t, filepath.Join(pageDir, "ghi789_3.png"), sheetImage())
	if err := os.WriteFile(filepath.Join(pageDir, "broken_3.png"), []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}
	return markerPath, tablePath, parsedDir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

func TestRunEndToEnd(t *testing.T) {
	markerPath, tablePath, parsedDir := fixtureTree(t)

	outDir, err := Run(markerPath, tablePath, parsedDir, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if want := parsedDir + "_OMR"; outDir != want {
		t.Errorf("output dir = %s, want %s", outDir, want)
	}

	// Consolidated answers: every processed student, the blank sheet as
	// an empty row, the broken scan skipped.
	records := readCSV(t, filepath.Join(outDir, "consolidated_answers.csv"))
	want := [][]string{
		{"student_id", "3.i"},
		{"abc123", "a,c"},
		{"def456", "b"},
		{"ghi789", ""},
	}
	if len(records) != len(want) {
		t.Fatalf("consolidated CSV has %d rows, want %d: %v", len(records), len(want), records)
	}
	for i := range want {
		for j := range want[i] {
			if records[i][j] != want[i][j] {
				t.Errorf("consolidated[%d][%d] = %q, want %q", i, j, records[i][j], want[i][j])
			}
		}
	}

	// Per-page intensity table: exact values since the squares fully
	// cover the sampled boxes.
	pageCSV := readCSV(t, filepath.Join(outDir, "page_3", "3_OMR.csv"))
	wantHeader := []string{"student_id", "3.i_a", "3.i_b", "3.i_c", "3.i_d", "page3_threshold"}
	for j, col := range wantHeader {
		if pageCSV[0][j] != col {
			t.Errorf("page CSV header[%d] = %q, want %q", j, pageCSV[0][j], col)
		}
	}
	if len(pageCSV) != 4 {
		t.Fatalf("page CSV has %d rows, want 4: %v", len(pageCSV), pageCSV)
	}
	wantRow := []string{"abc123", "0", "255", "0", "255", "127.5"}
	for j, cell := range wantRow {
		if pageCSV[1][j] != cell {
			t.Errorf("page CSV abc123[%d] = %q, want %q", j, pageCSV[1][j], cell)
		}
	}
	// Blank sheet: all white, mean fallback capped at the global ceiling.
	wantBlank := []string{"ghi789", "255", "255", "255", "255", "210"}
	for j, cell := range wantBlank {
		if pageCSV[3][j] != cell {
			t.Errorf("page CSV ghi789[%d] = %q, want %q", j, pageCSV[3][j], cell)
		}
	}

	// Review PDFs: one per student, the replacement page folded into the
	// primary student's document.
	for _, name := range []string{"abc123_3.pdf", "def456_3.pdf", "ghi789_3.pdf"} {
		info, err := os.Stat(filepath.Join(outDir, "page_3", name))
		if err != nil {
			t.Errorf("missing review PDF %s: %v", name, err)
		} else if info.Size() == 0 {
			t.Errorf("review PDF %s is empty", name)
		}
	}

	// Two sheets succeeded, so the threshold graph renders.
	if _, err := os.Stat(filepath.Join(outDir, "page_3", "3_thresholds.png")); err != nil {
		t.Errorf("missing threshold graph: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	markerPath, tablePath, parsedDir := fixtureTree(t)
	p := DefaultParams()

	outDir, err := Run(markerPath, tablePath, parsedDir, p)
	if err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(filepath.Join(outDir, "consolidated_answers.csv"))
	if err != nil {
		t.Fatal(err)
	}
	firstPage, err := os.ReadFile(filepath.Join(outDir, "page_3", "3_OMR.csv"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Run(markerPath, tablePath, parsedDir, p); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(filepath.Join(outDir, "consolidated_answers.csv"))
	if err != nil {
		t.Fatal(err)
	}
	secondPage, err := os.ReadFile(filepath.Join(outDir, "page_3", "3_OMR.csv"))
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first, second) {
		t.Error("consolidated CSV differs between identical runs")
	}
	if !bytes.Equal(firstPage, secondPage) {
		t.Error("per-page CSV differs between identical runs")
	}
}

func TestRunWritesHeaderOnlyCSVWhenAllSheetsFail(t *testing.T) {
	markerPath, tablePath, _ := fixtureTree(t)

	root := t.TempDir()
	parsedDir := filepath.Join(root, "parsed")
	pageDir := filepath.Join(parsedDir, "3")
	if err := os.MkdirAll(pageDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pageDir, "broken_3.png"), []byte("not a png"), 0644); err != nil {
		t.Fatal(err)
	}

	outDir, err := Run(markerPath, tablePath, parsedDir, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}

	// The per-page CSV exists for every discovered page directory, even
	// when no sheet could be read.
	records := readCSV(t, filepath.Join(outDir, "page_3", "3_OMR.csv"))
	if len(records) != 1 {
		t.Fatalf("page CSV has %d rows, want header only: %v", len(records), records)
	}
	wantHeader := []string{"student_id", "3.i_a", "3.i_b", "3.i_c", "3.i_d", "page3_threshold"}
	for j, col := range wantHeader {
		if records[0][j] != col {
			t.Errorf("header[%d] = %q, want %q", j, records[0][j], col)
		}
	}

	if _, err := os.Stat(filepath.Join(outDir, "consolidated_answers.csv")); err == nil {
		t.Error("consolidated CSV written although no student was processed")
	}
}

func TestRunRejectsBadInputs(t *testing.T) {
	markerPath, tablePath, parsedDir := fixtureTree(t)

	if _, err := Run(filepath.Join(parsedDir, "nope.png"), tablePath, parsedDir, DefaultParams()); err == nil {
		t.Error("expected an error for a missing marker file")
	}
	if _, err := Run(markerPath, tablePath, filepath.Join(parsedDir, "nope"), DefaultParams()); err == nil {
		t.Error("expected an error for a missing parsed folder")
	}
	if _, err := Run(markerPath, filepath.Join(parsedDir, "nope.csv"), parsedDir, DefaultParams()); err == nil {
		t.Error("expected an error for a missing bubble table")
	}
}

func TestDiscoverPages(t *testing.T) {
	root := t.TempDir()
	pageDir := filepath.Join(root, "exam", "3")
	if err := os.MkdirAll(pageDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"abc123_3.png", "abc123_3_1.png", "def456_3.jpg", "notes.txt", "badname.png"} {
		if err := os.WriteFile(filepath.Join(pageDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	pages, err := discoverPages(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("discovered %d page dirs, want 1", len(pages))
	}
	pd := pages[0]
	if pd.Name != "3" || pd.Number != 3 {
		t.Errorf("page dir = %s/%d, want 3/3", pd.Name, pd.Number)
	}
	if len(pd.Groups) != 2 {
		t.Fatalf("found %d groups, want 2: %v", len(pd.Groups), pd.Groups)
	}
	if pd.Groups[0].Key != "abc123_3" || len(pd.Groups[0].Files) != 2 {
		t.Errorf("group 0 = %+v, want abc123_3 with 2 files", pd.Groups[0])
	}
	if got := filepath.Base(pd.Groups[0].Files[0]); got != "abc123_3.png" {
		t.Errorf("primary file = %s, want abc123_3.png (replacements sort after)", got)
	}
	if pd.Groups[1].Key != "def456_3" {
		t.Errorf("group 1 key = %s, want def456_3", pd.Groups[1].Key)
	}
}

func TestDiscoverPagesNonNumericName(t *testing.T) {
	root := t.TempDir()
	pageDir := filepath.Join(root, "frontpage")
	if err := os.MkdirAll(pageDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pageDir, "abc123_1.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	pages, err := discoverPages(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].Number != 1 || pages[0].Name != "frontpage" {
		t.Errorf("pages = %+v, want one dir named frontpage with page number 1", pages)
	}
}
