package scan

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"scan.png", true},
		{"scan.jpg", true},
		{"scan.JPEG", true},
		{"scan.tiff", false},
		{"scan.pdf", false},
		{"scan", false},
	}
	for _, tt := range tests {
		if got := IsImage(tt.name); got != tt.want {
			t.Errorf("IsImage(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseName(t *testing.T) {
	tests := []struct {
		filename string
		student  string
		page     string
		ok       bool
	}{
		{"abc123_3.png", "abc123", "3", true},
		{"abc123_3_1.png", "abc123", "3", true}, // replacement page
		{"/some/dir/xyz789_12.jpeg", "xyz789", "12", true},
		{"noseparator.png", "", "", false},
	}
	for _, tt := range tests {
		student, page, ok := ParseName(tt.filename)
		if student != tt.student || page != tt.page || ok != tt.ok {
			t.Errorf("ParseName(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.filename, student, page, ok, tt.student, tt.page, tt.ok)
		}
	}
}

func TestGroupKey(t *testing.T) {
	key, ok := GroupKey("abc123_3_1.png")
	if !ok || key != "abc123_3" {
		t.Errorf("GroupKey = (%q, %v), want (abc123_3, true)", key, ok)
	}
	if _, ok := GroupKey("bad.png"); ok {
		t.Error("GroupKey accepted a filename without a student/page split")
	}
}

func TestLoadGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 20, 10))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	path := filepath.Join(t.TempDir(), "sheet.png")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(file, src); err != nil {
		t.Fatal(err)
	}
	file.Close()

	mat, err := LoadGray(path)
	if err != nil {
		t.Fatal(err)
	}
	defer mat.Close()

	if mat.Cols() != 20 || mat.Rows() != 10 {
		t.Errorf("loaded mat is %dx%d, want 20x10", mat.Cols(), mat.Rows())
	}
	if mat.Channels() != 1 {
		t.Errorf("loaded mat has %d channels, want 1", mat.Channels())
	}
	if v := mat.Mean().Val1; v != 200 {
		t.Errorf("mean intensity = %v, want 200", v)
	}
}

func TestLoadGrayMissingFile(t *testing.T) {
	if _, err := LoadGray(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
