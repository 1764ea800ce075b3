// Package scan handles loading scanned sheet images and the metadata the
// recognition pass needs from them.
package scan

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	_ "golang.org/x/image/tiff"
)

// ImageExtensions lists the file extensions treated as sheet scans when
// walking a parsed folder.
var ImageExtensions = []string{".png", ".jpg", ".jpeg"}

// IsImage returns true if the filename has a recognized scan extension.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadGray loads an image file as a single-channel grayscale Mat.
func LoadGray(path string) (gocv.Mat, error) {
	file, err := os.Open(path)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)

	mat, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert %s to mat: %w", path, err)
	}
	return mat, nil
}

// Preprocess blurs and contrast-normalizes a grayscale Mat in place. Both
// page images and marker templates go through the same pass so that
// correlation scores are comparable across scans with different exposure.
func Preprocess(img *gocv.Mat) {
	gocv.GaussianBlur(*img, img, image.Point{X: 3, Y: 3}, 0, 0, gocv.BorderDefault)
	gocv.Normalize(*img, img, 0, 255, gocv.NormMinMax)
}

// ParseName splits a scan filename of the form
// {student}_{page}[_{n}].{ext} into its student ID and page part. ok is
// false for filenames that don't follow the convention.
func ParseName(filename string) (student, page string, ok bool) {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// GroupKey returns the {student}_{page} key used to group a primary scan
// with its replacement pages.
func GroupKey(filename string) (string, bool) {
	student, page, ok := ParseName(filename)
	if !ok {
		return "", false
	}
	return student + "_" + page, true
}
