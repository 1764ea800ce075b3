package geometry

// PointsPerInch is the density of the TeX point. Bubble and marker
// coordinates are authored by the sheet layout tooling in LaTeX points
// (1/72.27 inch), not PostScript points.
const PointsPerInch = 72.27

// PointToPixel converts a length in LaTeX points to whole pixels at the
// given DPI. The conversion truncates rather than rounds; the layout
// tooling does the same, and position math must stay bit-for-bit
// compatible with it.
func PointToPixel(v float64, dpi float64) int {
	return int(v * dpi / PointsPerInch)
}
