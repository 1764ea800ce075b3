package scan

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const metersPerInch = 0.0254

// DPI reads the horizontal and vertical resolution recorded in an image
// file's metadata. It inspects only the headers, never the pixel data, so
// it is cheap to call alongside LoadGray. Files with no usable resolution
// metadata return an error; callers fall back to a default.
func DPI(path string) (xdpi, ydpi float64, err error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return jpegDPI(path)
	case ".png":
		return pngDPI(path)
	case ".tif", ".tiff":
		return tiffDPI(path)
	}
	return 0, 0, fmt.Errorf("no resolution reader for %q files", filepath.Ext(path))
}

// jpegDPI extracts the pixel density from a JFIF APP0 segment.
func jpegDPI(path string) (float64, float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	var soi [2]byte
	if _, err := io.ReadFull(file, soi[:]); err != nil {
		return 0, 0, err
	}
	if soi[0] != 0xFF || soi[1] != 0xD8 {
		return 0, 0, fmt.Errorf("not a JPEG file")
	}

	var hdr [4]byte
	for {
		if _, err := io.ReadFull(file, hdr[:]); err != nil {
			return 0, 0, fmt.Errorf("no JFIF segment found")
		}
		if hdr[0] != 0xFF {
			return 0, 0, fmt.Errorf("corrupt JPEG segment marker")
		}
		marker := hdr[1]
		length := int(binary.BigEndian.Uint16(hdr[2:4]))
		if length < 2 {
			return 0, 0, fmt.Errorf("corrupt JPEG segment length")
		}
		// Stop once the entropy-coded data starts
		if marker == 0xDA {
			return 0, 0, fmt.Errorf("no JFIF segment found")
		}
		payload := make([]byte, length-2)
		if _, err := io.ReadFull(file, payload); err != nil {
			return 0, 0, err
		}
		if marker != 0xE0 || len(payload) < 12 || string(payload[0:5]) != "JFIF\x00" {
			continue
		}

		units := payload[7]
		xd := float64(binary.BigEndian.Uint16(payload[8:10]))
		yd := float64(binary.BigEndian.Uint16(payload[10:12]))
		switch units {
		case 1: // dots per inch
			return xd, yd, nil
		case 2: // dots per centimeter
			return xd * 2.54, yd * 2.54, nil
		default: // aspect ratio only, no physical density
			return 0, 0, fmt.Errorf("JFIF density has no physical unit")
		}
	}
}

// pngDPI extracts the pixel density from a pHYs chunk.
func pngDPI(path string) (float64, float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	var sig [8]byte
	if _, err := io.ReadFull(file, sig[:]); err != nil {
		return 0, 0, err
	}
	if string(sig[:]) != "\x89PNG\r\n\x1a\n" {
		return 0, 0, fmt.Errorf("not a PNG file")
	}

	var hdr [8]byte
	for {
		if _, err := io.ReadFull(file, hdr[:]); err != nil {
			return 0, 0, fmt.Errorf("no pHYs chunk found")
		}
		length := binary.BigEndian.Uint32(hdr[0:4])
		ctype := string(hdr[4:8])

		if ctype == "pHYs" && length >= 9 {
			data := make([]byte, length)
			if _, err := io.ReadFull(file, data); err != nil {
				return 0, 0, err
			}
			if data[8] != 1 { // 1 = pixels per meter
				return 0, 0, fmt.Errorf("pHYs chunk has no physical unit")
			}
			x := float64(binary.BigEndian.Uint32(data[0:4])) * metersPerInch
			y := float64(binary.BigEndian.Uint32(data[4:8])) * metersPerInch
			return x, y, nil
		}
		if ctype == "IDAT" || ctype == "IEND" {
			return 0, 0, fmt.Errorf("no pHYs chunk found")
		}
		// Skip chunk data plus CRC
		if _, err := file.Seek(int64(length)+4, io.SeekCurrent); err != nil {
			return 0, 0, err
		}
	}
}

// tiffDPI extracts the resolution tags from the first TIFF IFD.
func tiffDPI(path string) (float64, float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	var header [8]byte
	if _, err := io.ReadFull(file, header[:]); err != nil {
		return 0, 0, err
	}

	var order binary.ByteOrder
	switch {
	case header[0] == 'I' && header[1] == 'I':
		order = binary.LittleEndian
	case header[0] == 'M' && header[1] == 'M':
		order = binary.BigEndian
	default:
		return 0, 0, fmt.Errorf("not a TIFF file")
	}

	ifdOffset := order.Uint32(header[4:8])
	if _, err := file.Seek(int64(ifdOffset), io.SeekStart); err != nil {
		return 0, 0, err
	}

	var numEntries uint16
	if err := binary.Read(file, order, &numEntries); err != nil {
		return 0, 0, err
	}

	var xRes, yRes float64
	resUnit := uint16(2) // default inches

	entry := make([]byte, 12)
	for i := uint16(0); i < numEntries; i++ {
		if _, err := io.ReadFull(file, entry); err != nil {
			return 0, 0, err
		}
		tag := order.Uint16(entry[0:2])
		fieldType := order.Uint16(entry[2:4])
		valueOffset := order.Uint32(entry[8:12])

		switch tag {
		case 282: // XResolution
			if fieldType == 5 { // RATIONAL
				xRes = readRational(file, int64(valueOffset), order)
			}
		case 283: // YResolution
			if fieldType == 5 {
				yRes = readRational(file, int64(valueOffset), order)
			}
		case 296: // ResolutionUnit
			if fieldType == 3 { // SHORT
				resUnit = uint16(valueOffset)
			}
		}
	}

	if xRes == 0 && yRes == 0 {
		return 0, 0, fmt.Errorf("no resolution tags found")
	}
	if xRes == 0 {
		xRes = yRes
	}
	if yRes == 0 {
		yRes = xRes
	}
	if resUnit == 3 { // centimeters
		xRes *= 2.54
		yRes *= 2.54
	}
	return xRes, yRes, nil
}

// readRational reads a TIFF RATIONAL (two uint32s) at the given offset,
// restoring the file position afterwards.
func readRational(file *os.File, offset int64, order binary.ByteOrder) float64 {
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}
	defer file.Seek(pos, io.SeekStart)

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0
	}
	var num, denom uint32
	if err := binary.Read(file, order, &num); err != nil {
		return 0
	}
	if err := binary.Read(file, order, &denom); err != nil {
		return 0
	}
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
