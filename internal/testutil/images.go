// Package testutil builds image fixtures for tests: solid-colour images in
// the supported encodings and JPEGs carrying hand-assembled EXIF blocks.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// EXIF tag IDs used by fixtures.
const (
	TagOrientation      uint16 = 0x0112
	TagExifIFDPointer   uint16 = 0x8769
	TagExposureTime     uint16 = 0x829A
	TagFNumber          uint16 = 0x829D
	TagISOSpeedRatings  uint16 = 0x8827
	TagDateTimeOriginal uint16 = 0x9003
	TagFocalLength      uint16 = 0x920A
	TagLensModel        uint16 = 0xA434
)

const (
	typeASCII    uint16 = 2
	typeShort    uint16 = 3
	typeLong     uint16 = 4
	typeRational uint16 = 5
)

// ExifTag is one raw IFD entry.
type ExifTag struct {
	ID    uint16
	Type  uint16
	Count uint32
	Data  []byte
}

// ASCII returns a NUL-terminated string tag.
func ASCII(id uint16, s string) ExifTag {
	data := append([]byte(s), 0)
	return ExifTag{ID: id, Type: typeASCII, Count: uint32(len(data)), Data: data}
}

// Short returns a single SHORT tag.
func Short(id uint16, v uint16) ExifTag {
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, v)
	return ExifTag{ID: id, Type: typeShort, Count: 1, Data: data}
}

// Rational returns a single RATIONAL tag num/den.
func Rational(id uint16, num, den uint32) ExifTag {
	data := make([]byte, 8)
	binary.BigEndian.PutUint32(data[0:], num)
	binary.BigEndian.PutUint32(data[4:], den)
	return ExifTag{ID: id, Type: typeRational, Count: 1, Data: data}
}

// DateTimeOriginal returns the capture-time tag in EXIF layout.
func DateTimeOriginal(t time.Time) ExifTag {
	return ASCII(TagDateTimeOriginal, t.Format("2006:01:02 15:04:05"))
}

// ExifSegment assembles a big-endian APP1 segment. ifd0 tags go into the
// primary IFD; exifTags go into an Exif sub-IFD linked from it.
func ExifSegment(ifd0, exifTags []ExifTag) []byte {
	const headerSize = 8

	primary := append([]ExifTag(nil), ifd0...)
	if len(exifTags) > 0 {
		primary = append(primary, ExifTag{ID: TagExifIFDPointer, Type: typeLong, Count: 1, Data: make([]byte, 4)})
	}
	sortTags(primary)
	sub := append([]ExifTag(nil), exifTags...)
	sortTags(sub)

	ifd0Data := uint32(headerSize + ifdSize(primary))
	subOffset := ifd0Data + dataSize(primary)
	subData := subOffset + ifdSize(sub)

	for i := range primary {
		if primary[i].ID == TagExifIFDPointer {
			binary.BigEndian.PutUint32(primary[i].Data, subOffset)
		}
	}

	var tiffBuf bytes.Buffer
	tiffBuf.WriteString("MM")
	_ = binary.Write(&tiffBuf, binary.BigEndian, uint16(42))
	_ = binary.Write(&tiffBuf, binary.BigEndian, uint32(headerSize))
	encodeIFD(&tiffBuf, primary, ifd0Data)
	if len(sub) > 0 {
		encodeIFD(&tiffBuf, sub, subData)
	}

	var seg bytes.Buffer
	seg.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&seg, binary.BigEndian, uint16(2+6+tiffBuf.Len()))
	seg.WriteString("Exif\x00\x00")
	seg.Write(tiffBuf.Bytes())
	return seg.Bytes()
}

func sortTags(tags []ExifTag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
}

func ifdSize(tags []ExifTag) uint32 {
	return uint32(2 + 12*len(tags) + 4)
}

func dataSize(tags []ExifTag) uint32 {
	var n uint32
	for _, t := range tags {
		if len(t.Data) > 4 {
			n += uint32(len(t.Data) + len(t.Data)%2)
		}
	}
	return n
}

// encodeIFD writes the IFD entries followed by their out-of-line values,
// which start at dataOffset relative to the TIFF header.
func encodeIFD(buf *bytes.Buffer, tags []ExifTag, dataOffset uint32) {
	var data []byte
	_ = binary.Write(buf, binary.BigEndian, uint16(len(tags)))
	for _, t := range tags {
		_ = binary.Write(buf, binary.BigEndian, t.ID)
		_ = binary.Write(buf, binary.BigEndian, t.Type)
		_ = binary.Write(buf, binary.BigEndian, t.Count)
		if len(t.Data) <= 4 {
			value := make([]byte, 4)
			copy(value, t.Data)
			buf.Write(value)
			continue
		}
		_ = binary.Write(buf, binary.BigEndian, dataOffset+uint32(len(data)))
		data = append(data, t.Data...)
		if len(data)%2 == 1 {
			data = append(data, 0)
		}
	}
	_ = binary.Write(buf, binary.BigEndian, uint32(0))
	buf.Write(data)
}

// Solid returns a w x h image filled with c.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// JPEG encodes img and, when any tags are given, splices an EXIF APP1
// segment in right after the SOI marker.
func JPEG(t testing.TB, img image.Image, ifd0, exifTags []ExifTag) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if len(ifd0) == 0 && len(exifTags) == 0 {
		return buf.Bytes()
	}

	encoded := buf.Bytes()
	out := make([]byte, 0, len(encoded)+512)
	out = append(out, encoded[:2]...)
	out = append(out, ExifSegment(ifd0, exifTags)...)
	out = append(out, encoded[2:]...)
	return out
}

// WriteJPEG writes a w x h JPEG to dir/name with the given Exif sub-IFD tags
// and returns its path.
func WriteJPEG(t testing.TB, dir, name string, w, h int, exifTags ...ExifTag) string {
	t.Helper()
	return WriteFile(t, dir, name, JPEG(t, Solid(w, h, color.RGBA{R: 200, G: 80, B: 40, A: 255}), nil, exifTags))
}

// WritePNG writes a w x h PNG to dir/name and returns its path.
func WritePNG(t testing.TB, dir, name string, w, h int) string {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, Solid(w, h, color.RGBA{R: 40, G: 120, B: 220, A: 255})); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return WriteFile(t, dir, name, buf.Bytes())
}

// WriteFile writes data to dir/name and returns its path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// SetModTime sets both atime and mtime of path.
func SetModTime(t testing.TB, path string, mt time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
