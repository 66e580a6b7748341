// Package exif extracts capture metadata (ISO, focal length, aperture,
// shutter speed, lens model, capture time) from image files.
//
// Extraction never fails: a missing, truncated or malformed EXIF block, or a
// single unparseable tag, only leaves the affected fields unknown (nil).
// Nothing in this package touches the library database or caches.
package exif

import (
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"photoref/internal/filesystem"
	"photoref/internal/logging"
)

// Capture is the subset of EXIF the library stores per photo.
// Nil pointers mean "unknown".
type Capture struct {
	ISO          *int
	FocalLength  *float64 // millimetres
	Aperture     *float64 // f-number
	ShutterSpeed *float64 // seconds
	LensModel    string
	TakenAt      time.Time // zero when absent
}

// Empty reports whether no field could be extracted.
func (c Capture) Empty() bool {
	return c.ISO == nil && c.FocalLength == nil && c.Aperture == nil &&
		c.ShutterSpeed == nil && c.LensModel == "" && c.TakenAt.IsZero()
}

// Raw holds tag values in their textual form before coercion.
type Raw struct {
	ISO          string
	FocalLength  string
	Aperture     string
	ShutterSpeed string
}

// Coerce applies the numeric coercion rules to raw tag text.
func Coerce(raw Raw) Capture {
	var c Capture
	if v, ok := ParseInt(raw.ISO); ok {
		c.ISO = &v
	}
	if v, ok := ParseFloat(raw.FocalLength); ok {
		c.FocalLength = &v
	}
	if v, ok := ParseFloat(raw.Aperture); ok {
		c.Aperture = &v
	}
	if v, ok := ParseFloat(raw.ShutterSpeed); ok {
		c.ShutterSpeed = &v
	}
	return c
}

// ParseInt parses the leading whitespace-delimited token of s as an integer.
// "400", "400 ISO" and " 400" all yield 400.
func ParseInt(s string) (int, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseFloat parses s as a number using these forms, in order:
//
//	"F/2.8"  f-number with prefix  -> 2.8
//	"28/10"  rational a/b          -> 2.8 (b == 0 is unknown)
//	"2.8"    plain float           -> 2.8
//
// Non-finite results are unknown.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if rest, ok := cutPrefixFold(s, "F/"); ok {
		return parseFinite(rest)
	}

	if strings.Contains(s, "/") {
		return ParseRational(s)
	}

	return parseFinite(s)
}

// ParseRational parses "a/b" as a / b.
func ParseRational(s string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0, false
	}
	num, ok := parseFinite(parts[0])
	if !ok {
		return 0, false
	}
	den, ok := parseFinite(parts[1])
	if !ok || den == 0 {
		return 0, false
	}
	return checkFinite(num / den)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return checkFinite(v)
}

func checkFinite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Read extracts capture metadata from the file at path.
func Read(path string) Capture {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		logging.Debug("EXIF: cannot open %s: %v", path, err)
		return Capture{}
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Debug("EXIF: failed to close %s: %v", path, err)
		}
	}()

	return Decode(f)
}

// Decode extracts capture metadata from an image stream (JPEG, TIFF or a raw
// EXIF block).
func Decode(r io.Reader) (c Capture) {
	defer func() {
		// goexif can panic on some corrupt IFD layouts
		if rec := recover(); rec != nil {
			logging.Debug("EXIF: recovered from decoder panic: %v", rec)
			c = Capture{}
		}
	}()

	x, err := goexif.Decode(r)
	if err != nil || x == nil {
		return Capture{}
	}

	c = Coerce(Raw{
		ISO:          tagText(x, goexif.ISOSpeedRatings),
		FocalLength:  tagText(x, goexif.FocalLength),
		Aperture:     tagText(x, goexif.FNumber),
		ShutterSpeed: tagText(x, goexif.ExposureTime),
	})
	c.LensModel = tagText(x, goexif.LensModel)

	if taken, err := x.DateTime(); err == nil {
		c.TakenAt = taken
	}

	return c
}

// tagText renders the first value of a tag as text: rationals as "a/b",
// integers and floats in decimal, strings trimmed of padding.
func tagText(x *goexif.Exif, name goexif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil || tag == nil || tag.Count == 0 {
		return ""
	}

	switch tag.Format() {
	case tiff.RatVal:
		num, den, err := tag.Rat2(0)
		if err != nil {
			return ""
		}
		return strconv.FormatInt(num, 10) + "/" + strconv.FormatInt(den, 10)
	case tiff.IntVal:
		v, err := tag.Int(0)
		if err != nil {
			return ""
		}
		return strconv.Itoa(v)
	case tiff.FloatVal:
		v, err := tag.Float(0)
		if err != nil {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(strings.TrimRight(s, "\x00"))
	default:
		return ""
	}
}
