package metadata

import (
	"bytes"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"gitlab.com/tozd/go/errors"
)

// ErrNoEXIF is returned when the data carries no EXIF block.
var ErrNoEXIF = errors.Base("no EXIF data")

// Extract reads the EXIF block of a JPEG or TIFF stream.
// Partially decodable blocks are still returned: goexif reports sub-IFD
// problems as non-critical errors while the raw payload stays intact.
func Extract(data []byte) (*EXIF, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil {
		if err == nil {
			return nil, ErrNoEXIF
		}
		return nil, errors.Errorf("%w: %v", ErrNoEXIF, err)
	}
	if err != nil && exif.IsCriticalError(err) {
		return nil, errors.Errorf("decode EXIF: %w", err)
	}

	meta := &EXIF{
		Raw:         x.Raw,
		Orientation: OrientationUnknown,
	}

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
			meta.Orientation = Orientation(v)
		}
	}

	if tm, err := x.DateTime(); err == nil {
		meta.DateTime = &tm
	} else if field, err := x.Get(exif.DateTimeOriginal); err == nil {
		if s, err := field.StringVal(); err == nil {
			meta.DateTime = parseEXIFDateTime(s)
		}
	}

	meta.Make = stringField(x, exif.Make)
	meta.Model = stringField(x, exif.Model)
	meta.Software = stringField(x, exif.Software)

	return meta, nil
}

// Summary returns the camera, software, capture time and orientation fields
// that are set, in that order.
func (m *EXIF) Summary() []Tag {
	var tags []Tag
	if camera := strings.TrimSpace(m.Make + " " + m.Model); camera != "" {
		tags = append(tags, Tag{Name: "Camera", Value: camera})
	}
	if m.Software != "" {
		tags = append(tags, Tag{Name: "Software", Value: m.Software})
	}
	if m.DateTime != nil {
		tags = append(tags, Tag{Name: "Taken", Value: m.DateTime.Format("2006-01-02 15:04:05")})
	}
	if m.Orientation != OrientationUnknown {
		tags = append(tags, Tag{Name: "Orientation", Value: m.Orientation.String()})
	}
	return tags
}

func stringField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return s
}

// parseEXIFDateTime parses an EXIF date time string. Returns nil if parsing fails.
func parseEXIFDateTime(dateStr string) *time.Time {
	if dateStr == "" {
		return nil
	}

	formats := []string{
		"2006:01:02 15:04:05",
		"2006-01-02 15:04:05",
		"2006:01:02",
		"2006-01-02",
		time.RFC3339,
	}

	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return &date
		}
	}
	return nil
}
