package metadata

import (
	"fmt"
	"strings"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"gitlab.com/tozd/go/errors"
)

// SummaryTags are the IFD0 tags LookupTags reports when no names are given.
var SummaryTags = []string{
	"Make",
	"Model",
	"Software",
	"DateTime",
	"Orientation",
	"XResolution",
	"YResolution",
	"ResolutionUnit",
}

// LookupTags searches data for an EXIF block in any container (JPEG, TIFF,
// PNG eXIf, ...) and returns the requested IFD0 tags that are present.
func LookupTags(data []byte, names ...string) ([]Tag, error) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return nil, errors.Errorf("%w: %v", ErrNoEXIF, err)
	}

	im := exifcommon.NewIfdMapping()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return nil, errors.Errorf("load IFD mapping: %w", err)
	}
	ti := exif.NewTagIndex()

	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return nil, errors.Errorf("collect EXIF: %w", err)
	}

	if len(names) == 0 {
		names = SummaryTags
	}

	tags := make([]Tag, 0, len(names))
	for _, name := range names {
		entries, err := index.RootIfd.FindTagWithName(name)
		if err != nil || len(entries) == 0 {
			continue
		}
		val, err := entries[0].Value()
		if err != nil {
			continue
		}
		tags = append(tags, Tag{Name: name, Value: formatValue(val)})
	}
	return tags, nil
}

func formatValue(val interface{}) string {
	switch v := val.(type) {
	case string:
		return strings.TrimRight(v, "\x00 ")
	case []exifcommon.Rational:
		parts := make([]string, len(v))
		for i, r := range v {
			if r.Denominator == 1 {
				parts[i] = fmt.Sprintf("%d", r.Numerator)
			} else {
				parts[i] = fmt.Sprintf("%d/%d", r.Numerator, r.Denominator)
			}
		}
		return strings.Join(parts, ", ")
	case []uint16:
		return joinNumbers(v)
	case []uint32:
		return joinNumbers(v)
	case []byte:
		return fmt.Sprintf("%d bytes", len(v))
	default:
		return fmt.Sprint(v)
	}
}

func joinNumbers[T uint16 | uint32](vals []T) string {
	parts := make([]string, len(vals))
	for i, n := range vals {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
