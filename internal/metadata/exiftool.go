package metadata

import (
	"sort"

	"github.com/barasher/go-exiftool"
	"gitlab.com/tozd/go/errors"
)

// ExifToolTags runs the exiftool binary against path and returns every field it reports,
// sorted by name. It fails when exiftool is not installed.
func ExifToolTags(path string) ([]Tag, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, errors.Errorf("start exiftool: %w", err)
	}
	defer et.Close()

	files := et.ExtractMetadata(path)
	if len(files) == 0 {
		return nil, errors.Errorf("exiftool returned no metadata for %s", path)
	}
	if files[0].Err != nil {
		return nil, errors.Errorf("exiftool: %w", files[0].Err)
	}

	tags := make([]Tag, 0, len(files[0].Fields))
	for name := range files[0].Fields {
		val, err := files[0].GetString(name)
		if err != nil {
			continue
		}
		tags = append(tags, Tag{Name: name, Value: val})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}
