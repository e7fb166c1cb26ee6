package metadata

import (
	"time"
)

// Orientation is the EXIF orientation tag value (1-8).
type Orientation int

const (
	OrientationUnknown Orientation = iota
	OrientationNormal
	OrientationMirrorHorizontal
	OrientationRotate180
	OrientationMirrorVertical
	OrientationMirrorHorizontalRotate270
	OrientationRotate90
	OrientationMirrorHorizontalRotate90
	OrientationRotate270
)

// EXIF contains the metadata carried over from a decoded source image.
type EXIF struct {
	// Raw is the TIFF-structured EXIF payload, without the "Exif\0\0" header.
	Raw         []byte
	Orientation Orientation
	DateTime    *time.Time
	Make        string
	Model       string
	Software    string
}

// Tag is a single named metadata value, already formatted for display.
type Tag struct {
	Name  string
	Value string
}

// String returns the exiftool-style description of the orientation.
func (o Orientation) String() string {
	switch o {
	case OrientationNormal:
		return "Horizontal (normal)"
	case OrientationMirrorHorizontal:
		return "Mirror horizontal"
	case OrientationRotate180:
		return "Rotate 180"
	case OrientationMirrorVertical:
		return "Mirror vertical"
	case OrientationMirrorHorizontalRotate270:
		return "Mirror horizontal and rotate 270 CW"
	case OrientationRotate90:
		return "Rotate 90 CW"
	case OrientationMirrorHorizontalRotate90:
		return "Mirror horizontal and rotate 90 CW"
	case OrientationRotate270:
		return "Rotate 270 CW"
	default:
		return "Unknown"
	}
}

// IsRotated reports whether a viewer must transform the pixels before display.
func (o Orientation) IsRotated() bool {
	return o > OrientationNormal && o <= OrientationRotate270
}
