package metadata

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tiffEXIF builds a little-endian EXIF block with IFD0 Make and Orientation.
// maker must be at most three characters so the value fits inline.
func tiffEXIF(maker string, orientation uint16) []byte {
	b := []byte("II*\x00")
	b = binary.LittleEndian.AppendUint32(b, 8)
	b = binary.LittleEndian.AppendUint16(b, 2)

	b = binary.LittleEndian.AppendUint16(b, 0x010F)
	b = binary.LittleEndian.AppendUint16(b, 2)
	b = binary.LittleEndian.AppendUint32(b, 4)
	val := inlineASCII(maker)
	b = append(b, val[:]...)

	b = binary.LittleEndian.AppendUint16(b, 0x0112)
	b = binary.LittleEndian.AppendUint16(b, 3)
	b = binary.LittleEndian.AppendUint32(b, 1)
	b = binary.LittleEndian.AppendUint16(b, orientation)
	b = append(b, 0, 0)

	return binary.LittleEndian.AppendUint32(b, 0)
}

func inlineASCII(s string) [4]byte {
	var v [4]byte
	copy(v[:3], s)
	return v
}

func jpegWithEXIF(t *testing.T, raw []byte) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil), "encoding fixture should succeed")
	data := buf.Bytes()

	seg := []byte{0xFF, 0xE1}
	seg = binary.BigEndian.AppendUint16(seg, uint16(2+6+len(raw)))
	seg = append(seg, "Exif\x00\x00"...)
	seg = append(seg, raw...)

	out := append([]byte{}, data[:2]...)
	out = append(out, seg...)
	return append(out, data[2:]...)
}

func TestOrientation(t *testing.T) {
	tests := []struct {
		name    string
		value   Orientation
		want    string
		rotated bool
	}{
		{name: "unknown", value: OrientationUnknown, want: "Unknown", rotated: false},
		{name: "normal", value: OrientationNormal, want: "Horizontal (normal)", rotated: false},
		{name: "rotate_90", value: OrientationRotate90, want: "Rotate 90 CW", rotated: true},
		{name: "rotate_180", value: OrientationRotate180, want: "Rotate 180", rotated: true},
		{name: "rotate_270", value: OrientationRotate270, want: "Rotate 270 CW", rotated: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.String(), "string form should match")
			assert.Equal(t, tt.rotated, tt.value.IsRotated(), "rotation flag should match")
		})
	}
}

func TestExtract(t *testing.T) {
	t.Run("jpeg_with_exif", func(t *testing.T) {
		raw := tiffEXIF("Foo", 6)
		meta, err := Extract(jpegWithEXIF(t, raw))
		require.NoError(t, err, "Extract should not error")

		assert.Equal(t, raw, meta.Raw, "raw block should be the APP1 payload")
		assert.Equal(t, OrientationRotate90, meta.Orientation, "orientation should be decoded")
		assert.Equal(t, "Foo", meta.Make, "make should be decoded")
		assert.Empty(t, meta.Model, "missing model should be empty")
		assert.Nil(t, meta.DateTime, "missing date should be nil")
	})

	t.Run("jpeg_without_exif", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4)), nil))

		_, err := Extract(buf.Bytes())
		require.Error(t, err, "Extract should error without EXIF")
		assert.ErrorIs(t, err, ErrNoEXIF, "error should wrap ErrNoEXIF")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Extract([]byte("not an image"))
		assert.ErrorIs(t, err, ErrNoEXIF, "error should wrap ErrNoEXIF")
	})
}

func TestEXIFSummary(t *testing.T) {
	t.Run("from_jpeg", func(t *testing.T) {
		meta, err := Extract(jpegWithEXIF(t, tiffEXIF("Foo", 6)))
		require.NoError(t, err, "Extract should not error")

		assert.Equal(t, []Tag{
			{Name: "Camera", Value: "Foo"},
			{Name: "Orientation", Value: "Rotate 90 CW"},
		}, meta.Summary(), "only populated fields should be summarized")
	})

	t.Run("all_fields", func(t *testing.T) {
		taken := time.Date(2023, 5, 17, 10, 11, 12, 0, time.UTC)
		meta := &EXIF{
			Make:        "Canon",
			Model:       "EOS R5",
			Software:    "Firmware 1.8",
			DateTime:    &taken,
			Orientation: OrientationNormal,
		}
		assert.Equal(t, []Tag{
			{Name: "Camera", Value: "Canon EOS R5"},
			{Name: "Software", Value: "Firmware 1.8"},
			{Name: "Taken", Value: "2023-05-17 10:11:12"},
			{Name: "Orientation", Value: "Horizontal (normal)"},
		}, meta.Summary())
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, (&EXIF{}).Summary(), "zero value should have no rows")
	})
}

func TestLookupTags(t *testing.T) {
	data := jpegWithEXIF(t, tiffEXIF("Foo", 3))

	t.Run("summary", func(t *testing.T) {
		tags, err := LookupTags(data)
		require.NoError(t, err, "LookupTags should not error")

		got := map[string]string{}
		for _, tag := range tags {
			got[tag.Name] = tag.Value
		}
		assert.Equal(t, "Foo", got["Make"], "make should be reported")
		assert.Equal(t, "3", got["Orientation"], "orientation should be reported")
		assert.NotContains(t, got, "Model", "absent tags should be skipped")
	})

	t.Run("named", func(t *testing.T) {
		tags, err := LookupTags(data, "Orientation")
		require.NoError(t, err, "LookupTags should not error")
		require.Len(t, tags, 1)
		assert.Equal(t, Tag{Name: "Orientation", Value: "3"}, tags[0])
	})

	t.Run("no_exif", func(t *testing.T) {
		_, err := LookupTags([]byte("plain text without a tiff header"))
		assert.ErrorIs(t, err, ErrNoEXIF, "error should wrap ErrNoEXIF")
	})
}

func TestParseEXIFDateTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "exif_format", input: "2023:05:17 10:11:12", ok: true},
		{name: "iso_format", input: "2023-05-17 10:11:12", ok: true},
		{name: "date_only", input: "2023:05:17", ok: true},
		{name: "empty", input: "", ok: false},
		{name: "garbage", input: "yesterday", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseEXIFDateTime(tt.input)
			if !tt.ok {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, 2023, got.Year())
			assert.Equal(t, 17, got.Day())
		})
	}
}
