package codec

import (
	"image"

	"imageconvert/internal/metadata"
)

// Format is the canonical name of an image container format.
type Format string

// Supported formats.
const (
	JPEG Format = "JPEG"
	PNG  Format = "PNG"
	GIF  Format = "GIF"
	TIFF Format = "TIFF"
	BMP  Format = "BMP"
	WEBP Format = "WEBP"
	AVIF Format = "AVIF"
	PDF  Format = "PDF"
)

func (f Format) String() string {
	return string(f)
}

// Capability describes what the codec can do with files of one extension.
type Capability struct {
	Extension string // dot-prefixed, lowercase
	Format    Format
	Decode    bool
	Encode    bool
}

// Image is a decoded source image and what was learned while decoding it.
type Image struct {
	Image image.Image
	// Format is sniffed from the file content, not taken from its extension.
	Format      Format
	EXIF        []byte
	Orientation metadata.Orientation
	Size        int64
}

// EncodeOptions are the parameters handed to a format encoder.
// Options that a format cannot honour are ignored.
type EncodeOptions struct {
	Quality     int
	Optimize    bool
	Progressive bool
	EXIF        []byte
	AVIFSpeed   int
}

// Codec is the image library capability the conversion engine depends on.
type Codec interface {
	// Lookup returns the capability registered for a dot-prefixed extension.
	Lookup(ext string) (Capability, bool)
	// Decode reads and decodes the image at path.
	Decode(path string) (*Image, error)
	// Encode writes img to path in the given format and returns the bytes written.
	Encode(path string, img image.Image, format Format, opts EncodeOptions) (int64, error)
}
