package codec

import (
	"image"

	"github.com/disintegration/imaging"
)

type opaquer interface {
	Opaque() bool
}

// Mode names the pixel layout of img using the conventional short names
// (RGB, RGBA, L, P, ...). Layouts that can store alpha but whose pixels are all
// opaque are reported without the alpha channel.
func Mode(img image.Image) string {
	switch m := img.(type) {
	case *image.NRGBA, *image.RGBA, *image.NYCbCrA:
		if isOpaque(m) {
			return "RGB"
		}
		return "RGBA"
	case *image.NRGBA64, *image.RGBA64:
		if isOpaque(m) {
			return "RGB;16"
		}
		return "RGBA;16"
	case *image.Gray:
		return "L"
	case *image.Gray16:
		return "I;16"
	case *image.Alpha:
		return "A"
	case *image.Alpha16:
		return "A;16"
	case *image.YCbCr:
		return "RGB"
	case *image.CMYK:
		return "CMYK"
	case *image.Paletted:
		if m.Opaque() {
			return "P"
		}
		return "PA"
	default:
		if isOpaque(img) {
			return "RGB"
		}
		return "RGBA"
	}
}

// HasAlpha reports whether img carries at least one non-opaque pixel.
func HasAlpha(img image.Image) bool {
	switch Mode(img) {
	case "RGBA", "RGBA;16", "A", "A;16", "PA":
		return true
	}
	return false
}

// Flatten returns an opaque copy of img. Alpha is dropped rather than
// composited, so fully transparent pixels keep their stored colour.
func Flatten(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(opaquer); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
