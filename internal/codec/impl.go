package codec

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"gitlab.com/tozd/go/errors"
	_ "golang.org/x/image/webp"

	"imageconvert/internal/metadata"
)

const (
	defaultQuality   = 75
	defaultAVIFSpeed = 6
	webpMethod       = 4
	webpMethodBest   = 6
)

// DefaultCodec is the Codec backed by imaging, gen2brain/webp, gen2brain/avif
// and gofpdf.
type DefaultCodec struct {
	*Registry
}

// New returns a DefaultCodec with the full registry.
func New() *DefaultCodec {
	return &DefaultCodec{Registry: NewRegistry()}
}

// Decode reads the file at path and decodes it, sniffing the format from
// its content. The EXIF block and orientation of JPEG sources are kept.
func (c *DefaultCodec) Decode(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("read: %w", err)
	}

	img, name, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Errorf("decode: %w", err)
	}

	format, ok := decoderNames[name]
	if !ok {
		format = Format(strings.ToUpper(name))
	}

	out := &Image{
		Image:       img,
		Format:      format,
		Orientation: metadata.OrientationUnknown,
		Size:        int64(len(data)),
	}
	if format == JPEG {
		if meta, err := metadata.Extract(data); err == nil {
			out.EXIF = meta.Raw
			out.Orientation = meta.Orientation
		}
	}
	return out, nil
}

// Encode encodes img as format and writes it to path through a temporary
// sibling file, so a failed encode never leaves a truncated target behind.
func (c *DefaultCodec) Encode(path string, img image.Image, format Format, opts EncodeOptions) (int64, error) {
	var buf bytes.Buffer
	if err := encode(&buf, img, format, opts); err != nil {
		return 0, err
	}

	data := buf.Bytes()
	var err error
	switch format {
	case JPEG:
		data, err = EmbedJPEGEXIF(data, opts.EXIF)
	case PNG:
		data, err = EmbedPNGEXIF(data, opts.EXIF)
	case WEBP:
		data, err = EmbedWebPEXIF(data, opts.EXIF)
	}
	if err != nil {
		return 0, errors.Errorf("embed EXIF: %w", err)
	}

	if err := writeFile(path, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func encode(w io.Writer, img image.Image, format Format, opts EncodeOptions) error {
	quality := opts.Quality
	if quality < 1 || quality > 100 {
		quality = defaultQuality
	}

	var err error
	switch format {
	case JPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case PNG:
		level := png.DefaultCompression
		if opts.Optimize {
			level = png.BestCompression
		}
		err = imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(level))
	case GIF:
		err = imaging.Encode(w, img, imaging.GIF, imaging.GIFNumColors(256))
	case TIFF:
		err = imaging.Encode(w, img, imaging.TIFF)
	case BMP:
		err = imaging.Encode(w, img, imaging.BMP)
	case WEBP:
		method := webpMethod
		if opts.Optimize {
			method = webpMethodBest
		}
		err = webp.Encode(w, img, webp.Options{Quality: quality, Method: method})
	case AVIF:
		speed := opts.AVIFSpeed
		if speed < 0 || speed > 10 {
			speed = defaultAVIFSpeed
		}
		err = avif.Encode(w, img, avif.Options{
			Quality:           quality,
			QualityAlpha:      quality,
			Speed:             speed,
			ChromaSubsampling: image.YCbCrSubsampleRatio420,
		})
	case PDF:
		err = encodePDF(w, img, quality)
	default:
		return errors.Errorf("no encoder for format %s", format)
	}
	if err != nil {
		return errors.Errorf("encode %s: %w", format, err)
	}
	return nil
}

func writeFile(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Errorf("write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return errors.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return errors.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return errors.Errorf("rename temp file: %w", err)
	}
	return nil
}
