package codec

import (
	"bytes"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/phpdave11/gofpdf"
	"gitlab.com/tozd/go/errors"
)

// encodePDF writes img as a single-page PDF. The page is sized to the image at
// one point per pixel and the image is embedded as a JPEG at the given quality.
func encodePDF(w io.Writer, img image.Image, quality int) error {
	b := img.Bounds()
	if b.Empty() {
		return errors.New("empty image")
	}
	if HasAlpha(img) {
		img = Flatten(img)
	}

	var page bytes.Buffer
	if err := imaging.Encode(&page, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return errors.Errorf("encode PDF page: %w", err)
	}

	wd, ht := float64(b.Dx()), float64(b.Dy())
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("page", opts, &page)
	pdf.ImageOptions("page", 0, 0, wd, ht, false, opts, 0, "")

	if err := pdf.Output(w); err != nil {
		return errors.Errorf("write PDF: %w", err)
	}
	return nil
}
