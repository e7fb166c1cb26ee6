package codec

import (
	"sort"
	"strings"
)

var capabilities = []Capability{
	{Extension: ".jpg", Format: JPEG, Decode: true, Encode: true},
	{Extension: ".jpeg", Format: JPEG, Decode: true, Encode: true},
	{Extension: ".jpe", Format: JPEG, Decode: true, Encode: true},
	{Extension: ".jfif", Format: JPEG, Decode: true, Encode: true},
	{Extension: ".png", Format: PNG, Decode: true, Encode: true},
	{Extension: ".gif", Format: GIF, Decode: true, Encode: true},
	{Extension: ".tif", Format: TIFF, Decode: true, Encode: true},
	{Extension: ".tiff", Format: TIFF, Decode: true, Encode: true},
	{Extension: ".bmp", Format: BMP, Decode: true, Encode: true},
	{Extension: ".webp", Format: WEBP, Decode: true, Encode: true},
	{Extension: ".avif", Format: AVIF, Decode: true, Encode: true},
	{Extension: ".pdf", Format: PDF, Decode: false, Encode: true},
}

// decoderNames maps the names image.Decode reports to canonical formats.
var decoderNames = map[string]Format{
	"jpeg": JPEG,
	"png":  PNG,
	"gif":  GIF,
	"tiff": TIFF,
	"bmp":  BMP,
	"webp": WEBP,
	"avif": AVIF,
}

// Registry maps file extensions to codec capabilities.
type Registry struct {
	byExt map[string]Capability
}

// NewRegistry returns the registry of every format this package can handle.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Capability, len(capabilities))}
	for _, c := range capabilities {
		r.byExt[c.Extension] = c
	}
	return r
}

// Lookup returns the capability for ext. ext must carry its leading dot;
// case is ignored.
func (r *Registry) Lookup(ext string) (Capability, bool) {
	c, ok := r.byExt[strings.ToLower(ext)]
	return c, ok
}

// Capabilities returns all registered capabilities sorted by extension.
func (r *Registry) Capabilities() []Capability {
	out := make([]Capability, 0, len(r.byExt))
	for _, c := range r.byExt {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Extension < out[j].Extension })
	return out
}

// DecodableExtensions returns the sorted extensions that can be read.
func (r *Registry) DecodableExtensions() []string {
	var exts []string
	for _, c := range r.Capabilities() {
		if c.Decode {
			exts = append(exts, c.Extension)
		}
	}
	return exts
}

// EncodableExtensions returns the sorted extensions that can be written.
func (r *Registry) EncodableExtensions() []string {
	var exts []string
	for _, c := range r.Capabilities() {
		if c.Encode {
			exts = append(exts, c.Extension)
		}
	}
	return exts
}

// CarriesEXIF reports whether the encoder for format embeds EXIF metadata.
func CarriesEXIF(format Format) bool {
	return format == JPEG || format == PNG || format == WEBP
}
