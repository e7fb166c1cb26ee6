package codec

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"gitlab.com/tozd/go/errors"
)

var (
	jpegSOI       = []byte{0xFF, 0xD8}
	exifHeader    = []byte("Exif\x00\x00")
	pngSignature  = []byte("\x89PNG\r\n\x1a\n")
	pngIHDREnd    = len(pngSignature) + 4 + 4 + 13 + 4
	maxSegmentLen = 0xFFFF
)

// EmbedJPEGEXIF inserts raw (a TIFF-structured EXIF block) as an APP1 segment
// directly after the SOI marker of a JPEG stream.
func EmbedJPEGEXIF(jpegData, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return jpegData, nil
	}
	if !bytes.HasPrefix(jpegData, jpegSOI) {
		return nil, errors.New("not a JPEG stream")
	}
	segLen := 2 + len(exifHeader) + len(raw)
	if segLen > maxSegmentLen {
		return nil, errors.Errorf("EXIF block of %d bytes does not fit in an APP1 segment", len(raw))
	}

	out := make([]byte, 0, len(jpegData)+segLen+2)
	out = append(out, jpegSOI...)
	out = append(out, 0xFF, 0xE1)
	out = binary.BigEndian.AppendUint16(out, uint16(segLen))
	out = append(out, exifHeader...)
	out = append(out, raw...)
	out = append(out, jpegData[len(jpegSOI):]...)
	return out, nil
}

// EmbedPNGEXIF inserts raw as an eXIf chunk right after the IHDR chunk.
func EmbedPNGEXIF(pngData, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return pngData, nil
	}
	if !bytes.HasPrefix(pngData, pngSignature) || len(pngData) < pngIHDREnd ||
		string(pngData[12:16]) != "IHDR" {
		return nil, errors.New("not a PNG stream")
	}

	chunk := make([]byte, 0, 12+len(raw))
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(raw)))
	chunk = append(chunk, "eXIf"...)
	chunk = append(chunk, raw...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))

	out := make([]byte, 0, len(pngData)+len(chunk))
	out = append(out, pngData[:pngIHDREnd]...)
	out = append(out, chunk...)
	out = append(out, pngData[pngIHDREnd:]...)
	return out, nil
}

const (
	vp8xHasEXIF  = 0x08
	vp8xHasAlpha = 0x10
)

// EmbedWebPEXIF appends raw as an EXIF chunk. Simple (VP8 or VP8L) files are
// promoted to the extended layout, since only a VP8X header can flag EXIF.
func EmbedWebPEXIF(webpData, raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return webpData, nil
	}
	if len(webpData) < 20 || string(webpData[:4]) != "RIFF" || string(webpData[8:12]) != "WEBP" {
		return nil, errors.New("not a WebP stream")
	}

	body := webpData[12:]
	var out []byte
	switch fourCC := string(body[:4]); fourCC {
	case "VP8X":
		if len(body) < 18 {
			return nil, errors.New("invalid VP8X header")
		}
		out = append(out, webpData...)
		out[20] |= vp8xHasEXIF
	case "VP8 ", "VP8L":
		width, height, alpha, err := webpCanvas(fourCC, body[8:])
		if err != nil {
			return nil, err
		}
		flags := byte(vp8xHasEXIF)
		if alpha {
			flags |= vp8xHasAlpha
		}
		out = append(out, webpData[:12]...)
		out = append(out, "VP8X"...)
		out = binary.LittleEndian.AppendUint32(out, 10)
		out = append(out, flags, 0, 0, 0)
		out = appendUint24(out, uint32(width-1))
		out = appendUint24(out, uint32(height-1))
		out = append(out, body...)
	default:
		return nil, errors.Errorf("unexpected WebP chunk %q", fourCC)
	}

	out = append(out, "EXIF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(raw)))
	out = append(out, raw...)
	if len(raw)%2 == 1 {
		out = append(out, 0)
	}
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out, nil
}

// webpCanvas reads the frame size from a VP8 or VP8L bitstream header.
func webpCanvas(fourCC string, payload []byte) (width, height int, alpha bool, err error) {
	if fourCC == "VP8L" {
		if len(payload) < 5 || payload[0] != 0x2F {
			return 0, 0, false, errors.New("invalid VP8L header")
		}
		bits := binary.LittleEndian.Uint32(payload[1:5])
		return int(bits&0x3FFF) + 1, int(bits>>14&0x3FFF) + 1, bits>>28&1 == 1, nil
	}
	if len(payload) < 10 || !bytes.Equal(payload[3:6], []byte{0x9D, 0x01, 0x2A}) {
		return 0, 0, false, errors.New("invalid VP8 header")
	}
	width = int(binary.LittleEndian.Uint16(payload[6:8]) & 0x3FFF)
	height = int(binary.LittleEndian.Uint16(payload[8:10]) & 0x3FFF)
	return width, height, false, nil
}

func appendUint24(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16))
}
