package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DataURL inlines data as a base64 data URL.
func DataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// InlinePreview builds a data URL suitable for an <img> tag.
// Raster images wider than width are downscaled; formats imaging cannot
// decode (SVG, HEIC, ...) are inlined verbatim.
func InlinePreview(data []byte, contentType string, width int) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return DataURL(contentType, data), nil
	}

	if width > 0 && img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	out, outType, err := encode(img, contentType)
	if err != nil {
		return "", fmt.Errorf("encoding preview: %w", err)
	}
	return DataURL(outType, out), nil
}

// StripMetadata re-encodes JPEG and PNG images to drop EXIF, GPS and other
// metadata. Other types are returned unchanged.
func StripMetadata(data []byte, contentType string) ([]byte, error) {
	var format imaging.Format
	switch baseType(contentType) {
	case "image/jpeg", "image/jpg":
		format = imaging.JPEG
	case "image/png":
		format = imaging.PNG
	default:
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", contentType, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(92)); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", contentType, err)
	}
	return buf.Bytes(), nil
}

// encode keeps transparency for formats that may carry it.
func encode(img image.Image, contentType string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch baseType(contentType) {
	case "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff":
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	default:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}
