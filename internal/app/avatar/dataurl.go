package avatar

import (
	"encoding/base64"
	"errors"
	"strings"
)

// MaxImageBytes is the largest decoded avatar image accepted.
const MaxImageBytes = 2 << 20

var (
	ErrNotImageDataURL   = errors.New("not an image data URL")
	ErrUnsupportedImage  = errors.New("unsupported image type")
	ErrImageTooLarge     = errors.New("image too large")
	ErrMalformedEncoding = errors.New("malformed base64 image data")
)

// allowedImageTypes maps accepted media types to object key extensions.
var allowedImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Image is a decoded data URL.
type Image struct {
	ContentType string
	Extension   string
	Data        []byte
}

// ParseDataURL decodes a base64 image data URL such as "data:image/png;base64,iVBOR...".
func ParseDataURL(raw string) (*Image, error) {
	if !strings.HasPrefix(raw, "data:image/") {
		return nil, ErrNotImageDataURL
	}

	header, encoded, found := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !found {
		return nil, ErrNotImageDataURL
	}

	mediaType, params, _ := strings.Cut(header, ";")
	if !strings.EqualFold(params, "base64") {
		return nil, ErrMalformedEncoding
	}

	mediaType = strings.ToLower(mediaType)
	ext, ok := allowedImageTypes[mediaType]
	if !ok {
		return nil, ErrUnsupportedImage
	}

	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxImageBytes+2 {
		return nil, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformedEncoding
	}
	if len(data) == 0 {
		return nil, ErrMalformedEncoding
	}
	if len(data) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	return &Image{ContentType: mediaType, Extension: ext, Data: data}, nil
}
