package validate

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"mime"
	"strings"

	// Register decoders for the formats icons are served in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/sergeymakinen/go-ico"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/meigma/geticon/icon"
)

// Content rejection reasons returned by CheckContent.
var (
	// ErrEmpty is returned for an empty body.
	ErrEmpty = errors.New("validate: empty content")

	// ErrHTML is returned when the body is an HTML document.
	ErrHTML = errors.New("validate: content is html")

	// ErrSignature is returned when the body has no recognized image signature.
	ErrSignature = errors.New("validate: unrecognized image signature")

	// ErrDecode is returned when the body does not decode as an image.
	ErrDecode = errors.New("validate: image decode failed")

	// ErrDimensions is returned when the image header declares a canvas
	// larger than MaxDimension on either side.
	ErrDimensions = errors.New("validate: image dimensions too large")
)

// MaxDimension bounds the width and height of a decoded icon. The header is
// checked before any pixel data is allocated.
const MaxDimension = 4096

// Content reports whether b is a servable image of the declared type.
func Content(b []byte, contentType string) bool {
	return CheckContent(b, contentType) == nil
}

// CheckContent validates fully fetched icon bytes.
//
// Empty bodies, HTML documents and bodies without a recognized signature are
// rejected. SVG passes on its signature alone. Raster bodies whose header
// declares more than MaxDimension pixels on a side are rejected. PNG must
// decode, except that a body carrying the PNG magic is accepted even when
// decoding fails. Every other type must decode.
func CheckContent(b []byte, contentType string) error {
	if len(b) == 0 {
		return ErrEmpty
	}
	if IsHTML(b) {
		return ErrHTML
	}
	if !HasImageSignature(b) {
		return ErrSignature
	}

	switch MediaType(contentType) {
	case icon.TypeSVG:
		return nil
	case icon.TypePNG:
		err := decode(b)
		if errors.Is(err, ErrDimensions) {
			return err
		}
		if err != nil && !bytes.HasPrefix(b, pngMagic) {
			return err
		}
		return nil
	default:
		return decode(b)
	}
}

// MediaType returns the lower-cased media type of a Content-Type value
// without parameters.
func MediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func decode(b []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, cfg.Width, cfg.Height)
	}
	if _, _, err := image.Decode(bytes.NewReader(b)); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
