// Package icon defines icon candidates and the pure functions that score,
// rank and select them.
package icon

import (
	"path"
	"strconv"
	"strings"
)

// Well-known MIME types for icon formats.
const (
	TypeSVG  = "image/svg+xml"
	TypePNG  = "image/png"
	TypeWEBP = "image/webp"
	TypeJPEG = "image/jpeg"
	TypeICO  = "image/x-icon"
	TypeGIF  = "image/gif"
)

// Purposes assigned by discovery to candidates that are not declared by a
// <link rel> or manifest entry.
const (
	PurposeAppleTouch = "apple-touch-icon"
	PurposeTileImage  = "msapplication-TileImage"
	PurposeTile       = "msapplication-tile"
	PurposeOpenGraph  = "og:image"
)

// Icon is a discovered icon candidate.
//
// Width and Height are zero when unknown; Purpose is empty when none was
// declared. Score is derived by [Score] and is not part of the identity.
type Icon struct {
	URL     string `json:"url"`
	Type    string `json:"type"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	Score   int    `json:"-"`
}

// Key is the identity of an icon candidate.
type Key struct {
	URL     string
	Type    string
	Width   int
	Height  int
	Purpose string
}

// Key returns the identity tuple of i.
func (i Icon) Key() Key {
	return Key{URL: i.URL, Type: i.Type, Width: i.Width, Height: i.Height, Purpose: i.Purpose}
}

// HasSize reports whether both dimensions are known.
func (i Icon) HasSize() bool {
	return i.Width > 0 && i.Height > 0
}

// Size returns max(Width, Height), or zero when either dimension is unknown.
func (i Icon) Size() int {
	if !i.HasSize() {
		return 0
	}
	return max(i.Width, i.Height)
}

// TypeFromExtension infers a MIME type from the path extension of ref.
// Query strings and fragments are ignored. fallback is returned for unknown
// extensions.
func TypeFromExtension(ref, fallback string) string {
	p := ref
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return TypePNG
	case ".svg":
		return TypeSVG
	case ".webp":
		return TypeWEBP
	case ".jpg", ".jpeg":
		return TypeJPEG
	default:
		return fallback
	}
}

// ParseLinkSizes parses an HTML sizes attribute such as "32x32" or
// "16x16 32x32". For lists the largest entry wins. "any" and malformed
// values yield zero dimensions.
func ParseLinkSizes(sizes string) (width, height int) {
	for _, token := range strings.Fields(sizes) {
		w, h, ok := parseWxH(token)
		if ok && max(w, h) > max(width, height) {
			width, height = w, h
		}
	}
	return width, height
}

// ParseManifestSizes parses a Web App Manifest sizes value: "WxH", or a bare
// integer for square icons. Anything else yields zero dimensions.
func ParseManifestSizes(sizes string) (width, height int) {
	sizes = strings.TrimSpace(sizes)
	if strings.ContainsAny(sizes, "xX") {
		if w, h, ok := parseWxH(sizes); ok {
			return w, h
		}
		return 0, 0
	}
	if n, err := strconv.Atoi(sizes); err == nil && n > 0 {
		return n, n
	}
	return 0, 0
}

func parseWxH(s string) (int, int, bool) {
	w, h, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		return 0, 0, false
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, false
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}
