package validate

import (
	"bytes"
	"strings"
)

// htmlSniffLen bounds how much of a buffer IsHTML inspects.
const htmlSniffLen = 1024

var pngMagic = []byte("\x89PNG")

var imageSignatures = [][]byte{
	pngMagic,
	[]byte("GIF8"),
	[]byte("\xFF\xD8\xFF"),
	[]byte("<svg"),
	[]byte("<?xml"),
	[]byte("RIFF"),
	[]byte("\x00\x00\x01\x00"),
}

var htmlPrefixes = [][]byte{
	[]byte("<!DOCTYPE"),
	[]byte("<!doctype"),
	[]byte("<html"),
	[]byte("<HTML"),
}

var htmlMarkers = [][]byte{
	[]byte("<script"),
	[]byte("<body"),
	[]byte("<head"),
}

// IsHTML reports whether b looks like an HTML document rather than an image.
// Only the first bytes of b are examined.
func IsHTML(b []byte) bool {
	head := b[:min(len(b), htmlSniffLen)]
	trimmed := trimText(head)
	for _, p := range htmlPrefixes {
		if bytes.HasPrefix(trimmed, p) {
			return true
		}
	}
	for _, m := range htmlMarkers {
		if bytes.Contains(head, m) {
			return true
		}
	}
	return false
}

// HasImageSignature reports whether b starts with a recognized image
// signature: PNG, GIF, JPEG, SVG/XML, RIFF (WEBP) or ICO.
func HasImageSignature(b []byte) bool {
	for _, sig := range imageSignatures {
		if bytes.HasPrefix(b, sig) {
			return true
		}
	}
	// SVG documents are text and may start with a BOM or whitespace.
	trimmed := trimText(b[:min(len(b), htmlSniffLen)])
	return bytes.HasPrefix(trimmed, []byte("<svg")) || bytes.HasPrefix(trimmed, []byte("<?xml"))
}

// IsImageContentType reports whether a Content-Type header value names an
// image media type.
func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

func trimText(b []byte) []byte {
	b = bytes.TrimPrefix(b, []byte("\xEF\xBB\xBF"))
	return bytes.TrimLeft(b, " \t\r\n")
}
