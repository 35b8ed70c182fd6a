// Package testutil provides fixtures shared by package tests: encoded image
// builders and an in-process fake web site.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 0x33, G: 0x99, B: 0xCC, A: 0xFF})
		}
	}
	return img
}

// PNG returns an encoded w×h PNG.
func PNG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h)); err != nil {
		tb.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// GIF returns an encoded w×h GIF.
func GIF(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, solid(w, h), nil); err != nil {
		tb.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

// JPEG returns an encoded w×h JPEG.
func JPEG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h), nil); err != nil {
		tb.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// SVG returns a minimal SVG document.
func SVG() []byte {
	return []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16"><rect width="16" height="16"/></svg>`)
}

// ICO wraps each image in an icon directory. Entries are stored as given.
func ICO(tb testing.TB, entries ...ICOEntry) []byte {
	tb.Helper()
	var buf bytes.Buffer
	write := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			tb.Fatalf("write ico: %v", err)
		}
	}
	write(uint16(0))
	write(uint16(1))
	write(uint16(len(entries)))

	offset := 6 + 16*len(entries)
	for _, e := range entries {
		buf.WriteByte(byte(e.Width % 256))
		buf.WriteByte(byte(e.Height % 256))
		buf.WriteByte(0)
		buf.WriteByte(0)
		write(uint16(1))
		write(uint16(32))
		write(uint32(len(e.Data)))
		write(uint32(offset))
		offset += len(e.Data)
	}
	for _, e := range entries {
		buf.Write(e.Data)
	}
	return buf.Bytes()
}

// ICOEntry is one image stored in an icon file.
type ICOEntry struct {
	Width, Height int
	Data          []byte
}

// PNGEntry returns an icon entry holding an embedded PNG.
func PNGEntry(tb testing.TB, size int) ICOEntry {
	tb.Helper()
	return ICOEntry{Width: size, Height: size, Data: PNG(tb, size, size)}
}

// DIBEntry returns an icon entry holding a 32-bit bitmap followed by its
// transparency mask.
func DIBEntry(tb testing.TB, size int) ICOEntry {
	tb.Helper()
	var buf bytes.Buffer
	write := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			tb.Fatalf("write dib: %v", err)
		}
	}
	pixels := size * size * 4
	maskStride := ((size + 31) / 32) * 4

	write(uint32(40))
	write(int32(size))
	write(int32(size * 2))
	write(uint16(1))
	write(uint16(32))
	write(uint32(0))
	write(uint32(pixels + maskStride*size))
	write(int32(0))
	write(int32(0))
	write(uint32(0))
	write(uint32(0))
	for range size * size {
		buf.Write([]byte{0xCC, 0x99, 0x33, 0xFF})
	}
	buf.Write(make([]byte, maskStride*size))
	return ICOEntry{Width: size, Height: size, Data: buf.Bytes()}
}

// HTMLPage is a small HTML document, as served by sites that answer every
// path with a page instead of a 404.
const HTMLPage = "<!DOCTYPE html><html><head><title>Not found</title></head><body>missing</body></html>"
