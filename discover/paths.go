package discover

import (
	"net/url"

	"github.com/meigma/geticon/icon"
)

// commonPaths lists size-bearing icon filenames that icon generators emit
// and sites frequently publish without referencing them in markup.
var commonPaths = []struct {
	path    string
	size    int
	purpose string
}{
	{"/favicon-16x16.png", 16, ""},
	{"/favicon-32x32.png", 32, ""},
	{"/favicon-96x96.png", 96, ""},
	{"/favicon-128x128.png", 128, ""},
	{"/favicon-196x196.png", 196, ""},
	{"/apple-icon-57x57.png", 57, icon.PurposeAppleTouch},
	{"/apple-icon-60x60.png", 60, icon.PurposeAppleTouch},
	{"/apple-icon-72x72.png", 72, icon.PurposeAppleTouch},
	{"/apple-icon-76x76.png", 76, icon.PurposeAppleTouch},
	{"/apple-icon-114x114.png", 114, icon.PurposeAppleTouch},
	{"/apple-icon-120x120.png", 120, icon.PurposeAppleTouch},
	{"/apple-icon-144x144.png", 144, icon.PurposeAppleTouch},
	{"/apple-icon-152x152.png", 152, icon.PurposeAppleTouch},
	{"/apple-icon-180x180.png", 180, icon.PurposeAppleTouch},
	{"/apple-touch-icon-180x180.png", 180, icon.PurposeAppleTouch},
	{"/android-chrome-192x192.png", 192, ""},
	{"/android-chrome-512x512.png", 512, ""},
	{"/android-icon-48x48.png", 48, ""},
	{"/android-icon-72x72.png", 72, ""},
	{"/android-icon-96x96.png", 96, ""},
	{"/android-icon-144x144.png", 144, ""},
	{"/android-icon-192x192.png", 192, ""},
	{"/mstile-70x70.png", 70, icon.PurposeTile},
	{"/mstile-144x144.png", 144, icon.PurposeTile},
	{"/mstile-150x150.png", 150, icon.PurposeTile},
	{"/mstile-310x310.png", 310, icon.PurposeTile},
}

// CommonPaths returns a candidate for every entry of the common icon path
// table, resolved against base.
func CommonPaths(base *url.URL) []icon.Icon {
	icons := make([]icon.Icon, 0, len(commonPaths))
	for _, p := range commonPaths {
		u, ok := resolve(base, p.path)
		if !ok {
			continue
		}
		icons = append(icons, icon.Icon{
			URL:     u,
			Type:    icon.TypePNG,
			Width:   p.size,
			Height:  p.size,
			Purpose: p.purpose,
		})
	}
	return icons
}
