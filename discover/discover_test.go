package discover_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/geticon/discover"
	"github.com/meigma/geticon/icon"
	"github.com/meigma/geticon/internal/testutil"
)

const page = `<!DOCTYPE html>
<html><head>
<title>Example</title>
<link rel="stylesheet" href="/style.css">
<link rel="icon" type="image/svg+xml" href="/icon.svg">
<link rel="shortcut icon" href="favicon.ico">
<link rel="apple-touch-icon" sizes="152x152" href="/apple-152.png">
<link rel="icon" sizes="16x16 48x48" href="/multi.png#frag">
<link rel="icon" href="data:image/png;base64,AAAA">
<link rel="manifest" href="/app.webmanifest">
<meta name="msapplication-TileImage" content="/tile.png">
<meta name="msapplication-config" content="/browserconfig.xml">
<meta property="og:image" content="https://cdn.example.test/og.jpg">
</head><body></body></html>`

const manifest = `{
  "name": "Example",
  "icons": [
    {"src": "icons/192.png", "sizes": "192x192", "purpose": "any maskable"},
    {"src": "/512.webp", "sizes": "512"},
    {"src": "/any.png", "sizes": "any"},
    {"src": 123, "sizes": "64x64"},
    "not an object",
    {"src": "/nosizes.png"}
  ]
}`

const browserConfig = `<?xml version="1.0" encoding="utf-8"?>
<browserconfig><msapplication><tile>
<square150x150logo src="/mstile-150.png"/>
<TileColor>#da532c</TileColor>
</tile></msapplication></browserconfig>`

func baseURL(t *testing.T, site *testutil.Site) *url.URL {
	t.Helper()
	u, err := url.Parse(site.URL + "/")
	require.NoError(t, err)
	return u
}

func find(icons []icon.Icon, suffix string) (icon.Icon, bool) {
	for _, ic := range icons {
		if strings.HasSuffix(ic.URL, suffix) {
			return ic, true
		}
	}
	return icon.Icon{}, false
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	site := testutil.NewSite(t)
	site.Handle("/", testutil.Resource{ContentType: "text/html; charset=utf-8", Body: []byte(page)})
	site.Handle("/app.webmanifest", testutil.Resource{ContentType: "application/manifest+json", Body: []byte(manifest)})
	site.Handle("/browserconfig.xml", testutil.Resource{ContentType: "application/xml", Body: []byte(browserConfig)})

	icons := discover.New().Discover(context.Background(), baseURL(t, site))
	require.Len(t, icons, 13)

	// Well-known candidates come first.
	assert.Equal(t, icon.Icon{URL: site.URL + "/favicon.ico", Type: icon.TypeICO, Width: 16, Height: 16}, icons[0])
	assert.Equal(t, site.URL+"/apple-touch-icon.png", icons[1].URL)
	assert.Equal(t, site.URL+"/apple-touch-icon-precomposed.png", icons[2].URL)

	svg, ok := find(icons, "/icon.svg")
	require.True(t, ok)
	assert.Equal(t, icon.TypeSVG, svg.Type)
	assert.Equal(t, "icon", svg.Purpose)
	assert.False(t, svg.HasSize())

	shortcut := icons[4]
	assert.Equal(t, site.URL+"/favicon.ico", shortcut.URL)
	assert.Equal(t, icon.TypeICO, shortcut.Type)
	assert.Equal(t, "shortcut icon", shortcut.Purpose)

	apple, ok := find(icons, "/apple-152.png")
	require.True(t, ok)
	assert.Equal(t, icon.TypePNG, apple.Type)
	assert.Equal(t, 152, apple.Width)
	assert.Equal(t, "apple-touch-icon", apple.Purpose)

	multi, ok := find(icons, "/multi.png")
	require.True(t, ok)
	assert.Equal(t, 48, multi.Width)
	assert.Equal(t, 48, multi.Height)

	tile, ok := find(icons, "/tile.png")
	require.True(t, ok)
	assert.Equal(t, icon.PurposeTileImage, tile.Purpose)
	assert.Equal(t, 144, tile.Width)

	m192, ok := find(icons, "/icons/192.png")
	require.True(t, ok)
	assert.Equal(t, 192, m192.Height)
	assert.Equal(t, "any maskable", m192.Purpose)

	m512, ok := find(icons, "/512.webp")
	require.True(t, ok)
	assert.Equal(t, icon.TypeWEBP, m512.Type)
	assert.Equal(t, 512, m512.Width)
	assert.Equal(t, 512, m512.Height)

	anySize, ok := find(icons, "/any.png")
	require.True(t, ok)
	assert.False(t, anySize.HasSize())

	_, ok = find(icons, "/nosizes.png")
	assert.False(t, ok)

	msTile, ok := find(icons, "/mstile-150.png")
	require.True(t, ok)
	assert.Equal(t, icon.PurposeTile, msTile.Purpose)

	og := icons[len(icons)-1]
	assert.Equal(t, "https://cdn.example.test/og.jpg", og.URL)
	assert.Equal(t, icon.TypeJPEG, og.Type)
	assert.Equal(t, icon.PurposeOpenGraph, og.Purpose)

	// An explicit manifest link suppresses the default locations.
	assert.Zero(t, site.Hits("/manifest.json"))
	assert.Zero(t, site.Hits("/site.webmanifest"))
}

func TestDiscoverDefaultManifests(t *testing.T) {
	t.Parallel()

	site := testutil.NewSite(t)
	site.Handle("/", testutil.Resource{ContentType: "text/html", Body: []byte("<html><head></head></html>")})
	site.Handle("/site.webmanifest", testutil.Resource{
		ContentType: "application/json",
		Body:        []byte(`{"icons":[{"src":"/android-chrome-192x192.png","sizes":"192x192"}]}`),
	})

	icons := discover.New().Discover(context.Background(), baseURL(t, site))
	assert.Equal(t, int64(1), site.Hits("/manifest.json"))
	assert.Equal(t, int64(1), site.Hits("/site.webmanifest"))

	ic, ok := find(icons, "/android-chrome-192x192.png")
	require.True(t, ok)
	assert.Equal(t, 192, ic.Width)
}

func TestDiscoverDecodesCharset(t *testing.T) {
	t.Parallel()

	site := testutil.NewSite(t)
	doc := "<html><head><link rel=\"icon\" href=\"/caf\xe9.png\"></head></html>"
	site.Handle("/", testutil.Resource{ContentType: "text/html; charset=windows-1252", Body: []byte(doc)})

	icons := discover.New().Discover(context.Background(), baseURL(t, site))
	_, ok := find(icons, "/caf%C3%A9.png")
	assert.True(t, ok)
}

func TestDiscoverUnreachable(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("http://127.0.0.1:1/")
	require.NoError(t, err)

	icons := discover.New().Discover(context.Background(), base)
	require.Len(t, icons, 3)
	assert.Equal(t, "http://127.0.0.1:1/favicon.ico", icons[0].URL)
}

func TestDiscoverSkipsErrorDocument(t *testing.T) {
	t.Parallel()

	site := testutil.NewSite(t)
	site.Handle("/", testutil.Resource{Status: 503, ContentType: "text/html", Body: []byte(page)})

	icons := discover.New().Discover(context.Background(), baseURL(t, site))
	_, ok := find(icons, "/icon.svg")
	assert.False(t, ok)
}

func TestCommonPaths(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://example.com")
	require.NoError(t, err)

	icons := discover.CommonPaths(base)
	require.Len(t, icons, 26)

	var set icon.Set
	set.AddAll(icons)
	assert.Equal(t, 26, set.Len())

	for _, ic := range icons {
		assert.True(t, strings.HasPrefix(ic.URL, "https://example.com/"), ic.URL)
		assert.True(t, ic.HasSize(), ic.URL)
		assert.Equal(t, icon.TypePNG, ic.Type)
	}

	ic, ok := find(icons, "/mstile-310x310.png")
	require.True(t, ok)
	assert.Equal(t, 310, ic.Width)
	assert.Equal(t, icon.PurposeTile, ic.Purpose)
}
