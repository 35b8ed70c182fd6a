package validate_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iconhttp "github.com/meigma/geticon/http"
	"github.com/meigma/geticon/icon"
	"github.com/meigma/geticon/internal/testutil"
	"github.com/meigma/geticon/validate"
)

func newSite(t *testing.T) *testutil.Site {
	t.Helper()
	site := testutil.NewSite(t)
	png := testutil.PNG(t, 32, 32)

	site.Handle("/ok.png", testutil.Resource{ContentType: "image/png", Body: png})
	site.Handle("/untyped.png", testutil.Resource{Body: png})
	site.Handle("/missing.png", testutil.Resource{Status: http.StatusNotFound})
	site.Handle("/page.png", testutil.Resource{ContentType: "text/html", Body: []byte(testutil.HTMLPage)})
	site.Handle("/empty.png", testutil.Resource{ContentType: "image/png"})
	site.Handle("/moved.png", testutil.Resource{Redirect: "/ok.png"})
	site.Handle("/moved-untyped.png", testutil.Resource{Redirect: "/untyped.png"})
	site.Handle("/moved-page.png", testutil.Resource{Redirect: "/page.png"})
	site.Handle("/soft-404", testutil.Resource{Body: []byte(testutil.HTMLPage)})
	site.Handle("/moved-soft.png", testutil.Resource{Redirect: "/soft-404"})
	site.Handle("/junk", testutil.Resource{Body: []byte("not an image at all")})
	site.Handle("/moved-junk.png", testutil.Resource{Redirect: "/junk"})
	return site
}

func TestValidate(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	v := validate.New()

	tests := []struct {
		path string
		want bool
	}{
		{"/ok.png", true},
		{"/untyped.png", true},
		{"/missing.png", false},
		{"/nowhere.png", false},
		{"/page.png", false},
		{"/empty.png", false},
		{"/moved.png", true},
		{"/moved-untyped.png", true},
		{"/moved-page.png", false},
		{"/moved-soft.png", false},
		{"/moved-junk.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			ic := icon.Icon{URL: site.URL + tt.path, Type: icon.TypePNG}
			assert.Equal(t, tt.want, v.Validate(context.Background(), ic))
		})
	}
}

func TestValidateUnreachable(t *testing.T) {
	t.Parallel()

	v := validate.New(validate.WithTimeout(time.Second))
	ok := v.Validate(context.Background(), icon.Icon{URL: "http://127.0.0.1:1/favicon.ico"})
	assert.False(t, ok)
}

func TestValidateAllPreservesOrder(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	v := validate.New(
		validate.WithClient(iconhttp.New()),
		validate.WithConcurrency(2),
	)

	in := []icon.Icon{
		{URL: site.URL + "/missing.png"},
		{URL: site.URL + "/moved.png"},
		{URL: site.URL + "/page.png"},
		{URL: site.URL + "/ok.png"},
		{URL: site.URL + "/untyped.png"},
	}
	got := v.ValidateAll(context.Background(), in)
	require.Len(t, got, 3)
	assert.Equal(t, site.URL+"/moved.png", got[0].URL)
	assert.Equal(t, site.URL+"/ok.png", got[1].URL)
	assert.Equal(t, site.URL+"/untyped.png", got[2].URL)

	assert.Empty(t, v.ValidateAll(context.Background(), nil))
}

func TestValidateSendsCategoryUserAgent(t *testing.T) {
	t.Parallel()

	site := newSite(t)
	v := validate.New()

	ok := v.Validate(context.Background(), icon.Icon{
		URL:     site.URL + "/ok.png",
		Purpose: icon.PurposeAppleTouch,
	})
	require.True(t, ok)
	assert.Equal(t, iconhttp.UserAgentIOS, site.LastUserAgent())
}

func TestUserAgentFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ic   icon.Icon
		want string
	}{
		{"apple url", icon.Icon{URL: "https://a.test/apple-touch-icon.png"}, iconhttp.UserAgentIOS},
		{"apple purpose", icon.Icon{URL: "https://a.test/i.png", Purpose: "apple-touch-icon-precomposed"}, iconhttp.UserAgentIOS},
		{"maskable", icon.Icon{URL: "https://a.test/m.png", Purpose: "any maskable"}, iconhttp.UserAgentAndroid},
		{"tile", icon.Icon{URL: "https://a.test/t.png", Purpose: icon.PurposeTileImage}, iconhttp.UserAgentWindows},
		{"default", icon.Icon{URL: "https://a.test/favicon.ico"}, iconhttp.UserAgentWindows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, validate.UserAgentFor(tt.ic))
		})
	}
}
