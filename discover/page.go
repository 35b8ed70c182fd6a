package discover

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/meigma/geticon/icon"
)

// iconRels are the rel tokens that mark a <link> as an icon.
var iconRels = []string{
	"icon",
	"apple-touch-icon",
	"apple-touch-icon-precomposed",
	"mask-icon",
}

// page holds the references extracted from a site's root document.
type page struct {
	icons     []icon.Icon
	manifests []string
	configs   []string
	ogImages  []string
}

// parsePage walks the document in r and collects icon links, tile images,
// manifest and browserconfig references and Open Graph images. References
// are resolved against base.
func parsePage(r io.Reader, base *url.URL) (*page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	p := &page{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "link":
				p.link(n, base)
			case "meta":
				p.meta(n, base)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return p, nil
}

func (p *page) link(n *html.Node, base *url.URL) {
	rel := getAttr(n, "rel")
	href := strings.TrimSpace(getAttr(n, "href"))
	if rel == "" || href == "" {
		return
	}

	tokens := strings.Fields(strings.ToLower(rel))
	if hasToken(tokens, "manifest") {
		if u, ok := resolve(base, href); ok {
			p.manifests = append(p.manifests, u)
		}
		return
	}
	if !hasAnyToken(tokens, iconRels) {
		return
	}

	u, ok := resolve(base, href)
	if !ok {
		return
	}
	typ := strings.TrimSpace(getAttr(n, "type"))
	if typ == "" || typ == icon.TypeICO {
		typ = icon.TypeFromExtension(href, icon.TypeICO)
	}
	w, h := icon.ParseLinkSizes(getAttr(n, "sizes"))
	p.icons = append(p.icons, icon.Icon{
		URL:     u,
		Type:    typ,
		Width:   w,
		Height:  h,
		Purpose: rel,
	})
}

func (p *page) meta(n *html.Node, base *url.URL) {
	content := strings.TrimSpace(getAttr(n, "content"))
	if content == "" {
		return
	}
	name := getAttr(n, "name")
	switch {
	case strings.EqualFold(name, "msapplication-TileImage"):
		if u, ok := resolve(base, content); ok {
			p.icons = append(p.icons, icon.Icon{
				URL:     u,
				Type:    icon.TypePNG,
				Width:   144,
				Height:  144,
				Purpose: icon.PurposeTileImage,
			})
		}
	case strings.EqualFold(name, "msapplication-config"):
		if u, ok := resolve(base, content); ok {
			p.configs = append(p.configs, u)
		}
	case strings.EqualFold(getAttr(n, "property"), "og:image"):
		if u, ok := resolve(base, content); ok {
			p.ogImages = append(p.ogImages, u)
		}
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

func hasAnyToken(tokens, want []string) bool {
	for _, w := range want {
		if hasToken(tokens, w) {
			return true
		}
	}
	return false
}

// resolve resolves ref against base and returns an absolute http(s) URL.
func resolve(base *url.URL, ref string) (string, bool) {
	u, err := base.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}
