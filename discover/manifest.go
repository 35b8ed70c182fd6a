package discover

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/meigma/geticon/icon"
)

// parseManifest extracts icons from a Web App Manifest. Entries missing a
// string src or sizes are skipped; a malformed entry never discards the
// rest of the manifest.
func parseManifest(data []byte, manifestURL *url.URL) ([]icon.Icon, error) {
	var m struct {
		Icons []json.RawMessage `json:"icons"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	var icons []icon.Icon
	for _, raw := range m.Icons {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}
		src, ok := stringField(fields, "src")
		if !ok || strings.TrimSpace(src) == "" {
			continue
		}
		sizes, ok := stringField(fields, "sizes")
		if !ok {
			continue
		}
		u, ok := resolve(manifestURL, strings.TrimSpace(src))
		if !ok {
			continue
		}
		purpose, _ := stringField(fields, "purpose")
		w, h := icon.ParseManifestSizes(sizes)
		icons = append(icons, icon.Icon{
			URL:     u,
			Type:    icon.TypeFromExtension(src, icon.TypePNG),
			Width:   w,
			Height:  h,
			Purpose: purpose,
		})
	}
	return icons, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// parseBrowserConfig returns the tile image declared by the first <square...>
// element of a browserconfig.xml document, resolved against origin.
func parseBrowserConfig(data []byte, origin *url.URL) (icon.Icon, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), len(data)+1)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "<square") {
			continue
		}
		_, rest, found := strings.Cut(line, `src="`)
		if !found {
			return icon.Icon{}, false
		}
		src, _, found := strings.Cut(rest, `"`)
		if !found {
			return icon.Icon{}, false
		}
		u, ok := resolve(origin, src)
		if !ok {
			return icon.Icon{}, false
		}
		return icon.Icon{
			URL:     u,
			Type:    icon.TypePNG,
			Width:   144,
			Height:  144,
			Purpose: icon.PurposeTile,
		}, true
	}
	return icon.Icon{}, false
}
