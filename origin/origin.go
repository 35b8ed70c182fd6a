// Package origin canonicalizes user-supplied site references.
//
// A normalized origin has the form host[:port][/path]: the host is
// lower-cased, the scheme, query and fragment are dropped, and any trailing
// slash is removed. The normalized string is the root of every cache key and,
// prefixed with https://, the base URL for resolving relative icon links.
package origin

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrInvalid is returned when a string cannot be interpreted as an origin.
var ErrInvalid = errors.New("origin: invalid")

// Normalize canonicalizes raw into host[:port][/path].
//
// Inputs without a scheme are accepted. A bare host:port[/path] with an
// all-digit port is recognized directly; everything else is parsed as-is and,
// when that yields no host, parsed again with https:// prepended.
func Normalize(raw string) (string, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalid)
	}

	if u, ok := parseHostPort(input); ok {
		return format(u)
	}

	u, err := url.Parse(input)
	if err == nil && u.Host != "" {
		return format(u)
	}
	if strings.Contains(input, "://") {
		return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	u, err = url.Parse("https://" + input)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalid, raw, err)
	}
	return format(u)
}

// Parse normalizes raw and returns the https base URL of the origin.
func Parse(raw string) (*url.URL, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	return BaseURL(normalized)
}

// BaseURL returns the https URL for an already normalized origin.
func BaseURL(normalized string) (*url.URL, error) {
	u, err := url.Parse("https://" + normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalid, normalized, err)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// parseHostPort recognizes "host:port" and "host:port/path" inputs that
// url.Parse would otherwise treat as a scheme or reject outright.
func parseHostPort(input string) (*url.URL, bool) {
	if strings.Contains(input, "://") {
		return nil, false
	}
	host, rest, found := strings.Cut(input, ":")
	if !found || host == "" {
		return nil, false
	}
	port, _, _ := strings.Cut(rest, "/")
	if port == "" || !allDigits(port) {
		return nil, false
	}
	u, err := url.Parse("https://" + input)
	if err != nil {
		return nil, false
	}
	return u, true
}

func format(u *url.URL) (string, error) {
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalid)
	}
	if strings.ContainsAny(host, " \t\r\n") {
		return "", fmt.Errorf("%w: host %q contains whitespace", ErrInvalid, host)
	}

	var b strings.Builder
	if port := u.Port(); port != "" {
		b.WriteString(net.JoinHostPort(host, port))
	} else if strings.Contains(host, ":") {
		b.WriteString("[" + host + "]")
	} else {
		b.WriteString(host)
	}

	if path := strings.Trim(u.EscapedPath(), "/"); path != "" {
		b.WriteByte('/')
		b.WriteString(path)
	}
	return b.String(), nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
