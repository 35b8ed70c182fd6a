package geticon

import (
	"errors"

	iconhttp "github.com/meigma/geticon/http"
	"github.com/meigma/geticon/origin"
)

// Errors re-exported from subpackages.
var (
	// ErrInvalidOrigin is returned when the site reference cannot be normalized.
	ErrInvalidOrigin = origin.ErrInvalid

	// ErrTimeout is returned when fetching the selected icon timed out.
	ErrTimeout = iconhttp.ErrTimeout

	// ErrConnection is returned when the icon host could not be reached.
	ErrConnection = iconhttp.ErrConnection
)

var (
	// ErrNotFound is returned when no usable icon exists for a site, or the
	// site is remembered as having none.
	ErrNotFound = errors.New("geticon: icon not found")

	// ErrFetch is returned for other failures while fetching the selected icon.
	ErrFetch = errors.New("geticon: fetch failed")
)
