// Package geticon finds, validates and caches the icons of web sites.
//
// A [Service] resolves a user-supplied site reference to its best icon. It
// discovers candidates from well-known paths, the site's HTML, web app
// manifests and browserconfig files, ranks them by format, size and purpose,
// probes the top candidates over the network, and fetches the selected icon.
// Results are kept in a three-tier cache (see the cache subpackage): fresh
// entries are served directly, stale entries are served while a background
// refresh runs, and failed lookups are remembered for a while.
//
// # Quick Start
//
//	svc, err := geticon.New(geticon.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	img, err := svc.Image(ctx, "github.com", 64)
//	if err != nil {
//	    return err
//	}
//	// img.Content, img.ContentType, img.ETag
//
// [Service.Metadata] returns the ranked candidate list and the selected icon
// as JSON instead of image bytes.
//
// # Errors
//
// Failures are reported with the sentinels in this package. Invalid input
// wraps [ErrInvalidOrigin], exhausted lookups wrap [ErrNotFound], and network
// failures while fetching the selected icon wrap [ErrTimeout],
// [ErrConnection] or [ErrFetch].
package geticon
