package model

import (
	"fmt"
	"net/url"
)

// ResolveSitePath resolves a site-root path such as "/static/h.png" against
// the server base URL, the way a browser resolves an <img src>.
func ResolveSitePath(serverURL, sitePath string) (string, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	ref, err := url.Parse(sitePath)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", sitePath, err)
	}
	return base.ResolveReference(ref).String(), nil
}
