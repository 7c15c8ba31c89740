package internal

import (
	"strings"
)

// QuoteETag returns the canonical quoted form of an entity tag. Servers
// differ in whether getetag values are quoted; weak tags keep their prefix.
func QuoteETag(etag string) string {
	etag = strings.TrimSpace(etag)
	if etag == "" {
		return ""
	}

	prefix := ""
	if strings.HasPrefix(etag, "W/") {
		prefix = "W/"
		etag = etag[2:]
	}

	if len(etag) >= 2 && strings.HasPrefix(etag, `"`) && strings.HasSuffix(etag, `"`) {
		return prefix + etag
	}
	return prefix + `"` + etag + `"`
}
