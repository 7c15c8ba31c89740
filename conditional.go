package webdav

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionalMatch represents the value of a conditional header
// according to RFC 2068 section 14.25 and RFC 2068 section 14.26
// The (optional) value can either be a wildcard or an ETag.
type ConditionalMatch string

func (val ConditionalMatch) IsSet() bool {
	return val != ""
}

func (val ConditionalMatch) IsWildcard() bool {
	return val == "*"
}

// ETags returns the unquoted entity tags listed in the header.
func (val ConditionalMatch) ETags() ([]string, error) {
	var l []string
	for _, s := range strings.Split(string(val), ",") {
		s = strings.TrimPrefix(strings.TrimSpace(s), "W/")
		etag, err := strconv.Unquote(s)
		if err != nil || !strings.HasPrefix(s, `"`) {
			return nil, fmt.Errorf("webdav: invalid entity tag %q in conditional header", s)
		}
		l = append(l, etag)
	}
	return l, nil
}

// MatchETag reports whether the unquoted etag matches the header value.
func (val ConditionalMatch) MatchETag(etag string) (isSet bool, ok bool, err error) {
	if !val.IsSet() {
		return false, false, nil
	}
	if val.IsWildcard() {
		return true, true, nil
	}

	etags, err := val.ETags()
	if err != nil {
		return true, false, err
	}
	for _, t := range etags {
		if t == etag {
			return true, true, nil
		}
	}
	return true, false, nil
}
