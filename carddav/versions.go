package carddav

import (
	"context"
	"encoding/xml"
	"fmt"
	"mime"
	"strings"

	"github.com/davsync/go-webdav"
	"github.com/davsync/go-webdav/internal"
)

const noneETag = `"None"`

// ListAllVersions returns the version of every contact in the address book.
// A missing address book yields an empty list.
func (c *Client) ListAllVersions(ctx context.Context) ([]EntityVersion, error) {
	propfind := internal.NewPropNamePropfind(
		internal.GetETagName,
		internal.GetContentTypeName,
	)
	ms, err := c.ic.Propfind(ctx, c.ic.Endpoint(), internal.DepthOne, propfind)
	if webdav.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return c.extractVersions(ms, nil), nil
}

// ListVersions returns the versions of the requested contacts. Contacts
// which don't exist on the server are missing from the result.
func (c *Client) ListVersions(ctx context.Context, ids []ResourceID) ([]EntityVersion, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := checkIDs(ids); err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id.u.Path] = true
	}

	multiget := newMultiget(ids, internal.GetETagName, internal.GetContentTypeName)
	ms, err := c.ic.Report(ctx, c.ic.Endpoint(), internal.DepthZero, multiget)
	if webdav.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return c.extractVersions(ms, requested), nil
}

func checkIDs(ids []ResourceID) error {
	for i, id := range ids {
		if id.IsZero() {
			return fmt.Errorf("carddav: resource ID #%v is empty", i)
		}
	}
	return nil
}

func newMultiget(ids []ResourceID, props ...xml.Name) *addressbookMultiget {
	hrefs := make([]string, 0, len(ids))
	for _, id := range ids {
		hrefs = append(hrefs, id.Path())
	}
	return &addressbookMultiget{
		Prop:  internal.NewPropNames(props...),
		Hrefs: hrefs,
	}
}

// extractVersions applies the version policy to a multistatus document. If
// requested isn't nil, only resources whose path is in the set are kept.
func (c *Client) extractVersions(ms *internal.Multistatus, requested map[string]bool) []EntityVersion {
	seen := make(map[string]bool, len(ms.Responses))
	l := make([]EntityVersion, 0, len(ms.Responses))
	for i := range ms.Responses {
		resp := &ms.Responses[i]

		href := resp.Path()
		rawETag, ok := resp.PropText(internal.GetETagName)
		if href == "" || !ok {
			continue
		}

		etag := internal.QuoteETag(rawETag)
		if etag == "" {
			continue
		}
		// the collection itself is reported with a "None" etag by some servers
		if c.noneETagQuirk && strings.EqualFold(etag, noneETag) {
			continue
		}

		id, err := NewResourceID(ms.BaseURL, href)
		if err != nil {
			c.logger.Debug().Err(err).Str("href", href).Msg("skipping resource with invalid href")
			continue
		}
		// some servers report the collection with a regular etag
		if c.isCollection(id.u) {
			continue
		}

		// TODO: add vlist support, they are skipped since they can't be parsed
		contentType, _ := resp.PropText(internal.GetContentTypeName)
		if isVList(contentType) {
			continue
		}

		if requested != nil && !requested[id.u.Path] {
			c.logger.Debug().Str("href", href).Msg("skipping resource which wasn't requested")
			continue
		}
		if seen[id.u.Path] {
			continue
		}
		seen[id.u.Path] = true

		c.logger.Debug().Str("href", href).Str("etag", etag).Msg("found version")
		l = append(l, EntityVersion{ID: id, Version: etag})
	}
	return l
}

func isVList(contentType string) bool {
	contentType = strings.TrimSpace(contentType)
	if t, _, err := mime.ParseMediaType(contentType); err == nil {
		return t == vListMIMEType
	}
	return strings.EqualFold(contentType, vListMIMEType)
}
