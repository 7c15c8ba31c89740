package carddav

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/emersion/go-vcard"

	"github.com/davsync/go-webdav"
	"github.com/davsync/go-webdav/internal"
)

const vcardExt = ".vcf"

// Create uploads a new contact to the address book. The resource name is
// derived from suggestedName, see SuggestName. The request is unconditional.
func (c *Client) Create(ctx context.Context, payload, suggestedName string) (*EntityVersion, error) {
	name, err := resourceName(suggestedName)
	if err != nil {
		return nil, err
	}
	u := c.ic.Endpoint().JoinPath(name)

	c.logger.Debug().Stringer("url", u).Msg("creating entity")
	h, err := c.ic.Put(ctx, u, vcard.MIMEType, []byte(payload), nil)
	if err != nil {
		return nil, err
	}

	return c.resolvePut(ctx, u, h)
}

// Update replaces the contact designated by id, provided its version on the
// server still matches expectedVersion. If the contact was deleted or
// modified concurrently, Update returns a nil version and a nil error.
func (c *Client) Update(ctx context.Context, id ResourceID, expectedVersion, payload string) (*EntityVersion, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("carddav: empty resource ID")
	}
	ifMatch := internal.QuoteETag(expectedVersion)
	if ifMatch == "" {
		return nil, fmt.Errorf("carddav: empty expected version for %v", id)
	}

	u := id.URL()
	c.logger.Debug().Stringer("url", u).Str("if_match", ifMatch).Msg("updating entity")
	h, err := c.ic.Put(ctx, u, vcard.MIMEType, []byte(payload), &internal.PutOptions{
		IfMatch: ifMatch,
	})
	switch webdav.OutcomeOf(err) {
	case webdav.OutcomeOK:
		return c.resolvePut(ctx, u, h)
	case webdav.OutcomeNotFound, webdav.OutcomePreconditionFailed:
		c.logger.Debug().Err(err).Stringer("url", u).Msg("entity changed or deleted on the server")
		return nil, nil
	default:
		return nil, err
	}
}

// GetVersion returns the current version of a single contact.
func (c *Client) GetVersion(ctx context.Context, id ResourceID) (string, error) {
	if id.IsZero() {
		return "", fmt.Errorf("carddav: empty resource ID")
	}
	return c.getVersion(ctx, id.URL())
}

func (c *Client) getVersion(ctx context.Context, u *url.URL) (string, error) {
	raw, err := c.ic.GetETag(ctx, u)
	if err != nil {
		return "", err
	}
	etag := internal.QuoteETag(raw)
	if etag == "" {
		return "", fmt.Errorf("carddav: server didn't return an ETag for %v", u)
	}
	return etag, nil
}

// resolvePut computes the location and version of an uploaded contact from
// the PUT response headers. When the server doesn't send an ETag, a GET
// request is issued to read it.
func (c *Client) resolvePut(ctx context.Context, reqURL *url.URL, h http.Header) (*EntityVersion, error) {
	u := reqURL
	if loc := strings.TrimSpace(h.Get("Location")); loc != "" {
		ref, err := url.Parse(loc)
		if err != nil {
			return nil, fmt.Errorf("carddav: invalid Location header %q: %v", loc, err)
		}
		u = reqURL.ResolveReference(ref)
		c.logger.Debug().Stringer("url", u).Msg("server moved entity to new location")
	}

	etag := internal.QuoteETag(h.Get("ETag"))
	if etag == "" {
		c.logger.Debug().Stringer("url", u).Msg("no ETag in PUT response, fetching it")
		var err error
		if etag, err = c.getVersion(ctx, u); err != nil {
			return nil, err
		}
	}

	return &EntityVersion{ID: resourceIDFromURL(u), Version: etag}, nil
}

// resourceName turns a suggested name into a path segment for a new contact.
func resourceName(suggestedName string) (string, error) {
	name := strings.TrimSpace(suggestedName)
	if name == "" {
		return "", fmt.Errorf("carddav: empty resource name")
	}
	if strings.Contains(name, "/") {
		return "", fmt.Errorf("carddav: invalid resource name %q", suggestedName)
	}
	if !strings.HasSuffix(strings.ToLower(name), vcardExt) {
		name += vcardExt
	}
	return url.PathEscape(name), nil
}
