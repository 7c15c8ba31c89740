package carddav

import (
	"context"
	"net/url"
	"strings"

	"github.com/davsync/go-webdav"
	"github.com/davsync/go-webdav/internal"
)

func wellKnownURL(endpoint *url.URL) *url.URL {
	return &url.URL{
		Scheme: endpoint.Scheme,
		User:   endpoint.User,
		Host:   endpoint.Host,
		Path:   "/.well-known/carddav",
	}
}

// DiscoverAddressBooks walks the current-user-principal and
// addressbook-home-set chain and lists the address books of every home set.
// The walk starts at the endpoint, or at /.well-known/carddav on the same
// host if useWellKnownURL is set.
//
// Servers which don't implement the full chain (404, 405 or malformed
// responses) yield an empty list and a nil error.
func (c *Client) DiscoverAddressBooks(ctx context.Context, useWellKnownURL bool) ([]AddressBook, error) {
	root := c.ic.Endpoint()
	if useWellKnownURL {
		root = wellKnownURL(root)
	}

	l, err := c.discoverAddressBooks(ctx, root)
	switch webdav.OutcomeOf(err) {
	case webdav.OutcomeOK:
		return l, nil
	case webdav.OutcomeNotFound, webdav.OutcomeMethodNotAllowed, webdav.OutcomeMalformed:
		c.logger.Debug().Err(err).Stringer("root", root).Msg("address book discovery stopped")
		return nil, nil
	default:
		return nil, err
	}
}

func (c *Client) discoverAddressBooks(ctx context.Context, root *url.URL) ([]AddressBook, error) {
	principal, err := c.FindCurrentUserPrincipal(ctx, root)
	if err != nil {
		return nil, err
	}
	if principal == nil {
		c.logger.Debug().Stringer("root", root).Msg("no current user principal")
		return nil, nil
	}

	homeSets, err := c.FindAddressBookHomeSets(ctx, principal)
	if err != nil {
		return nil, err
	}

	var l []AddressBook
	for _, homeSet := range homeSets {
		abs, err := c.FindAddressBooks(ctx, homeSet)
		if err != nil {
			return nil, err
		}
		l = append(l, abs...)
	}
	return l, nil
}

// FindAddressBookHomeSets returns the addressbook-home-set URLs of a
// principal.
func (c *Client) FindAddressBookHomeSets(ctx context.Context, principal *url.URL) ([]*url.URL, error) {
	propfind := internal.NewPropNamePropfind(addressBookHomeSetName)
	resp, ms, err := c.ic.PropfindFlat(ctx, principal, propfind)
	if err != nil {
		return nil, err
	}

	var prop addressbookHomeSet
	if err := resp.DecodeProp(addressBookHomeSetName, &prop); internal.IsNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, &internal.MalformedError{Err: err}
	}

	var l []*url.URL
	for _, href := range prop.Hrefs {
		if strings.TrimSpace(href) == "" {
			continue
		}
		u, err := ms.ResolveHref(href)
		if err != nil {
			return nil, &internal.MalformedError{Err: err}
		}
		l = append(l, u)
	}
	return l, nil
}

// FindAddressBooks lists the address books contained in a home set.
// Members without a display name are skipped.
func (c *Client) FindAddressBooks(ctx context.Context, homeSet *url.URL) ([]AddressBook, error) {
	propfind := internal.NewPropNamePropfind(
		internal.ResourceTypeName,
		internal.DisplayNameName,
	)
	ms, err := c.ic.Propfind(ctx, homeSet, internal.DepthOne, propfind)
	if err != nil {
		return nil, err
	}

	l := make([]AddressBook, 0, len(ms.Responses))
	for i := range ms.Responses {
		resp := &ms.Responses[i]
		href := resp.Path()
		if href == "" {
			continue
		}

		name, ok := resp.PropText(internal.DisplayNameName)
		if !ok {
			continue
		}

		var resType internal.ResourceType
		if err := resp.DecodeProp(internal.ResourceTypeName, &resType); internal.IsNotFound(err) {
			continue
		} else if err != nil {
			return nil, &internal.MalformedError{Err: err}
		}
		if !resType.Is(addressBookName) {
			continue
		}

		u, err := ms.ResolveHref(href)
		if err != nil {
			return nil, &internal.MalformedError{Err: err}
		}

		l = append(l, AddressBook{URL: u, Name: name})
	}

	return l, nil
}
