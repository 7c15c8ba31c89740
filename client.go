package webdav

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/davsync/go-webdav/internal"
)

type basicAuthHTTPClient struct {
	c                  HTTPClient
	username, password string
}

func (c *basicAuthHTTPClient) Do(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(c.username, c.password)
	return c.c.Do(req)
}

// HTTPClientWithBasicAuth returns an HTTP client that adds basic
// authentication to all outgoing requests. If c is nil, http.DefaultClient is
// used.
func HTTPClientWithBasicAuth(c HTTPClient, username, password string) HTTPClient {
	if c == nil {
		c = http.DefaultClient
	}
	return &basicAuthHTTPClient{c, username, password}
}

// Client provides access to a remote WebDAV server.
type Client struct {
	ic *internal.Client
}

func NewClient(c HTTPClient, endpoint string) (*Client, error) {
	ic, err := internal.NewClient(c, endpoint)
	if err != nil {
		return nil, err
	}
	return &Client{ic}, nil
}

// Endpoint returns a copy of the endpoint URL.
func (c *Client) Endpoint() *url.URL {
	return c.ic.Endpoint()
}

// FindCurrentUserPrincipal looks up the current-user-principal property of
// the resource at u. A nil URL is returned when the server doesn't report a
// principal, e.g. for unauthenticated requests.
func (c *Client) FindCurrentUserPrincipal(ctx context.Context, u *url.URL) (*url.URL, error) {
	propfind := internal.NewPropNamePropfind(internal.CurrentUserPrincipalName)

	resp, ms, err := c.ic.PropfindFlat(ctx, u, propfind)
	if err != nil {
		return nil, err
	}

	prop, ok := resp.Prop(internal.CurrentUserPrincipalName)
	if !ok {
		return nil, nil
	}
	// RFC 5397: either an href or an unauthenticated element
	if _, ok := prop.Child(internal.UnauthenticatedName); ok {
		return nil, nil
	}
	href, ok := prop.Child(internal.HrefName)
	if !ok {
		return nil, nil
	}
	s := strings.TrimSpace(href.Text())
	if s == "" {
		return nil, nil
	}

	return ms.ResolveHref(s)
}
