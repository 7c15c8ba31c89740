package carddav

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/davsync/go-webdav"
	"github.com/davsync/go-webdav/internal"
)

var lookupSRV = net.DefaultResolver.LookupSRV

// Discover performs a DNS-based CardDAV service discovery as described in
// RFC 6352 section 11. It returns the URL to the CardDAV server.
func Discover(ctx context.Context, domain string) (string, error) {
	// Only lookup carddavs (not carddav), plaintext connections are insecure
	_, addrs, err := lookupSRV(ctx, "carddavs", "tcp", domain)
	if dnsErr, ok := err.(*net.DNSError); ok {
		if dnsErr.IsTemporary {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	if len(addrs) == 0 {
		return "", fmt.Errorf("carddav: domain doesn't have an SRV record")
	}
	addr := addrs[0]

	target := strings.TrimSuffix(addr.Target, ".")
	if target == "" {
		return "", fmt.Errorf("carddav: service is not available at domain %q", domain)
	}

	u := url.URL{Scheme: "https"}
	if addr.Port == 443 {
		u.Host = target
	} else {
		u.Host = fmt.Sprintf("%v:%v", target, addr.Port)
	}
	return u.String(), nil
}

// Options configures a Client.
type Options struct {
	Logger zerolog.Logger
	// NoneETagQuirk drops resources reporting the "None" entity tag, which
	// some servers use for the collection itself.
	NoneETagQuirk bool
}

// OptionFunc modifies Options, see NewClient.
type OptionFunc func(opts *Options)

// WithLogger sets the logger used for debug events. Clients log nothing by
// default.
func WithLogger(logger zerolog.Logger) OptionFunc {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithNoneETagQuirk controls whether version listings drop resources whose
// entity tag is "None". It's enabled by default.
func WithNoneETagQuirk(enabled bool) OptionFunc {
	return func(opts *Options) {
		opts.NoneETagQuirk = enabled
	}
}

// NewOptions applies funcs on top of the defaults.
func NewOptions(funcs ...OptionFunc) *Options {
	opts := &Options{
		Logger:        zerolog.Nop(),
		NoneETagQuirk: true,
	}
	for _, fn := range funcs {
		fn(opts)
	}
	return opts
}

// Client provides access to a remote CardDAV address book. The endpoint is
// the address book collection; it's also the starting point of discovery.
//
// A Client holds no mutable state and is safe for concurrent use.
type Client struct {
	*webdav.Client

	ic            *internal.Client
	logger        zerolog.Logger
	noneETagQuirk bool
}

// NewClient creates a client for the address book at endpoint. A nil c uses
// http.DefaultClient.
func NewClient(c webdav.HTTPClient, endpoint string, funcs ...OptionFunc) (*Client, error) {
	wc, err := webdav.NewClient(c, endpoint)
	if err != nil {
		return nil, err
	}
	ic, err := internal.NewClient(c, endpoint)
	if err != nil {
		return nil, err
	}
	opts := NewOptions(funcs...)
	return &Client{
		Client:        wc,
		ic:            ic,
		logger:        opts.Logger.With().Str("collection", ic.Endpoint().String()).Logger(),
		noneETagQuirk: opts.NoneETagQuirk,
	}, nil
}

// IsAddressBookAccessSupported reports whether the server advertises the
// "addressbook" DAV compliance class.
func (c *Client) IsAddressBookAccessSupported(ctx context.Context) (bool, error) {
	classes, _, err := c.ic.Options(ctx, c.ic.Endpoint())
	if err != nil {
		return false, err
	}
	return classes["addressbook"], nil
}

// IsResourceAddressBook reports whether the endpoint is an address book
// collection.
func (c *Client) IsResourceAddressBook(ctx context.Context) (bool, error) {
	propfind := internal.NewPropNamePropfind(internal.ResourceTypeName)
	resp, _, err := c.ic.PropfindFlat(ctx, c.ic.Endpoint(), propfind)
	if err != nil {
		return false, err
	}

	var resType internal.ResourceType
	if err := resp.DecodeProp(internal.ResourceTypeName, &resType); internal.IsNotFound(err) {
		return false, nil
	} else if err != nil {
		return false, &internal.MalformedError{Err: err}
	}
	return resType.Is(addressBookName), nil
}

// isCollection reports whether u designates the address book itself.
func (c *Client) isCollection(u *url.URL) bool {
	a := strings.TrimSuffix(u.Path, "/")
	b := strings.TrimSuffix(c.ic.Endpoint().Path, "/")
	return a == b
}
