// Package internal implements the WebDAV exchanges of the CardDAV client:
// PROPFIND, REPORT, PUT and GET requests and multistatus parsing.
package internal

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

// Depth is the Depth header of PROPFIND and REPORT requests, see RFC 4918
// section 10.2. The client only sends DepthZero, for single resources and
// multiget reports, and DepthOne, for collection listings.
type Depth int

const (
	DepthZero     Depth = 0
	DepthOne      Depth = 1
	DepthInfinity Depth = -1
)

func (d Depth) String() string {
	switch d {
	case DepthZero:
		return "0"
	case DepthOne:
		return "1"
	case DepthInfinity:
		return "infinity"
	}
	panic(fmt.Sprintf("webdav: invalid Depth value %d", int(d)))
}

// HTTPClient performs HTTP requests. It's implemented by *http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	http     HTTPClient
	endpoint *url.URL
}

func NewClient(c HTTPClient, endpoint string) (*Client, error) {
	if c == nil {
		c = http.DefaultClient
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("webdav: endpoint %q is not an absolute URL", endpoint)
	}
	if u.Path == "" {
		// This is important to avoid issues with path.Join
		u.Path = "/"
	}
	return &Client{http: c, endpoint: u}, nil
}

// Endpoint returns a copy of the endpoint URL.
func (c *Client) Endpoint() *url.URL {
	u := *c.endpoint
	return &u
}

func (c *Client) NewRequest(ctx context.Context, method string, u *url.URL, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, u.String(), body)
}

func (c *Client) NewXMLRequest(ctx context.Context, method string, u *url.URL, v interface{}) (*http.Request, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}

	req, err := c.NewRequest(ctx, method, u, &buf)
	if err != nil {
		return nil, err
	}

	req.Header.Add("Content-Type", "text/xml; charset=\"utf-8\"")

	return req, nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "text/plain"
		}

		var wrappedErr error
		t, _, _ := mime.ParseMediaType(contentType)
		if t == "application/xml" || t == "text/xml" || strings.HasPrefix(t, "text/") {
			lr := io.LimitedReader{R: resp.Body, N: 1024}
			var buf bytes.Buffer
			io.Copy(&buf, &lr)
			if s := strings.TrimSpace(buf.String()); s != "" {
				if lr.N == 0 {
					s += " […]"
				}
				wrappedErr = fmt.Errorf("%v", s)
			}
		}
		return nil, &HTTPError{Code: resp.StatusCode, Err: wrappedErr}
	}
	return resp, nil
}

func (c *Client) DoMultiStatus(req *http.Request) (*Multistatus, error) {
	ms, _, err := c.doMultiStatus(req)
	return ms, err
}

// doMultiStatus also returns the URL of the last request, which differs from
// req.URL if redirects were followed.
func (c *Client) doMultiStatus(req *http.Request) (*Multistatus, *url.URL, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	base := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		base = resp.Request.URL
	}

	// Some servers answer 200 instead of 207 with a multistatus body
	if resp.StatusCode != http.StatusMultiStatus && resp.StatusCode != http.StatusOK {
		return nil, base, &MalformedError{fmt.Errorf("HTTP multi-status request failed: %v", resp.Status)}
	}

	// TODO: the response can be quite large, support streaming Response elements
	ms, err := ParseMultistatus(base, resp.Body)
	return ms, base, err
}

func (c *Client) Propfind(ctx context.Context, u *url.URL, depth Depth, propfind *Propfind) (*Multistatus, error) {
	ms, final, err := c.propfind(ctx, u, depth, propfind)
	if IsMalformed(err) && final != nil && final.String() != u.String() {
		// net/http turns a PROPFIND into a GET when following 301 and 302
		// redirects, e.g. from /.well-known/carddav. Retry on the target.
		ms, _, err = c.propfind(ctx, final, depth, propfind)
	}
	return ms, err
}

func (c *Client) propfind(ctx context.Context, u *url.URL, depth Depth, propfind *Propfind) (*Multistatus, *url.URL, error) {
	req, err := c.NewXMLRequest(ctx, "PROPFIND", u, propfind)
	if err != nil {
		return nil, nil, err
	}

	req.Header.Add("Depth", depth.String())

	return c.doMultiStatus(req)
}

// PropfindFlat performs a PROPFIND request with a zero depth and returns the
// response for the requested resource.
func (c *Client) PropfindFlat(ctx context.Context, u *url.URL, propfind *Propfind) (*Response, *Multistatus, error) {
	ms, err := c.Propfind(ctx, u, DepthZero, propfind)
	if err != nil {
		return nil, nil, err
	}
	if len(ms.Responses) == 0 {
		return nil, ms, &MalformedError{fmt.Errorf("expected at least one response in multistatus")}
	}

	// Servers might not echo the exact request href, fall back to the first
	// response.
	for i := range ms.Responses {
		resp := &ms.Responses[i]
		if href, err := ms.ResolveHref(resp.Path()); err == nil && samePath(href.Path, u.Path) {
			return resp, ms, nil
		}
	}
	return &ms.Responses[0], ms, nil
}

// Report performs a REPORT request.
func (c *Client) Report(ctx context.Context, u *url.URL, depth Depth, v interface{}) (*Multistatus, error) {
	req, err := c.NewXMLRequest(ctx, "REPORT", u, v)
	if err != nil {
		return nil, err
	}

	req.Header.Add("Depth", depth.String())

	return c.DoMultiStatus(req)
}

// PutOptions holds the conditional headers of a PUT request.
type PutOptions struct {
	IfMatch     string
	IfNoneMatch string
}

// Put uploads body and returns the response headers.
func (c *Client) Put(ctx context.Context, u *url.URL, contentType string, body []byte, opts *PutOptions) (http.Header, error) {
	// Some servers want a Content-Length header, so the body isn't streamed.
	// See the Radicale issue: https://github.com/Kozea/Radicale/issues/1016
	req, err := c.NewRequest(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if opts != nil {
		if opts.IfMatch != "" {
			req.Header.Set("If-Match", opts.IfMatch)
		}
		if opts.IfNoneMatch != "" {
			req.Header.Set("If-None-Match", opts.IfNoneMatch)
		}
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp.Header, nil
}

// GetETag performs a GET request and returns the ETag header. The body is
// discarded.
func (c *Client) GetETag(ctx context.Context, u *url.URL) (string, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.Do(req)
	if err != nil {
		return "", err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp.Header.Get("ETag"), nil
}

func parseCommaSeparatedSet(values []string, upper bool) map[string]bool {
	m := make(map[string]bool)
	for _, v := range values {
		fields := strings.FieldsFunc(v, func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		})
		for _, f := range fields {
			if upper {
				f = strings.ToUpper(f)
			} else {
				f = strings.ToLower(f)
			}
			m[f] = true
		}
	}
	return m
}

func (c *Client) Options(ctx context.Context, u *url.URL) (classes map[string]bool, methods map[string]bool, err error) {
	req, err := c.NewRequest(ctx, http.MethodOptions, u, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, nil, err
	}
	resp.Body.Close()

	classes = parseCommaSeparatedSet(resp.Header["Dav"], false)
	if !classes["1"] {
		return nil, nil, fmt.Errorf("webdav: server doesn't support DAV class 1")
	}

	methods = parseCommaSeparatedSet(resp.Header["Allow"], true)
	return classes, methods, nil
}

func samePath(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}
