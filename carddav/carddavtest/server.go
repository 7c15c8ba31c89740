// Package carddavtest provides an in-memory CardDAV server for tests.
//
// The server exposes a single principal with a single address book. Quirks
// reproduce the behavior of servers seen in the wild.
package carddavtest

import (
	"bytes"
	"encoding/xml"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"

	"github.com/davsync/go-webdav"
	"github.com/davsync/go-webdav/internal"
)

const (
	PrincipalPath   = "/principals/user/"
	HomeSetPath     = "/addressbooks/user/"
	AddressBookPath = "/addressbooks/user/contacts/"
	AddressBookName = "Contacts"

	wellKnownPath = "/.well-known/carddav"
)

const namespace = "urn:ietf:params:xml:ns:carddav"

var (
	addressBookName        = xml.Name{Space: namespace, Local: "addressbook"}
	addressBookHomeSetName = xml.Name{Space: namespace, Local: "addressbook-home-set"}
	addressDataName        = xml.Name{Space: namespace, Local: "address-data"}
)

type addressbookHomeSet struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:carddav addressbook-home-set"`
	Hrefs   []string `xml:"DAV: href"`
}

type addressbookMultiget struct {
	XMLName xml.Name       `xml:"urn:ietf:params:xml:ns:carddav addressbook-multiget"`
	Prop    *internal.Prop `xml:"DAV: prop,omitempty"`
	Hrefs   []string       `xml:"DAV: href"`
}

type addressData struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:carddav address-data"`
	Data    string   `xml:",chardata"`
}

// Quirks alters the behavior of the server.
type Quirks struct {
	// WellKnownStatus is the status code returned for /.well-known/carddav.
	// Zero means a 308 redirect to the root. Redirect codes redirect to the
	// root, any other code is returned as is.
	WellKnownStatus int
	// CollectionETag is reported as the getetag property of the address book
	// itself. If empty, the property isn't reported.
	CollectionETag string
	// NoPrincipal omits the current-user-principal property.
	NoPrincipal bool
	// OmitPutHeaders removes the ETag and Location headers from PUT
	// responses.
	OmitPutHeaders bool
	// RelocatePut stores new contacts under a name chosen by the server and
	// reports it in the Location header.
	RelocatePut bool
	// UnquotedETags reports getetag properties without quotes.
	UnquotedETags bool
}

type contact struct {
	data        string
	etag        string
	contentType string
}

type resourceKind int

const (
	kindNone resourceKind = iota
	kindRoot
	kindPrincipal
	kindHomeSet
	kindAddressBook
	kindContact
)

// Server is an in-memory CardDAV server listening on a local address.
type Server struct {
	*httptest.Server

	quirks Quirks

	mu       sync.Mutex
	contacts map[string]*contact
	requests map[string]int
	headers  map[string]http.Header
}

// NewServer starts a new server. The caller must call Close when done.
func NewServer(quirks Quirks) *Server {
	s := &Server{
		quirks:   quirks,
		contacts: make(map[string]*contact),
		requests: make(map[string]int),
		headers:  make(map[string]http.Header),
	}
	s.Server = httptest.NewServer(s)
	return s
}

// AddressBookURL returns the absolute URL of the address book.
func (s *Server) AddressBookURL() string {
	return s.URL + AddressBookPath
}

// AddContact stores a vCard in the address book and returns its quoted ETag.
func (s *Server) AddContact(name, data string) string {
	return s.AddContactWithType(name, data, vcard.MIMEType)
}

// AddContactWithType is like AddContact, but reports contentType as the
// getcontenttype property.
func (s *Server) AddContactWithType(name, data, contentType string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	etag := newETag()
	s.contacts[AddressBookPath+name] = &contact{
		data:        data,
		etag:        etag,
		contentType: contentType,
	}
	return etag
}

// Contact returns the data and quoted ETag stored at path.
func (s *Server) Contact(path string) (data, etag string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.contacts[path]
	if !ok {
		return "", "", false
	}
	return c.data, c.etag, true
}

// Requests returns the number of requests received with method.
func (s *Server) Requests(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method]
}

// LastHeader returns the headers of the last request received with method.
func (s *Server) LastHeader(method string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[method]
}

// ResetRequests clears the request counters.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = make(map[string]int)
	s.headers = make(map[string]http.Header)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[r.Method]++
	s.headers[r.Method] = r.Header.Clone()

	if samePath(r.URL.Path, wellKnownPath) {
		s.serveWellKnown(w, r)
		return
	}

	var err error
	switch r.Method {
	case http.MethodOptions:
		s.handleOptions(w)
	case http.MethodGet, http.MethodHead:
		err = s.handleGet(w, r)
	case "PROPFIND":
		err = s.handlePropfind(w, r)
	case "REPORT":
		err = s.handleReport(w, r)
	case http.MethodPut:
		err = s.handlePut(w, r)
	default:
		err = internal.HTTPErrorf(http.StatusMethodNotAllowed, "carddavtest: unsupported method")
	}

	if err != nil {
		internal.ServeError(w, err)
	}
}

func (s *Server) serveWellKnown(w http.ResponseWriter, r *http.Request) {
	code := s.quirks.WellKnownStatus
	if code == 0 {
		code = http.StatusPermanentRedirect
	}
	if code/100 == 3 {
		http.Redirect(w, r, "/", code)
		return
	}
	http.Error(w, http.StatusText(code), code)
}

func (s *Server) handleOptions(w http.ResponseWriter) {
	w.Header().Set("DAV", "1, 3, addressbook")
	w.Header().Set("Allow", strings.Join([]string{
		http.MethodOptions,
		http.MethodGet,
		http.MethodHead,
		http.MethodPut,
		"PROPFIND",
		"REPORT",
	}, ", "))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) error {
	if s.kind(r.URL.Path) == kindRoot {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html><body>carddavtest</body></html>")
		return nil
	}

	c, ok := s.contacts[r.URL.Path]
	if !ok {
		return internal.HTTPErrorf(http.StatusNotFound, "carddavtest: contact not found")
	}

	w.Header().Set("Content-Type", c.contentType)
	w.Header().Set("ETag", c.etag)
	if r.Method != http.MethodHead {
		io.WriteString(w, c.data)
	}
	return nil
}

func (s *Server) handlePropfind(w http.ResponseWriter, r *http.Request) error {
	depth, err := internal.ParseRequestDepth(r, internal.DepthInfinity)
	if err != nil {
		return err
	}

	var propfind internal.Propfind
	if err := internal.DecodeXMLRequest(r, &propfind); err != nil {
		return err
	}
	if propfind.Prop == nil {
		return internal.HTTPErrorf(http.StatusBadRequest, "carddavtest: only prop requests are supported")
	}

	paths := s.members(r.URL.Path, depth)
	if paths == nil {
		return internal.HTTPErrorf(http.StatusNotFound, "carddavtest: resource not found")
	}

	names := propfind.Prop.XMLNames()
	resps := make([]internal.Response, 0, len(paths))
	for _, p := range paths {
		resp, err := s.response(p, names)
		if err != nil {
			return err
		}
		resps = append(resps, *resp)
	}

	return internal.ServeMultistatus(w, internal.NewMultistatus(resps...))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) error {
	if s.kind(r.URL.Path) != kindAddressBook {
		return internal.HTTPErrorf(http.StatusNotFound, "carddavtest: address book not found")
	}

	var multiget addressbookMultiget
	if err := internal.DecodeXMLRequest(r, &multiget); err != nil {
		return err
	}

	var names []xml.Name
	if multiget.Prop != nil {
		names = multiget.Prop.XMLNames()
	}

	resps := make([]internal.Response, 0, len(multiget.Hrefs))
	for _, href := range multiget.Hrefs {
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return &internal.HTTPError{Code: http.StatusBadRequest, Err: err}
		}
		if _, ok := s.contacts[u.Path]; !ok {
			resps = append(resps, *internal.NewErrorResponse(href, http.StatusNotFound))
			continue
		}

		resp, err := s.response(u.Path, names)
		if err != nil {
			return err
		}
		resps = append(resps, *resp)
	}

	return internal.ServeMultistatus(w, internal.NewMultistatus(resps...))
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) error {
	p := r.URL.Path
	name := strings.TrimPrefix(p, AddressBookPath)
	if !strings.HasPrefix(p, AddressBookPath) || name == "" || strings.Contains(name, "/") {
		return internal.HTTPErrorf(http.StatusForbidden, "carddavtest: contacts can only be stored in the address book")
	}

	t, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if t != vcard.MIMEType {
		return internal.HTTPErrorf(http.StatusUnsupportedMediaType, "carddavtest: unsupported media type %q", t)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if _, err := vcard.NewDecoder(bytes.NewReader(body)).Decode(); err != nil {
		return &internal.HTTPError{Code: http.StatusBadRequest, Err: err}
	}

	existing := s.contacts[p]

	ifMatch := webdav.ConditionalMatch(r.Header.Get("If-Match"))
	if ifMatch.IsSet() {
		if existing == nil {
			return internal.HTTPErrorf(http.StatusPreconditionFailed, "carddavtest: contact doesn't exist")
		}
		_, ok, err := ifMatch.MatchETag(strings.Trim(existing.etag, `"`))
		if err != nil {
			return &internal.HTTPError{Code: http.StatusBadRequest, Err: err}
		} else if !ok {
			return internal.HTTPErrorf(http.StatusPreconditionFailed, "carddavtest: If-Match condition failed")
		}
	}
	ifNoneMatch := webdav.ConditionalMatch(r.Header.Get("If-None-Match"))
	if ifNoneMatch.IsWildcard() && existing != nil {
		return internal.HTTPErrorf(http.StatusPreconditionFailed, "carddavtest: contact already exists")
	}

	if s.quirks.RelocatePut && existing == nil {
		p = AddressBookPath + uuid.NewString() + ".vcf"
	}

	etag := newETag()
	s.contacts[p] = &contact{
		data:        string(body),
		etag:        etag,
		contentType: vcard.MIMEType,
	}

	if !s.quirks.OmitPutHeaders {
		w.Header().Set("ETag", etag)
		if p != r.URL.Path {
			w.Header().Set("Location", hrefFor(p))
		}
	}
	if existing == nil {
		w.WriteHeader(http.StatusCreated)
	} else {
		w.WriteHeader(http.StatusNoContent)
	}
	return nil
}

func (s *Server) kind(p string) resourceKind {
	switch {
	case p == "" || p == "/":
		return kindRoot
	case samePath(p, PrincipalPath):
		return kindPrincipal
	case samePath(p, HomeSetPath):
		return kindHomeSet
	case samePath(p, AddressBookPath):
		return kindAddressBook
	}
	if _, ok := s.contacts[p]; ok {
		return kindContact
	}
	return kindNone
}

// members returns the paths of the resources affected by a PROPFIND request,
// or nil if the resource doesn't exist.
func (s *Server) members(p string, depth internal.Depth) []string {
	var self string
	switch s.kind(p) {
	case kindRoot:
		self = "/"
	case kindPrincipal:
		self = PrincipalPath
	case kindHomeSet:
		self = HomeSetPath
	case kindAddressBook:
		self = AddressBookPath
	case kindContact:
		self = p
	default:
		return nil
	}

	l := []string{self}
	if depth == internal.DepthZero {
		return l
	}

	switch self {
	case HomeSetPath:
		l = append(l, AddressBookPath)
	case AddressBookPath:
		paths := make([]string, 0, len(s.contacts))
		for k := range s.contacts {
			paths = append(paths, k)
		}
		sort.Strings(paths)
		l = append(l, paths...)
	}
	return l
}

func (s *Server) response(p string, names []xml.Name) (*internal.Response, error) {
	resp := internal.NewOKResponse(hrefFor(p))
	for _, name := range names {
		code := http.StatusOK
		v, ok := s.prop(p, name)
		if !ok {
			code = http.StatusNotFound
			v = internal.NewRawXMLElement(name, nil, nil)
		}
		if err := resp.EncodeProp(code, v); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (s *Server) prop(p string, name xml.Name) (interface{}, bool) {
	kind := s.kind(p)
	c := s.contacts[p]

	switch name {
	case internal.CurrentUserPrincipalName:
		if s.quirks.NoPrincipal || kind == kindContact {
			return nil, false
		}
		return &internal.CurrentUserPrincipal{Href: PrincipalPath}, true
	case addressBookHomeSetName:
		if kind != kindPrincipal {
			return nil, false
		}
		return &addressbookHomeSet{Hrefs: []string{HomeSetPath}}, true
	case internal.ResourceTypeName:
		switch kind {
		case kindAddressBook:
			return internal.NewResourceType(internal.CollectionName, addressBookName), true
		case kindContact:
			return internal.NewResourceType(), true
		}
		return internal.NewResourceType(internal.CollectionName), true
	case internal.DisplayNameName:
		switch kind {
		case kindAddressBook:
			return &internal.DisplayName{Name: AddressBookName}, true
		case kindHomeSet:
			return &internal.DisplayName{Name: "Address books"}, true
		}
	case internal.GetETagName:
		switch kind {
		case kindAddressBook:
			if s.quirks.CollectionETag != "" {
				return &internal.GetETag{ETag: s.quirks.CollectionETag}, true
			}
		case kindContact:
			etag := c.etag
			if s.quirks.UnquotedETags {
				etag = strings.Trim(etag, `"`)
			}
			return &internal.GetETag{ETag: etag}, true
		}
	case internal.GetContentTypeName:
		if kind == kindContact {
			return &internal.GetContentType{Type: c.contentType}, true
		}
	case addressDataName:
		if kind == kindContact {
			return &addressData{Data: c.data}, true
		}
	}
	return nil, false
}

func newETag() string {
	return `"` + uuid.NewString() + `"`
}

func hrefFor(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

func samePath(a, b string) bool {
	return strings.TrimSuffix(a, "/") == strings.TrimSuffix(b, "/")
}
