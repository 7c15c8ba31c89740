package internal

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const Namespace = "DAV:"

var (
	ResourceTypeName         = xml.Name{Space: Namespace, Local: "resourcetype"}
	DisplayNameName          = xml.Name{Space: Namespace, Local: "displayname"}
	GetContentTypeName       = xml.Name{Space: Namespace, Local: "getcontenttype"}
	GetETagName              = xml.Name{Space: Namespace, Local: "getetag"}
	CurrentUserPrincipalName = xml.Name{Space: Namespace, Local: "current-user-principal"}
	CollectionName           = xml.Name{Space: Namespace, Local: "collection"}
	HrefName                 = xml.Name{Space: Namespace, Local: "href"}
	UnauthenticatedName      = xml.Name{Space: Namespace, Local: "unauthenticated"}
)

// https://tools.ietf.org/html/rfc4918#section-14.16
type Multistatus struct {
	XMLName             xml.Name   `xml:"DAV: multistatus"`
	Responses           []Response `xml:"DAV: response"`
	ResponseDescription string     `xml:"DAV: responsedescription,omitempty"`

	// BaseURL is the URL of the request which produced the document. It's
	// used to resolve relative hrefs.
	BaseURL *url.URL `xml:"-"`
}

func NewMultistatus(resps ...Response) *Multistatus {
	return &Multistatus{Responses: resps}
}

// ParseMultistatus decodes a multistatus document. Decoding failures are
// reported as *MalformedError.
func ParseMultistatus(base *url.URL, r io.Reader) (*Multistatus, error) {
	var ms Multistatus
	if err := xml.NewDecoder(r).Decode(&ms); err != nil {
		return nil, &MalformedError{err}
	}
	if base != nil {
		u := *base
		ms.BaseURL = &u
	}
	return &ms, nil
}

// ResolveHref resolves an href against the document base URL.
func (ms *Multistatus) ResolveHref(href string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, fmt.Errorf("webdav: invalid href %q: %v", href, err)
	}
	if ms.BaseURL == nil {
		return u, nil
	}
	return ms.BaseURL.ResolveReference(u), nil
}

// https://tools.ietf.org/html/rfc4918#section-14.24
type Response struct {
	XMLName   xml.Name   `xml:"DAV: response"`
	Href      string     `xml:"DAV: href"`
	Propstats []Propstat `xml:"DAV: propstat,omitempty"`
	Status    *Status    `xml:"DAV: status,omitempty"`
	// TODO: error?, responsedescription? , location?
}

func NewOKResponse(href string) *Response {
	return &Response{Href: href}
}

func NewErrorResponse(href string, code int) *Response {
	return &Response{Href: href, Status: &Status{Code: code}}
}

// Path returns the trimmed href of the response, or an empty string.
func (resp *Response) Path() string {
	return strings.TrimSpace(resp.Href)
}

// Prop returns the value of a property reported with a successful status.
func (resp *Response) Prop(name xml.Name) (*RawXMLValue, bool) {
	if resp.Status != nil && !resp.Status.OK() {
		return nil, false
	}
	for i := range resp.Propstats {
		propstat := &resp.Propstats[i]
		if propstat.Status != nil && !propstat.Status.OK() {
			continue
		}
		if raw, ok := propstat.Prop.Get(name); ok {
			return raw, true
		}
	}
	return nil, false
}

// PropText returns the character data of a property.
func (resp *Response) PropText(name xml.Name) (string, bool) {
	raw, ok := resp.Prop(name)
	if !ok {
		return "", false
	}
	return raw.Text(), true
}

// DecodeProp decodes a property into v.
func (resp *Response) DecodeProp(name xml.Name, v interface{}) error {
	raw, ok := resp.Prop(name)
	if !ok {
		return HTTPErrorf(http.StatusNotFound, "missing property %s", name.Local)
	}
	return raw.Decode(v)
}

// EncodeProp adds a property to the propstat matching code.
func (resp *Response) EncodeProp(code int, v interface{}) error {
	raw, err := EncodeRawXMLElement(v)
	if err != nil {
		return err
	}

	for i := range resp.Propstats {
		propstat := &resp.Propstats[i]
		if propstat.Status != nil && propstat.Status.Code == code {
			propstat.Prop.Raw = append(propstat.Prop.Raw, *raw)
			return nil
		}
	}

	resp.Propstats = append(resp.Propstats, Propstat{
		Status: &Status{Code: code},
		Prop:   Prop{Raw: []RawXMLValue{*raw}},
	})
	return nil
}

// https://tools.ietf.org/html/rfc4918#section-14.22
type Propstat struct {
	XMLName xml.Name `xml:"DAV: propstat"`
	Prop    Prop     `xml:"DAV: prop"`
	Status  *Status  `xml:"DAV: status"`
	// TODO: error?, responsedescription?
}

// https://tools.ietf.org/html/rfc4918#section-14.18
type Prop struct {
	XMLName xml.Name      `xml:"DAV: prop"`
	Raw     []RawXMLValue `xml:",any"`
}

func NewPropNames(names ...xml.Name) *Prop {
	l := make([]RawXMLValue, len(names))
	for i, name := range names {
		l[i] = *NewRawXMLElement(name, nil, nil)
	}
	return &Prop{Raw: l}
}

func (p *Prop) Get(name xml.Name) (*RawXMLValue, bool) {
	for i := range p.Raw {
		if got, ok := p.Raw[i].XMLName(); ok && got == name {
			return &p.Raw[i], true
		}
	}
	return nil, false
}

func (p *Prop) XMLNames() []xml.Name {
	l := make([]xml.Name, 0, len(p.Raw))
	for _, raw := range p.Raw {
		if name, ok := raw.XMLName(); ok {
			l = append(l, name)
		}
	}
	return l
}

// https://tools.ietf.org/html/rfc4918#section-14.28
type Status struct {
	Code int
	Text string
}

func (s *Status) MarshalText() ([]byte, error) {
	text := s.Text
	if text == "" {
		text = http.StatusText(s.Code)
	}
	return []byte(fmt.Sprintf("HTTP/1.1 %v %v", s.Code, text)), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	parts := strings.SplitN(strings.TrimSpace(string(b)), " ", 3)
	if len(parts) < 2 {
		return fmt.Errorf("webdav: invalid HTTP status %q", b)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("webdav: invalid HTTP status %q: failed to parse code: %v", b, err)
	}

	s.Code = code
	if len(parts) > 2 {
		s.Text = parts[2]
	}
	return nil
}

func (s *Status) OK() bool {
	return s.Code/100 == 2
}

// https://tools.ietf.org/html/rfc4918#section-14.20
type Propfind struct {
	XMLName  xml.Name  `xml:"DAV: propfind"`
	Prop     *Prop     `xml:"DAV: prop,omitempty"`
	AllProp  *struct{} `xml:"DAV: allprop,omitempty"`
	PropName *struct{} `xml:"DAV: propname,omitempty"`
}

func NewPropNamePropfind(names ...xml.Name) *Propfind {
	return &Propfind{Prop: NewPropNames(names...)}
}

// https://tools.ietf.org/html/rfc4918#section-15.9
type ResourceType struct {
	XMLName xml.Name      `xml:"DAV: resourcetype"`
	Raw     []RawXMLValue `xml:",any"`
}

func NewResourceType(names ...xml.Name) *ResourceType {
	rt := ResourceType{}
	for _, name := range names {
		rt.Raw = append(rt.Raw, *NewRawXMLElement(name, nil, nil))
	}
	return &rt
}

func (t *ResourceType) Is(name xml.Name) bool {
	for _, raw := range t.Raw {
		if n, ok := raw.XMLName(); ok && name == n {
			return true
		}
	}
	return false
}

// https://tools.ietf.org/html/rfc4918#section-15.2
type DisplayName struct {
	XMLName xml.Name `xml:"DAV: displayname"`
	Name    string   `xml:",chardata"`
}

// https://tools.ietf.org/html/rfc4918#section-15.5
type GetContentType struct {
	XMLName xml.Name `xml:"DAV: getcontenttype"`
	Type    string   `xml:",chardata"`
}

// https://tools.ietf.org/html/rfc4918#section-15.6
type GetETag struct {
	XMLName xml.Name `xml:"DAV: getetag"`
	ETag    string   `xml:",chardata"`
}

// https://tools.ietf.org/html/rfc5397#section-3
type CurrentUserPrincipal struct {
	XMLName         xml.Name  `xml:"DAV: current-user-principal"`
	Href            string    `xml:"DAV: href,omitempty"`
	Unauthenticated *struct{} `xml:"DAV: unauthenticated,omitempty"`
}
