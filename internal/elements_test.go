package internal

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// https://tools.ietf.org/html/rfc4918#section-9.6.2
const exampleDeleteMultistatusStr = `<?xml version="1.0" encoding="utf-8" ?>
<d:multistatus xmlns:d="DAV:">
  <d:response>
    <d:href>http://www.example.com/container/resource3</d:href>
    <d:status>HTTP/1.1 423 Locked</d:status>
    <d:error><d:lock-token-submitted/></d:error>
  </d:response>
</d:multistatus>`

// https://tools.ietf.org/html/rfc4918#section-9.1.3
const examplePropfindMultistatusStr = `<?xml version="1.0" encoding="utf-8" ?>
<D:multistatus xmlns:D="DAV:">
  <D:response xmlns:R="http://ns.example.com/boxschema/">
    <D:href>/file</D:href>
    <D:propstat>
      <D:prop>
        <R:bigbox><R:BoxType>Box type A</R:BoxType></R:bigbox>
        <D:getetag>"abc"</D:getetag>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
    <D:propstat>
      <D:prop><R:DingALing/></D:prop>
      <D:status>HTTP/1.1 403 Forbidden</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>  sub/item  </D:href>
    <D:propstat>
      <D:prop><D:displayname>Item</D:displayname></D:prop>
    </D:propstat>
  </D:response>
</D:multistatus>`

func TestParseMultistatus(t *testing.T) {
	base, err := url.Parse("https://www.example.com/container/")
	require.NoError(t, err)

	ms, err := ParseMultistatus(base, strings.NewReader(examplePropfindMultistatusStr))
	require.NoError(t, err)
	require.Len(t, ms.Responses, 2)

	base.Path = "/mutated/"
	assert.Equal(t, "/container/", ms.BaseURL.Path)

	resp := &ms.Responses[0]
	assert.Equal(t, "/file", resp.Path())

	etag, ok := resp.PropText(GetETagName)
	assert.True(t, ok)
	assert.Equal(t, `"abc"`, etag)

	boxName := xml.Name{Space: "http://ns.example.com/boxschema/", Local: "bigbox"}
	raw, ok := resp.Prop(boxName)
	require.True(t, ok)
	child, ok := raw.Child(xml.Name{Space: "http://ns.example.com/boxschema/", Local: "BoxType"})
	require.True(t, ok)
	assert.Equal(t, "Box type A", child.Text())

	// properties with a non-2xx status are missing
	_, ok = resp.Prop(xml.Name{Space: "http://ns.example.com/boxschema/", Local: "DingALing"})
	assert.False(t, ok)

	var displayName DisplayName
	err = resp.DecodeProp(DisplayNameName, &displayName)
	assert.True(t, IsNotFound(err))

	// a propstat without a status is accepted
	resp = &ms.Responses[1]
	assert.Equal(t, "sub/item", resp.Path())
	require.NoError(t, resp.DecodeProp(DisplayNameName, &displayName))
	assert.Equal(t, "Item", displayName.Name)

	u, err := ms.ResolveHref(resp.Path())
	require.NoError(t, err)
	assert.Equal(t, "https://www.example.com/container/sub/item", u.String())

	u, err = ms.ResolveHref("http://other.example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "http://other.example.com/x", u.String())

	_, err = ms.ResolveHref("%zz")
	assert.Error(t, err)
}

func TestParseMultistatus_errorStatus(t *testing.T) {
	ms, err := ParseMultistatus(nil, strings.NewReader(exampleDeleteMultistatusStr))
	require.NoError(t, err)
	require.Len(t, ms.Responses, 1)
	assert.Nil(t, ms.BaseURL)

	resp := &ms.Responses[0]
	require.NotNil(t, resp.Status)
	assert.Equal(t, http.StatusLocked, resp.Status.Code)
	assert.Equal(t, "Locked", resp.Status.Text)
	assert.False(t, resp.Status.OK())

	_, ok := resp.Prop(GetETagName)
	assert.False(t, ok)
}

func TestParseMultistatus_malformed(t *testing.T) {
	for _, s := range []string{
		"",
		"<html><body>Not Found</body></html>",
		`<d:multistatus xmlns:d="DAV:"><d:response>`,
		`<d:multistatus xmlns:d="DAV:"><d:response><d:status>HTTP/1.1 abc</d:status></d:response></d:multistatus>`,
	} {
		_, err := ParseMultistatus(nil, strings.NewReader(s))
		assert.True(t, IsMalformed(err), "ParseMultistatus(%q) = %v", s, err)
	}
}

func TestStatus(t *testing.T) {
	var s Status
	require.NoError(t, s.UnmarshalText([]byte("HTTP/1.1 404 Not Found")))
	assert.Equal(t, Status{Code: 404, Text: "Not Found"}, s)

	b, err := (&Status{Code: http.StatusMultiStatus}).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 207 Multi-Status", string(b))

	assert.Error(t, s.UnmarshalText([]byte("HTTP/1.1")))
}

func TestPropfind_encode(t *testing.T) {
	propfind := NewPropNamePropfind(GetETagName, xml.Name{Space: "urn:ietf:params:xml:ns:carddav", Local: "address-data"})

	var buf bytes.Buffer
	require.NoError(t, xml.NewEncoder(&buf).Encode(propfind))

	var got struct {
		XMLName xml.Name `xml:"DAV: propfind"`
		Prop    struct {
			Raw []struct {
				XMLName xml.Name
			} `xml:",any"`
		} `xml:"DAV: prop"`
	}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Prop.Raw, 2)
	assert.Equal(t, GetETagName, got.Prop.Raw[0].XMLName)
	assert.Equal(t, xml.Name{Space: "urn:ietf:params:xml:ns:carddav", Local: "address-data"}, got.Prop.Raw[1].XMLName)
}

func TestResponse_EncodeProp(t *testing.T) {
	resp := NewOKResponse("/a.vcf")
	require.NoError(t, resp.EncodeProp(http.StatusOK, &GetETag{ETag: `"1"`}))
	require.NoError(t, resp.EncodeProp(http.StatusOK, &GetContentType{Type: "text/vcard"}))
	require.NoError(t, resp.EncodeProp(http.StatusNotFound, NewRawXMLElement(DisplayNameName, nil, nil)))
	require.Len(t, resp.Propstats, 2)

	var buf bytes.Buffer
	require.NoError(t, xml.NewEncoder(&buf).Encode(NewMultistatus(*resp)))

	ms, err := ParseMultistatus(nil, &buf)
	require.NoError(t, err)
	require.Len(t, ms.Responses, 1)

	got := &ms.Responses[0]
	etag, ok := got.PropText(GetETagName)
	assert.True(t, ok)
	assert.Equal(t, `"1"`, etag)
	contentType, ok := got.PropText(GetContentTypeName)
	assert.True(t, ok)
	assert.Equal(t, "text/vcard", contentType)
	_, ok = got.Prop(DisplayNameName)
	assert.False(t, ok)
}

func TestResourceType(t *testing.T) {
	addressBook := xml.Name{Space: "urn:ietf:params:xml:ns:carddav", Local: "addressbook"}
	rt := NewResourceType(CollectionName, addressBook)

	raw, err := EncodeRawXMLElement(rt)
	require.NoError(t, err)

	var got ResourceType
	require.NoError(t, raw.Decode(&got))
	assert.True(t, got.Is(CollectionName))
	assert.True(t, got.Is(addressBook))
	assert.False(t, got.Is(xml.Name{Space: "urn:ietf:params:xml:ns:caldav", Local: "calendar"}))
}
