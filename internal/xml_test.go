package internal

import (
	"bytes"
	"encoding/xml"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawXML = `<?xml version="1.0" encoding="UTF-8"?>
<bookstore>
  <book category="COOKING">
    <title lang="en">Everyday Italian</title>
    <author>Giada De Laurentiis</author>
    <year>2005</year>
  </book>

  <book category="CHILDREN">
    <title lang="en">Harry Potter</title>
    <author>J K. Rowling</author>
    <year>2005</year>
  </book>
</bookstore>`

func TestRawXMLValue(t *testing.T) {
	var rawValue RawXMLValue
	if err := xml.Unmarshal([]byte(rawXML), &rawValue); err != nil {
		t.Fatalf("xml.Unmarshal() = %v", err)
	}

	b, err := xml.Marshal(&rawValue)
	if err != nil {
		t.Fatalf("xml.Marshal() = %v", err)
	}

	s := xml.Header + string(b)
	if s != rawXML {
		t.Errorf("input doesn't match output:\n%v\nvs.\n%v", rawXML, s)
	}
}

func TestRawXMLValue_TokenReader(t *testing.T) {
	var rawValue RawXMLValue
	if err := xml.Unmarshal([]byte(rawXML), &rawValue); err != nil {
		t.Fatalf("xml.Unmarshal() = %v", err)
	}

	tr := rawValue.TokenReader()

	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for {
		tok, err := tr.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("TokenReader.Token() = %v", err)
		}

		if err := enc.EncodeToken(tok); err != nil {
			t.Fatalf("Encoder.EncodeToken() = %v", err)
		}
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("Encoder.Flush() = %v", err)
	}

	s := xml.Header + buf.String()
	if s != rawXML {
		t.Errorf("input doesn't match output:\n%v\nvs.\n%v", rawXML, s)
	}
}

const rawNamespacedXML = `<d:prop xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <card:addressbook-home-set>
    <d:href>/home/</d:href>
    <d:href>/shared/</d:href>
  </card:addressbook-home-set>
</d:prop>`

func TestRawXMLValue_namespaces(t *testing.T) {
	var prop Prop
	require.NoError(t, xml.Unmarshal([]byte(rawNamespacedXML), &prop))

	homeSetName := xml.Name{Space: "urn:ietf:params:xml:ns:carddav", Local: "addressbook-home-set"}
	assert.Equal(t, []xml.Name{homeSetName}, prop.XMLNames())

	raw, ok := prop.Get(homeSetName)
	require.True(t, ok)
	href, ok := raw.Child(HrefName)
	require.True(t, ok)
	assert.Equal(t, "/home/", href.Text())

	var homeSet struct {
		XMLName xml.Name `xml:"urn:ietf:params:xml:ns:carddav addressbook-home-set"`
		Hrefs   []string `xml:"DAV: href"`
	}
	require.NoError(t, raw.Decode(&homeSet))
	assert.Equal(t, []string{"/home/", "/shared/"}, homeSet.Hrefs)

	// prefixes are dropped, names keep their namespace
	b, err := xml.Marshal(raw)
	require.NoError(t, err)
	var again RawXMLValue
	require.NoError(t, xml.Unmarshal(b, &again))
	name, ok := again.XMLName()
	require.True(t, ok)
	assert.Equal(t, homeSetName, name)
	href, ok = again.Child(HrefName)
	require.True(t, ok)
	assert.Equal(t, "/home/", href.Text())
}

func TestRawXMLValue_Text(t *testing.T) {
	var rawValue RawXMLValue
	require.NoError(t, xml.Unmarshal([]byte(`<a>x<b>y</b><c/>z</a>`), &rawValue))
	assert.Equal(t, "xyz", rawValue.Text())

	_, ok := rawValue.Child(xml.Name{Local: "missing"})
	assert.False(t, ok)
}
