package carddav

import (
	"encoding/xml"

	"github.com/davsync/go-webdav/internal"
)

// https://tools.ietf.org/html/rfc6352#section-7.1.1
type addressbookHomeSet struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:carddav addressbook-home-set"`
	Hrefs   []string `xml:"DAV: href"`
}

// https://tools.ietf.org/html/rfc6352#section-8.7
type addressbookMultiget struct {
	XMLName xml.Name       `xml:"urn:ietf:params:xml:ns:carddav addressbook-multiget"`
	Prop    *internal.Prop `xml:"DAV: prop,omitempty"`
	Hrefs   []string       `xml:"DAV: href"`
}

// https://tools.ietf.org/html/rfc6352#section-10.4
type addressDataResp struct {
	XMLName xml.Name `xml:"urn:ietf:params:xml:ns:carddav address-data"`
	Data    string   `xml:",chardata"`
}
