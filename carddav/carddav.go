// Package carddav provides a CardDAV client for contact synchronization.
//
// CardDAV is defined in RFC 6352.
package carddav

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

const namespace = "urn:ietf:params:xml:ns:carddav"

var (
	addressBookName        = xml.Name{Space: namespace, Local: "addressbook"}
	addressBookHomeSetName = xml.Name{Space: namespace, Local: "addressbook-home-set"}
	addressDataName        = xml.Name{Space: namespace, Local: "address-data"}
)

// vListMIMEType is the content type of SOGo distribution lists, which can't
// be handled as contacts.
const vListMIMEType = "text/x-vlist"

// AddressBook describes an address book collection.
type AddressBook struct {
	URL  *url.URL
	Name string
}

// ResourceID identifies a remote resource. Two IDs are equal if their
// absolute paths are equal.
type ResourceID struct {
	href string
	u    *url.URL
}

// NewResourceID creates a ResourceID from an href, resolved against base.
func NewResourceID(base *url.URL, href string) (ResourceID, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ResourceID{}, fmt.Errorf("carddav: invalid href %q: %v", href, err)
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if !u.IsAbs() {
		return ResourceID{}, fmt.Errorf("carddav: href %q can't be resolved to an absolute URL", href)
	}
	return ResourceID{href: strings.TrimSpace(href), u: u}, nil
}

// ParseResourceID creates a ResourceID from an absolute URL.
func ParseResourceID(rawURL string) (ResourceID, error) {
	return NewResourceID(nil, rawURL)
}

func resourceIDFromURL(u *url.URL) ResourceID {
	cp := *u
	return ResourceID{href: cp.EscapedPath(), u: &cp}
}

// Href returns the href the ID was created from.
func (id ResourceID) Href() string {
	return id.href
}

// URL returns a copy of the absolute URL of the resource.
func (id ResourceID) URL() *url.URL {
	if id.u == nil {
		return nil
	}
	u := *id.u
	return &u
}

// Path returns the escaped absolute path of the resource, as sent in
// multiget requests.
func (id ResourceID) Path() string {
	if id.u == nil {
		return ""
	}
	return id.u.EscapedPath()
}

func (id ResourceID) IsZero() bool {
	return id.u == nil
}

func (id ResourceID) Equal(other ResourceID) bool {
	if id.u == nil || other.u == nil {
		return id.u == other.u
	}
	return id.u.Path == other.u.Path
}

func (id ResourceID) String() string {
	if id.u == nil {
		return ""
	}
	return id.u.String()
}

// EntityVersion is the version of a remote contact. Version is the
// quoted entity tag.
type EntityVersion struct {
	ID      ResourceID
	Version string
}

// EntityWithPayload is a remote contact along with its raw vCard data.
type EntityWithPayload struct {
	ID      ResourceID
	Payload string
}
