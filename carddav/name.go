package carddav

import (
	"strings"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
)

// SuggestName returns a resource name for a new contact. The vCard UID is
// used when the payload has one, otherwise a random UUID is generated. The
// payload isn't validated.
func SuggestName(payload string) string {
	card, err := vcard.NewDecoder(strings.NewReader(payload)).Decode()
	if err == nil {
		uid := strings.TrimSpace(card.Value(vcard.FieldUID))
		uid = strings.TrimPrefix(uid, "urn:uuid:")
		uid = strings.Map(func(r rune) rune {
			switch r {
			case '/', '\\':
				return '_'
			}
			return r
		}, uid)
		if uid != "" {
			return uid + vcardExt
		}
	}
	return uuid.NewString() + vcardExt
}
