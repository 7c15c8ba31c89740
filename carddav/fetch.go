package carddav

import (
	"context"

	"github.com/davsync/go-webdav/internal"
)

// FetchEntities retrieves the vCard data of the requested contacts. Contacts
// without address data are missing from the result. Unlike the version
// listings, a missing address book is reported as an error.
func (c *Client) FetchEntities(ctx context.Context, ids []ResourceID) ([]EntityWithPayload, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := checkIDs(ids); err != nil {
		return nil, err
	}

	multiget := newMultiget(ids,
		internal.GetETagName,
		internal.GetContentTypeName,
		addressDataName,
	)
	ms, err := c.ic.Report(ctx, c.ic.Endpoint(), internal.DepthZero, multiget)
	if err != nil {
		return nil, err
	}

	return c.decodeEntities(ms), nil
}

func (c *Client) decodeEntities(ms *internal.Multistatus) []EntityWithPayload {
	l := make([]EntityWithPayload, 0, len(ms.Responses))
	for i := range ms.Responses {
		resp := &ms.Responses[i]

		href := resp.Path()
		if href == "" {
			continue
		}

		var addrData addressDataResp
		if err := resp.DecodeProp(addressDataName, &addrData); err != nil {
			if !internal.IsNotFound(err) {
				c.logger.Debug().Err(err).Str("href", href).Msg("skipping resource with invalid address data")
			}
			continue
		}
		if addrData.Data == "" {
			continue
		}

		contentType, _ := resp.PropText(internal.GetContentTypeName)
		if isVList(contentType) {
			continue
		}

		id, err := NewResourceID(ms.BaseURL, href)
		if err != nil {
			c.logger.Debug().Err(err).Str("href", href).Msg("skipping resource with invalid href")
			continue
		}

		l = append(l, EntityWithPayload{ID: id, Payload: addrData.Data})
	}
	return l
}
