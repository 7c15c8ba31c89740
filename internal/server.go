package internal

import (
	"encoding/xml"
	"fmt"
	"mime"
	"net/http"
)

func ServeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if httpErr := HTTPErrorFromError(err); httpErr != nil {
		code = httpErr.Code
	}
	http.Error(w, err.Error(), code)
}

func DecodeXMLRequest(r *http.Request, v interface{}) error {
	t, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if t != "application/xml" && t != "text/xml" {
		return HTTPErrorf(http.StatusBadRequest, "webdav: expected application/xml request")
	}

	if err := xml.NewDecoder(r.Body).Decode(v); err != nil {
		return &HTTPError{http.StatusBadRequest, err}
	}

	return nil
}

func ServeMultistatus(w http.ResponseWriter, ms *Multistatus) error {
	// TODO: streaming
	w.Header().Add("Content-Type", "text/xml; charset=\"utf-8\"")
	w.WriteHeader(http.StatusMultiStatus)
	w.Write([]byte(xml.Header))
	return xml.NewEncoder(w).Encode(ms)
}

// ParseDepth parses the Depth header sent by a client.
func ParseDepth(s string) (Depth, error) {
	switch s {
	case "0":
		return DepthZero, nil
	case "1":
		return DepthOne, nil
	case "infinity":
		return DepthInfinity, nil
	}
	return 0, fmt.Errorf("webdav: invalid Depth value %q", s)
}

// ParseRequestDepth reads the Depth header, def is used when it's missing.
func ParseRequestDepth(r *http.Request, def Depth) (Depth, error) {
	s := r.Header.Get("Depth")
	if s == "" {
		return def, nil
	}
	depth, err := ParseDepth(s)
	if err != nil {
		return 0, &HTTPError{http.StatusBadRequest, err}
	}
	return depth, nil
}
