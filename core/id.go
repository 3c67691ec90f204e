package core

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// ID identifies a backend record. The API returns numeric and string ids alike;
// both decode into the same string form.
type ID string

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// PathSegment returns id escaped as a single URL path segment.
func (id ID) PathSegment() string { return EscapeSegment(string(id)) }

// EscapeSegment escapes s as a single URL path segment. Dot segments are percent-encoded
// so that joining or resolving the path cannot climb out of its collection.
func EscapeSegment(s string) string {
	if s == "." || s == ".." {
		return strings.Repeat("%2E", len(s))
	}
	return url.PathEscape(s)
}
