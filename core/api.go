package core

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
)

// Envelope is the response body convention of the school health REST API.
type Envelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Upload is a file sent as multipart/form-data.
type Upload struct {
	Field    string // form field name, "image" when empty
	Filename string
	Content  io.Reader
}

// RESTClient is the single point of access to the school health REST API.
// `out` receives the decoded `data` of the response envelope and may be nil.
type RESTClient interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) error
	Post(ctx context.Context, path string, body, out interface{}) error
	Put(ctx context.Context, path string, body, out interface{}) error
	Patch(ctx context.Context, path string, body, out interface{}) error
	Delete(ctx context.Context, path string, body, out interface{}) error
	// Upload posts files and returns the decoded envelope data in out.
	Upload(ctx context.Context, path string, files []Upload, out interface{}) error
	// Download streams a binary response body (no envelope) into w.
	Download(ctx context.Context, path string, query url.Values, w io.Writer) error
}

// UploadResult is the `data` of an upload response: either the bare URL or an
// object carrying it.
type UploadResult struct {
	URL string
}

func (r *UploadResult) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.URL = s
		return nil
	}
	var obj struct {
		URL      string `json:"url"`
		ImageURL string `json:"imageUrl"`
		Image    string `json:"image"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	switch {
	case obj.URL != "":
		r.URL = obj.URL
	case obj.ImageURL != "":
		r.URL = obj.ImageURL
	default:
		r.URL = obj.Image
	}
	return nil
}
