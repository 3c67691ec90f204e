// Package restapi is the client of the school health REST API.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
)

const (
	MsgUnauthorized = "Your session has expired, please sign in again."
	MsgForbidden    = "You do not have permission to perform this action."
	MsgNotFound     = "The requested resource was not found."

	defaultUploadField = "image"
	defaultTimeout     = 60 * time.Second
)

// Client injects the caller's bearer token in every request and turns 401, 403 and 404
// responses into notifications before returning them as *core.APIError.
// It does not retry, back off or de-duplicate requests.
type Client struct {
	baseURL  string
	http     *http.Client
	creds    core.CredentialProvider
	notifier core.Notifier
	logger   core.Logger
	metrics  *Metrics
}

var _ core.RESTClient = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(conf core.APIConfig, creds core.CredentialProvider, notifier core.Notifier, logger core.Logger, opts ...Option) *Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:  strings.TrimRight(conf.BaseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		creds:    creds,
		notifier: notifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, body, out)
}

// Upload sends files as multipart/form-data.
func (c *Client) Upload(ctx context.Context, path string, files []core.Upload, out interface{}) error {
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	for _, f := range files {
		field := f.Field
		if field == "" {
			field = defaultUploadField
		}
		part, err := mw.CreateFormFile(field, f.Filename)
		if err != nil {
			return errors.Wrap(err, "creating multipart file")
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return errors.Wrapf(err, "reading %s", f.Filename)
		}
	}
	if err := mw.Close(); err != nil {
		return errors.Wrap(err, "closing multipart body")
	}

	resp, err := c.do(ctx, http.MethodPost, path, nil, buf, mw.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.decode(resp, out)
}

// Download copies a binary response body, such as an XLSX export, into w.
func (c *Client) Download(ctx context.Context, path string, query url.Values, w io.Writer) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return c.decode(resp, nil)
	}
	_, err = io.Copy(w, resp.Body)
	return errors.Wrap(err, "downloading "+path)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var (
		rdr io.Reader
		ct  string
	)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		rdr, ct = bytes.NewReader(b), "application/json"
	}
	resp, err := c.do(ctx, method, path, query, rdr, ct)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.decode(resp, out)
}

// do sends the request and notifies the auth and not-found statuses.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	if c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil && c.logger != nil {
			c.logger.Warn("restapi: retrieving access token, sending the request without it", err)
		}
		if err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(method, path, 0, start)
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	c.metrics.observe(method, path, resp.StatusCode, start)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.notify(ctx, core.LevelWarning, MsgUnauthorized)
	case http.StatusForbidden:
		c.notify(ctx, core.LevelError, MsgForbidden)
	case http.StatusNotFound:
		c.notify(ctx, core.LevelInfo, MsgNotFound)
	}
	return resp, nil
}

func (c *Client) notify(ctx context.Context, level core.NotificationLevel, msg string) {
	if c.notifier != nil {
		c.notifier.Notify(ctx, level, msg)
	}
}

// decode parses the response envelope into out. Bodies that are not an envelope, such as
// a bare array, are taken as the data itself.
func (c *Client) decode(resp *http.Response, out interface{}) error {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response body")
	}
	failed := resp.StatusCode >= http.StatusBadRequest
	env, isEnv := parseEnvelope(b, failed)

	if failed {
		apiErr := &core.APIError{Status: resp.StatusCode}
		if isEnv {
			apiErr.Message = env.Message
		}
		return apiErr
	}
	if isEnv && env.Error {
		return &core.APIError{Message: env.Message}
	}

	if out == nil {
		return nil
	}
	data := json.RawMessage(b)
	if isEnv {
		data = env.Data
	}
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decoding response data")
}

// parseEnvelope recognizes an envelope by its "error" or "data" keys, or by a "message"
// key on failed responses.
func parseEnvelope(b []byte, failed bool) (core.Envelope, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return core.Envelope{}, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return core.Envelope{}, false
	}
	_, hasErr := fields["error"]
	_, hasData := fields["data"]
	_, hasMsg := fields["message"]
	if !hasErr && !hasData && !(failed && hasMsg) {
		return core.Envelope{}, false
	}
	var env core.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		// eg. "error" carrying a string: keep the message only
		var loose struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(b, &loose)
		return core.Envelope{Error: true, Message: loose.Message}, true
	}
	return env, true
}
