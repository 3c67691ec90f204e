package restapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhealth/core"
	logsvc "github.com/trezcool/schoolhealth/services/logger"
	"github.com/trezcool/schoolhealth/services/notify"
	"github.com/trezcool/schoolhealth/services/session"
	"github.com/trezcool/schoolhealth/tests"
)

type failingCreds struct{}

func (failingCreds) Token(context.Context) (string, error) { return "", session.ErrExpired }

func newClient(t *testing.T, creds core.CredentialProvider, opts ...Option) (*Client, *testutil.Backend, *notify.Collector) {
	backend := testutil.NewBackend(t)
	collector := notify.NewCollector()
	client := NewClient(backend.Config(), creds, notify.Context{Fallback: collector}, logsvc.NewNop(), opts...)
	return client, backend, collector
}

func TestClient_authorization(t *testing.T) {
	tests := []struct {
		name  string
		creds core.CredentialProvider
		want  string
	}{
		{name: "no provider", creds: nil, want: ""},
		{name: "no session", creds: session.Static(""), want: ""},
		{name: "token", creds: session.Static("abc.def.ghi"), want: "Bearer abc.def.ghi"},
		{name: "provider failure", creds: failingCreds{}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend, _ := newClient(t, tt.creds)
			backend.Handle(http.MethodGet, "/nurse", testutil.Data([]interface{}{}))

			require.NoError(t, client.Get(context.Background(), "/nurse", nil, nil))
			reqs := backend.Requests()
			require.Len(t, reqs, 1)
			if reqs[0].Authorization != tt.want {
				t.Errorf("Authorization = %q, want %q", reqs[0].Authorization, tt.want)
			}
		})
	}
}

func TestClient_bffToken(t *testing.T) {
	client, backend, _ := newClient(t, session.Context{})
	backend.Handle(http.MethodGet, "/parent", testutil.Data([]interface{}{}))

	ctx := session.WithToken(context.Background(), "from-request")
	require.NoError(t, client.Get(ctx, "/parent", nil, nil))
	assert.Equal(t, "Bearer from-request", backend.Requests()[0].Authorization)
}

func TestClient_errorStatuses(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		message   string
		wantNotes []core.Notification
		wantMsg   string
	}{
		{
			name: "unauthorized", code: http.StatusUnauthorized, message: "jwt expired",
			wantNotes: []core.Notification{{Level: core.LevelWarning, Message: MsgUnauthorized}},
			wantMsg:   "jwt expired",
		},
		{
			name: "forbidden", code: http.StatusForbidden,
			wantNotes: []core.Notification{{Level: core.LevelError, Message: MsgForbidden}},
			wantMsg:   "403 Forbidden",
		},
		{
			name: "not found", code: http.StatusNotFound, message: "No such student",
			wantNotes: []core.Notification{{Level: core.LevelInfo, Message: MsgNotFound}},
			wantMsg:   "No such student",
		},
		{name: "bad request", code: http.StatusBadRequest, message: "Invalid quantity", wantMsg: "Invalid quantity"},
		{name: "server error", code: http.StatusInternalServerError, wantMsg: "500 Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend, collector := newClient(t, session.Static("tok"))
			backend.Handle(http.MethodPost, "/medical-items", func(ctx echo.Context) error {
				if tt.message == "" {
					return ctx.NoContent(tt.code)
				}
				return testutil.Fail(tt.code, tt.message)(ctx)
			})

			err := client.Post(context.Background(), "/medical-items", echo.Map{"name": "Paracetamol"}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, core.StatusCode(err))
			assert.Equal(t, tt.wantMsg, core.MessageOf(err))

			notes := collector.Notifications()
			if tt.wantNotes == nil {
				assert.Empty(t, notes)
			} else {
				assert.Equal(t, tt.wantNotes, notes)
			}
		})
	}
}

func TestClient_unknownRouteNotifies(t *testing.T) {
	client, _, collector := newClient(t, nil)

	err := client.Get(context.Background(), "/lol", nil, nil)
	assert.Equal(t, http.StatusNotFound, core.StatusCode(err))
	assert.Equal(t, []core.Notification{{Level: core.LevelInfo, Message: MsgNotFound}}, collector.Notifications())
}

func TestClient_decode(t *testing.T) {
	type item struct {
		ID   core.ID `json:"id"`
		Name string  `json:"name"`
	}

	tests := []struct {
		name    string
		handler echo.HandlerFunc
		want    []item
		wantErr string
	}{
		{
			name:    "envelope",
			handler: testutil.Data([]echo.Map{{"id": 1, "name": "Gauze"}, {"id": "a2", "name": "Iodine"}}),
			want:    []item{{ID: "1", Name: "Gauze"}, {ID: "a2", Name: "Iodine"}},
		},
		{
			name: "bare array",
			handler: func(ctx echo.Context) error {
				return ctx.JSON(http.StatusOK, []echo.Map{{"id": 3, "name": "Bandage"}})
			},
			want: []item{{ID: "3", Name: "Bandage"}},
		},
		{name: "no data", handler: testutil.OK()},
		{
			name: "error flag on success",
			handler: func(ctx echo.Context) error {
				return ctx.JSON(http.StatusOK, echo.Map{"error": true, "message": "Out of stock"})
			},
			wantErr: "Out of stock",
		},
		{
			name: "empty body",
			handler: func(ctx echo.Context) error {
				return ctx.NoContent(http.StatusNoContent)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend, _ := newClient(t, nil)
			backend.Handle(http.MethodGet, "/medical-items", tt.handler)

			var got []item
			err := client.Get(context.Background(), "/medical-items", url.Values{"q": {"a b"}}, &got)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, core.MessageOf(err))
				assert.Zero(t, core.StatusCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "q=a+b", backend.Requests()[0].Query)
		})
	}
}

func TestClient_body(t *testing.T) {
	client, backend, _ := newClient(t, nil)
	backend.Handle(http.MethodPut, "/blogs/:id", testutil.Data(echo.Map{"id": 9, "title": "Flu season"}))

	var out struct {
		ID core.ID `json:"id"`
	}
	require.NoError(t, client.Put(context.Background(), "blogs/9", echo.Map{"title": "Flu season"}, &out))
	assert.Equal(t, core.ID("9"), out.ID)

	req := backend.Requests()[0]
	assert.Equal(t, "/blogs/9", req.Path)
	assert.Equal(t, "application/json", req.ContentType)
	assert.JSONEq(t, `{"title":"Flu season"}`, string(req.Body))
}

func TestClient_Upload(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		wantField string
		response  interface{}
		wantURL   string
	}{
		{name: "default field, url string", response: "https://cdn.test/a.png", wantField: "image", wantURL: "https://cdn.test/a.png"},
		{name: "custom field, url object", field: "file", response: echo.Map{"imageUrl": "https://cdn.test/b.png"}, wantField: "file", wantURL: "https://cdn.test/b.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend, _ := newClient(t, session.Static("tok"))
			var gotContent string
			backend.Handle(http.MethodPost, "/upload-image", func(ctx echo.Context) error {
				fh, err := ctx.FormFile(tt.wantField)
				if err != nil {
					return echo.NewHTTPError(http.StatusBadRequest)
				}
				f, _ := fh.Open()
				defer f.Close()
				b, _ := io.ReadAll(f)
				gotContent = fh.Filename + ":" + string(b)
				return testutil.Data(tt.response)(ctx)
			})

			var res core.UploadResult
			err := client.Upload(context.Background(), "/upload-image", []core.Upload{{
				Field: tt.field, Filename: "a.png", Content: strings.NewReader("png-bytes"),
			}}, &res)
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, res.URL)
			assert.Equal(t, "a.png:png-bytes", gotContent)

			req := backend.Requests()[0]
			assert.True(t, strings.HasPrefix(req.ContentType, "multipart/form-data; boundary="))
			assert.Equal(t, "Bearer tok", req.Authorization)
		})
	}
}

func TestClient_Download(t *testing.T) {
	client, backend, collector := newClient(t, nil)
	backend.Handle(http.MethodGet, "/student/export", func(ctx echo.Context) error {
		return ctx.Blob(http.StatusOK, "application/octet-stream", []byte("PK\x03\x04"))
	})

	buf := new(bytes.Buffer)
	require.NoError(t, client.Download(context.Background(), "/student/export", nil, buf))
	assert.Equal(t, "PK\x03\x04", buf.String())

	buf.Reset()
	err := client.Download(context.Background(), "/classroom/export", nil, buf)
	assert.Equal(t, http.StatusNotFound, core.StatusCode(err))
	assert.Zero(t, buf.Len())
	assert.Len(t, collector.Notifications(), 1)
}

func TestClient_cancelled(t *testing.T) {
	client, backend, collector := newClient(t, nil)
	backend.Handle(http.MethodPatch, "/send-drug-request/:id/accept", testutil.Slow(time.Second, testutil.OK()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := client.Patch(ctx, "/send-drug-request/1/accept", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Empty(t, collector.Notifications())
}

func TestClient_metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	// a second client shares the collectors
	again, err := NewMetrics(reg)
	require.NoError(t, err)
	assert.Same(t, metrics.requests, again.requests)

	client, backend, _ := newClient(t, nil, WithMetrics(metrics))
	backend.Handle(http.MethodPatch, "/send-drug-request/:id/:verb", testutil.OK())

	require.NoError(t, client.Patch(context.Background(), "/send-drug-request/1/accept", nil, nil))
	require.NoError(t, client.Patch(context.Background(), "/send-drug-request/2/refuse", nil, nil))
	_ = client.Get(context.Background(), "/vaccine", nil, nil)

	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.requests.WithLabelValues(http.MethodPatch, "send-drug-request", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "vaccine", "404")))
	assert.Equal(t, 2, promtest.CollectAndCount(metrics.requests))
}

func Test_collection(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/send-drug-request/12/accept", want: "send-drug-request"},
		{path: "vaccine", want: "vaccine"},
		{path: "/student/export?x=1", want: "student"},
		{path: "/", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := collection(tt.path); got != tt.want {
				t.Errorf("collection() = %v, want %v", got, tt.want)
			}
		})
	}
}
