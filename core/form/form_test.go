package form

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhealth/core"
)

type supplier struct {
	Name     string    `json:"name" validate:"required,notblank"`
	Phone    string    `json:"phone" validate:"required"`
	Rating   int       `json:"rating"`
	Active   bool      `json:"active"`
	Tags     []string  `json:"tags,omitempty"`
	LogoURL  string    `json:"logo_url,omitempty"`
	Contract time.Time `json:"contract_date"`
}

type uploadCall struct {
	path  string
	field string
	name  string
	body  string
}

// fakeClient only implements uploads, answering with a URL built from the file name.
type fakeClient struct {
	mu      sync.Mutex
	uploads []uploadCall
	err     error
}

func (c *fakeClient) Upload(_ context.Context, path string, files []core.Upload, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range files {
		b, _ := io.ReadAll(f.Content)
		c.uploads = append(c.uploads, uploadCall{path: path, field: f.Field, name: f.Filename, body: string(b)})
	}
	if c.err != nil {
		return c.err
	}
	out.(*core.UploadResult).URL = "https://cdn.test/" + files[0].Filename
	return nil
}

func (c *fakeClient) Get(context.Context, string, url.Values, interface{}) error     { return nil }
func (c *fakeClient) Post(context.Context, string, interface{}, interface{}) error   { return nil }
func (c *fakeClient) Put(context.Context, string, interface{}, interface{}) error    { return nil }
func (c *fakeClient) Patch(context.Context, string, interface{}, interface{}) error  { return nil }
func (c *fakeClient) Delete(context.Context, string, interface{}, interface{}) error { return nil }
func (c *fakeClient) Download(context.Context, string, url.Values, io.Writer) error  { return nil }

type recorder struct {
	notes []core.Notification
}

func (r *recorder) Notify(_ context.Context, level core.NotificationLevel, msg string) {
	r.notes = append(r.notes, core.Notification{Level: level, Message: msg})
}

type submitter struct {
	sent []supplier
	err  error
}

func (s *submitter) submit(_ context.Context, draft supplier) error {
	s.sent = append(s.sent, draft)
	return s.err
}

func newForm(client core.RESTClient, sub *submitter, notes core.Notifier, reset bool, checks ...Check[supplier]) *Form[supplier] {
	translator := core.NewTranslator()
	return New(supplier{Rating: 3}, sub.submit, Config{
		Validate:       core.NewValidator(translator),
		Translator:     translator,
		Client:         client,
		Notifier:       notes,
		SuccessMessage: "Supplier created.",
		Redirect:       "/suppliers",
		ResetOnSuccess: reset,
	}, checks...)
}

func TestForm_Set(t *testing.T) {
	f := newForm(nil, new(submitter), nil, false)

	tests := []struct {
		name    string
		key     string
		value   interface{}
		wantErr error
		check   func(t *testing.T, d supplier)
	}{
		{name: "string", key: "name", value: "Pharma Co", check: func(t *testing.T, d supplier) { assert.Equal(t, "Pharma Co", d.Name) }},
		{name: "int from input text", key: "rating", value: "5", check: func(t *testing.T, d supplier) { assert.Equal(t, 5, d.Rating) }},
		{name: "bool from checkbox", key: "active", value: "true", check: func(t *testing.T, d supplier) { assert.True(t, d.Active) }},
		{name: "list from csv", key: "tags", value: "a,b", check: func(t *testing.T, d supplier) { assert.Equal(t, []string{"a", "b"}, d.Tags) }},
		{
			name: "date input", key: "contract_date", value: "2024-05-01",
			check: func(t *testing.T, d supplier) { assert.Equal(t, "2024-05-01", d.Contract.Format("2006-01-02")) },
		},
		{name: "bad date", key: "contract_date", value: "01/05/2024", wantErr: errors.New(`decoding form value`)},
		{name: "unknown key", key: "lol", value: "x", wantErr: ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.Set(tt.key, tt.value)
			if tt.wantErr != nil {
				require.Error(t, err)
				if errors.Is(tt.wantErr, ErrUnknownField) {
					assert.ErrorIs(t, err, ErrUnknownField)
				} else {
					assert.Contains(t, err.Error(), tt.wantErr.Error())
				}
				return
			}
			require.NoError(t, err)
			tt.check(t, f.Draft())
		})
	}

	// earlier keys are kept when merging another one
	d := f.Draft()
	assert.Equal(t, "Pharma Co", d.Name)
	assert.Equal(t, 5, d.Rating)
}

func TestForm_requiredFieldsGate(t *testing.T) {
	tests := []struct {
		name       string
		values     map[string]interface{}
		wantFields []string
	}{
		{name: "all empty", values: map[string]interface{}{}, wantFields: []string{"name", "phone"}},
		{name: "blank name", values: map[string]interface{}{"name": "   ", "phone": "0901"}, wantFields: []string{"name"}},
		{name: "missing phone", values: map[string]interface{}{"name": "Pharma Co"}, wantFields: []string{"phone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, sub, notes := new(fakeClient), new(submitter), new(recorder)
			f := newForm(client, sub, notes, false)
			require.NoError(t, f.SetAll(tt.values))
			_, err := f.Attach("logo_url", "", "logo.png", strings.NewReader("png"))
			require.NoError(t, err)

			redirect, err := f.Submit(context.Background())
			require.Error(t, err)
			assert.Empty(t, redirect)

			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr))
			fields := make([]string, 0, len(verr.Fields))
			for _, fe := range verr.Fields {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
			assert.NotEmpty(t, f.Err())
			assert.Equal(t, verr.Fields, f.FieldErrors())

			assert.Empty(t, client.uploads, "no upload expected")
			assert.Empty(t, sub.sent, "no submit expected")
			assert.Empty(t, notes.notes)
		})
	}
}

func TestForm_Submit(t *testing.T) {
	client, sub, notes := new(fakeClient), new(submitter), new(recorder)
	f := newForm(client, sub, notes, false)
	require.NoError(t, f.SetAll(map[string]interface{}{"name": "Pharma Co", "phone": "0901234567"}))

	preview, err := f.Attach("logo_url", "", "logo.png", strings.NewReader("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(preview, "data:image/png;base64,"))
	assert.Equal(t, map[string]string{"logo_url": preview}, f.Previews())

	redirect, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/suppliers", redirect)

	require.Len(t, client.uploads, 1)
	assert.Equal(t, uploadCall{path: DefaultUploadPath, name: "logo.png", body: "\x89PNG\r\n\x1a\n"}, client.uploads[0])

	require.Len(t, sub.sent, 1)
	assert.Equal(t, supplier{Name: "Pharma Co", Phone: "0901234567", Rating: 3, LogoURL: "https://cdn.test/logo.png"}, sub.sent[0])
	assert.Equal(t, []core.Notification{{Level: core.LevelSuccess, Message: "Supplier created."}}, notes.notes)

	// without reset the submitted draft stays, attachments are dropped
	assert.Equal(t, sub.sent[0], f.Draft())
	assert.Empty(t, f.Previews())
	assert.Empty(t, f.Err())
}

func TestForm_SubmitReset(t *testing.T) {
	client, sub := new(fakeClient), new(submitter)
	f := newForm(client, sub, nil, true)
	require.NoError(t, f.SetAll(map[string]interface{}{"name": "Pharma Co", "phone": "0901234567", "rating": 1}))
	_, err := f.AttachTo("/profile-img", "logo_url", "file", "logo.png", strings.NewReader("png"))
	require.NoError(t, err)

	_, err = f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/profile-img", client.uploads[0].path)
	assert.Equal(t, "file", client.uploads[0].field)
	assert.Equal(t, supplier{Rating: 3}, f.Draft())
	assert.Empty(t, f.Previews())
}

func TestForm_SubmitFailure(t *testing.T) {
	tests := []struct {
		name       string
		uploadErr  error
		submitErr  error
		wantMsg    string
		wantSubmit int
	}{
		{
			name: "upload rejected", uploadErr: &core.APIError{Status: 413, Message: "File too large"},
			wantMsg: "File too large",
		},
		{
			name: "create rejected", submitErr: &core.APIError{Status: 400, Message: "Supplier already exists"},
			wantMsg: "Supplier already exists", wantSubmit: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, sub, notes := &fakeClient{err: tt.uploadErr}, &submitter{err: tt.submitErr}, new(recorder)
			f := newForm(client, sub, notes, true)
			values := map[string]interface{}{"name": "Pharma Co", "phone": "0901234567"}
			require.NoError(t, f.SetAll(values))
			_, err := f.Attach("logo_url", "", "logo.png", strings.NewReader("png"))
			require.NoError(t, err)
			before := f.Draft()

			redirect, err := f.Submit(context.Background())
			require.Error(t, err)
			assert.Empty(t, redirect)
			assert.Len(t, sub.sent, tt.wantSubmit)

			assert.Equal(t, tt.wantMsg, f.Err())
			assert.Equal(t, []core.Notification{{Level: core.LevelError, Message: tt.wantMsg}}, notes.notes)
			// the draft and its attachment survive for a retry
			assert.Equal(t, before, f.Draft())
			assert.Len(t, f.Previews(), 1)
		})
	}
}

func TestForm_checks(t *testing.T) {
	errDuplicate := core.NewValidationError(nil, core.FieldError{Field: "phone", Error: "phone already used"})
	sub := new(submitter)
	f := newForm(new(fakeClient), sub, nil, false, func(d supplier) error {
		if d.Phone == "0900000000" {
			return errDuplicate
		}
		return nil
	})
	require.NoError(t, f.SetAll(map[string]interface{}{"name": "Pharma Co", "phone": "0900000000"}))

	_, err := f.Submit(context.Background())
	assert.Equal(t, errDuplicate, err)
	assert.Equal(t, "phone: phone already used", f.Err())
	assert.Equal(t, []core.FieldError{{Field: "phone", Error: "phone already used"}}, f.FieldErrors())
	assert.Empty(t, sub.sent)

	require.NoError(t, f.Set("phone", "0901111111"))
	_, err = f.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, sub.sent, 1)
}

func TestForm_concurrentSubmit(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int
	f := New(supplier{Name: "Pharma Co", Phone: "0901"}, func(context.Context, supplier) error {
		calls++
		close(started)
		<-release
		return nil
	}, Config{})

	done := make(chan error)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-started

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitting)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, calls)
}

func TestForm_Reset(t *testing.T) {
	f := newForm(nil, new(submitter), nil, false)
	require.NoError(t, f.Set("name", "Pharma Co"))
	_, err := f.Attach("logo_url", "", "logo.png", strings.NewReader("png"))
	require.NoError(t, err)
	f.Detach("logo_url")
	assert.Empty(t, f.Previews())

	_, err = f.Attach("logo_url", "", "logo.png", strings.NewReader("png"))
	require.NoError(t, err)
	f.Reset()
	assert.Equal(t, supplier{Rating: 3}, f.Draft())
	assert.Empty(t, f.Previews())
}
