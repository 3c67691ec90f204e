// Package form implements the create/update forms of the dashboard: a flat typed draft
// edited one key at a time, validated synchronously, then submitted after its file
// attachments are uploaded.
package form

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"reflect"
	"sort"
	"sync"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
)

// DefaultUploadPath is the endpoint attachments are uploaded to.
const DefaultUploadPath = "/upload-image"

var (
	ErrUnknownField = errors.New("unknown form field")
	ErrSubmitting   = errors.New("form is already being submitted")
)

// SubmitFunc sends the create/update request for a validated draft.
type SubmitFunc[T any] func(ctx context.Context, draft T) error

// Check is a hand-written validation rule run after the struct tags.
// A *core.ValidationError return value keeps its field errors.
type Check[T any] func(draft T) error

// Config is what a form needs besides its draft.
type Config struct {
	Validate   *validator.Validate
	Translator ut.Translator
	Client     core.RESTClient // uploads
	Notifier   core.Notifier

	UploadPath     string
	SuccessMessage string
	Redirect       string
	ResetOnSuccess bool
}

// Attachment is a file picked for a draft key, uploaded on submit.
type Attachment struct {
	Key         string // draft key receiving the uploaded URL
	Field       string // multipart field name
	Path        string // upload endpoint, Config.UploadPath when empty
	Filename    string
	ContentType string
	Data        []byte
}

// Preview returns the attachment as a base64 data URI.
func (a Attachment) Preview() string {
	return "data:" + a.ContentType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Form holds a draft of T. It is safe for concurrent use.
type Form[T any] struct {
	mu          sync.Mutex
	conf        Config
	submit      SubmitFunc[T]
	checks      []Check[T]
	initial     T
	draft       T
	attachments map[string]Attachment
	err         string
	fieldErrs   []core.FieldError
	submitting  bool
}

func New[T any](initial T, submit SubmitFunc[T], conf Config, checks ...Check[T]) *Form[T] {
	if conf.UploadPath == "" {
		conf.UploadPath = DefaultUploadPath
	}
	return &Form[T]{
		conf:        conf,
		submit:      submit,
		checks:      checks,
		initial:     initial,
		draft:       initial,
		attachments: make(map[string]Attachment),
	}
}

// Draft returns a copy of the current draft.
func (f *Form[T]) Draft() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Set merges a single key (the field's JSON name) into the draft.
// Values are converted like HTML input values: "3" sets an int, "true" a bool.
func (f *Form[T]) Set(key string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return decode(map[string]interface{}{key: value}, &f.draft)
}

// SetAll merges several keys at once, eg. a decoded JSON body.
func (f *Form[T]) SetAll(values map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return decode(values, &f.draft)
}

// Attach reads a file for key and returns its preview. The file is uploaded on submit.
func (f *Form[T]) Attach(key, field, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "reading attachment")
	}
	att := Attachment{
		Key:         key,
		Field:       field,
		Filename:    filename,
		ContentType: http.DetectContentType(data),
		Data:        data,
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachments[key] = att
	return att.Preview(), nil
}

// AttachTo is Attach with a specific upload endpoint.
func (f *Form[T]) AttachTo(uploadPath, key, field, filename string, r io.Reader) (string, error) {
	preview, err := f.Attach(key, field, filename, r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	att := f.attachments[key]
	att.Path = uploadPath
	f.attachments[key] = att
	return preview, nil
}

func (f *Form[T]) Detach(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.attachments, key)
}

// Previews returns the data URI of every attachment, by draft key.
func (f *Form[T]) Previews() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	previews := make(map[string]string, len(f.attachments))
	for key, att := range f.attachments {
		previews[key] = att.Preview()
	}
	return previews
}

// Err returns the message of the last failed submit.
func (f *Form[T]) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// FieldErrors returns the per-field errors of the last failed validation.
func (f *Form[T]) FieldErrors() []core.FieldError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.FieldError(nil), f.fieldErrs...)
}

// Reset restores the initial draft and drops attachments and errors.
func (f *Form[T]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *Form[T]) reset() {
	f.draft = f.initial
	f.attachments = make(map[string]Attachment)
	f.err = ""
	f.fieldErrs = nil
}

// Submit validates the draft, uploads its attachments, merges their URLs into it and sends
// it with the form's SubmitFunc. On success it returns the redirect route.
// A validation failure makes no network call. Any failure keeps the draft as it was.
func (f *Form[T]) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return "", ErrSubmitting
	}
	f.submitting = true
	draft := f.draft
	attachments := make([]Attachment, 0, len(f.attachments))
	for _, att := range f.attachments {
		attachments = append(attachments, att)
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	if err := f.validate(draft); err != nil {
		f.invalid(err)
		return "", err
	}

	sort.Slice(attachments, func(i, j int) bool { return attachments[i].Key < attachments[j].Key })
	for _, att := range attachments {
		url, err := f.upload(ctx, att)
		if err != nil {
			return "", f.fail(ctx, err)
		}
		if err := decode(map[string]interface{}{att.Key: url}, &draft); err != nil {
			return "", f.fail(ctx, err)
		}
	}

	if err := f.submit(ctx, draft); err != nil {
		return "", f.fail(ctx, err)
	}

	f.mu.Lock()
	if f.conf.ResetOnSuccess {
		f.reset()
	} else {
		f.draft = draft
		f.attachments = make(map[string]Attachment)
		f.err, f.fieldErrs = "", nil
	}
	f.mu.Unlock()

	if f.conf.Notifier != nil && f.conf.SuccessMessage != "" {
		f.conf.Notifier.Notify(ctx, core.LevelSuccess, f.conf.SuccessMessage)
	}
	return f.conf.Redirect, nil
}

func (f *Form[T]) validate(draft T) error {
	if f.conf.Validate != nil && isStruct(draft) {
		if err := f.conf.Validate.Struct(draft); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				return core.NewValidationError(nil, core.TranslateValidationErrors(verrs, f.conf.Translator)...)
			}
			return err
		}
	}
	for _, check := range f.checks {
		if err := check(draft); err != nil {
			return err
		}
	}
	return nil
}

func (f *Form[T]) invalid(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = core.MessageOf(err)
	f.fieldErrs = nil
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		f.fieldErrs = verr.Fields
	}
}

func (f *Form[T]) fail(ctx context.Context, err error) error {
	msg := core.MessageOf(err)
	f.mu.Lock()
	f.err = msg
	f.fieldErrs = nil
	f.mu.Unlock()
	if f.conf.Notifier != nil {
		f.conf.Notifier.Notify(ctx, core.LevelError, msg)
	}
	return err
}

func (f *Form[T]) upload(ctx context.Context, att Attachment) (string, error) {
	if f.conf.Client == nil {
		return "", errors.New("form: no client to upload attachments")
	}
	uploadPath := att.Path
	if uploadPath == "" {
		uploadPath = f.conf.UploadPath
	}
	var res core.UploadResult
	err := f.conf.Client.Upload(ctx, uploadPath, []core.Upload{{
		Field:    att.Field,
		Filename: att.Filename,
		Content:  bytes.NewReader(att.Data),
	}}, &res)
	if err != nil {
		return "", errors.Wrapf(err, "uploading %s", att.Filename)
	}
	if res.URL == "" {
		return "", errors.Errorf("uploading %s: no url returned", att.Filename)
	}
	return res.URL, nil
}

func isStruct(v interface{}) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}

func decode(values map[string]interface{}, out interface{}) error {
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToTimeHook,
			mapstructure.StringToSliceHookFunc(","),
		),
		Metadata:         &md,
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(values); err != nil {
		return errors.Wrap(err, "decoding form value")
	}
	if len(md.Unused) > 0 {
		sort.Strings(md.Unused)
		return errors.Wrap(ErrUnknownField, md.Unused[0])
	}
	return nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// stringToTimeHook parses the values of date and datetime-local inputs.
func stringToTimeHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, errors.Errorf("invalid date %q", s)
}
