package echoapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/export"
	"github.com/trezcool/schoolhealth/core/form"
	"github.com/trezcool/schoolhealth/core/listing"
	"github.com/trezcool/schoolhealth/services/notify"
)

// Response is the body of every successful /v1 response. The browser shows the
// notifications as toasts.
type Response struct {
	Data          interface{}         `json:"data"`
	Page          *listing.PageInfo   `json:"page,omitempty"`
	Redirect      string              `json:"redirect,omitempty"`
	Notifications []core.Notification `json:"notifications"`
}

func respond(ctx echo.Context, code int, res Response) error {
	res.Notifications = contextNotifications(ctx)
	return ctx.JSON(code, res)
}

func contextCollector(ctx echo.Context) *notify.Collector {
	if c, ok := ctx.Get(contextCollectorKey).(*notify.Collector); ok {
		return c
	}
	return notify.NewCollector()
}

func contextNotifications(ctx echo.Context) []core.Notification {
	return contextCollector(ctx).Notifications()
}

// loadList fetches a list page's records and narrows them to the request's query.
func loadList[T listing.Record[T]](
	ctx echo.Context,
	pageSize int,
	sorts map[string]listing.Comparator[T],
	fetchers ...listing.Fetcher[T],
) (*listing.Controller[T], error) {
	ctl := listing.NewController[T](pageSize)
	for key, cmp := range sorts {
		ctl.RegisterSort(key, cmp)
	}
	if err := ctl.Load(ctx.Request().Context(), fetchers...); err != nil {
		return nil, err
	}

	var q ListQuery
	q.Bind(ctx)
	if err := q.Apply(ctl); err != nil {
		return nil, err
	}
	return ctl, nil
}

// listPage responds with the requested page of the records.
func listPage[T listing.Record[T]](
	ctx echo.Context,
	pageSize int,
	sorts map[string]listing.Comparator[T],
	fetchers ...listing.Fetcher[T],
) error {
	ctl, err := loadList(ctx, pageSize, sorts, fetchers...)
	if err != nil {
		return err
	}
	defer ctl.Close()
	records, info := ctl.Page()
	return respond(ctx, http.StatusOK, Response{Data: records, Page: &info})
}

// exportCSV responds with all the filtered records as a CSV attachment.
func exportCSV[T listing.Record[T]](
	ctx echo.Context,
	prefix string,
	columns []export.Column[T],
	sorts map[string]listing.Comparator[T],
	fetchers ...listing.Fetcher[T],
) error {
	ctl, err := loadList(ctx, 0 /* no pagination */, sorts, fetchers...)
	if err != nil {
		return err
	}
	defer ctl.Close()

	buf := new(bytes.Buffer)
	if err := export.WriteCSV(buf, columns, ctl.Filtered(), export.Options{BOM: true}); err != nil {
		return errors.Wrap(err, "exporting csv")
	}
	return attachment(ctx, export.Filename(prefix, time.Now()), "text/csv; charset=utf-8", buf)
}

func attachment(ctx echo.Context, filename, contentType string, r io.Reader) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Stream(http.StatusOK, contentType, r)
}

// bindForm merges the request body into f. The body is either a JSON object or a
// multipart form, whose files are attached to the draft keys named after them and
// uploaded to uploadPaths[key].
func bindForm[T any](ctx echo.Context, f *form.Form[T], uploadPaths map[string]string) error {
	req := ctx.Request()
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		var values map[string]interface{}
		if err := json.NewDecoder(req.Body).Decode(&values); err != nil && err != io.EOF {
			return core.NewValidationError(errors.New("invalid JSON body"))
		}
		return f.SetAll(values)
	}

	mf, err := ctx.MultipartForm()
	if err != nil {
		return core.NewValidationError(errors.Wrap(err, "invalid multipart form"))
	}
	values := make(map[string]interface{}, len(mf.Value))
	for key, vals := range mf.Value {
		if len(vals) == 1 {
			values[key] = vals[0]
		} else {
			values[key] = vals
		}
	}
	if err := f.SetAll(values); err != nil {
		return err
	}
	for key, headers := range mf.File {
		uploadPath, ok := uploadPaths[key]
		if !ok || len(headers) == 0 {
			return errors.Wrap(form.ErrUnknownField, key)
		}
		file, err := headers[0].Open()
		if err != nil {
			return errors.Wrapf(err, "opening %s", headers[0].Filename)
		}
		_, err = f.AttachTo(uploadPath, key, "", headers[0].Filename, file)
		_ = file.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// submitForm binds the request into f, submits it and responds with the created or
// updated record.
func submitForm[T any, R any](ctx echo.Context, code int, f *form.Form[T], uploadPaths map[string]string, result *R) error {
	if err := bindForm(ctx, f, uploadPaths); err != nil {
		return err
	}
	redirect, err := f.Submit(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, code, Response{Data: *result, Redirect: redirect})
}

type outcome struct {
	code      int
	res       Response
	err       error
	collector *notify.Collector
}

// once runs a mutation, sharing its outcome with the identical requests the same user
// sends while it is in flight (eg. a double click).
func (s *server) once(ctx echo.Context, fn func() (int, Response, error)) error {
	key := ctx.Request().Method + " " + ctx.Request().URL.Path
	if claims, err := getContextClaims(ctx); err == nil {
		key = claims.User().ID.String() + " " + key
	}
	own := contextCollector(ctx)

	v, _, _ := s.flights.Do(key, func() (interface{}, error) {
		code, res, err := fn()
		return &outcome{code: code, res: res, err: err, collector: own}, nil
	})
	out := v.(*outcome)
	if out.collector != own {
		for _, n := range out.collector.Notifications() {
			own.Notify(ctx.Request().Context(), n.Level, n.Message)
		}
	}
	if out.err != nil {
		return out.err
	}
	return respond(ctx, out.code, out.res)
}
