package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhealth/core"
)

const (
	searchParam   = "search"
	statusParam   = "status"
	pageParam     = "page"
	orderingParam = "ordering"
	idParam       = "id"
)

// ListQuery is the state of a list page, as sent by the browser.
type ListQuery struct {
	Search   string
	Status   string
	Page     int
	Ordering string
}

func (q *ListQuery) Bind(ctx echo.Context) {
	q.Search = strings.TrimSpace(ctx.QueryParam(searchParam))
	q.Status = strings.TrimSpace(ctx.QueryParam(statusParam))
	q.Ordering = strings.TrimSpace(ctx.QueryParam(orderingParam))
	q.Page = 1
	if p, err := strconv.Atoi(ctx.QueryParam(pageParam)); err == nil {
		q.Page = p
	}
	// only the first ordering field is honoured
	if i := strings.IndexByte(q.Ordering, ','); i >= 0 {
		q.Ordering = strings.TrimSpace(q.Ordering[:i])
	}
}

// Apply narrows ctl to the query.
func (q *ListQuery) Apply(ctl interface {
	SetSearch(string)
	SetStatus(string)
	SetOrdering(string) error
	SetPage(int)
}) error {
	ctl.SetSearch(q.Search)
	ctl.SetStatus(q.Status)
	if err := ctl.SetOrdering(q.Ordering); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: orderingParam, Error: err.Error()})
	}
	ctl.SetPage(q.Page)
	return nil
}

// bindIDs reads repeated `id` query params, as in `?id=1&id=2`.
func bindIDs(ctx echo.Context) []core.ID {
	raw := ctx.QueryParams()[idParam]
	ids := make([]core.ID, 0, len(raw))
	for _, id := range raw {
		for _, part := range strings.Split(id, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, core.ID(part))
			}
		}
	}
	return ids
}
