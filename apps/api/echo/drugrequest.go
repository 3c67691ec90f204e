package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/drugrequest"
	"github.com/trezcool/schoolhealth/core/form"
	"github.com/trezcool/schoolhealth/core/status"
	"github.com/trezcool/schoolhealth/core/user"
)

type drugRequestApi struct {
	s       *server
	svc     *drugrequest.Service
	userSvc *user.Service
}

func registerDrugRequestAPI(g *echo.Group, s *server) {
	api := drugRequestApi{s: s, svc: s.opts.DrugRequestSvc, userSvc: s.opts.UserSvc}
	staff := roleMiddleware(user.RoleNurse, user.RoleAdmin)

	dg := g.Group("/drug-requests")
	dg.GET("", api.query)
	dg.GET("/export", api.export)
	dg.POST("", api.create, roleMiddleware(user.RoleParent))
	dg.GET("/:id", api.retrieve)
	dg.PATCH("/:id/:verb", api.transition, staff)

	sg := g.Group("/medication-schedules")
	sg.GET("", api.querySchedules)
	sg.PATCH("/:id/:verb", api.transitionSchedule, staff)
}

func (api *drugRequestApi) query(ctx echo.Context) error {
	return listPage(ctx, api.s.pageSize(), drugrequest.Sorts, api.svc.List)
}

func (api *drugRequestApi) export(ctx echo.Context) error {
	return exportCSV(ctx, "drug-requests", drugrequest.Columns, drugrequest.Sorts, api.svc.List)
}

func (api *drugRequestApi) retrieve(ctx echo.Context) error {
	req, err := api.svc.Get(ctx.Request().Context(), core.ID(ctx.Param("id")))
	if err != nil {
		return errors.Wrap(err, "getting drug request")
	}
	return respond(ctx, http.StatusOK, Response{Data: req})
}

// create sends a drug request for the parent's selected child, unless the body names
// another student.
func (api *drugRequestApi) create(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	var initial drugrequest.NewDrugRequest
	if child, err := api.userSvc.SelectedChild(rctx); err == nil {
		initial.StudentID = child.ID
	} else if !errors.Is(err, user.ErrNoChild) {
		return errors.Wrap(err, "getting selected child")
	}

	var created drugrequest.DrugRequest
	f := form.New(initial, func(c context.Context, nr drugrequest.NewDrugRequest) (err error) {
		created, err = api.svc.Create(c, nr)
		return err
	}, api.s.formConfig("Drug request sent.", "/drug-requests"))
	return submitForm(ctx, http.StatusCreated, f, nil, &created)
}

// TransitionRequest optionally carries the status the caller currently sees, which lets
// illegal transitions be refused without calling the REST API.
type TransitionRequest struct {
	Status string `json:"status"`
}

func (api *drugRequestApi) transition(ctx echo.Context) error {
	var data TransitionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransitionRequest")
	}
	id := core.ID(ctx.Param("id"))
	return api.s.once(ctx, func() (int, Response, error) {
		target := &status.Detached{Status: data.Status}
		to, err := api.svc.Transition(ctx.Request().Context(), target, id, ctx.Param("verb"), nil)
		if err != nil {
			return 0, Response{}, err
		}
		return http.StatusOK, Response{Data: echo.Map{"id": id, "status": to}}, nil
	})
}

func (api *drugRequestApi) querySchedules(ctx echo.Context) error {
	requestID := core.ID(ctx.QueryParam("request_id"))
	fetch := func(c context.Context) ([]drugrequest.MedicationSchedule, error) {
		return api.svc.Schedules(c, requestID)
	}
	return listPage(ctx, api.s.pageSize(), drugrequest.ScheduleSorts, fetch)
}

func (api *drugRequestApi) transitionSchedule(ctx echo.Context) error {
	var data TransitionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransitionRequest")
	}
	id := core.ID(ctx.Param("id"))
	return api.s.once(ctx, func() (int, Response, error) {
		target := &status.Detached{Status: data.Status}
		var (
			to  string
			err error
		)
		switch verb := ctx.Param("verb"); verb {
		case drugrequest.VerbTick:
			to, err = api.svc.Tick(ctx.Request().Context(), target, id)
		case drugrequest.VerbUntick:
			to, err = api.svc.Untick(ctx.Request().Context(), target, id)
		default:
			err = errors.Wrap(status.ErrUnknownVerb, verb)
		}
		if err != nil {
			return 0, Response{}, err
		}
		return http.StatusOK, Response{Data: echo.Map{"id": id, "status": to}}, nil
	})
}
