package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/form"
	"github.com/trezcool/schoolhealth/core/status"
	"github.com/trezcool/schoolhealth/core/user"
	"github.com/trezcool/schoolhealth/core/vaccination"
)

type vaccinationApi struct {
	s   *server
	svc *vaccination.Service
}

func registerVaccinationAPI(g *echo.Group, s *server) {
	api := vaccinationApi{s: s, svc: s.opts.VaccinationSvc}
	staff := roleMiddleware(user.RoleNurse, user.RoleAdmin)

	g.GET("/vaccines", api.queryVaccines)

	cg := g.Group("/campaigns/:kind", kindMiddleware)
	cg.GET("", api.queryCampaigns)
	cg.POST("", api.createCampaign, staff)
	cg.PATCH("/:id/:verb", api.transition, staff)
}

// kindMiddleware answers 404 for unknown campaign kinds.
func kindMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !vaccination.IsKind(ctx.Param("kind")) {
			return errHttpNotFound
		}
		return next(ctx)
	}
}

func (api *vaccinationApi) queryVaccines(ctx echo.Context) error {
	return listPage(ctx, api.s.pageSize(), vaccination.VaccineSorts, api.svc.Vaccines)
}

func (api *vaccinationApi) queryCampaigns(ctx echo.Context) error {
	kind := ctx.Param("kind")
	fetch := func(c context.Context) ([]vaccination.Campaign, error) {
		return api.svc.Campaigns(c, kind)
	}
	return listPage(ctx, api.s.pageSize(), vaccination.CampaignSorts, fetch)
}

func (api *vaccinationApi) createCampaign(ctx echo.Context) error {
	kind := ctx.Param("kind")
	var created vaccination.Campaign
	f := form.New(vaccination.NewCampaign{}, func(c context.Context, nc vaccination.NewCampaign) (err error) {
		created, err = api.svc.CreateCampaign(c, kind, nc)
		return err
	}, api.s.formConfig("Campaign created successfully.", "/campaigns/"+kind),
		vaccination.CampaignChecks(kind)...)
	return submitForm(ctx, http.StatusCreated, f, nil, &created)
}

func (api *vaccinationApi) transition(ctx echo.Context) error {
	var data TransitionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TransitionRequest")
	}
	id := core.ID(ctx.Param("id"))
	return api.s.once(ctx, func() (int, Response, error) {
		target := &status.Detached{Status: data.Status}
		to, err := api.svc.Transition(ctx.Request().Context(), ctx.Param("kind"), target, id, ctx.Param("verb"))
		if err != nil {
			return 0, Response{}, err
		}
		return http.StatusOK, Response{Data: echo.Map{"id": id, "status": to}}, nil
	})
}
