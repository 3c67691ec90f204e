package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/disease"
	"github.com/trezcool/schoolhealth/core/user"
)

type diseaseApi struct {
	s   *server
	svc *disease.Service
}

func registerDiseaseAPI(g *echo.Group, s *server) {
	api := diseaseApi{s: s, svc: s.opts.DiseaseSvc}
	g.GET("/diseases", api.queryDiseases)
	g.GET("/disease-records", api.queryRecords, roleMiddleware(user.RoleNurse, user.RoleAdmin))
}

func (api *diseaseApi) queryDiseases(ctx echo.Context) error {
	diseases, err := api.svc.Diseases(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, Response{Data: diseases})
}

// queryRecords lists the infectious and chronic records, narrowed with the `kind` and
// `disease_id` query params.
func (api *diseaseApi) queryRecords(ctx echo.Context) error {
	kinds := ctx.QueryParams()["kind"]
	for _, kind := range kinds {
		if !disease.IsKind(kind) {
			return core.NewValidationError(nil, core.FieldError{Field: "kind", Error: "unknown record kind " + kind})
		}
	}
	diseaseID := core.ID(ctx.QueryParam("disease_id"))
	return listPage(ctx, api.s.pageSize(), disease.RecordSorts, api.svc.Fetchers(diseaseID, kinds...)...)
}
