package echoapi

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/form"
	"github.com/trezcool/schoolhealth/core/listing"
	"github.com/trezcool/schoolhealth/core/user"
)

type userApi struct {
	s   *server
	svc *user.Service
}

func registerUserAPI(g *echo.Group, s *server) {
	api := userApi{s: s, svc: s.opts.UserSvc}

	ug := g.Group("/users", roleMiddleware(user.RoleAdmin))
	ug.GET("", api.query)
	ug.GET("/export", api.export)
	ug.GET("/roles", api.queryRoles)
	ug.POST("", api.create)
	ug.POST("/invite", api.invite)
	ug.GET("/:role/:id", api.retrieve)
	ug.DELETE("/:role", api.destroyMultiple)

	sg := g.Group("/students", roleMiddleware(user.RoleAdmin, user.RoleNurse))
	sg.GET("/export", api.exportStudents)
	sg.POST("/import", api.importStudents)

	cg := g.Group("/children", roleMiddleware(user.RoleParent))
	cg.GET("", api.children)
	cg.GET("/selected", api.selectedChild)
	cg.PUT("/selected", api.selectChild)
	cg.DELETE("/selected", api.clearSelectedChild)
}

// fetchers returns the fetchers of the roles in the `role` query params, all roles by default.
func (api *userApi) fetchers(ctx echo.Context) ([]listing.Fetcher[user.User], error) {
	roles := ctx.QueryParams()["role"]
	for _, role := range roles {
		if !user.IsRole(role) {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "unknown role " + role})
		}
	}
	return api.svc.Fetchers(roles...), nil
}

func (api *userApi) query(ctx echo.Context) error {
	fetchers, err := api.fetchers(ctx)
	if err != nil {
		return err
	}
	return listPage(ctx, api.s.pageSize(), user.Sorts, fetchers...)
}

func (api *userApi) export(ctx echo.Context) error {
	fetchers, err := api.fetchers(ctx)
	if err != nil {
		return err
	}
	return exportCSV(ctx, "users", user.Columns, user.Sorts, fetchers...)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, Response{Data: user.Roles})
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.svc.Get(ctx.Request().Context(), ctx.Param("role"), core.ID(ctx.Param("id")))
	if err != nil {
		return errors.Wrap(err, "getting user")
	}
	return respond(ctx, http.StatusOK, Response{Data: usr})
}

// create registers a user. The avatar, sent as the `avatar_url` file, is uploaded first.
func (api *userApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var created user.User
	f := form.New(user.NewUser{}, func(c context.Context, nu user.NewUser) (err error) {
		created, err = api.svc.Create(c, nu)
		return err
	}, api.s.formConfig("User created successfully.", "/users"), func(nu user.NewUser) error {
		// ctxUser cannot set a role > their own
		if user.RolePriority(nu.Role) > user.RolePriority(claims.Role) {
			return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errNoPermsToSetRole})
		}
		return nil
	})
	return submitForm(ctx, http.StatusCreated, f, map[string]string{"avatar_url": user.AvatarUploadPath}, &created)
}

var errNoPermsToSetRole = "not enough rights to set this role"

// destroyMultiple deletes the users of one role given as `id` query params.
func (api *userApi) destroyMultiple(ctx echo.Context) error {
	ids := bindIDs(ctx)
	if len(ids) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	// Say No to Suicide! ctxUser cannot delete themselves
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	role := ctx.Param("role")
	if role == claims.Role {
		for _, id := range ids {
			if id == claims.User().ID {
				return errHttpForbidden
			}
		}
	}
	return api.s.once(ctx, func() (int, Response, error) {
		rctx := ctx.Request().Context()
		deleted, err := api.svc.Delete(rctx, role, ids...)
		if err != nil {
			api.s.opts.Notifier.Notify(rctx, core.LevelError, core.MessageOf(err))
			return 0, Response{}, err
		}
		api.s.opts.Notifier.Notify(rctx, core.LevelSuccess, "Users deleted successfully.")
		return http.StatusOK, Response{Data: deleted}, nil
	})
}

// invite emails an invitation to the users selected with `id` query params.
// Ids are role-qualified ("admin:30") unless a single `role` param scopes them.
func (api *userApi) invite(ctx echo.Context) error {
	fetchers, err := api.fetchers(ctx)
	if err != nil {
		return err
	}
	ids, err := userKeys(ctx)
	if err != nil {
		return err
	}

	ctl := listing.NewController[user.User](0)
	defer ctl.Close()
	rctx := ctx.Request().Context()
	if err := ctl.Load(rctx, fetchers...); err != nil {
		return err
	}
	for _, id := range ids {
		if !ctl.IsSelected(id) {
			ctl.ToggleSelected(id)
		}
	}
	users := ctl.SelectedRecords()
	if err := api.svc.Invite(users...); err != nil {
		return err
	}
	api.s.opts.Notifier.Notify(rctx, core.LevelSuccess, "Invitations sent.")
	return respond(ctx, http.StatusOK, Response{Data: ctl.Selected()})
}

// userKeys reads the `id` query params as user list keys.
func userKeys(ctx echo.Context) ([]core.ID, error) {
	roles := ctx.QueryParams()["role"]
	ids := bindIDs(ctx)
	keys := make([]core.ID, 0, len(ids))
	for _, id := range ids {
		if _, _, ok := user.SplitKey(id); ok {
			keys = append(keys, id)
			continue
		}
		if len(roles) != 1 {
			return nil, core.NewValidationError(nil, core.FieldError{Field: idParam, Error: "ambiguous id " + id.String() + ", use role:id"})
		}
		keys = append(keys, user.KeyOf(roles[0], id))
	}
	return keys, nil
}

func (api *userApi) exportStudents(ctx echo.Context) error {
	buf := new(bytes.Buffer)
	if err := api.svc.ExportStudents(ctx.Request().Context(), buf); err != nil {
		return err
	}
	filename := "students-" + time.Now().Format("20060102") + ".xlsx"
	return attachment(ctx, filename, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf)
}

func (api *userApi) importStudents(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "an XLSX file is required"})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrapf(err, "opening %s", fh.Filename)
	}
	defer file.Close()

	rctx := ctx.Request().Context()
	res, err := api.svc.ImportStudents(rctx, fh.Filename, file)
	if err != nil {
		api.s.opts.Notifier.Notify(rctx, core.LevelError, core.MessageOf(err))
		return err
	}
	api.s.opts.Notifier.Notify(rctx, core.LevelSuccess, "Students imported successfully.")
	return respond(ctx, http.StatusOK, Response{Data: res})
}

func (api *userApi) children(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	children, err := api.svc.Children(ctx.Request().Context(), claims.User().ID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, Response{Data: children})
}

func (api *userApi) selectedChild(ctx echo.Context) error {
	child, err := api.svc.SelectedChild(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, Response{Data: child})
}

type SelectChildRequest struct {
	ID core.ID `json:"id" validate:"required"`
}

func (api *userApi) selectChild(ctx echo.Context) error {
	var data SelectChildRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SelectChildRequest")
	}
	if err := api.s.opts.Validate.Struct(data); err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	child, err := api.svc.SelectChildOf(ctx.Request().Context(), claims.User().ID, data.ID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, Response{Data: child})
}

func (api *userApi) clearSelectedChild(ctx echo.Context) error {
	if err := api.svc.ClearSelectedChild(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "clearing selected child")
	}
	return ctx.NoContent(http.StatusNoContent)
}
