package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhealth/core"
	"github.com/trezcool/schoolhealth/core/blog"
	"github.com/trezcool/schoolhealth/core/form"
	"github.com/trezcool/schoolhealth/core/user"
)

type blogApi struct {
	s   *server
	svc *blog.Service
}

func registerBlogAPI(g *echo.Group, s *server) {
	api := blogApi{s: s, svc: s.opts.BlogSvc}
	staff := roleMiddleware(user.RoleNurse, user.RoleAdmin)

	bg := g.Group("/blogs")
	bg.GET("", api.query)
	bg.GET("/:id", api.retrieve)
	bg.PUT("/:id", api.update, staff)
	bg.DELETE("/:id", api.destroy, staff)
}

func (api *blogApi) query(ctx echo.Context) error {
	return listPage(ctx, api.s.pageSize(), blog.Sorts, api.svc.List)
}

func (api *blogApi) retrieve(ctx echo.Context) error {
	b, err := api.svc.Get(ctx.Request().Context(), core.ID(ctx.Param("id")))
	if err != nil {
		return errors.Wrap(err, "getting blog")
	}
	return respond(ctx, http.StatusOK, Response{Data: b})
}

// update edits a blog, prefilled with its current content. A new thumbnail is sent as
// the `image` file.
func (api *blogApi) update(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	id := core.ID(ctx.Param("id"))
	current, err := api.svc.Get(rctx, id)
	if err != nil {
		return errors.Wrap(err, "getting blog")
	}

	var updated blog.Blog
	f := form.New(current.Draft(), func(c context.Context, ub blog.UpdateBlog) (err error) {
		updated, err = api.svc.Update(c, id, ub)
		return err
	}, api.s.formConfig("Blog updated successfully.", "/blogs"))
	return submitForm(ctx, http.StatusOK, f, map[string]string{"image": form.DefaultUploadPath}, &updated)
}

func (api *blogApi) destroy(ctx echo.Context) error {
	id := core.ID(ctx.Param("id"))
	return api.s.once(ctx, func() (int, Response, error) {
		rctx := ctx.Request().Context()
		if err := api.svc.Delete(rctx, id); err != nil {
			api.s.opts.Notifier.Notify(rctx, core.LevelError, core.MessageOf(err))
			return 0, Response{}, err
		}
		api.s.opts.Notifier.Notify(rctx, core.LevelSuccess, "Blog deleted successfully.")
		return http.StatusOK, Response{Data: echo.Map{"id": id}}, nil
	})
}
