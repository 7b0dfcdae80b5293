package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/observo/core/journal"
)

type submissionApi struct {
	repo journal.Repository
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, repo journal.Repository) {
	api := submissionApi{repo: repo}

	sg := g.Group("/submissions", jwt, adminMiddleware())
	sg.GET("", api.query)
	sg.GET("/:id", api.retrieve)
}

func (api *submissionApi) query(ctx echo.Context) error {
	var filter journal.Filter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to journal.Filter")
	}
	filter.Clean()
	var ord Ordering
	ord.Bind(ctx)

	subs, err := api.repo.Query(ctx.Request().Context(), filter, ord.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	sub, err := api.repo.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
