package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/observo/core/lookup"
)

type lookupApi struct {
	provider *lookup.Provider
}

func registerLookupAPI(g *echo.Group, jwt echo.MiddlewareFunc, provider *lookup.Provider) {
	api := lookupApi{provider: provider}
	g.GET("/lookups/:kind", api.query, jwt)
}

func (api *lookupApi) query(ctx echo.Context) error {
	kind, err := lookup.ParseKind(ctx.Param("kind"))
	if err != nil {
		return err
	}
	var q lookup.Query
	if err = ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to lookup.Query")
	}
	return ctx.JSON(http.StatusOK, api.provider.Options(ctx.Request().Context(), kind, q))
}
