package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/flow"
	"github.com/trezcool/observo/core/lookup"
)

type flowApi struct {
	registry *flow.Registry
	lookups  *lookup.Provider
}

func registerFlowAPI(g *echo.Group, jwt echo.MiddlewareFunc, registry *flow.Registry, lookups *lookup.Provider) {
	api := flowApi{registry: registry, lookups: lookups}

	fg := g.Group("/flows", jwt)
	fg.GET("/kinds", api.kinds)
	fg.POST("", api.start)

	// detail endpoints
	dg := fg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.cancel)
	dg.PATCH("/draft", api.patch)
	dg.POST("/next", api.next)
	dg.POST("/back", api.back)
	dg.GET("/review", api.review)
	dg.POST("/submit", api.submit)
	dg.GET("/options/:kind", api.options)
}

// getFlow returns the flow in the path, when it is owned by the context actor.
func (api *flowApi) getFlow(ctx echo.Context) (flow.Instance, error) {
	actor, err := getContextActor(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context actor")
	}
	inst, err := api.registry.Get(ctx.Param("id"), actor)
	if err != nil {
		return nil, errors.Wrap(err, "getting flow")
	}
	return inst, nil
}

// Handlers

func (api *flowApi) kinds(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.registry.Kinds())
}

func (api *flowApi) start(ctx echo.Context) error {
	var data startRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to startRequest")
	}
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}

	inst, err := api.registry.Start(data.Kind, actor, flow.StartParams{
		District: core.CleanString(data.District),
		Network:  core.CleanString(data.Network),
	})
	if err != nil {
		return errors.Wrap(err, "starting flow")
	}
	return ctx.JSON(http.StatusCreated, inst.Snapshot())
}

func (api *flowApi) retrieve(ctx echo.Context) error {
	inst, err := api.getFlow(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inst.Snapshot())
}

func (api *flowApi) patch(ctx echo.Context) error {
	inst, err := api.getFlow(ctx)
	if err != nil {
		return err
	}
	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading draft patch")
	}
	if err = inst.Apply(raw); err != nil {
		return errors.Wrap(err, "patching draft")
	}
	return ctx.JSON(http.StatusOK, inst.Snapshot())
}

func (api *flowApi) next(ctx echo.Context) error {
	inst, err := api.getFlow(ctx)
	if err != nil {
		return err
	}
	var data stepRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to stepRequest")
	}

	advanced, _, err := inst.Next(data.Step)
	if err != nil {
		return errors.Wrap(err, "moving to next step")
	}
	return ctx.JSON(http.StatusOK, nextResponse{Advanced: advanced, Snapshot: inst.Snapshot()})
}

func (api *flowApi) back(ctx echo.Context) error {
	inst, err := api.getFlow(ctx)
	if err != nil {
		return err
	}
	var data stepRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to stepRequest")
	}

	if err = inst.Back(data.Step); err != nil {
		return errors.Wrap(err, "moving to previous step")
	}
	return ctx.JSON(http.StatusOK, inst.Snapshot())
}

func (api *flowApi) review(ctx echo.Context) error {
	inst, err := api.getFlow(ctx)
	if err != nil {
		return err
	}
	review, err := inst.Review()
	if err != nil {
		return errors.Wrap(err, "reviewing draft")
	}
	return ctx.JSON(http.StatusOK, review)
}

func (api *flowApi) submit(ctx echo.Context) error {
	inst, err := api.getFlow(ctx)
	if err != nil {
		return err
	}
	receipt, err := inst.Submit(ctx.Request().Context())
	if err != nil {
		return err // *flow.SubmitError carries the message for the user
	}
	api.registry.Forget(inst.ID())
	return ctx.JSON(http.StatusCreated, submitResponse{Receipt: receipt, Redirect: receipt.Redirect})
}

func (api *flowApi) cancel(ctx echo.Context) error {
	inst, err := api.getFlow(ctx)
	if err != nil {
		return err
	}
	redirect, err := inst.Cancel()
	if err != nil {
		return errors.Wrap(err, "cancelling flow")
	}
	api.registry.Forget(inst.ID())
	return ctx.JSON(http.StatusOK, redirectResponse{Redirect: redirect})
}

// options serves lookup options scoped by the draft, eg. the classrooms of the selected school.
// Served options are remembered by the flow, for the review step.
func (api *flowApi) options(ctx echo.Context) error {
	inst, err := api.getFlow(ctx)
	if err != nil {
		return err
	}
	kind, err := lookup.ParseKind(ctx.Param("kind"))
	if err != nil {
		return err
	}
	var q lookup.Query
	if err = ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to lookup.Query")
	}
	if q.Parent == "" {
		q.Parent = inst.LookupParent(kind)
	}
	if q.Parent == "" && lookup.RequiresParent(kind) {
		// nothing to pick from until the parent is selected
		return ctx.JSON(http.StatusOK, []lookup.Option{})
	}

	opts := api.lookups.Options(ctx.Request().Context(), kind, q)
	inst.Remember(kind, opts)
	return ctx.JSON(http.StatusOK, opts)
}
