package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/crud"
	"github.com/trezcool/madrasa/core/view"
	metricsvc "github.com/trezcool/madrasa/services/metrics"
)

var errObjNotFoundInCtx = errors.New("object not found in echo.Context")

// panelApi serves the CRUD endpoints of one dashboard panel.
type panelApi[R crud.Record, P crud.Entity[R]] struct {
	store   *crud.Store[R, P]
	alt     view.Mode
	metrics *metricsvc.Recorder

	// sanitize restores the draft fields clients may not set. orig is zero on create.
	sanitize func(orig R, draft P)
	// remove overrides store.Remove, e.g. to release attached resources.
	remove func(ctx context.Context, id string) error
}

type categoriesResponse struct {
	All        string   `json:"all"`
	Categories []string `json:"categories"`
}

// registerPanelAPI mounts the panel under /<schema name> and returns its detail group (/:id).
func registerPanelAPI[R crud.Record, P crud.Entity[R]](g *echo.Group, jwt echo.MiddlewareFunc, api *panelApi[R, P]) *echo.Group {
	api.store.OnChange(api.metrics.StoreChanged)

	pg := g.Group("/"+api.store.Schema().Name, jwt)
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/categories", api.categories)

	// detail endpoints
	dg := pg.Group("/:id", objectMiddleware(api.store))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	return dg
}

func (api *panelApi[R, P]) name() string { return api.store.Schema().Name }

// Handlers

func (api *panelApi[R, P]) query(ctx echo.Context) error {
	var q listQuery
	q.Bind(ctx)

	mode, err := view.Resolve(q.View, api.alt)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{
			Field: viewParam,
			Error: "must be one of: " + string(view.ModeTable) + ", " + string(api.alt),
		})
	}

	records := crud.Apply(q.Filter, api.store.List())
	layout, err := view.Render(mode, records, api.store.Schema().Categories)
	if err != nil {
		return errors.Wrap(err, "rendering layout")
	}
	return ctx.JSON(http.StatusOK, layout)
}

// categories lists the known categories, or the ones in use for open sets (e.g. class names).
func (api *panelApi[R, P]) categories(ctx echo.Context) error {
	cats := api.store.Schema().Categories
	if cats == nil {
		seen := make(map[string]bool)
		cats = make([]string, 0)
		for _, rec := range api.store.List() {
			if c := rec.RecordCategory(); c != "" && !seen[c] {
				seen[c] = true
				cats = append(cats, c)
			}
		}
	}
	return ctx.JSON(http.StatusOK, categoriesResponse{All: crud.AllCategories, Categories: cats})
}

func (api *panelApi[R, P]) create(ctx echo.Context) error {
	var sess crud.Session[R, P]
	sess.BeginCreate()
	if err := api.bindDraft(ctx, &sess, *new(R)); err != nil {
		return err
	}

	rec, err := sess.Commit(api.store)
	if err != nil {
		api.metrics.Commit(api.name(), metricsvc.Rejected)
		return errors.Wrap(err, "adding record")
	}
	api.metrics.Commit(api.name(), metricsvc.Created)
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *panelApi[R, P]) retrieve(ctx echo.Context) error {
	obj, err := getContextObject[R](ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, obj)
}

// update merges the request body onto the stored record.
func (api *panelApi[R, P]) update(ctx echo.Context) error {
	obj, err := getContextObject[R](ctx)
	if err != nil {
		return err
	}

	var sess crud.Session[R, P]
	sess.BeginEdit(obj)
	if err := api.bindDraft(ctx, &sess, obj); err != nil {
		return err
	}

	rec, err := sess.Commit(api.store)
	if err != nil {
		api.metrics.Commit(api.name(), metricsvc.Rejected)
		return errors.Wrap(err, "updating record")
	}
	api.metrics.Commit(api.name(), metricsvc.Updated)
	return ctx.JSON(http.StatusOK, rec)
}

func (api *panelApi[R, P]) destroy(ctx echo.Context) error {
	var err error
	if api.remove != nil {
		err = api.remove(ctx.Request().Context(), ctx.Param("id"))
	} else {
		err = api.store.Remove(ctx.Param("id"))
	}
	if err != nil {
		return errors.Wrap(err, "removing record")
	}
	api.metrics.Commit(api.name(), metricsvc.Removed)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *panelApi[R, P]) bindDraft(ctx echo.Context, sess *crud.Session[R, P], orig R) error {
	return sess.Edit(func(draft *R) error {
		if err := decodeBody(ctx, draft); err != nil {
			return errors.Wrap(err, "binding draft")
		}
		if api.sanitize != nil {
			api.sanitize(orig, P(draft))
		}
		return nil
	})
}
