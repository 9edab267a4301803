package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core/crud"
)

const contextObjectKey = "object"

// objectMiddleware loads the record matching the `:id` path param into the context.
func objectMiddleware[R crud.Record, P crud.Entity[R]](store *crud.Store[R, P]) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			obj, err := store.Get(ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding record by ID")
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}

func getContextObject[R crud.Record](ctx echo.Context) (R, error) {
	obj, ok := ctx.Get(contextObjectKey).(R)
	if !ok {
		return obj, errObjNotFoundInCtx
	}
	return obj, nil
}
