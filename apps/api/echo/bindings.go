package echoapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/madrasa/core/crud"
)

var viewParam = "view"

// listQuery holds the `?search=&category=&view=` parameters of a panel listing.
type listQuery struct {
	Filter crud.Filter
	View   string
}

func (q *listQuery) Bind(ctx echo.Context) {
	q.Filter = crud.Filter{
		Search:   ctx.QueryParam("search"),
		Category: ctx.QueryParam("category"),
	}
	q.Filter.Clean()
	q.View = ctx.QueryParam(viewParam)
}

// decodeBody fills draft from the JSON request body only.
// echo's default binder would also copy path and query params into matching fields.
// An empty body leaves draft untouched.
func decodeBody(ctx echo.Context, draft interface{}) error {
	err := json.NewDecoder(ctx.Request().Body).Decode(draft)
	switch e := err.(type) {
	case nil:
		return nil
	case *json.UnmarshalTypeError:
		msg := fmt.Sprintf("Unmarshal type error: expected=%v, got=%v, field=%v, offset=%v", e.Type, e.Value, e.Field, e.Offset)
		return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
	case *json.SyntaxError:
		msg := fmt.Sprintf("Syntax error: offset=%v, error=%v", e.Offset, e.Error())
		return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
	}
	if err == io.EOF {
		return nil
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
}
