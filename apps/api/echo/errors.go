package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/auth"
	"github.com/trezcool/madrasa/core/crud"
	"github.com/trezcool/madrasa/core/schedule"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")
	errNoDocument     = echo.NewHTTPError(http.StatusNotFound, "no document uploaded")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch cause {
		case crud.ErrNotFound:
			cause = errHttpNotFound
		case schedule.ErrNoDocument:
			cause = errNoDocument
		case auth.ErrRefreshExpired:
			cause = errRefreshExpired
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *core.ValidationError:
			if origErr.Fields != nil {
				message, _ = core.FieldErrors(origErr, translator)
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if fldErrs, ok := core.FieldErrors(cause, translator); ok { // validator.ValidationErrors
				code = http.StatusBadRequest
				message = fldErrs
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var args []interface{}
			args = append(args, errors.Wrap(err, msg))
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				args = append(args, claims)
			}
			logger.Error(msg, args...)
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
