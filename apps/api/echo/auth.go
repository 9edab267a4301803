package echoapi

import (
	"net/http"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
	"github.com/trezcool/madrasa/core/auth"
)

type tokenResponse struct {
	Token string `json:"token"`
}

// newJWTConfig returns the JWT auth middleware config.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: auth.SigningMethod,
		ContextKey:    auth.ContextKey,
		Claims:        new(auth.Claims),
	}
}

func getContextClaims(ctx echo.Context) (auth.Claims, error) {
	if token, ok := ctx.Get(auth.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*auth.Claims); ok {
			return *claims, nil
		}
	}
	return auth.Claims{}, errUnauthorized
}

func refreshToken(conf *core.Config) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		token, err := auth.Refresh(claims, conf)
		if err != nil {
			return errors.Wrap(err, "refreshing token")
		}
		return ctx.JSON(http.StatusOK, tokenResponse{Token: token})
	}
}
