// Package auth mints and refreshes the JWTs guarding the dashboard API.
package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
)

const (
	SigningMethod = "HS256"
	ContextKey    = "userToken"
	audience      = "Dashboard"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrRefreshExpired = errors.New("refresh has expired")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
}

// NewClaims returns the claims of a token issued to name.
// origIat is the issue time of the first token in a refresh chain, defaults to now.
func NewClaims(name string, conf *core.Config, origIat ...int64) *Claims {
	now := NowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   name,
			Audience:  audience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         name,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(SigningMethod), claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Refresh issues a new token for claims, as long as the refresh window of its chain is open.
func Refresh(claims Claims, conf *core.Config) (string, error) {
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if NowFunc().After(expTime) {
		return "", ErrRefreshExpired
	}
	return GenerateToken(NewClaims(claims.Subject, conf, claims.OrigIssuedAt), conf.SecretKey)
}

// Parse verifies a signed token and returns its claims.
func Parse(token, secretKey string) (*Claims, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != SigningMethod {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "parsing token")
	}
	return claims, nil
}
