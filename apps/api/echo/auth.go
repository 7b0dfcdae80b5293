package echoapi

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/user"
)

const (
	tokenContextKey = "userToken"
	tokenAudience   = "Observo"
)

// Claims represents the authorization claims transmitted via a JWT, as issued by the identity provider.
type Claims struct {
	jwt.StandardClaims
	Name     string   `json:"name,omitempty"`
	Email    string   `json:"email,omitempty"`
	District string   `json:"district,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

func (c Claims) Actor() core.Actor {
	return core.Actor{
		ID:       c.Subject,
		Name:     c.Name,
		Email:    c.Email,
		District: c.District,
		Roles:    c.Roles,
	}
}

func (c Claims) IsAdmin() bool {
	return user.IsAdmin(c.Roles)
}

// NewClaims returns the claims of a token representing `actor`, valid for `ttl`.
func NewClaims(actor core.Actor, issuer string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   actor.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:     actor.Name,
		Email:    actor.Email,
		District: actor.District,
		Roles:    actor.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func newJWTConfig(secretKey string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
		// the request context carries the actor and the raw token forwarded to the backend
		SuccessHandler: func(ctx echo.Context) {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return
			}
			rctx := core.WithActor(ctx.Request().Context(), claims.Actor())
			rctx = core.WithToken(rctx, bearerToken(ctx))
			ctx.SetRequest(ctx.Request().WithContext(rctx))
		},
	}
}

func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) > len(middleware.DefaultJWTConfig.AuthScheme)+1 &&
		strings.EqualFold(auth[:len(middleware.DefaultJWTConfig.AuthScheme)], middleware.DefaultJWTConfig.AuthScheme) {
		return auth[len(middleware.DefaultJWTConfig.AuthScheme)+1:]
	}
	return ""
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextActor(ctx echo.Context) (core.Actor, error) {
	if actor, ok := core.ActorFrom(ctx.Request().Context()); ok {
		return actor, nil
	}
	return core.Actor{}, errUnauthorized
}
