package middleware // reusable HTTP middleware for the registration API

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxName   = "name"
	CtxEmail  = "email"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the caller's identity in the request context. Handlers read it
// back with IdentityFrom. The secret must match the one used when issuing
// tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if msg := authenticate(c, secret); msg != "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": msg})
			}
			return next(c)
		}
	}
}

// OptionalJWT stores the identity when a valid bearer token is present and
// otherwise lets the request through anonymously.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" {
				_ = authenticate(c, secret)
			}
			return next(c)
		}
	}
}

// authenticate parses the bearer token and sets the context keys. It
// returns a non-empty reason when the request is not authenticated.
func authenticate(c echo.Context, secret string) string {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "missing bearer token"
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "invalid token"
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "invalid claims"
	}
	uid, ok := claimID(claims["sub"])
	if !ok {
		return "invalid subject"
	}

	c.Set(CtxUserID, uid)
	c.Set(CtxRole, claimString(claims["role"]))
	c.Set(CtxName, claimString(claims["name"]))
	c.Set(CtxEmail, claimString(claims["email"]))
	return ""
}

// claimID accepts the numeric subject as JSON decodes it (float64) or as
// a decimal string.
func claimID(v any) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t <= 0 || t != float64(uint64(t)) {
			return 0, false
		}
		return uint64(t), true
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}

func claimString(v any) string {
	s, _ := v.(string)
	return s
}
