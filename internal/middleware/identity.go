package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Identity is the authenticated caller as stored by JWTAuth.
type Identity struct {
	UserID uint64
	Role   string
	Name   string
	Email  string
}

// IdentityFrom returns the caller stored by JWTAuth. ok is false on routes
// that are not behind JWTAuth.
func IdentityFrom(c echo.Context) (Identity, bool) {
	uid, ok := c.Get(CtxUserID).(uint64)
	if !ok || uid == 0 {
		return Identity{}, false
	}
	id := Identity{UserID: uid}
	id.Role, _ = c.Get(CtxRole).(string)
	id.Name, _ = c.Get(CtxName).(string)
	id.Email, _ = c.Get(CtxEmail).(string)
	return id, true
}

// userKey identifies the caller for rate limiting: the user id when
// authenticated, otherwise "anon".
func userKey(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.UserID, 10)
	}
	return "anon"
}
