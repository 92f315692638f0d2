package router // package router registers the HTTP routes of the registration API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/exam-registration/internal/config"
	"github.com/iliyamo/exam-registration/internal/handler"
	"github.com/iliyamo/exam-registration/internal/middleware"
)

// Deps carries everything the routes need. Redis may be nil; rate
// limiting and caching are then skipped.
type Deps struct {
	DB        *sql.DB
	JWTSecret string
	Auth      *handler.AuthHandler
	Student   *handler.StudentHandler
	Faculty   *handler.FacultyHandler

	Redis            *redis.Client
	RateLimit        config.RateLimitConfig
	BookingRateLimit config.RateLimitConfig
	Cache            config.CacheConfig
}

// Register wires every route on e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d.DB)

	v1 := e.Group("/v1", middleware.NewTokenBucket(d.RateLimit, d.Redis))
	RegisterAuth(v1, d.Auth, d.JWTSecret)

	cache := middleware.NewListingCache(d.Cache, d.Redis)
	writes := middleware.NewTokenBucket(d.BookingRateLimit, d.Redis)
	RegisterStudent(v1, d.Student, d.JWTSecret, cache, writes)
	RegisterFaculty(v1, d.Faculty, d.JWTSecret, cache, writes)
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// identity echo at /v1/me.
func RegisterAuth(v1 *echo.Group, a *handler.AuthHandler, jwtSecret string) {
	g := v1.Group("/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// A bearer is optional: without a refresh_token it logs out everywhere.
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	v1.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// with returns base followed by extra in a new slice.
func with(base []echo.MiddlewareFunc, extra ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(base)+len(extra))
	return append(append(out, base...), extra...)
}
