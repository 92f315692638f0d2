package handler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-registration/internal/config"
	"github.com/iliyamo/exam-registration/internal/middleware"
	"github.com/iliyamo/exam-registration/internal/model"
	"github.com/iliyamo/exam-registration/internal/repository"
	"github.com/iliyamo/exam-registration/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.RefreshTokenStore
	log    *slog.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.RefreshTokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, log: slog.Default().With("component", "auth")}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindValid(c, &req); err != nil {
		return respondErr(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		}
		h.log.Error("load user", "err", err)
		return fail(c, http.StatusServiceUnavailable, "transient", "please try again")
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	}
	return h.issue(c, ctx, u, http.StatusOK)
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindValid(c, &req); err != nil {
		return respondErr(c, err)
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.Consume(ctx, hash)
	if errors.Is(err, repository.ErrRefreshRejected) {
		return fail(c, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
	}
	if err != nil {
		h.log.Error("consume refresh token", "err", err)
		return fail(c, http.StatusServiceUnavailable, "transient", "refresh failed")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || !u.IsActive {
		return fail(c, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
	}
	return h.issue(c, ctx, u, http.StatusOK)
}

// Logout revokes one refresh token, or every token of the bearer when no
// refresh token is posted.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if raw != "" {
		_, err := h.Tokens.Consume(ctx, utils.HashRefreshRaw(raw))
		if errors.Is(err, repository.ErrRefreshRejected) {
			return fail(c, http.StatusUnauthorized, "unauthorized", "invalid refresh token")
		}
		if err != nil {
			h.log.Error("logout", "err", err)
			return fail(c, http.StatusServiceUnavailable, "transient", "logout failed")
		}
		return c.NoContent(http.StatusNoContent)
	}

	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return fail(c, http.StatusBadRequest, "validation", "provide Authorization header or refresh_token")
	}
	if err := h.Tokens.RevokeUser(ctx, id.UserID); err != nil {
		h.log.Error("logout all", "user_id", id.UserID, "err", err)
		return fail(c, http.StatusServiceUnavailable, "transient", "logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me echoes the authenticated identity.
func (h *AuthHandler) Me(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return unauthorized(c)
	}
	return c.JSON(http.StatusOK, userPart{ID: id.UserID, Name: id.Name, Email: id.Email, Role: id.Role})
}

func (h *AuthHandler) issue(c echo.Context, ctx context.Context, u model.User, status int) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret,
		utils.Subject{UserID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}, h.Cfg.AccessTTLMin)
	if err != nil {
		h.log.Error("issue access token", "user_id", u.ID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "issue access failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		h.log.Error("issue refresh token", "user_id", u.ID, "err", err)
		return fail(c, http.StatusInternalServerError, "internal", "issue refresh failed")
	}
	if err := h.Tokens.Save(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		h.log.Error("store refresh token", "user_id", u.ID, "err", err)
		return fail(c, http.StatusServiceUnavailable, "transient", "save refresh failed")
	}
	return c.JSON(status, authResp{
		User:    userPart{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}
