// Package httpapi exposes the auth and admin endpoints of the workout
// tracker API.
package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agamordechai/eass-a-workouttracker/internal/auth"
	"github.com/agamordechai/eass-a-workouttracker/internal/token"
	"github.com/agamordechai/eass-a-workouttracker/internal/users"
)

type Handler struct {
	tokens *token.Service
	repo   *users.Repository
	google *auth.GoogleVerifier // nil when Google sign-in is not configured
	log    *zap.Logger
}

func NewHandler(tokens *token.Service, repo *users.Repository, google *auth.GoogleVerifier, log *zap.Logger) *Handler {
	return &Handler{tokens: tokens, repo: repo, google: google, log: log}
}

// RegisterRoutes mounts the auth and admin route groups.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	authGroup := e.Group("/auth")
	authGroup.POST("/register", h.HandleRegister)
	authGroup.POST("/login", h.HandleLogin)
	authGroup.POST("/google", h.HandleGoogleLogin)
	authGroup.POST("/refresh", h.HandleRefresh)
	authGroup.GET("/me", h.HandleMe, auth.Middleware(h.tokens, h.repo))

	admin := e.Group("/admin",
		auth.Middleware(h.tokens, h.repo),
		auth.RequireRole(users.RoleAdmin),
	)
	admin.GET("/users", h.HandleListUsers)
	admin.PATCH("/users/:id", h.HandleUpdateUser)
	admin.GET("/stats", h.HandleStats)
}

// TokenResponse is the body returned by every endpoint that mints tokens.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (h *Handler) issueTokens(u *users.User) (*TokenResponse, error) {
	claims := token.Claims{
		Role:  string(u.Role),
		Email: u.Email,
		Name:  u.Name,
	}
	claims.Subject = strconv.FormatUint(uint64(u.ID), 10)

	access, err := h.tokens.CreateAccessToken(claims, 0)
	if err != nil {
		return nil, err
	}
	refresh, err := h.tokens.CreateRefreshToken(claims.Subject, 0)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken:  access,
		TokenType:    "bearer",
		ExpiresIn:    int(h.tokens.AccessTTL().Seconds()),
		RefreshToken: refresh,
	}, nil
}

func (h *Handler) HandleRegister(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if !strings.Contains(body.Email, "@") || body.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and name are required")
	}
	if len(body.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 8 characters")
	}

	if _, err := h.repo.GetByEmail(body.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	u := &users.User{
		Email:        body.Email,
		Name:         body.Name,
		PasswordHash: hash,
		Role:         users.RoleUser,
	}
	if err := h.repo.Create(u); err != nil {
		h.log.Error("create user failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	h.log.Info("user registered", zap.Uint("user_id", u.ID))
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) HandleLogin(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, err := h.repo.GetByEmail(strings.ToLower(strings.TrimSpace(body.Email)))
	if err != nil || !auth.CheckPassword(body.Password, u.PasswordHash) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if u.Disabled {
		return echo.NewHTTPError(http.StatusForbidden, "user account is disabled")
	}

	if err := h.repo.TouchLogin(u.ID); err != nil {
		h.log.Warn("touch login failed", zap.Uint("user_id", u.ID), zap.Error(err))
	}

	resp, err := h.issueTokens(u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleGoogleLogin(c echo.Context) error {
	if h.google == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "google sign-in is not configured")
	}

	var body struct {
		IDToken string `json:"id_token"`
	}
	if err := c.Bind(&body); err != nil || body.IDToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id_token is required")
	}

	gu, err := h.google.Verify(c.Request().Context(), body.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid google token")
	}

	u, err := h.repo.GetByGoogleSub(gu.Sub)
	if err != nil {
		// Link to an existing email account, or create a fresh one.
		if u, err = h.repo.GetByEmail(gu.Email); err == nil {
			u.GoogleSub = gu.Sub
			if gu.Picture != "" {
				u.PictureURL = gu.Picture
			}
			if err := h.repo.Update(u); err != nil {
				h.log.Error("link google account failed", zap.Error(err))
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}
		} else {
			u = &users.User{
				Email:      gu.Email,
				Name:       gu.Name,
				PictureURL: gu.Picture,
				GoogleSub:  gu.Sub,
				Role:       users.RoleUser,
			}
			if err := h.repo.Create(u); err != nil {
				h.log.Error("create google user failed", zap.Error(err))
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}
		}
	}

	if u.Disabled {
		return echo.NewHTTPError(http.StatusForbidden, "user account is disabled")
	}
	if err := h.repo.TouchLogin(u.ID); err != nil {
		h.log.Warn("touch login failed", zap.Uint("user_id", u.ID), zap.Error(err))
	}

	resp, err := h.issueTokens(u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleRefresh mints a new token pair from a refresh token. Refresh tokens
// are stateless and not single-use: one remains valid until its own expiry.
func (h *Handler) HandleRefresh(c echo.Context) error {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	claims := h.tokens.DecodeToken(body.RefreshToken)
	if claims == nil || claims.Type != token.TypeRefresh || claims.Subject == "" {
		return auth.ErrCredentials
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return auth.ErrCredentials
	}
	u, err := h.repo.GetByID(uint(id))
	if err != nil {
		return auth.ErrCredentials
	}
	if u.Disabled {
		return echo.NewHTTPError(http.StatusForbidden, "user account is disabled")
	}

	resp, err := h.issueTokens(u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) HandleMe(c echo.Context) error {
	return c.JSON(http.StatusOK, auth.CurrentUser(c))
}

func (h *Handler) HandleListUsers(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	list, err := h.repo.List(limit, offset)
	if err != nil {
		h.log.Error("list users failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) HandleUpdateUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var body struct {
		Role     *string `json:"role"`
		Disabled *bool   `json:"disabled"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, err := h.repo.GetByID(uint(id))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}

	if body.Role != nil {
		role := users.Role(*body.Role)
		if !role.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		u.Role = role
	}
	if body.Disabled != nil {
		u.Disabled = *body.Disabled
	}

	if err := h.repo.Update(u); err != nil {
		h.log.Error("update user failed", zap.Uint("user_id", u.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) HandleStats(c echo.Context) error {
	stats, err := h.repo.Stats()
	if err != nil {
		h.log.Error("stats query failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, stats)
}
