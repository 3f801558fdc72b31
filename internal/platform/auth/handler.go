package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type Handler struct {
	authn  *Authenticator
	tokens *TokenIssuer
	logger zerolog.Logger
}

func NewHandler(authn *Authenticator, tokens *TokenIssuer, logger zerolog.Logger) *Handler {
	return &Handler{authn: authn, tokens: tokens, logger: logger}
}

// RegisterRoutes mounts POST /auth/login. Extra middleware (the login rate
// limiter) applies to this route only.
func (h *Handler) RegisterRoutes(api *echo.Group, mw ...echo.MiddlewareFunc) {
	api.POST("/auth/login", h.Login, mw...)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	res, err := h.authn.ValidateLogin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Error().Err(err).Msg("login lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	if !res.Success {
		return c.JSON(http.StatusUnauthorized, res)
	}

	if h.tokens != nil {
		tenant, _ := c.Get("tenant_id").(string)
		token, err := h.tokens.Issue(res.Role, res.UserID, tenant)
		if err != nil {
			h.logger.Error().Err(err).Msg("token issue failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
		res.Token = token
	}
	return c.JSON(http.StatusOK, res)
}
