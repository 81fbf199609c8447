package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medichat/medichat/internal/platform/auth"
)

type Handler struct {
	svc *Sessions
}

func NewHandler(svc *Sessions) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/login", h.Login, auth.RejectAuthenticated())
	g.POST("/signup", h.Signup, auth.RejectAuthenticated())
	g.POST("/logout", h.Logout, auth.RequireAuthenticated())
	g.GET("/me", h.Me, auth.RequireAuthenticated())
}

type loginRequest struct {
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

type loginResponse struct {
	User  auth.Principal `json:"user"`
	Token string         `json:"token"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, token, err := h.svc.Login(c.Request().Context(), req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, loginResponse{User: p, Token: token})
}

// Signup registers and logs in with one call.
func (h *Handler) Signup(c echo.Context) error {
	return h.Login(c)
}

// Logout exists for client parity. Sessions are stateless tokens: the server
// keeps nothing to revoke, the client drops the token.
func (h *Handler) Logout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Me(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, p)
}
