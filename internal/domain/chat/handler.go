package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medichat/medichat/internal/platform/auth"
)

type Handler struct {
	svc *Conversation
}

func NewHandler(svc *Conversation) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/chat", auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	g.GET("/:patientID/messages", h.ListMessages)
	g.POST("/:patientID/messages", h.SendMessage)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (h *Handler) ListMessages(c echo.Context) error {
	patientID, err := h.authorizeConversation(c)
	if err != nil {
		return err
	}

	msgs, err := h.svc.History(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (h *Handler) SendMessage(c echo.Context) error {
	patientID, err := h.authorizeConversation(c)
	if err != nil {
		return err
	}

	p, _ := auth.PrincipalFromContext(c.Request().Context())
	if p.Role != auth.RolePatient {
		return echo.NewHTTPError(http.StatusForbidden, "only the patient may send messages")
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	reply, err := h.svc.Send(c.Request().Context(), patientID, req.Text)
	if err != nil {
		if errors.Is(err, ErrTurnInFlight) {
			return echo.NewHTTPError(http.StatusConflict, ErrTurnInFlight.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reply)
}

// authorizeConversation parses the patient ID and checks the principal may
// touch that conversation: doctors may read any, a patient only its own.
func (h *Handler) authorizeConversation(c echo.Context) (uuid.UUID, error) {
	patientID, err := uuid.Parse(c.Param("patientID"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if p.Role == auth.RolePatient && p.ID != patientID.String() {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "not your conversation")
	}
	return patientID, nil
}
