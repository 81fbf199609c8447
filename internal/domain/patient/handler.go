package patient

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medichat/medichat/internal/platform/auth"
	"github.com/medichat/medichat/internal/platform/blobstore"
	"github.com/medichat/medichat/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	doctor := auth.RequireRole(auth.RoleDoctor)
	anyRole := auth.RequireRole(auth.RoleDoctor, auth.RolePatient)

	api.GET("/patients", h.ListProfiles, doctor)
	api.POST("/patients", h.CreateProfile, doctor)
	api.GET("/patients/:id", h.GetProfile, anyRole)
	api.DELETE("/patients/:id", h.DeleteProfile, doctor)

	api.GET("/patients/:id/documents", h.ListDocuments, anyRole)
	api.POST("/patients/:id/documents", h.CreateDocument, doctor)
	api.GET("/documents/:id/content", h.DownloadDocument, anyRole)
	api.DELETE("/documents/:id", h.DeleteDocument, doctor)
}

type createProfileRequest struct {
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	DateOfBirth           string `json:"date_of_birth"`
	MedicalHistorySummary string `json:"medical_history_summary"`
}

type createProfileResponse struct {
	*Profile
	GeneratedPassword string `json:"generated_password"`
}

func (h *Handler) ListProfiles(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListProfiles(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateProfile(c echo.Context) error {
	var req createProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date_of_birth must be YYYY-MM-DD")
	}

	created, err := h.svc.CreateProfile(c.Request().Context(), CreateProfileInput{
		Name:                  req.Name,
		Email:                 req.Email,
		DateOfBirth:           dob,
		MedicalHistorySummary: req.MedicalHistorySummary,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// The plaintext password appears in this response and nowhere else.
	return c.JSON(http.StatusCreated, createProfileResponse{
		Profile:           created.Profile,
		GeneratedPassword: created.GeneratedPassword,
	})
}

func (h *Handler) GetProfile(c echo.Context) error {
	id, err := h.authorizeProfileRead(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetProfile(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProfile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	deleted, err := h.svc.DeleteProfile(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDocuments(c echo.Context) error {
	id, err := h.authorizeProfileRead(c)
	if err != nil {
		return err
	}
	docs, err := h.svc.ListDocuments(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"documents": docs})
}

func (h *Handler) CreateDocument(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	contentType := fh.Header.Get("Content-Type")
	doc, err := h.svc.CreateDocument(c.Request().Context(), patientID, fh.Filename, contentType, src)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, blobstore.ErrInvalidContentType),
			errors.Is(err, blobstore.ErrMissingFileName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) DownloadDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	rc, doc, err := h.svc.OpenDocument(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	defer rc.Close()

	p, _ := auth.PrincipalFromContext(c.Request().Context())
	if p.Role == auth.RolePatient && p.ID != doc.PatientID.String() {
		return echo.NewHTTPError(http.StatusForbidden, "not your document")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+doc.FileName+`"`)
	return c.Stream(http.StatusOK, doc.FileType, rc)
}

func (h *Handler) DeleteDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	deleted, err := h.svc.DeleteDocument(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// authorizeProfileRead parses the path ID and checks the principal may read
// that profile: doctors may read any, a patient only its own.
func (h *Handler) authorizeProfileRead(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	if p.Role == auth.RolePatient && p.ID != id.String() {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "not your record")
	}
	return id, nil
}
