package scans

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/oralvis/oralvis/internal/platform/auth"
	"github.com/oralvis/oralvis/pkg/pagination"
)

type Handler struct {
	svc       *Service
	maxUpload int64
}

// NewHandler creates a scans handler. maxUpload caps the accepted file size in
// bytes; zero disables the check.
func NewHandler(svc *Service, maxUpload int64) *Handler {
	return &Handler{svc: svc, maxUpload: maxUpload}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/scans", h.ListScans)
	api.GET("/scans/:id", h.GetScan)
	api.POST("/scans/:id/signed-url", h.CreateSignedURL)

	api.POST("/scans", h.UploadScan, auth.RequireRole(auth.RoleTechnician))
	api.PATCH("/scans/:id/status", h.UpdateStatus, auth.RequireRole(auth.RoleDentist))
}

// ListResponse is the paged scan list plus the role-specific labels the
// dashboard renders around it.
type ListResponse struct {
	*pagination.Response
	Heading      string `json:"heading"`
	EmptyMessage string `json:"empty_message,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// SignedURLResponse carries a view URL and its lifetime in seconds.
type SignedURLResponse struct {
	SignedURL string `json:"signed_url"`
	ExpiresIn int    `json:"expires_in"`
}

func (h *Handler) UploadScan(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	if err := c.Request().ParseMultipartForm(multipartMemory); err != nil {
		return multipartError(err)
	}

	in := UploadInput{
		PatientName: c.FormValue("patient_name"),
		PatientID:   c.FormValue("patient_id"),
		ScanType:    c.FormValue("scan_type"),
		Notes:       c.FormValue("notes"),
	}

	file, err := c.FormFile("file")
	switch {
	case err == nil:
		if h.maxUpload > 0 && file.Size > h.maxUpload {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds maximum allowed size of %d bytes", h.maxUpload))
		}
		src, err := file.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "failed to open uploaded file")
		}
		defer src.Close()

		in.FileName = file.Filename
		in.ContentType = file.Header.Get(echo.HeaderContentType)
		in.Content = io.Reader(src)
	case errors.Is(err, http.ErrMissingFile):
		// Reported by the service together with the other missing fields.
	default:
		return multipartError(err)
	}

	scan, err := h.svc.Upload(c.Request().Context(), id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, scan)
}

func (h *Handler) ListScans(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}

	resp := ListResponse{
		Response: pagination.NewResponse(items, total, pg.Limit, pg.Offset),
		Heading:  ListHeading(id),
	}
	if total == 0 {
		resp.EmptyMessage = EmptyMessage(id)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetScan(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	scanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	scan, err := h.svc.Get(c.Request().Context(), id, scanID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, scan)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	scanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	scan, err := h.svc.UpdateStatus(c.Request().Context(), id, scanID, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, scan)
}

func (h *Handler) CreateSignedURL(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	scanID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	u, err := h.svc.ViewURL(c.Request().Context(), id, scanID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, SignedURLResponse{SignedURL: u, ExpiresIn: int(ViewURLExpiry.Seconds())})
}

// multipartMemory is how much of an upload is held in memory before the
// remainder spills to a temporary file.
const multipartMemory = 32 << 20

// multipartError maps a failure to read the upload body. The body limit
// middleware reports oversized bodies as an *echo.HTTPError, which passes
// through unchanged.
func multipartError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, http.ErrNotMultipart):
		return echo.NewHTTPError(http.StatusBadRequest, "request must be multipart/form-data")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart body")
	}
}

func identity(c echo.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

// httpError maps service errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "scan not found")
	case errors.Is(err, ErrUnsupportedFile):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, ErrObjectWrite), errors.Is(err, ErrRecordWrite),
		errors.Is(err, ErrRecordRead), errors.Is(err, ErrSignURL):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
