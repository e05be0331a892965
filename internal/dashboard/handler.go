package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/oralvis/oralvis/internal/platform/auth"
)

// Handler serves the caller's identity and composed dashboard.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/me", h.Me)
	api.GET("/dashboard", h.Dashboard)
}

// MeResponse describes the signed-in caller.
type MeResponse struct {
	auth.Identity
	RoleBadge string `json:"role_badge,omitempty"`
	CanUpload bool   `json:"can_upload"`
	Reviewer  bool   `json:"reviewer"`
}

func (h *Handler) Me(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, MeResponse{
		Identity:  id,
		RoleBadge: id.PrimaryRole(),
		CanUpload: id.CanUpload(),
		Reviewer:  id.IsReviewer(),
	})
}

func (h *Handler) Dashboard(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(http.StatusOK, Compose(id))
}
