package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// defaultRevocationTTL applies to tokens that carry no expiry.
const defaultRevocationTTL = time.Hour

// SessionHandler serves sign-out and the admin view of signed-out tokens.
type SessionHandler struct {
	revocations *Revocations
}

func NewSessionHandler(r *Revocations) *SessionHandler {
	return &SessionHandler{revocations: r}
}

func (h *SessionHandler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/sign-out", h.SignOut, RequireIdentity())
	api.GET("/auth/revocations", h.ListRevocations, RequireRole(RoleAdmin))
}

type revocationListResponse struct {
	Count   int              `json:"count"`
	Entries []RevocationInfo `json:"entries"`
}

// SignOut revokes the bearer token the request was made with. Requests
// authenticated without a token (development identity) have nothing to
// revoke and succeed as a no-op.
func (h *SessionHandler) SignOut(c echo.Context) error {
	tok, ok := TokenFromContext(c.Request().Context())
	if !ok {
		return c.NoContent(http.StatusNoContent)
	}
	if tok.ID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token has no jti and cannot be revoked")
	}

	expiresAt := tok.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(defaultRevocationTTL)
	}
	h.revocations.Revoke(tok.ID, UserIDFromContext(c.Request().Context()), expiresAt)
	return c.NoContent(http.StatusNoContent)
}

func (h *SessionHandler) ListRevocations(c echo.Context) error {
	entries := h.revocations.Entries()
	return c.JSON(http.StatusOK, revocationListResponse{Count: len(entries), Entries: entries})
}
