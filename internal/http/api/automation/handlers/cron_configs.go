package handlers

import (
	"context"
	"net/http"

	apphttp "github.com/deskpilot/deskpilot/internal/http"
	"github.com/deskpilot/deskpilot/internal/preferences"
	"github.com/deskpilot/deskpilot/internal/roster"
	"github.com/gin-gonic/gin"
)

// PreferenceService reads and writes automation preferences.
type PreferenceService interface {
	List() []preferences.View
	Update(ctx context.Context, userID int64, patch preferences.Patch) error
}

// UserAuthChecker confirms the caller's credential before preferences are exposed.
type UserAuthChecker interface {
	IsUserAuthValid(ctx context.Context, userID int64, cred roster.Credential) bool
}

// CronConfigHandler serves the automation preference endpoints.
type CronConfigHandler struct {
	prefs   PreferenceService
	checker UserAuthChecker
}

// NewCronConfigHandler constructs a CronConfigHandler.
func NewCronConfigHandler(prefs PreferenceService, checker UserAuthChecker) *CronConfigHandler {
	return &CronConfigHandler{prefs: prefs, checker: checker}
}

func (h *CronConfigHandler) authorized(c *gin.Context) bool {
	if h.checker.IsUserAuthValid(c.Request.Context(), apphttp.UserID(c), apphttp.Credential(c)) {
		return true
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid User Auth"})
	return false
}

// List returns every user's preferences without credentials.
func (h *CronConfigHandler) List(c *gin.Context) {
	if !h.authorized(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"cronConfigs": h.prefs.List()})
}

// Update replaces the caller's preferences.
func (h *CronConfigHandler) Update(c *gin.Context) {
	if !h.authorized(c) {
		return
	}
	var patch preferences.Patch
	if !bindBody(c, &patch) {
		return
	}
	if errUpdate := h.prefs.Update(c.Request.Context(), apphttp.UserID(c), patch); errUpdate != nil {
		respondError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
