package handlers

import (
	"context"
	"net/http"

	apphttp "github.com/deskpilot/deskpilot/internal/http"
	"github.com/deskpilot/deskpilot/internal/identity"
	"github.com/deskpilot/deskpilot/internal/roster"
	"github.com/gin-gonic/gin"
)

// UserSearcher searches the booking service directory.
type UserSearcher interface {
	SearchByName(ctx context.Context, name string, cred roster.Credential) ([]identity.Profile, error)
}

// UserHandler serves the user search endpoint.
type UserHandler struct {
	searcher UserSearcher
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(searcher UserSearcher) *UserHandler {
	return &UserHandler{searcher: searcher}
}

// Search finds users by display name.
func (h *UserHandler) Search(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if !bindBody(c, &body) {
		return
	}
	users, errSearch := h.searcher.SearchByName(c.Request.Context(), body.Name, apphttp.Credential(c))
	if errSearch != nil {
		respondError(c, errSearch)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
