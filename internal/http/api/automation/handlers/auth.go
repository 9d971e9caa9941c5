package handlers

import (
	"context"
	"net/http"

	"github.com/deskpilot/deskpilot/internal/auth"
	apphttp "github.com/deskpilot/deskpilot/internal/http"
	"github.com/gin-gonic/gin"
)

// AuthService runs login and logout.
type AuthService interface {
	Login(ctx context.Context, req auth.LoginRequest) (auth.LoginResult, error)
	Logout(userID int64) error
}

// AuthHandler serves login and logout.
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{auth: svc}
}

// Login validates the caller's credential and stores it when accepted.
func (h *AuthHandler) Login(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if !bindBody(c, &body) {
		return
	}
	result, errLogin := h.auth.Login(c.Request.Context(), auth.LoginRequest{
		UserID:     apphttp.UserID(c),
		Credential: apphttp.Credential(c),
		Email:      body.Email,
	})
	if errLogin != nil {
		respondError(c, errLogin)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Logout evicts the caller's cached credential.
func (h *AuthHandler) Logout(c *gin.Context) {
	if errLogout := h.auth.Logout(apphttp.UserID(c)); errLogout != nil {
		respondError(c, errLogout)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
