package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Context keys set by CredentialMiddleware.
const (
	ContextUserID     = "userID"
	ContextCredential = "credential"
)

// HeaderUserID carries the caller's booking service user id.
const HeaderUserID = "user-id"

// CredentialStore receives the post-handler credential refresh and eviction.
type CredentialStore interface {
	RefreshCredential(ctx context.Context, userID int64, cred roster.Credential) error
	ClearCredential(userID int64) error
}

// CredentialMiddleware extracts the credential headers and the user id.
// Requests missing any required header are rejected with 401.
func CredentialMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !requiresCredential(c.Request.Method, path) {
			c.Next()
			return
		}

		cred := roster.Credential{
			AppAuthToken:  c.GetHeader(remote.HeaderAppAuthToken),
			Authorization: c.GetHeader(remote.HeaderAuthorization),
			APIKey:        c.GetHeader(remote.HeaderAPIKey),
		}
		userID, _ := strconv.ParseInt(strings.TrimSpace(c.GetHeader(HeaderUserID)), 10, 64)

		missing := cred.Missing()
		if userID == 0 && !userIDOptional(c.Request.Method, path) {
			missing = append(missing, HeaderUserID)
		}
		if len(missing) > 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Missing header fields " + strings.Join(missing, " - ")})
			return
		}

		c.Set(ContextCredential, cred)
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// CredentialRefreshMiddleware stores the caller's credential after a 200 and evicts it after a 401.
func CredentialRefreshMiddleware(store CredentialStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || !refreshesCredential(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}
		c.Next()

		userID := c.GetInt64(ContextUserID)
		if userID == 0 {
			return
		}
		switch c.Writer.Status() {
		case http.StatusOK:
			cred, ok := c.Get(ContextCredential)
			if !ok {
				return
			}
			if errRefresh := store.RefreshCredential(context.WithoutCancel(c.Request.Context()), userID, cred.(roster.Credential)); errRefresh != nil {
				log.WithError(errRefresh).Errorf("Failed to update user auth fields for user %d", userID)
			}
		case http.StatusUnauthorized:
			if errClear := store.ClearCredential(userID); errClear != nil {
				log.WithError(errClear).Warnf("Failed to clear user auth fields for user %d", userID)
			}
		}
	}
}

// UserID returns the caller's user id, or 0.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}

// Credential returns the caller's credential headers.
func Credential(c *gin.Context) roster.Credential {
	value, ok := c.Get(ContextCredential)
	if !ok {
		return roster.Credential{}
	}
	cred, _ := value.(roster.Credential)
	return cred
}

func requiresCredential(method, path string) bool {
	if path == "/healthz" {
		return false
	}
	return !(method == http.MethodGet && path == "/logs")
}

func userIDOptional(method, path string) bool {
	return method == http.MethodPost && (path == "/auth/login" || path == "/users/search")
}

func refreshesCredential(method, path string) bool {
	if !requiresCredential(method, path) {
		return false
	}
	return !(method == http.MethodPost && (path == "/auth/login" || path == "/auth/logout"))
}
