package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deskpilot/deskpilot/internal/roster"
	"github.com/gin-gonic/gin"
)

type recordingStore struct {
	refreshed []int64
	cleared   []int64
	lastCred  roster.Credential
}

func (s *recordingStore) RefreshCredential(_ context.Context, userID int64, cred roster.Credential) error {
	s.refreshed = append(s.refreshed, userID)
	s.lastCred = cred
	return nil
}

func (s *recordingStore) ClearCredential(userID int64) error {
	s.cleared = append(s.cleared, userID)
	return nil
}

func newTestRouter(store CredentialStore, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware(), CredentialMiddleware(), CredentialRefreshMiddleware(store))
	handler := func(c *gin.Context) {
		c.JSON(status, gin.H{"userId": UserID(c)})
	}
	router.GET("/logs", handler)
	router.GET("/healthz", handler)
	router.POST("/auth/login", handler)
	router.POST("/auth/logout", handler)
	router.POST("/users/search", handler)
	router.POST("/desks", handler)
	return router
}

func serve(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	responseRecorder := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(responseRecorder, req)
	return responseRecorder
}

func credentialHeaders(userID string) map[string]string {
	headers := map[string]string{
		"AQOB-AppAuthToken": "app-token",
		"Authorization":     "Bearer token",
		"x-api-key":         "api-key",
	}
	if userID != "" {
		headers[HeaderUserID] = userID
	}
	return headers
}

func TestCredentialMiddlewareListsMissingHeaders(t *testing.T) {
	responseRecorder := serve(newTestRouter(nil, http.StatusOK), http.MethodPost, "/desks", nil)
	if responseRecorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", responseRecorder.Code)
	}
	var body map[string]string
	if errDecode := json.Unmarshal(responseRecorder.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	want := "Unauthorized: Missing header fields AQOB-AppAuthToken - Authorization - x-api-key - user-id"
	if body["error"] != want {
		t.Fatalf("unexpected error %q", body["error"])
	}
}

func TestCredentialMiddlewareUserIDOptionalForLoginAndSearch(t *testing.T) {
	router := newTestRouter(nil, http.StatusOK)
	for _, path := range []string{"/auth/login", "/users/search"} {
		if code := serve(router, http.MethodPost, path, credentialHeaders("")).Code; code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, code)
		}
	}
	if code := serve(router, http.MethodPost, "/desks", credentialHeaders("")).Code; code != http.StatusUnauthorized {
		t.Fatalf("expected user-id to be required, got %d", code)
	}
}

func TestCredentialMiddlewareExemptsLogsAndHealth(t *testing.T) {
	router := newTestRouter(nil, http.StatusOK)
	for _, path := range []string{"/logs", "/healthz"} {
		responseRecorder := serve(router, http.MethodGet, path, nil)
		if responseRecorder.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, responseRecorder.Code)
		}
		if responseRecorder.Header().Get(HeaderRequestID) == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}
}

func TestCredentialRefreshAfterSuccess(t *testing.T) {
	store := &recordingStore{}
	serve(newTestRouter(store, http.StatusOK), http.MethodPost, "/desks", credentialHeaders("42"))
	if len(store.refreshed) != 1 || store.refreshed[0] != 42 {
		t.Fatalf("expected refresh for user 42, got %v", store.refreshed)
	}
	if store.lastCred.Authorization != "Bearer token" || store.lastCred.APIKey != "api-key" {
		t.Fatalf("unexpected credential %+v", store.lastCred)
	}
	if len(store.cleared) != 0 {
		t.Fatalf("unexpected clear %v", store.cleared)
	}
}

func TestCredentialClearedAfterUnauthorized(t *testing.T) {
	store := &recordingStore{}
	serve(newTestRouter(store, http.StatusUnauthorized), http.MethodPost, "/desks", credentialHeaders("42"))
	if len(store.cleared) != 1 || store.cleared[0] != 42 || len(store.refreshed) != 0 {
		t.Fatalf("expected clear only, got refreshed=%v cleared=%v", store.refreshed, store.cleared)
	}
}

func TestCredentialHookSkipsLoginLogoutAndOtherStatuses(t *testing.T) {
	store := &recordingStore{}
	router := newTestRouter(store, http.StatusOK)
	serve(router, http.MethodPost, "/auth/login", credentialHeaders("42"))
	serve(router, http.MethodPost, "/auth/logout", credentialHeaders("42"))
	serve(newTestRouter(store, http.StatusBadGateway), http.MethodPost, "/desks", credentialHeaders("42"))
	if len(store.refreshed) != 0 || len(store.cleared) != 0 {
		t.Fatalf("expected no hook calls, got refreshed=%v cleared=%v", store.refreshed, store.cleared)
	}
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	headers := credentialHeaders("1")
	headers[HeaderRequestID] = "req-123"
	responseRecorder := serve(newTestRouter(nil, http.StatusOK), http.MethodPost, "/desks", headers)
	if got := responseRecorder.Header().Get(HeaderRequestID); got != "req-123" {
		t.Fatalf("expected caller request id, got %q", got)
	}
	if !strings.Contains(responseRecorder.Body.String(), `"userId":1`) {
		t.Fatalf("unexpected body %s", responseRecorder.Body.String())
	}
}
