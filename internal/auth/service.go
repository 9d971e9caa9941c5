// Package auth validates cached credentials and runs the login and logout flows.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/deskpilot/deskpilot/internal/identity"
	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
	"github.com/deskpilot/deskpilot/internal/security"
	log "github.com/sirupsen/logrus"
)

const caller = "AuthService"

// Roster is the credential cache as seen by the auth flows.
type Roster interface {
	Get(userID int64) (roster.User, bool)
	GetCredential(userID int64) (roster.Credential, bool)
	IsAuthenticated(userID int64) bool
	RefreshCredential(ctx context.Context, userID int64, cred roster.Credential) error
	ClearCredential(userID int64) error
	ResolveByCredential(ctx context.Context, cred roster.Credential) (roster.User, bool)
}

// Identity resolves users at the booking service.
type Identity interface {
	ResolveByID(ctx context.Context, userID int64, cred roster.Credential, silent bool) (*roster.User, error)
	SearchByEmail(ctx context.Context, email string, cred roster.Credential) ([]identity.Profile, error)
}

// Gateway issues raw calls.
type Gateway interface {
	Do(ctx context.Context, req remote.Request) ([]byte, error)
}

// Service implements credential checks, the sweep, and login/logout.
type Service struct {
	roster   Roster
	identity Identity
	gateway  Gateway
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(r Roster, id Identity, gateway Gateway) *Service {
	return &Service{roster: r, identity: id, gateway: gateway, now: time.Now}
}

// IsAuthValid probes the generic check endpoint. Any failure counts as invalid.
func (s *Service) IsAuthValid(ctx context.Context, cred roster.Credential) bool {
	_, errDo := s.gateway.Do(ctx, remote.Request{
		Method:     http.MethodGet,
		Path:       remote.PathCheckUserAuth,
		Credential: cred,
		Caller:     caller,
	})
	if errDo != nil {
		log.WithError(errDo).Error("AuthService: credential check failed")
		return false
	}
	return true
}

// IsUserAuthValid re-resolves the user under cred. Only an unauthorized response counts as invalid.
func (s *Service) IsUserAuthValid(ctx context.Context, userID int64, cred roster.Credential) bool {
	_, errResolve := s.identity.ResolveByID(ctx, userID, cred, false)
	if errResolve == nil {
		return true
	}
	log.WithError(errResolve).Errorf("AuthService: identity lookup failed for user %d", userID)
	return !remote.IsUnauthorized(errResolve)
}

// Sweep re-validates the cached credential of user and evicts it when rejected.
// It reports whether the credential was evicted.
func (s *Service) Sweep(ctx context.Context, user roster.User) bool {
	entry := log.WithField("user", user.UserName)
	cred, ok := s.roster.GetCredential(user.UserID)
	if !ok || !s.roster.IsAuthenticated(user.UserID) {
		entry.Debug("Auto-CheckUserAuth: user does not have any auth")
		return false
	}
	if !s.IsUserAuthValid(ctx, user.UserID, cred) {
		if errClear := s.roster.ClearCredential(user.UserID); errClear != nil {
			entry.WithError(errClear).Warn("Auto-CheckUserAuth: failed to clear credential")
		}
		entry.Debug("Auto-CheckUserAuth: user has an expired auth (removed)")
		return true
	}
	if expiry, hasExpiry := security.TokenExpiry(cred.Authorization); hasExpiry {
		entry = entry.WithField("expires_in", expiry.Sub(s.now()).Round(time.Minute).String())
	}
	if security.Expired(cred.Authorization, s.now()) {
		entry.Warn("Auto-CheckUserAuth: bearer token is past its expiry but still accepted")
	}
	entry.Debug("Auto-CheckUserAuth: user has a valid auth")
	return false
}

// LoginRequest carries the caller's headers and optional email.
type LoginRequest struct {
	UserID     int64
	Credential roster.Credential
	Email      string
}

// LoginResult is the login response body.
type LoginResult struct {
	Valid  bool    `json:"valid"`
	UserID *int64  `json:"userId"`
	Email  *string `json:"email"`
}

// Login identifies the caller by user id, cached credential, or email search, and stores the credential when valid.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	userID := req.UserID
	if userID == 0 {
		if u, ok := s.roster.ResolveByCredential(ctx, req.Credential); ok {
			userID = u.UserID
		}
	}

	if userID == 0 {
		if req.Email != "" {
			profiles, errSearch := s.identity.SearchByEmail(ctx, req.Email, req.Credential)
			if errSearch != nil {
				return LoginResult{}, errSearch
			}
			if len(profiles) == 1 {
				profile := profiles[0]
				valid := s.IsUserAuthValid(ctx, profile.UserID, req.Credential)
				if valid {
					s.refresh(ctx, profile.UserID, req.Credential)
				}
				return LoginResult{Valid: valid, UserID: &profile.UserID, Email: &profile.Email}, nil
			}
		}
		return LoginResult{Valid: s.IsAuthValid(ctx, req.Credential)}, nil
	}

	result := LoginResult{UserID: &userID}
	result.Valid = s.IsUserAuthValid(ctx, userID, req.Credential)
	if result.Valid {
		s.refresh(ctx, userID, req.Credential)
		if u, ok := s.roster.Get(userID); ok {
			email := u.Email
			result.Email = &email
		}
	}
	if result.Valid {
		if expiry, ok := security.TokenExpiry(req.Credential.Authorization); ok {
			log.WithField("user_id", userID).Infof("AuthService: login accepted, token expires at %s", expiry.Format(time.RFC3339))
		}
	}
	return result, nil
}

// Logout evicts the caller's cached credential.
func (s *Service) Logout(userID int64) error {
	return s.roster.ClearCredential(userID)
}

func (s *Service) refresh(ctx context.Context, userID int64, cred roster.Credential) {
	if errRefresh := s.roster.RefreshCredential(ctx, userID, cred); errRefresh != nil {
		log.WithError(errRefresh).Warnf("AuthService: failed to store credential for user %d", userID)
	}
}
