// Package identity resolves booking service users by id, name, or email.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
)

const (
	caller       = "UserService"
	callerSilent = "UserService-Silent"
)

// activeUserStatus filters email searches to active accounts.
const activeUserStatus = 3

// Profile is a search result without credential fields.
type Profile struct {
	UserID   int64  `json:"userId"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
}

// Doer is the outbound gateway.
type Doer interface {
	DoJSON(ctx context.Context, req remote.Request, out any) error
}

// Resolver looks up users at the booking service.
type Resolver struct {
	client Doer
}

// NewResolver constructs a Resolver.
func NewResolver(client Doer) *Resolver {
	return &Resolver{client: client}
}

type searchByIDResponse struct {
	Profile *struct {
		UserID    int64  `json:"userId"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"profile"`
	Business *struct {
		EmailAddress string `json:"emailAddress"`
	} `json:"business"`
}

type searchResponse struct {
	Views []struct {
		SysidUser    int64  `json:"sysidUser"`
		FirstName    string `json:"firstName"`
		LastName     string `json:"lastName"`
		EmailAddress string `json:"emailAddress"`
	} `json:"views"`
}

// ResolveByID returns a freshly provisioned user carrying cred, or nil when no profile matches.
func (r *Resolver) ResolveByID(ctx context.Context, userID int64, cred roster.Credential, silent bool) (*roster.User, error) {
	if userID == 0 {
		return nil, nil
	}
	label := caller
	if silent {
		label = callerSilent
	}
	var resp searchByIDResponse
	errDo := r.client.DoJSON(ctx, remote.Request{
		Path:       remote.PathSearchUserByID,
		Credential: cred,
		Body:       map[string]int64{"sysidUser": userID},
		Caller:     label,
		Silent:     silent,
	}, &resp)
	if errDo != nil {
		return nil, errDo
	}
	if resp.Profile == nil || resp.Business == nil {
		return nil, nil
	}
	u := roster.NewUser(
		resp.Profile.UserID,
		resp.Profile.FirstName+" "+resp.Profile.LastName,
		resp.Business.EmailAddress,
		cred,
	)
	return &u, nil
}

// SearchByName splits name into first and last name and searches the directory.
func (r *Resolver) SearchByName(ctx context.Context, name string, cred roster.Credential) ([]Profile, error) {
	words := strings.Fields(name)
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: missing field `name`", remote.ErrValidation)
	}
	lastName := words[len(words)-1]
	firstName := lastName
	if len(words) > 1 {
		firstName = strings.Join(words[:len(words)-1], " ")
	}
	return r.search(ctx, remote.PathSearchUserByName, cred, map[string]any{
		"startRow":      0,
		"maxRows":       -1,
		"firstName":     firstName,
		"lastName":      lastName,
		"sortColumn":    "LAST_NAME",
		"sortAscending": true,
	})
}

// SearchByEmail searches active users by email address.
func (r *Resolver) SearchByEmail(ctx context.Context, email string, cred roster.Credential) ([]Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: missing field `email`", remote.ErrValidation)
	}
	return r.search(ctx, remote.PathSearchUser, cred, map[string]any{
		"startRow":      0,
		"maxRows":       -1,
		"emailAddress":  email,
		"sysidStatuses": []int{activeUserStatus},
	})
}

func (r *Resolver) search(ctx context.Context, path remote.Path, cred roster.Credential, body map[string]any) ([]Profile, error) {
	var resp searchResponse
	if errDo := r.client.DoJSON(ctx, remote.Request{Path: path, Credential: cred, Body: body, Caller: caller}, &resp); errDo != nil {
		return nil, errDo
	}
	profiles := make([]Profile, 0, len(resp.Views))
	for _, view := range resp.Views {
		profiles = append(profiles, Profile{
			UserID:   view.SysidUser,
			UserName: view.FirstName + " " + view.LastName,
			Email:    view.EmailAddress,
		})
	}
	return profiles, nil
}
