package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/deskpilot/deskpilot/internal/identity"
	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
)

type staticPersister struct{ users []roster.User }

func (p *staticPersister) Load(context.Context) ([]roster.User, error) { return p.users, nil }
func (p *staticPersister) Save(context.Context, []roster.User) error   { return nil }

type fakeIdentity struct {
	valid    map[string]bool
	profiles []identity.Profile
	failWith error
}

func (f *fakeIdentity) ResolveByID(_ context.Context, userID int64, cred roster.Credential, _ bool) (*roster.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	if !f.valid[cred.Authorization] {
		return nil, &remote.Error{StatusCode: http.StatusUnauthorized, Message: "Unauthorized"}
	}
	u := roster.NewUser(userID, "Resolved", "resolved@example.com", cred)
	return &u, nil
}

func (f *fakeIdentity) SearchByEmail(context.Context, string, roster.Credential) ([]identity.Profile, error) {
	return f.profiles, nil
}

type fakeGateway struct {
	err   error
	calls int
}

func (g *fakeGateway) Do(context.Context, remote.Request) ([]byte, error) {
	g.calls++
	return nil, g.err
}

func cred(token string) roster.Credential {
	return roster.Credential{AppAuthToken: "app", Authorization: token, APIKey: "key"}
}

func newRoster(t *testing.T, id *fakeIdentity, users ...roster.User) *roster.Cache {
	t.Helper()
	cache := roster.NewCache(&staticPersister{users: users}, id)
	if errLoad := cache.Load(context.Background()); errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	return cache
}

func TestIsUserAuthValidOnlyRejectsUnauthorized(t *testing.T) {
	id := &fakeIdentity{valid: map[string]bool{"good": true}}
	svc := NewService(newRoster(t, id), id, &fakeGateway{})
	ctx := context.Background()

	if !svc.IsUserAuthValid(ctx, 7, cred("good")) {
		t.Fatal("expected valid credential")
	}
	if svc.IsUserAuthValid(ctx, 7, cred("bad")) {
		t.Fatal("expected 401 to be invalid")
	}
	id.failWith = &remote.Error{StatusCode: http.StatusBadGateway}
	if !svc.IsUserAuthValid(ctx, 7, cred("bad")) {
		t.Fatal("expected non-401 failures to count as valid")
	}
}

func TestIsAuthValid(t *testing.T) {
	gateway := &fakeGateway{}
	svc := NewService(nil, &fakeIdentity{}, gateway)
	if !svc.IsAuthValid(context.Background(), cred("x")) {
		t.Fatal("expected success to be valid")
	}
	gateway.err = errors.New("boom")
	if svc.IsAuthValid(context.Background(), cred("x")) {
		t.Fatal("expected any failure to be invalid")
	}
}

func TestSweep(t *testing.T) {
	id := &fakeIdentity{valid: map[string]bool{"good": true}}
	r := newRoster(t, id,
		roster.NewUser(1, "Alice", "a@example.com", cred("good")),
		roster.NewUser(2, "Bob", "b@example.com", cred("stale")),
		roster.NewUser(3, "Carol", "c@example.com", roster.Credential{}),
	)
	svc := NewService(r, id, &fakeGateway{})
	ctx := context.Background()

	for _, u := range r.GetAll() {
		evicted := svc.Sweep(ctx, u)
		if evicted != (u.UserID == 2) {
			t.Fatalf("user %d: unexpected eviction=%v", u.UserID, evicted)
		}
	}
	if !r.IsAuthenticated(1) {
		t.Fatal("expected valid credential to be kept")
	}
	if r.IsAuthenticated(2) {
		t.Fatal("expected stale credential to be cleared")
	}
}

func TestLoginByUserID(t *testing.T) {
	id := &fakeIdentity{valid: map[string]bool{"fresh": true}}
	r := newRoster(t, id, roster.NewUser(5, "Eve", "eve@example.com", roster.Credential{}))
	svc := NewService(r, id, &fakeGateway{})

	result, errLogin := svc.Login(context.Background(), LoginRequest{UserID: 5, Credential: cred("fresh")})
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	if !result.Valid || result.UserID == nil || *result.UserID != 5 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Email == nil || *result.Email != "eve@example.com" {
		t.Fatalf("unexpected email %v", result.Email)
	}
	if stored, _ := r.GetCredential(5); stored.Authorization != "fresh" {
		t.Fatalf("expected credential to be stored, got %+v", stored)
	}
}

func TestLoginByEmailSearch(t *testing.T) {
	id := &fakeIdentity{
		valid:    map[string]bool{"fresh": true},
		profiles: []identity.Profile{{UserID: 9, UserName: "Nine", Email: "nine@example.com"}},
	}
	r := newRoster(t, id)
	svc := NewService(r, id, &fakeGateway{})

	result, errLogin := svc.Login(context.Background(), LoginRequest{Credential: cred("fresh"), Email: "nine@example.com"})
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	if !result.Valid || *result.UserID != 9 || *result.Email != "nine@example.com" {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, ok := r.Get(9); !ok {
		t.Fatal("expected user to be provisioned on login")
	}
}

func TestLoginFallsBackToGenericCheck(t *testing.T) {
	id := &fakeIdentity{}
	gateway := &fakeGateway{}
	svc := NewService(newRoster(t, id), id, gateway)

	result, errLogin := svc.Login(context.Background(), LoginRequest{Credential: cred("unknown")})
	if errLogin != nil {
		t.Fatalf("login: %v", errLogin)
	}
	if !result.Valid || result.UserID != nil || result.Email != nil {
		t.Fatalf("unexpected result %+v", result)
	}
	if gateway.calls != 1 {
		t.Fatalf("expected one check call, got %d", gateway.calls)
	}
}

func TestLogout(t *testing.T) {
	id := &fakeIdentity{}
	r := newRoster(t, id, roster.NewUser(4, "Dan", "d@example.com", cred("t")))
	svc := NewService(r, id, &fakeGateway{})
	if errLogout := svc.Logout(4); errLogout != nil {
		t.Fatalf("logout: %v", errLogout)
	}
	if r.IsAuthenticated(4) {
		t.Fatal("expected credential to be cleared")
	}
	if errLogout := svc.Logout(404); !errors.Is(errLogout, roster.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", errLogout)
	}
}
