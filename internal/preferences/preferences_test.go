package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
)

type staticPersister struct{ users []roster.User }

func (p *staticPersister) Load(context.Context) ([]roster.User, error) { return p.users, nil }
func (p *staticPersister) Save(context.Context, []roster.User) error   { return nil }

func newService(t *testing.T, users ...roster.User) (*Service, *roster.Cache) {
	t.Helper()
	cache := roster.NewCache(&staticPersister{users: users}, nil)
	if errLoad := cache.Load(context.Background()); errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	return NewService(cache), cache
}

func withDesk(u roster.User, deskID int64, name string, day time.Weekday) roster.User {
	u.AutoBookingDesksID = []int64{deskID}
	u.AutoBookingDesksName = []string{name}
	u.AutoBookingDaysOfWeek = []roster.DayOfWeek{roster.On(day)}
	return u
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestListOmitsCredentials(t *testing.T) {
	svc, _ := newService(t, roster.NewUser(1, "Alice", "a@example.com", roster.Credential{
		AppAuthToken: "app-secret", Authorization: "Bearer secret", APIKey: "key-secret",
	}))
	encoded, errMarshal := json.Marshal(svc.List())
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}
	if strings.Contains(string(encoded), "secret") {
		t.Fatalf("credentials leaked: %s", encoded)
	}
	if !strings.Contains(string(encoded), `"userId":1`) {
		t.Fatalf("expected user id in %s", encoded)
	}
}

func TestUpdateRequiredFields(t *testing.T) {
	svc, _ := newService(t, roster.NewUser(1, "Alice", "a@example.com", roster.Credential{}))

	errUpdate := svc.Update(context.Background(), 1, Patch{})
	if !errors.Is(errUpdate, remote.ErrValidation) {
		t.Fatalf("expected validation error, got %v", errUpdate)
	}
	want := "Missing required fields: userName, autoBookingDesksId, autoBookingDesksName, autoBookingDaysOfWeek"
	if errUpdate.Error() != want {
		t.Fatalf("unexpected message %q", errUpdate.Error())
	}

	errUpdate = svc.Update(context.Background(), 1, Patch{
		UserName:              strPtr("Alice"),
		AutoBookingDesksID:    []int64{1, 2},
		AutoBookingDesksName:  []string{"W.1.1"},
		AutoBookingDaysOfWeek: []roster.DayOfWeek{roster.On(time.Monday), roster.Disabled()},
	})
	if errUpdate == nil || errUpdate.Error() != "Not Equal length of auto booking days and desks" {
		t.Fatalf("expected length error, got %v", errUpdate)
	}
}

func TestUpdateRejectsDuplicateDeskDay(t *testing.T) {
	bob := withDesk(roster.NewUser(2, "Bob", "b@example.com", roster.Credential{}), 300, "W.1.30", time.Tuesday)
	svc, _ := newService(t, roster.NewUser(1, "Alice", "a@example.com", roster.Credential{}), bob)

	errUpdate := svc.Update(context.Background(), 1, Patch{
		UserName:              strPtr("Alice"),
		AutoBookingDesksID:    []int64{300},
		AutoBookingDesksName:  []string{"W.1.30"},
		AutoBookingDaysOfWeek: []roster.DayOfWeek{roster.On(time.Tuesday)},
	})
	if !errors.Is(errUpdate, ErrConflict) {
		t.Fatalf("expected conflict, got %v", errUpdate)
	}

	errUpdate = svc.Update(context.Background(), 2, Patch{
		UserName:              strPtr("Bob"),
		AutoBookingDesksID:    []int64{300},
		AutoBookingDesksName:  []string{"W.1.30"},
		AutoBookingDaysOfWeek: []roster.DayOfWeek{roster.On(time.Tuesday)},
	})
	if errUpdate != nil {
		t.Fatalf("own configuration should not conflict: %v", errUpdate)
	}
}

func TestUpdateAppliesPatch(t *testing.T) {
	svc, cache := newService(t, roster.NewUser(1, "Alice", "a@example.com", roster.Credential{}))

	errUpdate := svc.Update(context.Background(), 1, Patch{
		UserName:              strPtr("Alice A."),
		AutoBookingDesksID:    []int64{10, roster.NoDesk},
		AutoBookingDesksName:  []string{"W.2.10", ""},
		AutoBookingDaysOfWeek: []roster.DayOfWeek{roster.On(time.Monday), roster.Disabled()},
		EndHour:               intPtr(18),
	})
	if errUpdate != nil {
		t.Fatalf("update: %v", errUpdate)
	}
	u, _ := cache.Get(1)
	if u.UserName != "Alice A." || u.EndHour != 18 || u.StartHour != roster.DefaultStartHour {
		t.Fatalf("unexpected user %+v", u)
	}
	if len(u.AutoBookingDesksID) != 2 || u.AutoBookingDesksID[0] != 10 {
		t.Fatalf("unexpected desks %v", u.AutoBookingDesksID)
	}
	if len(u.AutoCheckInDaysOfWeek) != roster.SlotCount {
		t.Fatalf("expected check-in days to be kept, got %v", u.AutoCheckInDaysOfWeek)
	}
}

func TestUpdateUnknownUserAndBadWindow(t *testing.T) {
	svc, _ := newService(t)
	patch := Patch{
		UserName:              strPtr("Ghost"),
		AutoBookingDesksID:    []int64{},
		AutoBookingDesksName:  []string{},
		AutoBookingDaysOfWeek: []roster.DayOfWeek{},
	}
	if errUpdate := svc.Update(context.Background(), 99, patch); !errors.Is(errUpdate, roster.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", errUpdate)
	}
	patch.StartMinute = intPtr(75)
	if errUpdate := svc.Update(context.Background(), 99, patch); !errors.Is(errUpdate, remote.ErrValidation) {
		t.Fatalf("expected validation error, got %v", errUpdate)
	}
}
