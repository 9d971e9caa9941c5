// Package preferences reads and writes per-user automation preferences.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
	log "github.com/sirupsen/logrus"
)

// ErrConflict is returned when a desk is already claimed for the same weekday by another user.
var ErrConflict = errors.New("preferences: desk already configured")

// Roster is the subset of the credential cache used here.
type Roster interface {
	GetAll() []roster.User
	Update(userID int64, fn func(*roster.User) error) error
}

// View is a roster entry with the credential fields removed.
type View struct {
	UserID                int64              `json:"userId"`
	UserName              string             `json:"userName"`
	Email                 string             `json:"email"`
	AutoBookingDesksID    []int64            `json:"autoBookingDesksId"`
	AutoBookingDesksName  []string           `json:"autoBookingDesksName"`
	AutoBookingDaysOfWeek []roster.DayOfWeek `json:"autoBookingDaysOfWeek"`
	AutoCheckInDaysOfWeek []roster.DayOfWeek `json:"autoCheckInDaysOfWeek"`
	StartHour             int                `json:"startHour"`
	StartMinute           int                `json:"startMinute"`
	EndHour               int                `json:"endHour"`
	EndMinute             int                `json:"endMinute"`
}

// Patch is an update request. Nil fields keep the stored value.
type Patch struct {
	UserName              *string            `json:"userName"`
	AutoBookingDesksID    []int64            `json:"autoBookingDesksId"`
	AutoBookingDesksName  []string           `json:"autoBookingDesksName"`
	AutoBookingDaysOfWeek []roster.DayOfWeek `json:"autoBookingDaysOfWeek"`
	AutoCheckInDaysOfWeek []roster.DayOfWeek `json:"autoCheckInDaysOfWeek"`
	StartHour             *int               `json:"startHour"`
	StartMinute           *int               `json:"startMinute"`
	EndHour               *int               `json:"endHour"`
	EndMinute             *int               `json:"endMinute"`
}

// FieldError reports a malformed patch.
type FieldError struct {
	Message string
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *FieldError) Unwrap() error { return remote.ErrValidation }

// Service exposes the preference operations.
type Service struct {
	roster Roster
}

// NewService constructs a Service.
func NewService(r Roster) *Service {
	return &Service{roster: r}
}

// List returns every roster entry without credentials.
func (s *Service) List() []View {
	users := s.roster.GetAll()
	out := make([]View, 0, len(users))
	for _, u := range users {
		out = append(out, View{
			UserID:                u.UserID,
			UserName:              u.UserName,
			Email:                 u.Email,
			AutoBookingDesksID:    u.AutoBookingDesksID,
			AutoBookingDesksName:  u.AutoBookingDesksName,
			AutoBookingDaysOfWeek: u.AutoBookingDaysOfWeek,
			AutoCheckInDaysOfWeek: u.AutoCheckInDaysOfWeek,
			StartHour:             u.StartHour,
			StartMinute:           u.StartMinute,
			EndHour:               u.EndHour,
			EndMinute:             u.EndMinute,
		})
	}
	return out
}

// Update validates patch and applies it to userID.
func (s *Service) Update(ctx context.Context, userID int64, patch Patch) error {
	if errCtx := ctx.Err(); errCtx != nil {
		return errCtx
	}
	if errCheck := checkRequired(userID, patch); errCheck != nil {
		return errCheck
	}
	if errCheck := checkWindow(patch); errCheck != nil {
		return errCheck
	}
	if errCheck := s.checkDuplicates(userID, patch); errCheck != nil {
		return errCheck
	}

	errUpdate := s.roster.Update(userID, func(u *roster.User) error {
		apply(u, patch)
		return nil
	})
	if errUpdate != nil {
		return errUpdate
	}
	log.WithField("user_id", userID).Info("preferences: updated auto-booking configuration")
	return nil
}

func checkRequired(userID int64, patch Patch) error {
	var missing []string
	if userID == 0 {
		missing = append(missing, "userId")
	}
	if patch.UserName == nil || *patch.UserName == "" {
		missing = append(missing, "userName")
	}
	if patch.AutoBookingDesksID == nil {
		missing = append(missing, "autoBookingDesksId")
	}
	if patch.AutoBookingDesksName == nil {
		missing = append(missing, "autoBookingDesksName")
	}
	if patch.AutoBookingDaysOfWeek == nil {
		missing = append(missing, "autoBookingDaysOfWeek")
	}
	if len(missing) > 0 {
		return &FieldError{Message: "Missing required fields: " + strings.Join(missing, ", ")}
	}

	n := len(patch.AutoBookingDaysOfWeek)
	if n != len(patch.AutoBookingDesksID) || n != len(patch.AutoBookingDesksName) {
		return &FieldError{Message: "Not Equal length of auto booking days and desks"}
	}
	return nil
}

func checkWindow(patch Patch) error {
	bounds := []struct {
		name  string
		value *int
		max   int
	}{
		{"startHour", patch.StartHour, 23},
		{"startMinute", patch.StartMinute, 59},
		{"endHour", patch.EndHour, 23},
		{"endMinute", patch.EndMinute, 59},
	}
	for _, b := range bounds {
		if b.value != nil && (*b.value < 0 || *b.value > b.max) {
			return &FieldError{Message: fmt.Sprintf("%s must be between 0 and %d", b.name, b.max)}
		}
	}
	return nil
}

type slotKey struct {
	deskID  int64
	weekday int
}

func (s *Service) checkDuplicates(userID int64, patch Patch) error {
	taken := make(map[slotKey]struct{})
	for _, u := range s.roster.GetAll() {
		if u.UserID == userID {
			continue
		}
		for i, deskID := range u.AutoBookingDesksID {
			if i >= len(u.AutoBookingDaysOfWeek) || !u.AutoBookingDaysOfWeek[i].Enabled() {
				continue
			}
			taken[slotKey{deskID: deskID, weekday: u.AutoBookingDaysOfWeek[i].Int()}] = struct{}{}
		}
	}

	for i, deskID := range patch.AutoBookingDesksID {
		day := patch.AutoBookingDaysOfWeek[i]
		if !day.Enabled() {
			continue
		}
		if _, exists := taken[slotKey{deskID: deskID, weekday: day.Int()}]; exists {
			return fmt.Errorf("%w: Desk %s is already configured for auto-booking on the same day of the week", ErrConflict, patch.AutoBookingDesksName[i])
		}
	}
	return nil
}

func apply(u *roster.User, patch Patch) {
	if patch.UserName != nil {
		u.UserName = *patch.UserName
	}
	if patch.AutoBookingDesksID != nil {
		u.AutoBookingDesksID = append([]int64(nil), patch.AutoBookingDesksID...)
	}
	if patch.AutoBookingDesksName != nil {
		u.AutoBookingDesksName = append([]string(nil), patch.AutoBookingDesksName...)
	}
	if patch.AutoBookingDaysOfWeek != nil {
		u.AutoBookingDaysOfWeek = append([]roster.DayOfWeek(nil), patch.AutoBookingDaysOfWeek...)
	}
	if patch.AutoCheckInDaysOfWeek != nil {
		u.AutoCheckInDaysOfWeek = append([]roster.DayOfWeek(nil), patch.AutoCheckInDaysOfWeek...)
	}
	if patch.StartHour != nil {
		u.StartHour = *patch.StartHour
	}
	if patch.StartMinute != nil {
		u.StartMinute = *patch.StartMinute
	}
	if patch.EndHour != nil {
		u.EndHour = *patch.EndHour
	}
	if patch.EndMinute != nil {
		u.EndMinute = *patch.EndMinute
	}
}
