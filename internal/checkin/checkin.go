// Package checkin confirms today's reservations for users with auto check-in enabled.
package checkin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/reservation"
	"github.com/deskpilot/deskpilot/internal/roster"
	log "github.com/sirupsen/logrus"
)

// Roster is the credential cache as seen by the engine.
type Roster interface {
	GetCredential(userID int64) (roster.Credential, bool)
	IsAuthenticated(userID int64) bool
	ClearCredential(userID int64) error
}

// Reservations lists and changes reservations.
type Reservations interface {
	ListForDay(ctx context.Context, userID int64, cred roster.Credential, date time.Time) ([]reservation.Reservation, error)
	ChangeState(ctx context.Context, reservationID string, action reservation.Action, cred roster.Credential) (json.RawMessage, error)
}

// Summary reports one user's check-in pass.
type Summary struct {
	Skipped   bool
	Eligible  int
	CheckedIn int
	Failed    int
}

// Engine runs auto check-in for today.
type Engine struct {
	roster       Roster
	reservations Reservations
	loc          *time.Location
	now          func() time.Time
}

// New constructs an Engine. now may be nil.
func New(r Roster, reservations Reservations, loc *time.Location, now func() time.Time) *Engine {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{roster: r, reservations: reservations, loc: loc, now: now}
}

// Run checks the user in on every eligible reservation of today.
// Failures are logged per reservation and never abort the batch.
func (e *Engine) Run(ctx context.Context, user roster.User) Summary {
	today := e.now().In(e.loc)
	entry := log.WithField("user", user.UserName)

	cred, ok := e.roster.GetCredential(user.UserID)
	if !ok || !e.roster.IsAuthenticated(user.UserID) {
		entry.Debug("Auto-CheckIn: skipping because auth is invalid")
		return Summary{Skipped: true}
	}
	if !user.ChecksInOn(today.Weekday()) {
		entry.Debugf("Auto-CheckIn: skipping because today is not a check-in day: %v", enabledDays(user.AutoCheckInDaysOfWeek))
		return Summary{Skipped: true}
	}

	reservations, errList := e.reservations.ListForDay(ctx, user.UserID, cred, today)
	if errList != nil {
		if remote.IsUnauthorized(errList) {
			e.evict(user)
		}
		entry.WithError(errList).Error("Auto-CheckIn: failed to list reservations")
		return Summary{}
	}

	var eligible []reservation.Reservation
	for _, r := range reservations {
		if r.CanCheckIn() {
			eligible = append(eligible, r)
		}
	}
	summary := Summary{Eligible: len(eligible)}
	switch {
	case len(eligible) == 0:
		entry.Info("Auto-CheckIn: user has no reservation to check in")
	case len(eligible) > 1:
		entry.Warnf("Auto-CheckIn: multiple reservations found on %s", remote.FormatDate(today))
	}

	for _, r := range eligible {
		entry.Infof("Auto-CheckIn: start check in for reservation %s", r.ID)
		if _, errChange := e.reservations.ChangeState(ctx, r.ID, reservation.ActionCheckIn, cred); errChange != nil {
			summary.Failed++
			if remote.IsUnauthorized(errChange) {
				e.evict(user)
			}
			entry.WithError(errChange).Errorf("Auto-CheckIn: check in failed for reservation %s", r.ID)
			continue
		}
		summary.CheckedIn++
	}
	return summary
}

func (e *Engine) evict(user roster.User) {
	if errClear := e.roster.ClearCredential(user.UserID); errClear != nil {
		log.WithError(errClear).Warnf("Auto-CheckIn: failed to clear credential for user %d", user.UserID)
	}
}

func enabledDays(slots []roster.DayOfWeek) []string {
	var out []string
	for _, slot := range slots {
		if slot.Enabled() {
			out = append(out, slot.String())
		}
	}
	return out
}
