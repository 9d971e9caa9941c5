// Package booking decides, per user and target day, whether to book, skip, or report an error.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deskpilot/deskpilot/internal/desk"
	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/reservation"
	"github.com/deskpilot/deskpilot/internal/roster"
	log "github.com/sirupsen/logrus"
)

// HorizonDays is how far ahead automated booking operates.
const HorizonDays = 14

// ErrMisconfigured marks auto-booking arrays that are empty or misaligned.
var ErrMisconfigured = errors.New("booking: invalid auto-booking configuration")

// Status is the result class of one booking attempt.
type Status string

const (
	StatusSkipped Status = "skipped"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Outcome is the result of one (user, target date) attempt.
type Outcome struct {
	Date        string `json:"date"`
	Status      Status `json:"status"`
	Description string `json:"description"`
	// Err is the underlying failure for error outcomes.
	Err error `json:"-"`
}

// Roster is the credential cache as seen by the orchestrator.
type Roster interface {
	GetCredential(userID int64) (roster.Credential, bool)
	IsAuthenticated(userID int64) bool
	ClearCredential(userID int64) error
}

// Desks checks availability and books.
type Desks interface {
	IsAvailable(ctx context.Context, q desk.Query) (bool, error)
	Book(ctx context.Context, req desk.BookRequest) error
}

// Reservations lists one day of a user's reservations.
type Reservations interface {
	ListForDay(ctx context.Context, userID int64, cred roster.Credential, date time.Time) ([]reservation.Reservation, error)
}

// Options configures the calendar.
type Options struct {
	Location *time.Location
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Orchestrator runs the booking workflow.
type Orchestrator struct {
	roster       Roster
	desks        Desks
	reservations Reservations
	loc          *time.Location
	now          func() time.Time
}

// New constructs an Orchestrator.
func New(r Roster, desks Desks, reservations Reservations, opts Options) *Orchestrator {
	o := &Orchestrator{
		roster:       r,
		desks:        desks,
		reservations: reservations,
		loc:          opts.Location,
		now:          opts.Now,
	}
	if o.loc == nil {
		o.loc = time.Local
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// BookInAdvance books the day at the far end of the horizon.
func (o *Orchestrator) BookInAdvance(ctx context.Context, user roster.User) Outcome {
	return o.BookDay(ctx, user, HorizonDays)
}

// BookAllDays runs every day of the horizon in date order.
func (o *Orchestrator) BookAllDays(ctx context.Context, user roster.User) []Outcome {
	outcomes := make([]Outcome, 0, HorizonDays)
	for offset := 1; offset <= HorizonDays; offset++ {
		outcomes = append(outcomes, o.BookDay(ctx, user, offset))
	}
	return outcomes
}

// TargetDate returns local midnight of today plus offset days.
func (o *Orchestrator) TargetDate(offset int) time.Time {
	today := o.now().In(o.loc)
	return time.Date(today.Year(), today.Month(), today.Day()+offset, 0, 0, 0, 0, o.loc)
}

// BookDay runs the workflow for today plus offset days.
func (o *Orchestrator) BookDay(ctx context.Context, user roster.User, offset int) Outcome {
	target := o.TargetDate(offset)
	day := remote.FormatDate(target)
	entry := log.WithFields(log.Fields{"user": user.UserName, "date": day})

	cred, ok := o.roster.GetCredential(user.UserID)
	if !ok || !o.roster.IsAuthenticated(user.UserID) {
		entry.Debug("Auto-Booking: skipping because auth is invalid")
		return Outcome{Date: day, Status: StatusError, Description: "Invalid user authentication"}
	}

	if !user.BookingShapeValid() {
		entry.Warn("Auto-Booking: skipping because desks configuration is invalid")
		return Outcome{Date: day, Status: StatusError, Description: "Invalid auto-booking configuration", Err: ErrMisconfigured}
	}

	slot, ok := user.BookingSlot(target.Weekday())
	if !ok {
		entry.Debugf("Auto-Booking: %s is not in booking days %v", day, roster.DayInts(user.AutoBookingDaysOfWeek))
		return Outcome{Date: day, Status: StatusSkipped, Description: "Not a configured booking day"}
	}

	outcome, errBook := o.bookSlot(ctx, user, cred, target, slot)
	if errBook == nil {
		return outcome
	}
	if remote.IsUnauthorized(errBook) {
		entry.Errorf("Auto-Booking: the user %d - %s auth has been expired", user.UserID, user.UserName)
		if errClear := o.roster.ClearCredential(user.UserID); errClear != nil {
			entry.WithError(errClear).Warn("Auto-Booking: failed to clear credential")
		}
	}
	entry.WithError(errBook).Error("Auto-Booking: booking failed")
	return Outcome{Date: day, Status: StatusError, Description: errBook.Error(), Err: errBook}
}

func (o *Orchestrator) bookSlot(ctx context.Context, user roster.User, cred roster.Credential, target time.Time, slot int) (Outcome, error) {
	day := remote.FormatDate(target)
	deskID := user.AutoBookingDesksID[slot]
	deskName := user.AutoBookingDesksName[slot]

	reservations, errList := o.reservations.ListForDay(ctx, user.UserID, cred, target)
	if errList != nil {
		return Outcome{}, errList
	}
	var active *reservation.Reservation
	for i := range reservations {
		if reservations[i].State.Active() {
			active = &reservations[i]
		}
	}
	if active != nil {
		log.Debugf("Auto-Booking: %s already has booked %s on %s", user.UserName, active.ResourceName, day)
		return Outcome{Date: day, Status: StatusSkipped, Description: fmt.Sprintf("Booked desk %s on this date", active.ResourceName)}, nil
	}

	window := remote.Window{
		StartHour:   user.StartHour,
		StartMinute: user.StartMinute,
		EndHour:     user.EndHour,
		EndMinute:   user.EndMinute,
	}
	available, errAvailable := o.desks.IsAvailable(ctx, desk.Query{
		UserID:     user.UserID,
		Credential: cred,
		Date:       target,
		DeskID:     deskID,
		Window:     window,
	})
	if errAvailable != nil {
		return Outcome{}, errAvailable
	}
	if !available {
		log.Debugf("Auto-Booking: desk %s-%d is already booked for %s", deskName, deskID, day)
		return Outcome{Date: day, Status: StatusError, Description: fmt.Sprintf("Desk %s is already booked", deskName)}, nil
	}

	log.Infof("Auto-Booking: booking desk %s-%d for %s on %s", deskName, deskID, user.UserName, day)
	errBook := o.desks.Book(ctx, desk.BookRequest{
		UserID:      user.UserID,
		Credential:  cred,
		Date:        day,
		DeskID:      &deskID,
		StartHour:   &window.StartHour,
		StartMinute: &window.StartMinute,
		EndHour:     &window.EndHour,
		EndMinute:   &window.EndMinute,
	})
	if errBook != nil {
		return Outcome{}, errBook
	}
	return Outcome{Date: day, Status: StatusSuccess, Description: fmt.Sprintf("Booked desk %s successfully", deskName)}, nil
}
