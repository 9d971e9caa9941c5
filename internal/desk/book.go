package desk

import (
	"context"
	"fmt"

	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
)

// BookRequest creates one reservation. Nil fields are reported as missing.
type BookRequest struct {
	UserID      int64
	Credential  roster.Credential
	Date        string
	DeskID      *int64
	StartHour   *int
	StartMinute *int
	EndHour     *int
	EndMinute   *int
}

// Validate returns a *ValidationError naming every missing field.
func (r BookRequest) Validate() error {
	var missing []string
	if r.UserID == 0 {
		missing = append(missing, "userId")
	}
	if r.Date == "" {
		missing = append(missing, "date")
	}
	if r.DeskID == nil {
		missing = append(missing, "deskId")
	}
	if r.StartHour == nil {
		missing = append(missing, "startHour")
	}
	if r.StartMinute == nil {
		missing = append(missing, "startMinute")
	}
	if r.EndHour == nil {
		missing = append(missing, "endHour")
	}
	if r.EndMinute == nil {
		missing = append(missing, "endMinute")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

type bookingEvent struct {
	SysidUserAlloc int64 `json:"sysidUserAlloc"`
	Event          struct {
		Name            string               `json:"name"`
		SysidEventOwner int64                `json:"sysidEventOwner"`
		Discriminator   string               `json:"discriminator"`
		RecurrenceRule  *string              `json:"recurrenceRule"`
		Reservations    []bookingReservation `json:"reservations"`
	} `json:"event"`
}

type bookingReservation struct {
	SysidUserOwner   int64         `json:"sysidUserOwner"`
	Name             string        `json:"name"`
	SysidResource    int64         `json:"sysidResource"`
	Discriminator    string        `json:"discriminator"`
	SysidPurposeType int           `json:"sysidPurposeType"`
	AqStartTime      remote.AqDate `json:"aqStartTime"`
	AqEndTime        remote.AqDate `json:"aqEndTime"`
	PrivateResv      *bool         `json:"privateResv"`
	SuppressEmails   bool          `json:"suppressEmails"`
	Children         []any         `json:"children"`
}

// Book validates req and creates the reservation labelled with the user's display name.
func (c *Client) Book(ctx context.Context, req BookRequest) error {
	if errValidate := req.Validate(); errValidate != nil {
		return errValidate
	}
	date, errDate := remote.ParseDate(req.Date, c.loc)
	if errDate != nil {
		return errDate
	}
	user, ok := c.users.Get(req.UserID)
	if !ok {
		return fmt.Errorf("%w: %s: invalid user id %d", remote.ErrValidation, caller, req.UserID)
	}

	var body bookingEvent
	body.SysidUserAlloc = req.UserID
	body.Event.Name = user.UserName
	body.Event.SysidEventOwner = req.UserID
	body.Event.Discriminator = "STND"
	body.Event.Reservations = []bookingReservation{{
		SysidUserOwner:   req.UserID,
		Name:             user.UserName,
		SysidResource:    *req.DeskID,
		Discriminator:    "ROOM",
		SysidPurposeType: 1,
		AqStartTime:      remote.NewAqDate(date, *req.StartHour, *req.StartMinute, c.loc.String()),
		AqEndTime:        remote.NewAqDate(date, *req.EndHour, *req.EndMinute, c.loc.String()),
		Children:         []any{},
	}}

	return c.gateway.DoJSON(ctx, remote.Request{
		Path:       remote.PathBookDesk,
		Credential: req.Credential,
		Body:       body,
		Caller:     caller,
	}, nil)
}
