// Package reservation lists reservations and changes their state.
package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
	log "github.com/sirupsen/logrus"
)

const caller = "ReservationService"

// HorizonDays is the span of a listing query after its start date.
const HorizonDays = 14

// State is the normalized reservation lifecycle state.
type State string

const (
	StateAwaitingCheckIn State = "awaiting-check-in"
	StateCheckedIn       State = "checked-in"
	StateExpired         State = "expired"
	StateCanceledByAdmin State = "canceled-by-admin"
	StateCanceled        State = "canceled"
	StateCheckedOut      State = "checked-out"
	StateUnknown         State = "unknown"
)

var stateCodes = map[int]State{
	2: StateAwaitingCheckIn,
	3: StateCheckedIn,
	5: StateExpired,
	6: StateCanceledByAdmin,
	7: StateCanceled,
	8: StateCheckedOut,
}

// MapState converts a booking service state code. Unknown codes are logged.
func MapState(code int) State {
	state, ok := stateCodes[code]
	if !ok {
		log.Warnf("Unknown reservation state: %d, defaulting to %q", code, StateUnknown)
		return StateUnknown
	}
	return state
}

// Active reports whether the reservation still holds its desk for the day.
func (s State) Active() bool {
	return s == StateAwaitingCheckIn || s == StateCheckedIn
}

// Check-in eligibility values that allow a check-in action.
const (
	CheckInStatusCheckIn       = "CHECK_IN"
	CheckInStatusCheckInNoRoll = "CHECK_IN_NO_ROLL"
)

// Reservation is one reservation row.
type Reservation struct {
	ID                 string `json:"id"`
	UserName           string `json:"userName"`
	ResourceName       string `json:"resourceName"`
	PrivateReservation bool   `json:"privateReservation"`
	Location           string `json:"location"`
	Date               string `json:"date"`
	StartTime          string `json:"startTime"`
	EndTime            string `json:"endTime"`
	State              State  `json:"state"`
	CheckInStatus      string `json:"checkInStatus"`
}

// CanCheckIn reports whether the booking service offers a check-in action.
func (r Reservation) CanCheckIn() bool {
	return r.CheckInStatus == CheckInStatusCheckIn || r.CheckInStatus == CheckInStatusCheckInNoRoll
}

// Action is a reservation state change.
type Action int

const (
	ActionCancel   Action = 3
	ActionCheckIn  Action = 5
	ActionCheckOut Action = 6
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionCancel || a == ActionCheckIn || a == ActionCheckOut
}

// Doer is the outbound gateway.
type Doer interface {
	DoJSON(ctx context.Context, req remote.Request, out any) error
}

// Client shapes reservation queries and state changes.
type Client struct {
	gateway Doer
	loc     *time.Location
}

// NewClient constructs a Client. loc is the calendar for dates and the wire tzIdValue.
func NewClient(gateway Doer, loc *time.Location) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{gateway: gateway, loc: loc}
}

// Location returns the calendar used for dates.
func (c *Client) Location() *time.Location {
	return c.loc
}

type reservationQuery struct {
	MaxRows                 int                `json:"maxRows"`
	Dates                   []remote.DateRange `json:"dates"`
	ReservationStates       []int              `json:"reservationStates"`
	SysidUserOwners         []int64            `json:"sysidUserOwners"`
	SysidUserAlloc          int64              `json:"sysidUserAlloc"`
	SysidUserCreators       []int64            `json:"sysidUserCreators"`
	UsersArgsOred           bool               `json:"usersArgsOred"`
	SortAscending           bool               `json:"sortAscending"`
	SortColumn              string             `json:"sortColumn"`
	SysidAllocRelationships []int              `json:"sysidAllocRelationships"`
	OnlyParents             bool               `json:"onlyParents"`
}

type reservationResponse struct {
	Views []struct {
		SysidReservation      int64  `json:"sysidReservation"`
		ReservationName       string `json:"reservationName"`
		ResourceName          string `json:"resourceName"`
		PrivateReservation    bool   `json:"privateReservation"`
		SysidReservationState int    `json:"sysidReservationState"`
		CheckInStatus         string `json:"checkInStatus"`
		ResourceLocations     []struct {
			LocationName string `json:"locationName"`
		} `json:"resourceLocations"`
		AqStartTime remote.AqDate `json:"aqStartTime"`
		AqEndTime   remote.AqDate `json:"aqEndTime"`
	} `json:"views"`
}

// List returns reservations from date (window start) through date+14 days (window end).
func (c *Client) List(ctx context.Context, userID int64, cred roster.Credential, date time.Time, window remote.Window) ([]Reservation, error) {
	start := date.In(c.loc)
	end := start.AddDate(0, 0, HorizonDays)
	tzID := c.loc.String()
	return c.fetch(ctx, userID, cred, remote.DateRange{
		StartTime: remote.NewAqDate(start, window.StartHour, window.StartMinute, tzID),
		EndTime:   remote.NewAqDate(end, window.EndHour, window.EndMinute, tzID),
	})
}

// ListForDay returns reservations of a single calendar day, 00:00 to 23:59.
func (c *Client) ListForDay(ctx context.Context, userID int64, cred roster.Credential, date time.Time) ([]Reservation, error) {
	return c.fetch(ctx, userID, cred, remote.FullDay().On(date.In(c.loc), c.loc.String()))
}

func (c *Client) fetch(ctx context.Context, userID int64, cred roster.Credential, dates remote.DateRange) ([]Reservation, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: %s: `userId` is required", remote.ErrValidation, caller)
	}
	body := reservationQuery{
		MaxRows:                 -1,
		Dates:                   []remote.DateRange{dates},
		ReservationStates:       []int{},
		SysidUserOwners:         []int64{userID},
		SysidUserAlloc:          userID,
		SysidUserCreators:       []int64{userID},
		UsersArgsOred:           true,
		SortAscending:           true,
		SortColumn:              "START_TIME",
		SysidAllocRelationships: []int{},
		OnlyParents:             true,
	}
	var resp reservationResponse
	errDo := c.gateway.DoJSON(ctx, remote.Request{
		Path:       remote.PathGetReservation,
		Credential: cred,
		Body:       body,
		Caller:     caller,
	}, &resp)
	if errDo != nil {
		return nil, errDo
	}

	out := make([]Reservation, 0, len(resp.Views))
	for _, view := range resp.Views {
		location := "Unknown"
		if len(view.ResourceLocations) > 0 && view.ResourceLocations[0].LocationName != "" {
			location = view.ResourceLocations[0].LocationName
		}
		checkInStatus := view.CheckInStatus
		if checkInStatus == "" {
			checkInStatus = "NONE"
		}
		out = append(out, Reservation{
			ID:                 strconv.FormatInt(view.SysidReservation, 10),
			UserName:           view.ReservationName,
			ResourceName:       view.ResourceName,
			PrivateReservation: view.PrivateReservation,
			Location:           location,
			Date:               view.AqStartTime.DayLabel(),
			StartTime:          view.AqStartTime.Clock(),
			EndTime:            view.AqEndTime.Clock(),
			State:              MapState(view.SysidReservationState),
			CheckInStatus:      checkInStatus,
		})
	}
	return out, nil
}

type stateChange struct {
	Changes []stateChangeItem `json:"changes"`
}

type stateChangeItem struct {
	SysidReservation           string `json:"sysidReservation"`
	SysidReservationActionType Action `json:"sysidReservationActionType"`
}

// ChangeState applies action to a reservation and returns the booking service result as is.
func (c *Client) ChangeState(ctx context.Context, reservationID string, action Action, cred roster.Credential) (json.RawMessage, error) {
	if reservationID == "" {
		return nil, fmt.Errorf("%w: %s: `reservationId` is required", remote.ErrValidation, caller)
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %s: unsupported action type %d", remote.ErrValidation, caller, action)
	}
	body := stateChange{Changes: []stateChangeItem{{
		SysidReservation:           reservationID,
		SysidReservationActionType: action,
	}}}
	var result json.RawMessage
	errDo := c.gateway.DoJSON(ctx, remote.Request{
		Method:     http.MethodPut,
		Path:       remote.PathChangeReservationState,
		Credential: cred,
		Body:       body,
		Caller:     caller,
	}, &result)
	if errDo != nil {
		return nil, errDo
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return result, nil
}
