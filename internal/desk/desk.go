// Package desk queries workspace availability and creates desk reservations.
package desk

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
	log "github.com/sirupsen/logrus"
)

const caller = "DeskService"

// Status is the normalized availability of a desk.
type Status string

const (
	StatusAvailable         Status = "available"
	StatusPartiallyReserved Status = "partially_reserved"
	StatusFullyReserved     Status = "fully_reserved"
	StatusRestricted        Status = "restricted"
	StatusUnknown           Status = "unknown"
)

var statusCodes = map[int]Status{
	1: StatusAvailable,
	4: StatusPartiallyReserved,
	5: StatusFullyReserved,
	6: StatusRestricted,
}

// MapStatus converts a booking service status code. Unknown codes are logged.
func MapStatus(code int) Status {
	status, ok := statusCodes[code]
	if !ok {
		log.Warnf("Unknown desk status: %d, defaulting to %q", code, StatusUnknown)
		return StatusUnknown
	}
	return status
}

// Desk is one workspace row for the queried window.
type Desk struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Status     Status  `json:"status"`
	ReservedBy *string `json:"reservedBy"`
	Location   string  `json:"location"`
	StartTime  *string `json:"startTime"`
	EndTime    *string `json:"endTime"`
}

// Query selects desks for one date and window. DeskID 0 lists every desk.
type Query struct {
	UserID     int64
	Credential roster.Credential
	Date       time.Time
	DeskID     int64
	Window     remote.Window
}

// Doer is the outbound gateway.
type Doer interface {
	DoJSON(ctx context.Context, req remote.Request, out any) error
}

// Directory provides display names for booking labels.
type Directory interface {
	Get(userID int64) (roster.User, bool)
}

// Options configures the query scope.
type Options struct {
	LocatorNode int
	// Location is both the calendar for dates and the tzIdValue sent on the wire.
	Location *time.Location
}

// Client shapes desk queries and bookings.
type Client struct {
	gateway     Doer
	users       Directory
	locatorNode int
	loc         *time.Location
}

// NewClient constructs a Client.
func NewClient(gateway Doer, users Directory, opts Options) *Client {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		gateway:     gateway,
		users:       users,
		locatorNode: opts.LocatorNode,
		loc:         loc,
	}
}

type deskQuery struct {
	StartRow                int                `json:"startRow"`
	MaxRows                 int                `json:"maxRows"`
	SortColumn              string             `json:"sortColumn"`
	SysidCategories         []int              `json:"sysidCategories"`
	Discriminator           string             `json:"discriminator"`
	SysidAllocRelationships []int              `json:"sysidAllocRelationships"`
	SysidUserAlloc          int64              `json:"sysidUserAlloc"`
	SysidUserOwner          int64              `json:"sysidUserOwner"`
	SysidLocatorNode        int                `json:"sysidLocatorNode"`
	SysidLocationMapImages  []int              `json:"sysidLocationMapImages"`
	Dates                   []remote.DateRange `json:"dates"`
	SysidResources          []int64            `json:"sysidResources,omitempty"`
}

type deskResponse struct {
	Views []struct {
		Status   int `json:"status"`
		RoomView struct {
			SysidResource int64  `json:"sysidResource"`
			Name          string `json:"name"`
			LocationName  string `json:"locationName"`
		} `json:"roomView"`
		ReservationName *string        `json:"reservationName"`
		StartTime       *remote.AqDate `json:"startTime"`
		EndTime         *remote.AqDate `json:"endTime"`
	} `json:"views"`
}

// ListDesks returns the desks visible to the user for the query window.
func (c *Client) ListDesks(ctx context.Context, q Query) ([]Desk, error) {
	if q.UserID == 0 {
		return nil, fmt.Errorf("%w: %s: `userId` is required", remote.ErrValidation, caller)
	}
	body := deskQuery{
		StartRow:                0,
		MaxRows:                 -1,
		SortColumn:              "RESOURCE_NAME",
		SysidCategories:         []int{2},
		Discriminator:           "WKSP",
		SysidAllocRelationships: []int{2, 3},
		SysidUserAlloc:          q.UserID,
		SysidUserOwner:          q.UserID,
		SysidLocatorNode:        c.locatorNode,
		SysidLocationMapImages:  []int{3},
		Dates:                   []remote.DateRange{q.Window.On(q.Date.In(c.loc), c.loc.String())},
	}
	if q.DeskID != 0 {
		body.SysidResources = []int64{q.DeskID}
	}

	var resp deskResponse
	errDo := c.gateway.DoJSON(ctx, remote.Request{
		Path:       remote.PathGetDesk,
		Credential: q.Credential,
		Body:       body,
		Caller:     caller,
	}, &resp)
	if errDo != nil {
		return nil, errDo
	}

	desks := make([]Desk, 0, len(resp.Views))
	for _, view := range resp.Views {
		d := Desk{
			ID:         view.RoomView.SysidResource,
			Name:       view.RoomView.Name,
			Status:     MapStatus(view.Status),
			ReservedBy: view.ReservationName,
			Location:   view.RoomView.LocationName,
		}
		if view.StartTime != nil {
			clock := view.StartTime.Clock()
			d.StartTime = &clock
		}
		if view.EndTime != nil {
			clock := view.EndTime.Clock()
			d.EndTime = &clock
		}
		desks = append(desks, d)
	}
	return desks, nil
}

// IsAvailable reports whether the desk selected by q is available. An empty result counts as unavailable.
func (c *Client) IsAvailable(ctx context.Context, q Query) (bool, error) {
	desks, errList := c.ListDesks(ctx, q)
	if errList != nil {
		return false, errList
	}
	if len(desks) == 0 {
		return false, nil
	}
	return desks[0].Status == StatusAvailable, nil
}

var deskNumberPattern = regexp.MustCompile(`W\.\d+\.(\d+)`)

func deskNumber(name string) int {
	match := deskNumberPattern.FindStringSubmatch(name)
	if len(match) < 2 {
		return 0
	}
	n, errAtoi := strconv.Atoi(match[1])
	if errAtoi != nil {
		return 0
	}
	return n
}

// SortByName orders desks by the trailing number of names like W.12.34.
func SortByName(desks []Desk) {
	sort.SliceStable(desks, func(i, j int) bool {
		return deskNumber(desks[i].Name) < deskNumber(desks[j].Name)
	})
}

// ValidationError lists required booking fields that were not supplied.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: Missing parameters: `%s`", caller, strings.Join(e.Missing, "` `"))
}

func (e *ValidationError) Unwrap() error {
	return remote.ErrValidation
}
