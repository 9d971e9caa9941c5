package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/deskpilot/deskpilot/internal/booking"
	"github.com/deskpilot/deskpilot/internal/desk"
	apphttp "github.com/deskpilot/deskpilot/internal/http"
	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
	"github.com/gin-gonic/gin"
)

// DeskService lists and books desks.
type DeskService interface {
	ListDesks(ctx context.Context, q desk.Query) ([]desk.Desk, error)
	Book(ctx context.Context, req desk.BookRequest) error
}

// AllDaysBooker runs the booking pass over the whole horizon.
type AllDaysBooker interface {
	BookAllDays(ctx context.Context, user roster.User) []booking.Outcome
}

// UserDirectory looks up roster entries.
type UserDirectory interface {
	Get(userID int64) (roster.User, bool)
}

// DeskHandler serves the desk endpoints.
type DeskHandler struct {
	desks  DeskService
	booker AllDaysBooker
	users  UserDirectory
	loc    *time.Location
}

// NewDeskHandler constructs a DeskHandler. loc is the calendar request dates are read in.
func NewDeskHandler(desks DeskService, booker AllDaysBooker, users UserDirectory, loc *time.Location) *DeskHandler {
	if loc == nil {
		loc = time.Local
	}
	return &DeskHandler{desks: desks, booker: booker, users: users, loc: loc}
}

// List returns desks for the requested date and window, ordered by desk number.
func (h *DeskHandler) List(c *gin.Context) {
	var body windowBody
	if !bindBody(c, &body) {
		return
	}
	date, errDate := remote.ParseDate(body.Date, h.loc)
	if errDate != nil {
		respondError(c, errDate)
		return
	}
	q := desk.Query{
		UserID:     apphttp.UserID(c),
		Credential: apphttp.Credential(c),
		Date:       date,
		Window:     body.window(),
	}
	if body.DeskID != nil {
		q.DeskID = *body.DeskID
	}

	desks, errList := h.desks.ListDesks(c.Request.Context(), q)
	if errList != nil {
		respondError(c, errList)
		return
	}
	desk.SortByName(desks)
	c.JSON(http.StatusOK, gin.H{"desks": desks})
}

// Book creates one reservation.
func (h *DeskHandler) Book(c *gin.Context) {
	var body windowBody
	if !bindBody(c, &body) {
		return
	}
	errBook := h.desks.Book(c.Request.Context(), desk.BookRequest{
		UserID:      apphttp.UserID(c),
		Credential:  apphttp.Credential(c),
		Date:        body.Date,
		DeskID:      body.DeskID,
		StartHour:   body.StartHour,
		StartMinute: body.StartMinute,
		EndHour:     body.EndHour,
		EndMinute:   body.EndMinute,
	})
	if errBook != nil {
		respondError(c, errBook)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BookAllDays runs the booking pass for every day of the horizon and returns the outcomes in order.
func (h *DeskHandler) BookAllDays(c *gin.Context) {
	user, ok := h.users.Get(apphttp.UserID(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": h.booker.BookAllDays(c.Request.Context(), user)})
}
