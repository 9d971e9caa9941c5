package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	apphttp "github.com/deskpilot/deskpilot/internal/http"
	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/reservation"
	"github.com/deskpilot/deskpilot/internal/roster"
	"github.com/gin-gonic/gin"
)

// ReservationService lists and changes reservations.
type ReservationService interface {
	List(ctx context.Context, userID int64, cred roster.Credential, date time.Time, window remote.Window) ([]reservation.Reservation, error)
	ChangeState(ctx context.Context, reservationID string, action reservation.Action, cred roster.Credential) (json.RawMessage, error)
}

// ReservationHandler serves the reservation endpoints.
type ReservationHandler struct {
	reservations ReservationService
	loc          *time.Location
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(reservations ReservationService, loc *time.Location) *ReservationHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReservationHandler{reservations: reservations, loc: loc}
}

type actionBody struct {
	ReservationID flexibleID         `json:"reservationId"`
	ActionType    reservation.Action `json:"actionType"`
}

// List returns the caller's reservations from the requested date over the booking horizon.
func (h *ReservationHandler) List(c *gin.Context) {
	var body windowBody
	if !bindBody(c, &body) {
		return
	}
	date, errDate := remote.ParseDate(body.Date, h.loc)
	if errDate != nil {
		respondError(c, errDate)
		return
	}
	reservations, errList := h.reservations.List(c.Request.Context(), apphttp.UserID(c), apphttp.Credential(c), date, body.window())
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

// Action cancels, checks in or checks out a reservation and relays the booking service result.
func (h *ReservationHandler) Action(c *gin.Context) {
	var body actionBody
	if !bindBody(c, &body) {
		return
	}
	result, errChange := h.reservations.ChangeState(c.Request.Context(), string(body.ReservationID), body.ActionType, apphttp.Credential(c))
	if errChange != nil {
		respondError(c, errChange)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", result)
}
