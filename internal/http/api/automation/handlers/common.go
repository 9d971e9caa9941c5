package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/deskpilot/deskpilot/internal/booking"
	"github.com/deskpilot/deskpilot/internal/preferences"
	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/roster"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// respondError maps err to a status code and writes {"error": message}.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var remoteErr *remote.Error
	switch {
	case errors.As(err, &remoteErr) && remoteErr.StatusCode > 0:
		status = remoteErr.StatusCode
	case errors.Is(err, remote.ErrValidation), errors.Is(err, booking.ErrMisconfigured):
		status = http.StatusBadRequest
	case errors.Is(err, roster.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, preferences.ErrConflict):
		status = http.StatusConflict
	}
	log.WithError(err).Errorf("%s %s failed", c.Request.Method, c.Request.URL.Path)
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindBody decodes an optional JSON body. An empty body leaves out untouched.
func bindBody(c *gin.Context, out any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if errBind := c.ShouldBindJSON(out); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

// windowBody is the date and optional time window shared by desk and reservation queries.
type windowBody struct {
	Date        string `json:"date"`
	DeskID      *int64 `json:"deskId"`
	StartHour   *int   `json:"startHour"`
	StartMinute *int   `json:"startMinute"`
	EndHour     *int   `json:"endHour"`
	EndMinute   *int   `json:"endMinute"`
}

// window applies the supplied fields over 00:00-23:59.
func (b windowBody) window() remote.Window {
	w := remote.FullDay()
	if b.StartHour != nil {
		w.StartHour = *b.StartHour
	}
	if b.StartMinute != nil {
		w.StartMinute = *b.StartMinute
	}
	if b.EndHour != nil {
		w.EndHour = *b.EndHour
	}
	if b.EndMinute != nil {
		w.EndMinute = *b.EndMinute
	}
	return w
}

// flexibleID accepts a JSON string or number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var text string
	if errString := json.Unmarshal(data, &text); errString == nil {
		*f = flexibleID(text)
		return nil
	}
	var number json.Number
	if errNumber := json.Unmarshal(data, &number); errNumber != nil {
		return errNumber
	}
	*f = flexibleID(number.String())
	return nil
}
