package remote

import (
	"fmt"
	"time"
)

// AqDate is the booking service's wall-clock date representation.
type AqDate struct {
	Discriminator string `json:"discriminator"`
	Year          int    `json:"year"`
	Month         int    `json:"month"`
	DayOfMonth    int    `json:"dayOfMonth"`
	Hour          int    `json:"hour"`
	Minute        int    `json:"minute"`
	TzIDValue     string `json:"tzIdValue"`
}

// DateRange is a start/end pair of AqDate values.
type DateRange struct {
	StartTime AqDate `json:"startTime"`
	EndTime   AqDate `json:"endTime"`
}

// NewAqDate builds an AqDate for the calendar day of date at hour:minute.
func NewAqDate(date time.Time, hour, minute int, tzID string) AqDate {
	return AqDate{
		Discriminator: "AqDate",
		Year:          date.Year(),
		Month:         int(date.Month()),
		DayOfMonth:    date.Day(),
		Hour:          hour,
		Minute:        minute,
		TzIDValue:     tzID,
	}
}

// Clock formats the time of day as HH:MM.
func (d AqDate) Clock() string {
	return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute)
}

// DayLabel formats the calendar day as DD-MM-YYYY.
func (d AqDate) DayLabel() string {
	return fmt.Sprintf("%02d-%02d-%d", d.DayOfMonth, d.Month, d.Year)
}

// DateLayout is the YYYY-MM-DD layout used for target dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	parsed, errParse := time.ParseInLocation(DateLayout, value, loc)
	if errParse != nil {
		return time.Time{}, fmt.Errorf("%w: cannot parse `date`: %s", ErrValidation, value)
	}
	return parsed, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Window is a same-day time window.
type Window struct {
	StartHour   int `json:"startHour"`
	StartMinute int `json:"startMinute"`
	EndHour     int `json:"endHour"`
	EndMinute   int `json:"endMinute"`
}

// FullDay spans 00:00 to 23:59.
func FullDay() Window {
	return Window{EndHour: 23, EndMinute: 59}
}

// On returns the window applied to the calendar day of date.
func (w Window) On(date time.Time, tzID string) DateRange {
	return DateRange{
		StartTime: NewAqDate(date, w.StartHour, w.StartMinute, tzID),
		EndTime:   NewAqDate(date, w.EndHour, w.EndMinute, tzID),
	}
}
