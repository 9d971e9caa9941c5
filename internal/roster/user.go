package roster

import (
	"time"

	"github.com/deskpilot/deskpilot/internal/remote"
)

// Credential is the three-token triple used for every outbound call.
type Credential = remote.Credential

// SlotCount is the number of weekday preference slots (Mon-Fri).
const SlotCount = 5

// NoDesk marks a slot without a configured desk.
const NoDesk int64 = -1

// Default daily booking window.
const (
	DefaultStartHour   = 8
	DefaultStartMinute = 0
	DefaultEndHour     = 17
	DefaultEndMinute   = 0
)

// User is one roster member: identity, credential, and automation preferences.
type User struct {
	UserID        int64  `json:"userId"`
	UserName      string `json:"userName"`
	Email         string `json:"email"`
	AppAuthToken  string `json:"appAuthToken"`
	Authorization string `json:"authorization"`
	APIKey        string `json:"apiKey"`

	AutoBookingDesksID    []int64     `json:"autoBookingDesksId"`
	AutoBookingDesksName  []string    `json:"autoBookingDesksName"`
	AutoBookingDaysOfWeek []DayOfWeek `json:"autoBookingDaysOfWeek"`
	AutoCheckInDaysOfWeek []DayOfWeek `json:"autoCheckInDaysOfWeek"`
	StartHour             int         `json:"startHour"`
	StartMinute           int         `json:"startMinute"`
	EndHour               int         `json:"endHour"`
	EndMinute             int         `json:"endMinute"`
}

// NewUser provisions a user with all slots disabled and the 08:00-17:00 window.
func NewUser(id int64, name, email string, cred Credential) User {
	u := User{
		UserID:                id,
		UserName:              name,
		Email:                 email,
		AutoBookingDesksID:    make([]int64, SlotCount),
		AutoBookingDesksName:  make([]string, SlotCount),
		AutoBookingDaysOfWeek: make([]DayOfWeek, SlotCount),
		AutoCheckInDaysOfWeek: make([]DayOfWeek, SlotCount),
		StartHour:             DefaultStartHour,
		StartMinute:           DefaultStartMinute,
		EndHour:               DefaultEndHour,
		EndMinute:             DefaultEndMinute,
	}
	for i := range u.AutoBookingDesksID {
		u.AutoBookingDesksID[i] = NoDesk
	}
	u.SetCredential(cred)
	return u
}

// Credential returns the cached triple.
func (u User) Credential() Credential {
	return Credential{AppAuthToken: u.AppAuthToken, Authorization: u.Authorization, APIKey: u.APIKey}
}

// SetCredential overwrites all three tokens.
func (u *User) SetCredential(cred Credential) {
	u.AppAuthToken = cred.AppAuthToken
	u.Authorization = cred.Authorization
	u.APIKey = cred.APIKey
}

// Authenticated reports whether all three tokens are present.
func (u User) Authenticated() bool {
	return u.Credential().Valid()
}

// BookingShapeValid reports whether the auto-booking arrays are non-empty and aligned.
func (u User) BookingShapeValid() bool {
	n := len(u.AutoBookingDesksID)
	return n > 0 && n == len(u.AutoBookingDaysOfWeek) && n == len(u.AutoBookingDesksName)
}

// BookingSlot returns the first slot configured for weekday w.
func (u User) BookingSlot(w time.Weekday) (int, bool) {
	for i, day := range u.AutoBookingDaysOfWeek {
		if day.Matches(w) {
			return i, true
		}
	}
	return -1, false
}

// ChecksInOn reports whether auto check-in is enabled for weekday w.
func (u User) ChecksInOn(w time.Weekday) bool {
	for _, day := range u.AutoCheckInDaysOfWeek {
		if day.Matches(w) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (u User) Clone() User {
	out := u
	out.AutoBookingDesksID = append([]int64(nil), u.AutoBookingDesksID...)
	out.AutoBookingDesksName = append([]string(nil), u.AutoBookingDesksName...)
	out.AutoBookingDaysOfWeek = append([]DayOfWeek(nil), u.AutoBookingDaysOfWeek...)
	out.AutoCheckInDaysOfWeek = append([]DayOfWeek(nil), u.AutoCheckInDaysOfWeek...)
	return out
}
