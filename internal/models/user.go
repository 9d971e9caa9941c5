package models

import (
	"time"

	"gorm.io/datatypes"
)

// User stores one roster member and its automation preferences.
type User struct {
	UserID   int64  `gorm:"primaryKey;autoIncrement:false"` // Booking service user id.
	Position int    `gorm:"not null;index"`                 // Roster order.
	UserName string `gorm:"type:text;not null"`             // Display name.
	Email    string `gorm:"type:text;index"`                // Best-effort email.

	AppAuthToken  string `gorm:"type:text"` // AQOB-AppAuthToken header value.
	Authorization string `gorm:"type:text"` // Authorization header value.
	APIKey        string `gorm:"type:text"` // x-api-key header value.

	AutoBookingDesksID    datatypes.JSON `gorm:"type:jsonb"` // Desk id per weekday slot.
	AutoBookingDesksName  datatypes.JSON `gorm:"type:jsonb"` // Desk name per weekday slot.
	AutoBookingDaysOfWeek datatypes.JSON `gorm:"type:jsonb"` // Booking weekday per slot, -1 disabled.
	AutoCheckInDaysOfWeek datatypes.JSON `gorm:"type:jsonb"` // Check-in weekday per slot, -1 disabled.

	StartHour   int `gorm:"not null"` // Booking window start hour.
	StartMinute int `gorm:"not null"` // Booking window start minute.
	EndHour     int `gorm:"not null"` // Booking window end hour.
	EndMinute   int `gorm:"not null"` // Booking window end minute.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
