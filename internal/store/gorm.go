// Package store persists the roster in a SQL database through gorm.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deskpilot/deskpilot/internal/models"
	"github.com/deskpilot/deskpilot/internal/roster"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var userColumns = []string{
	"position", "user_name", "email",
	"app_auth_token", "authorization", "api_key",
	"auto_booking_desks_id", "auto_booking_desks_name",
	"auto_booking_days_of_week", "auto_check_in_days_of_week",
	"start_hour", "start_minute", "end_hour", "end_minute",
	"updated_at",
}

// GormStore implements roster.Persister on the users table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open connection. Run db.Migrate first.
func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{db: conn}
}

// Load returns every user in roster order.
func (s *GormStore) Load(ctx context.Context) ([]roster.User, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store: database not initialized")
	}
	var rows []models.User
	if errFind := s.db.WithContext(ctx).Order("position ASC, user_id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("store: load users: %w", errFind)
	}
	users := make([]roster.User, 0, len(rows))
	for i := range rows {
		u, errDecode := fromRow(&rows[i])
		if errDecode != nil {
			return nil, errDecode
		}
		users = append(users, u)
	}
	return users, nil
}

// Save replaces the stored roster with users.
func (s *GormStore) Save(ctx context.Context, users []roster.User) error {
	if s == nil || s.db == nil {
		return errors.New("store: database not initialized")
	}
	rows := make([]models.User, 0, len(users))
	ids := make([]int64, 0, len(users))
	for i := range users {
		row, errEncode := toRow(&users[i], i)
		if errEncode != nil {
			return errEncode
		}
		rows = append(rows, row)
		ids = append(ids, row.UserID)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		remove := tx.Model(&models.User{})
		if len(ids) > 0 {
			remove = remove.Where("user_id NOT IN ?", ids)
		} else {
			remove = remove.Where("1 = 1")
		}
		if errDelete := remove.Delete(&models.User{}).Error; errDelete != nil {
			return fmt.Errorf("store: prune users: %w", errDelete)
		}
		if len(rows) == 0 {
			return nil
		}
		errUpsert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(userColumns),
		}).Create(&rows).Error
		if errUpsert != nil {
			return fmt.Errorf("store: save users: %w", errUpsert)
		}
		return nil
	})
}

func toRow(u *roster.User, position int) (models.User, error) {
	desksID, errIDs := encodeJSON(u.AutoBookingDesksID)
	if errIDs != nil {
		return models.User{}, errIDs
	}
	desksName, errNames := encodeJSON(u.AutoBookingDesksName)
	if errNames != nil {
		return models.User{}, errNames
	}
	bookingDays, errBooking := encodeJSON(roster.DayInts(u.AutoBookingDaysOfWeek))
	if errBooking != nil {
		return models.User{}, errBooking
	}
	checkInDays, errCheckIn := encodeJSON(roster.DayInts(u.AutoCheckInDaysOfWeek))
	if errCheckIn != nil {
		return models.User{}, errCheckIn
	}
	return models.User{
		UserID:                u.UserID,
		Position:              position,
		UserName:              u.UserName,
		Email:                 u.Email,
		AppAuthToken:          u.AppAuthToken,
		Authorization:         u.Authorization,
		APIKey:                u.APIKey,
		AutoBookingDesksID:    desksID,
		AutoBookingDesksName:  desksName,
		AutoBookingDaysOfWeek: bookingDays,
		AutoCheckInDaysOfWeek: checkInDays,
		StartHour:             u.StartHour,
		StartMinute:           u.StartMinute,
		EndHour:               u.EndHour,
		EndMinute:             u.EndMinute,
	}, nil
}

func fromRow(row *models.User) (roster.User, error) {
	u := roster.User{
		UserID:        row.UserID,
		UserName:      row.UserName,
		Email:         row.Email,
		AppAuthToken:  row.AppAuthToken,
		Authorization: row.Authorization,
		APIKey:        row.APIKey,
		StartHour:     row.StartHour,
		StartMinute:   row.StartMinute,
		EndHour:       row.EndHour,
		EndMinute:     row.EndMinute,
	}
	targets := []struct {
		name string
		raw  datatypes.JSON
		out  any
	}{
		{"auto_booking_desks_id", row.AutoBookingDesksID, &u.AutoBookingDesksID},
		{"auto_booking_desks_name", row.AutoBookingDesksName, &u.AutoBookingDesksName},
		{"auto_booking_days_of_week", row.AutoBookingDaysOfWeek, &u.AutoBookingDaysOfWeek},
		{"auto_check_in_days_of_week", row.AutoCheckInDaysOfWeek, &u.AutoCheckInDaysOfWeek},
	}
	for _, target := range targets {
		if len(target.raw) == 0 {
			continue
		}
		if errUnmarshal := json.Unmarshal(target.raw, target.out); errUnmarshal != nil {
			return roster.User{}, fmt.Errorf("store: decode %s for user %d: %w", target.name, row.UserID, errUnmarshal)
		}
	}
	return u, nil
}

func encodeJSON(value any) (datatypes.JSON, error) {
	encoded, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return nil, fmt.Errorf("store: encode preferences: %w", errMarshal)
	}
	return datatypes.JSON(encoded), nil
}
