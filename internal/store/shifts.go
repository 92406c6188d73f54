package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shopfloor-status-backend/internal/model"
)

// ListShifts returns the active shifts ordered by start time.
func (s *gormStore) ListShifts(ctx context.Context) ([]model.Shift, error) {
	var shifts []model.Shift
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("start_time").Find(&shifts).Error; err != nil {
		return nil, err
	}
	return shifts, nil
}

// CurrentShift resolves which active shift covers the given wall-clock time,
// or nil when none does.
func (s *gormStore) CurrentShift(ctx context.Context, now time.Time) (*model.Shift, error) {
	shifts, err := s.ListShifts(ctx)
	if err != nil {
		return nil, err
	}
	hhmm := now.Format("15:04")
	for _, shift := range shifts {
		if shift.Covers(hhmm) {
			return &shift, nil
		}
	}
	return nil, nil
}

// GetUserByUsername fetches an active account for login.
func (s *gormStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).First(&u, "username = ? AND is_active = ?", username, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

// TouchLastLogin stamps a successful login.
func (s *gormStore) TouchLastLogin(ctx context.Context, userID int, now time.Time) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Update("last_login_at", now).Error
}
