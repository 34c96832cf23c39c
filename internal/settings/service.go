package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultUserID = "default"

var ErrInvalidInput = errors.New("invalid preferences")

type Service struct {
	repo     Repository
	defaults Preferences
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a settings service. defaults are returned to users who
// have not saved preferences yet.
func NewService(repo Repository, defaults Preferences, logger *zap.Logger) *Service {
	if !defaults.Theme.Valid() {
		defaults.Theme = ThemeSystem
	}
	if defaults.Language == "" {
		defaults.Language = "en"
	}
	if defaults.Timezone == "" {
		defaults.Timezone = "UTC"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	if userID == "" {
		userID = DefaultUserID
	}
	prefs, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		d := s.defaults
		d.UserID = userID
		return &d, nil
	}
	return prefs, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, userID string, req UpdatePreferencesRequest) (*Preferences, error) {
	if req.Theme != nil && !req.Theme.Valid() {
		return nil, fmt.Errorf("%w: unknown theme %q", ErrInvalidInput, *req.Theme)
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, *req.Timezone)
		}
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	if req.DynamicColor != nil {
		prefs.DynamicColor = *req.DynamicColor
	}
	if req.Language != nil {
		prefs.Language = *req.Language
	}
	if req.Timezone != nil {
		prefs.Timezone = *req.Timezone
	}
	if req.PushNotifications != nil {
		prefs.PushNotifications = *req.PushNotifications
	}
	if req.RecentWindowDays != nil {
		prefs.RecentWindowDays = *req.RecentWindowDays
	}
	prefs.UpdatedAt = s.now()

	if err := s.repo.SavePreferences(ctx, prefs); err != nil {
		return nil, err
	}
	s.logger.Info("Preferences updated", zap.String("user_id", prefs.UserID), zap.String("theme", string(prefs.Theme)))
	return prefs, nil
}
