package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/spire-panel/spire/models"
)

type SettingsStore struct{ DB *gorm.DB }

func NewSettingsStore(db *gorm.DB) *SettingsStore { return &SettingsStore{DB: db} }

// GetSettings returns the singleton settings row, creating it on first
// access.
func (s *SettingsStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&settings).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			settings = models.Settings{ID: models.NewID(), CreatedAt: time.Now().UTC()}
			return tx.Create(&settings).Error
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings applies a partial update to the singleton. Onboarding
// completion is monotonic: once true it can never be reset. The API key is
// only replaced when explicitly provided.
func (s *SettingsStore) UpdateSettings(ctx context.Context, update models.SettingsUpdate) (*models.Settings, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if update.OnboardingComplete != nil && *update.OnboardingComplete && !settings.OnboardingComplete {
		fields["onboarding_complete"] = true
		settings.OnboardingComplete = true
	}
	if update.APIKey != nil {
		fields["api_key"] = *update.APIKey
		settings.APIKey = *update.APIKey
	}
	if len(fields) == 0 {
		return settings, nil
	}
	if err := s.DB.WithContext(ctx).Model(&models.Settings{}).
		Where("id = ?", settings.ID).Updates(fields).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// SetAPIKey replaces the automation API key.
func (s *SettingsStore) SetAPIKey(ctx context.Context, key string) (*models.Settings, error) {
	return s.UpdateSettings(ctx, models.SettingsUpdate{APIKey: &key})
}
