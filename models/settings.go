package models

import "time"

// Settings is the panel's singleton configuration record, created lazily on
// first access. The API key authenticates external automation against the
// panel itself.
type Settings struct {
	ID                 string    `gorm:"column:id;primaryKey" json:"_id"`
	OnboardingComplete bool      `gorm:"column:onboarding_complete" json:"onboardingComplete"`
	APIKey             string    `gorm:"column:api_key" json:"apiKey,omitempty"`
	CreatedAt          time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt          time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Settings) TableName() string { return "spire_settings" }

// SettingsUpdate is a partial update; nil fields are left untouched.
// OnboardingComplete only ever moves from false to true.
type SettingsUpdate struct {
	OnboardingComplete *bool   `json:"onboardingComplete"`
	APIKey             *string `json:"apiKey"`
}
