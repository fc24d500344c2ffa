package store

import "time"

// PreferenceModel is the GORM row for one visitor preference.
type PreferenceModel struct {
	VisitorID string    `gorm:"primaryKey;size:64"`
	Key       string    `gorm:"primaryKey;size:64"`
	Value     string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (PreferenceModel) TableName() string {
	return "visitor_preferences"
}
