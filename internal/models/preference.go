package models

import "time"

// Preference is a display-only key/value setting such as a theme, a row
// order or a column layout. Values are JSON documents.
type Preference struct {
	PrefKey   string `gorm:"primaryKey;size:255"`
	Value     JSON
	UpdatedAt time.Time
}

// TableName overrides the table name for Preference
func (Preference) TableName() string {
	return "preferences"
}
