package models

import "time"

// PropertyPhoto associates an uploaded image with a property
type PropertyPhoto struct {
	PhotoID       uint64    `gorm:"primaryKey;autoIncrement" json:"photo_id"`
	PropertyYardi string    `gorm:"size:64;not null;index" json:"property_yardi" validate:"required"`
	PhotoURL      string    `gorm:"size:1024;not null" json:"photo_url" validate:"required"`
	Caption       string    `gorm:"size:512" json:"caption"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName overrides the table name for PropertyPhoto
func (PropertyPhoto) TableName() string {
	return "property_photos"
}
