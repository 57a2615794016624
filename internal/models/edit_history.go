package models

import "time"

// Edit history actions
const (
	ActionAdd    = "add"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// EditHistory is one append-only audit record
type EditHistory struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EditedAt   time.Time `gorm:"not null;index" json:"edited_at"`
	EditedBy   string    `gorm:"size:255" json:"edited_by"`
	Action     string    `gorm:"size:16;not null" json:"action"`
	EntityType string    `gorm:"size:32;not null;index" json:"entity_type"`
	EntityID   string    `gorm:"size:512" json:"entity_id"`
	Field      string    `gorm:"column:changes;size:512" json:"field"`
	OldValue   string    `gorm:"type:text" json:"old_value"`
	NewValue   string    `gorm:"type:text" json:"new_value"`
	Snapshot   JSON      `json:"snapshot,omitempty"`
}

// TableName overrides the table name for EditHistory
func (EditHistory) TableName() string {
	return "edit_history"
}
