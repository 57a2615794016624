package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pis-platform/pis/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// audited describes the record an edit history entry is about.
type audited struct {
	entityType    string
	entityID      string
	label         string
	propertyYardi string
	record        any
}

func (a audited) display() string {
	if a.label == "" || a.label == a.entityID {
		return a.entityID
	}
	return fmt.Sprintf("%s / %s", a.entityID, a.label)
}

func (a audited) withContext(field string) string {
	if a.propertyYardi == "" {
		return field
	}
	return fmt.Sprintf("%s (property %s)", field, a.propertyYardi)
}

func (a audited) snapshot() (models.JSON, string) {
	raw, err := json.Marshal(a.record)
	if err != nil {
		return models.JSON{}, ""
	}
	return models.NewJSON(raw), string(raw)
}

func logAdd(tx *gorm.DB, editedBy string, a audited) error {
	snap, text := a.snapshot()
	return tx.Create(&models.EditHistory{
		EditedAt:   time.Now().UTC(),
		EditedBy:   editedBy,
		Action:     models.ActionAdd,
		EntityType: a.entityType,
		EntityID:   a.display(),
		Field:      a.withContext("created"),
		NewValue:   text,
		Snapshot:   snap,
	}).Error
}

func logEdits(tx *gorm.DB, editedBy string, a audited, changes []fieldChange) error {
	if len(changes) == 0 {
		return nil
	}
	now := time.Now().UTC()
	entries := make([]models.EditHistory, 0, len(changes))
	for _, ch := range changes {
		entries = append(entries, models.EditHistory{
			EditedAt:   now,
			EditedBy:   editedBy,
			Action:     models.ActionEdit,
			EntityType: a.entityType,
			EntityID:   a.display(),
			Field:      a.withContext(ch.Column),
			OldValue:   ch.Old,
			NewValue:   ch.New,
		})
	}
	return tx.Create(&entries).Error
}

func logDelete(tx *gorm.DB, editedBy string, a audited) error {
	snap, text := a.snapshot()
	return tx.Create(&models.EditHistory{
		EditedAt:   time.Now().UTC(),
		EditedBy:   editedBy,
		Action:     models.ActionDelete,
		EntityType: a.entityType,
		EntityID:   a.display(),
		Field:      a.withContext("deleted"),
		OldValue:   text,
		Snapshot:   snap,
	}).Error
}

// ListEditHistory returns audit entries newest first. A limit of zero or
// less returns every entry.
func ListEditHistory(ctx context.Context, db *gorm.DB, limit int) ([]models.EditHistory, error) {
	var entries []models.EditHistory
	query := db.WithContext(ctx).Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Order("edited_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
