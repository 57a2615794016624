package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/pis-platform/pis/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PhotoInput is the metadata recorded for an uploaded photo
type PhotoInput struct {
	PropertyYardi string `json:"property_yardi" form:"property_yardi"`
	PhotoURL      string `json:"photo_url" form:"photo_url"`
	Caption       string `json:"caption" form:"caption"`
}

func auditPhoto(p models.PropertyPhoto) audited {
	return audited{
		entityType:    "photo",
		entityID:      strconv.FormatUint(p.PhotoID, 10),
		label:         p.Caption,
		propertyYardi: p.PropertyYardi,
		record:        p,
	}
}

// CreatePhoto records a photo against an existing property
func CreatePhoto(ctx context.Context, db *gorm.DB, editedBy string, in PhotoInput) (*models.PropertyPhoto, error) {
	photo := models.PropertyPhoto{
		PropertyYardi: in.PropertyYardi,
		PhotoURL:      in.PhotoURL,
		Caption:       in.Caption,
	}
	if err := validateRecord(&photo); err != nil {
		return nil, err
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := propertyExists(tx, photo.PropertyYardi); err != nil {
			return err
		}
		if err := tx.Create(&photo).Error; err != nil {
			return err
		}
		return logAdd(tx, editedBy, auditPhoto(photo))
	})
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// ListPhotos returns a property's photos, oldest first
func ListPhotos(ctx context.Context, db *gorm.DB, yardi string) ([]models.PropertyPhoto, error) {
	photos := make([]models.PropertyPhoto, 0)
	err := db.WithContext(ctx).Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)}).
		Where("property_yardi = ?", yardi).
		Order("photo_id").
		Find(&photos).Error
	if err != nil {
		return nil, err
	}
	return photos, nil
}

// DeletePhoto removes a photo record and returns it so the caller can
// release the stored object.
func DeletePhoto(ctx context.Context, db *gorm.DB, editedBy string, id uint64) (*models.PropertyPhoto, error) {
	var photo models.PropertyPhoto
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("photo_id = ?", id).First(&photo).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: photo %d", ErrNotFound, id)
			}
			return err
		}
		if err := tx.Delete(&photo).Error; err != nil {
			return err
		}
		return logDelete(tx, editedBy, auditPhoto(photo))
	})
	if err != nil {
		return nil, err
	}
	return &photo, nil
}
