// sections.go
//
// PIS Platform record store
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of jam-build-propsdb.
// jam-build-propsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// jam-build-propsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with jam-build-propsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/pis-platform/pis/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SectionService is the record store for one property section (suites,
// services, utilities or codes).
type SectionService[T models.Section] struct {
	DB *gorm.DB

	createCols *columnSet
	updateCols *columnSet
}

// NewSectionService parses the section's schema once up front.
func NewSectionService[T models.Section](db *gorm.DB) (*SectionService[T], error) {
	var zero T
	createCols, err := parseColumns(db, &zero)
	if err != nil {
		return nil, err
	}
	updateCols, err := parseColumns(db, &zero, "property_yardi")
	if err != nil {
		return nil, err
	}
	return &SectionService[T]{DB: db, createCols: createCols, updateCols: updateCols}, nil
}

func (s *SectionService[T]) entityType() string {
	var zero T
	return zero.EntityType()
}

func (s *SectionService[T]) idColumn() string {
	var zero T
	return zero.IDColumn()
}

func (s *SectionService[T]) query(ctx context.Context) *gorm.DB {
	q := s.DB.WithContext(ctx).Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
	if s.createCols.hasRelation("Contacts") {
		q = q.Preload("Contacts")
	}
	return q
}

func audit[T models.Section](record T) audited {
	return audited{
		entityType:    record.EntityType(),
		entityID:      strconv.FormatUint(record.GetID(), 10),
		label:         record.DisplayLabel(),
		propertyYardi: record.GetPropertyYardi(),
		record:        record,
	}
}

// List returns the section's records for a property. An empty yardi lists
// every record.
func (s *SectionService[T]) List(ctx context.Context, yardi string) ([]T, error) {
	records := make([]T, 0)
	q := s.query(ctx)
	if yardi != "" {
		q = q.Where("property_yardi = ?", yardi)
	}
	if err := q.Order(s.idColumn()).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Get returns one record by id
func (s *SectionService[T]) Get(ctx context.Context, id uint64) (*T, error) {
	var record T
	err := s.query(ctx).Where(s.idColumn()+" = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %d", ErrNotFound, s.entityType(), id)
		}
		return nil, err
	}
	return &record, nil
}

// Create inserts a record from a client payload. Any id in the payload is
// ignored; the store assigns it.
func (s *SectionService[T]) Create(ctx context.Context, editedBy string, payload map[string]any) (*T, error) {
	var zero T
	record, _, err := overlay(s.createCols, zero, payload)
	if err != nil {
		return nil, err
	}
	if err := validateRecord(&record); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := propertyExists(tx, record.GetPropertyYardi()); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&record).Error; err != nil {
			return err
		}
		return logAdd(tx, editedBy, audit(record))
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, record.GetID())
}

// Update applies the writable payload keys to an existing record
func (s *SectionService[T]) Update(ctx context.Context, editedBy string, id uint64, payload map[string]any) (*T, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing T
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(s.idColumn()+" = ?", id).
			First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s %d", ErrNotFound, s.entityType(), id)
			}
			return err
		}

		updated, touched, err := overlay(s.updateCols, existing, payload)
		if err != nil {
			return err
		}
		if err := validateRecord(&updated); err != nil {
			return err
		}

		changes := s.updateCols.diff(&existing, &updated, touched)
		if len(changes) == 0 {
			return nil
		}
		columns := make([]string, 0, len(changes))
		for _, ch := range changes {
			columns = append(columns, ch.Column)
		}

		if err := tx.Model(&existing).Select(columns).Updates(&updated).Error; err != nil {
			return err
		}
		return logEdits(tx, editedBy, audit(updated), changes)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes a record and the contacts attached to it
func (s *SectionService[T]) Delete(ctx context.Context, editedBy string, id uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing T
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(s.idColumn()+" = ?", id).
			First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s %d", ErrNotFound, s.entityType(), id)
			}
			return err
		}

		if s.createCols.hasRelation("Contacts") {
			if err := tx.Where(s.idColumn()+" = ?", id).Delete(&models.Contact{}).Error; err != nil {
				return err
			}
		}

		result := tx.Where(s.idColumn()+" = ?", id).Delete(&existing)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s %d", ErrNotFound, s.entityType(), id)
		}

		return logDelete(tx, editedBy, audit(existing))
	})
}

func propertyExists(tx *gorm.DB, yardi string) error {
	var count int64
	if err := tx.Model(&models.Property{}).Where("yardi = ?", yardi).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: property %q does not exist", ErrInvalid, yardi)
	}
	return nil
}
