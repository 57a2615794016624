package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/pis-platform/pis/internal/models"
	"github.com/pis-platform/pis/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ContactQuery narrows a contact listing. Zero values are ignored.
type ContactQuery struct {
	PropertyYardi string
	SuiteID       uint64
	ServiceID     uint64
	UtilityID     uint64
}

// ContactService is the record store for contacts
type ContactService struct {
	DB *gorm.DB

	cols *columnSet
}

// NewContactService parses the contact schema once up front.
func NewContactService(db *gorm.DB) (*ContactService, error) {
	cols, err := parseColumns(db, &models.Contact{}, "property_yardi")
	if err != nil {
		return nil, err
	}
	return &ContactService{DB: db, cols: cols}, nil
}

func auditContact(c models.Contact) audited {
	return audited{
		entityType:    "contact",
		entityID:      strconv.FormatUint(c.ContactID, 10),
		label:         c.Name,
		propertyYardi: c.PropertyYardi,
		record:        c,
	}
}

func (s *ContactService) silent(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
}

// List returns contacts matching the query
func (s *ContactService) List(ctx context.Context, q ContactQuery) ([]models.Contact, error) {
	contacts := make([]models.Contact, 0)
	db := s.silent(ctx)
	if q.PropertyYardi != "" {
		db = db.Where("property_yardi = ?", q.PropertyYardi)
	}
	if q.SuiteID != 0 {
		db = db.Where("suite_id = ?", q.SuiteID)
	}
	if q.ServiceID != 0 {
		db = db.Where("service_id = ?", q.ServiceID)
	}
	if q.UtilityID != 0 {
		db = db.Where("utility_id = ?", q.UtilityID)
	}
	if err := db.Order("contact_id").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

// Get returns one contact by id
func (s *ContactService) Get(ctx context.Context, id uint64) (*models.Contact, error) {
	var c models.Contact
	if err := s.silent(ctx).Where("contact_id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contact %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a contact. Exactly one parent reference must be set and
// the parent must exist; the contact inherits the parent's property.
func (s *ContactService) Create(ctx context.Context, editedBy string, payload map[string]any) (*models.Contact, error) {
	if err := normalizeParentRefs(payload); err != nil {
		return nil, err
	}
	c, _, err := overlay(s.cols, models.Contact{}, payload)
	if err != nil {
		return nil, err
	}
	c.NormalizeParents()
	if err := validateRecord(&c); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		yardi, err := resolveContactParent(tx, c)
		if err != nil {
			return err
		}
		c.PropertyYardi = yardi
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		return logAdd(tx, editedBy, auditContact(c))
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update applies the writable payload keys to a contact. Moving a contact
// to another parent is allowed as long as exactly one parent remains.
func (s *ContactService) Update(ctx context.Context, editedBy string, id uint64, payload map[string]any) (*models.Contact, error) {
	if err := normalizeParentRefs(payload); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Contact
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("contact_id = ?", id).
			First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contact %d", ErrNotFound, id)
			}
			return err
		}

		updated, touched, err := overlay(s.cols, existing, payload)
		if err != nil {
			return err
		}
		updated.NormalizeParents()
		if err := validateRecord(&updated); err != nil {
			return err
		}
		yardi, err := resolveContactParent(tx, updated)
		if err != nil {
			return err
		}
		updated.PropertyYardi = yardi

		changes := s.cols.diff(&existing, &updated, touched)
		if len(changes) == 0 {
			return nil
		}
		columns := []string{"property_yardi"}
		for _, ch := range changes {
			columns = append(columns, ch.Column)
		}

		if err := tx.Model(&existing).Select(columns).Updates(&updated).Error; err != nil {
			return err
		}
		return logEdits(tx, editedBy, auditContact(updated), changes)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a contact
func (s *ContactService) Delete(ctx context.Context, editedBy string, id uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Contact
		if err := tx.Where("contact_id = ?", id).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: contact %d", ErrNotFound, id)
			}
			return err
		}
		if err := tx.Delete(&existing).Error; err != nil {
			return err
		}
		return logDelete(tx, editedBy, auditContact(existing))
	})
}

// normalizeParentRefs accepts parent ids as numbers or numeric strings and
// rewrites empty or zero references to null.
func normalizeParentRefs(payload map[string]any) error {
	for _, key := range []string{"suite_id", "service_id", "utility_id"} {
		raw, ok := payload[key]
		if !ok || raw == nil {
			continue
		}
		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
		}
		var id types.FlexUint64
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
		}
		if ptr := id.Ptr(); ptr != nil {
			payload[key] = *ptr
		} else {
			payload[key] = nil
		}
	}
	return nil
}

// resolveContactParent checks the single-parent rule and returns the yardi
// of the owning property.
func resolveContactParent(tx *gorm.DB, c models.Contact) (string, error) {
	if c.ParentCount() != 1 {
		return "", fmt.Errorf("%w: contact must reference exactly one of suite_id, service_id or utility_id", ErrInvalid)
	}

	var (
		table  string
		column string
		id     uint64
	)
	switch {
	case c.SuiteID != nil && *c.SuiteID != 0:
		table, column, id = "suites", "suite_id", *c.SuiteID
	case c.ServiceID != nil && *c.ServiceID != 0:
		table, column, id = "services", "service_id", *c.ServiceID
	default:
		table, column, id = "utilities", "utility_id", *c.UtilityID
	}

	var yardis []string
	if err := tx.Table(table).Where(column+" = ?", id).Limit(1).Pluck("property_yardi", &yardis).Error; err != nil {
		return "", err
	}
	if len(yardis) == 0 {
		return "", fmt.Errorf("%w: %s %d does not exist", ErrInvalid, column, id)
	}
	return yardis[0], nil
}
