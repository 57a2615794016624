package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pis-platform/pis/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// PropertyQuery filters and pages the property listing
type PropertyQuery struct {
	Page    int
	PerPage int
	Search  string
	Active  *bool
}

// PropertyPage is one page of properties with their nested sections
type PropertyPage struct {
	Properties []models.Property `json:"properties"`
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	Total      int64             `json:"total"`
}

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// PropertyService is the record store for properties
type PropertyService struct {
	DB *gorm.DB

	createCols *columnSet
	updateCols *columnSet
}

// NewPropertyService parses the property schema once up front.
func NewPropertyService(db *gorm.DB) (*PropertyService, error) {
	createCols, err := parseColumns(db, &models.Property{})
	if err != nil {
		return nil, err
	}
	updateCols, err := parseColumns(db, &models.Property{}, "yardi")
	if err != nil {
		return nil, err
	}
	// yardi is the primary key, so create needs it added back
	createCols.columns["yardi"] = createCols.schema.LookUpField("yardi")
	return &PropertyService{DB: db, createCols: createCols, updateCols: updateCols}, nil
}

func withSections(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Suites", func(db *gorm.DB) *gorm.DB { return db.Order("suite_id") }).
		Preload("Suites.Contacts").
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("service_id") }).
		Preload("Services.Contacts").
		Preload("Utilities", func(db *gorm.DB) *gorm.DB { return db.Order("utility_id") }).
		Preload("Utilities.Contacts").
		Preload("Codes", func(db *gorm.DB) *gorm.DB { return db.Order("code_id") })
}

func auditProperty(p models.Property) audited {
	return audited{
		entityType: "property",
		entityID:   p.Yardi,
		label:      p.DisplayLabel(),
		record:     p,
	}
}

// List returns a page of properties, each with its nested sections
func (s *PropertyService) List(ctx context.Context, q PropertyQuery) (*PropertyPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}

	base := s.DB.WithContext(ctx).Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)}).
		Model(&models.Property{})
	if search := strings.TrimSpace(q.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		base = base.Where(
			"LOWER(address) LIKE ? OR LOWER(city) LIKE ? OR LOWER(yardi) LIKE ? OR LOWER(prop_manager) LIKE ?",
			like, like, like, like,
		)
		if s.DB.Dialector.Name() == "mysql" {
			base = base.Clauses(hints.UseIndex("idx_properties_address", "idx_properties_city"))
		}
	}
	if q.Active != nil {
		base = base.Where("active = ?", *q.Active)
	}

	page := &PropertyPage{Page: q.Page, PerPage: q.PerPage, Properties: make([]models.Property, 0)}
	if err := base.Session(&gorm.Session{}).Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := withSections(base.Session(&gorm.Session{})).
		Order("yardi").
		Offset((q.Page - 1) * q.PerPage).
		Limit(q.PerPage).
		Find(&page.Properties).Error
	if err != nil {
		return nil, err
	}

	return page, nil
}

// Get returns one property with its nested sections
func (s *PropertyService) Get(ctx context.Context, yardi string) (*models.Property, error) {
	var p models.Property
	err := withSections(s.DB.WithContext(ctx).Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})).
		Where("yardi = ?", yardi).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: property %q", ErrNotFound, yardi)
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a property. A yardi that already exists is a conflict.
// Properties are active unless the payload says otherwise.
func (s *PropertyService) Create(ctx context.Context, editedBy string, payload map[string]any) (*models.Property, error) {
	base := models.Property{Active: true}
	p, _, err := overlay(s.createCols, base, payload)
	if err != nil {
		return nil, err
	}
	p.Yardi = strings.TrimSpace(p.Yardi)
	if err := validateRecord(&p); err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Property{}).Where("yardi = ?", p.Yardi).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: property %q already exists", ErrConflict, p.Yardi)
		}
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: property %q already exists", ErrConflict, p.Yardi)
			}
			return err
		}
		return logAdd(tx, editedBy, auditProperty(p))
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, p.Yardi)
}

// Update applies the writable payload keys to a property. The yardi is
// immutable and nested sections are never written through this path.
func (s *PropertyService) Update(ctx context.Context, editedBy, yardi string, payload map[string]any) (*models.Property, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Property
		if err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("yardi = ?", yardi).
			First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: property %q", ErrNotFound, yardi)
			}
			return err
		}

		updated, touched, err := overlay(s.updateCols, existing, payload)
		if err != nil {
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
		return logEdits(tx, editedBy, auditProperty(updated), changes)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, yardi)
}
