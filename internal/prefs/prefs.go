// Package prefs is the local durable key/value store for display
// preferences: theme, row order and column state.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/pis-platform/pis/internal/logging"
	"github.com/pis-platform/pis/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Theme is the color scheme preference
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const themeKey = "theme"

// Store keeps preferences in the preferences table of any GORM database
type Store struct {
	db *gorm.DB
}

// Open opens or creates a local SQLite preference file
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences %s: %w", path, err)
	}
	return New(db)
}

// New migrates the preferences table in db
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.Preference{}); err != nil {
		return nil, fmt.Errorf("failed to migrate preferences: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the raw value stored under key
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var pref models.Preference
	err := s.db.WithContext(ctx).Where("pref_key = ?", key).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(pref.Value.JSON), true, nil
}

// Put stores value under key, replacing any previous value
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	pref := models.Preference{PrefKey: key, Value: models.NewJSON(value)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
}

// Theme returns the stored theme, light by default
func (s *Store) Theme(ctx context.Context) Theme {
	data, ok, err := s.Get(ctx, themeKey)
	if err != nil || !ok {
		return ThemeLight
	}
	var theme Theme
	if err := json.Unmarshal(data, &theme); err != nil || (theme != ThemeLight && theme != ThemeDark) {
		logging.Logger.Warnf("Ignoring stored theme %q", string(data))
		return ThemeLight
	}
	return theme
}

// SetTheme stores the theme
func (s *Store) SetTheme(ctx context.Context, theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	data, err := json.Marshal(theme)
	if err != nil {
		return err
	}
	return s.Put(ctx, themeKey, data)
}

// Close releases the database
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
