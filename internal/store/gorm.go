package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting is one persisted key-value row.
type Setting struct {
	Name      string         `gorm:"primaryKey;size:128"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName pins the table name across dialects.
func (Setting) TableName() string {
	return "settings"
}

// Gorm stores values in a SQL table through GORM. It backs both the sqlite
// and postgres store types.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps db and migrates the settings table.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&Setting{}); err != nil {
		return nil, fmt.Errorf("failed to migrate settings table: %w", err)
	}
	return &Gorm{db: db}, nil
}

// DB returns the underlying connection.
func (g *Gorm) DB() *gorm.DB {
	return g.db
}

func (g *Gorm) Get(key string, dst any) error {
	var s Setting
	err := g.db.Where("name = ?", key).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return decode(key, s.Value, dst)
}

func (g *Gorm) Put(key string, v any) error {
	data, err := encode(key, v)
	if err != nil {
		return err
	}
	row := Setting{Name: key, Value: datatypes.JSON(data), UpdatedAt: time.Now()}
	err = g.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (g *Gorm) Delete(key string) error {
	if err := g.db.Where("name = ?", key).Delete(&Setting{}).Error; err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
