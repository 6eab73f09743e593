// Package migration keeps an ordered registry of schema migrations. Migrations
// register themselves from init() in the migrations subpackage; Run applies
// the ones not yet recorded in schema_migrations, in name order.
package migration

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Func applies one migration.
type Func func(db *gorm.DB) error

var (
	mu       sync.Mutex
	registry = map[string]Func{}
)

// SchemaMigration records an applied migration.
type SchemaMigration struct {
	Name      string `gorm:"primaryKey;size:100"`
	AppliedAt time.Time
}

// Register adds a migration under a unique, sortable name.
func Register(name string, fn Func) error {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[name]; dup {
		return fmt.Errorf("migration %s already registered", name)
	}
	registry[name] = fn
	return nil
}

// Names returns the registered migration names in apply order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run applies every pending migration, each in its own transaction.
func Run(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	for _, name := range Names() {
		var count int64
		if err := db.Model(&SchemaMigration{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		mu.Lock()
		fn := registry[name]
		mu.Unlock()

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Name: name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		logger.Info("applied migration", zap.String("name", name))
	}
	return nil
}
