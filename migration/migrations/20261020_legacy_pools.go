package migrations

import (
	"log"
	"time"

	"gorm.io/gorm"

	"binarymarket/migration"
)

func init() {
	if err := migration.Register("20261020_legacy_pools", Migration20261020LegacyPools); err != nil {
		log.Fatalf("Failed to register migration 20261020_legacy_pools: %v", err)
	}
}

// PoolMarket adds the proportional-pool columns to markets
type PoolMarket struct {
	YesPool                 uint64 `gorm:"not null;default:0"`
	NoPool                  uint64 `gorm:"not null;default:0"`
	TotalAtResolution       uint64 `gorm:"not null;default:0"`
	WinningPoolAtResolution uint64 `gorm:"not null;default:0"`
}

func (PoolMarket) TableName() string {
	return "markets"
}

// PoolTicket model for migration
type PoolTicket struct {
	ID         int64  `gorm:"primaryKey"`
	AccountID  int64  `gorm:"not null;index"`
	MarketID   int64  `gorm:"not null;index"`
	Outcome    string `gorm:"not null;size:3"`
	AmountPaid uint64 `gorm:"not null"`
	Claimed    bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

func (PoolTicket) TableName() string {
	return "pool_tickets"
}

// Migration20261020LegacyPools lets legacy pool markets live beside LMSR ones
func Migration20261020LegacyPools(db *gorm.DB) error {
	for _, col := range []string{"YesPool", "NoPool", "TotalAtResolution", "WinningPoolAtResolution"} {
		if db.Migrator().HasColumn(&PoolMarket{}, col) {
			continue
		}
		if err := db.Migrator().AddColumn(&PoolMarket{}, col); err != nil {
			return err
		}
	}
	return db.AutoMigrate(&PoolTicket{})
}
