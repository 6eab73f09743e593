package migrations

import (
	"log"
	"time"

	"gorm.io/gorm"

	"binarymarket/migration"
)

func init() {
	if err := migration.Register("20261019_lmsr_markets", Migration20261019LMSRMarkets); err != nil {
		log.Fatalf("Failed to register migration 20261019_lmsr_markets: %v", err)
	}
}

// Market model for migration
type Market struct {
	ID                      int64  `gorm:"primaryKey"`
	QuestionTitle           string `gorm:"not null;size:160"`
	Description             string `gorm:"type:text"`
	DescriptionHTML         string `gorm:"type:text"`
	Category                string `gorm:"default:general;index"`
	YesLabel                string `gorm:"default:YES"`
	NoLabel                 string `gorm:"default:NO"`
	ResolutionDateTime      time.Time
	FinalResolutionDateTime *time.Time
	CreatorAccountID        int64  `gorm:"index"`
	PricingModel            string `gorm:"not null;default:lmsr;size:10"`

	B    uint64 `gorm:"not null;default:0"`
	QYes uint64 `gorm:"not null;default:0"`
	QNo  uint64 `gorm:"not null;default:0"`

	Version          uint64 `gorm:"not null;default:0"`
	IsResolved       bool   `gorm:"not null;default:false;index"`
	ResolutionResult string `gorm:"size:3"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account model for migration
type Account struct {
	ID          int64  `gorm:"primaryKey"`
	DisplayName string `gorm:"unique;not null;size:50"`
	KeyID       string `gorm:"uniqueIndex;not null;size:32"`
	KeyHash     string `gorm:"not null"`
	Balance     uint64 `gorm:"not null;default:0"`
	IsActive    bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Position model for migration
type Position struct {
	ID        int64  `gorm:"primaryKey"`
	AccountID int64  `gorm:"not null;uniqueIndex:idx_position_owner"`
	MarketID  int64  `gorm:"not null;index;uniqueIndex:idx_position_owner"`
	Outcome   string `gorm:"not null;size:3;uniqueIndex:idx_position_owner"`
	Shares    uint64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Migration20261019LMSRMarkets creates the market, account and position tables
func Migration20261019LMSRMarkets(db *gorm.DB) error {
	if err := db.AutoMigrate(&Market{}, &Account{}, &Position{}); err != nil {
		return err
	}
	return db.Exec("CREATE INDEX IF NOT EXISTS idx_positions_shares ON positions(market_id, outcome, shares DESC)").Error
}

// Rollback20261019LMSRMarkets drops the tables again
func Rollback20261019LMSRMarkets(db *gorm.DB) error {
	return db.Migrator().DropTable(&Position{}, &Account{}, &Market{})
}

// TableName specifies the table name for Market
func (Market) TableName() string {
	return "markets"
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// TableName specifies the table name for Position
func (Position) TableName() string {
	return "positions"
}
