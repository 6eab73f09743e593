// Package modelstesting provides an in-memory database and fixtures for tests.
package modelstesting

import (
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"binarymarket/migration"
	_ "binarymarket/migration/migrations"
	"binarymarket/models"
)

// NewFakeDB returns a migrated in-memory SQLite database that lives for the
// duration of the test.
func NewFakeDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := migration.Run(db, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// GenerateAccount inserts an active account with a random name and the given
// balance, returning it with its plaintext API key.
func GenerateAccount(t testing.TB, db *gorm.DB, balance uint64) (*models.Account, string) {
	t.Helper()
	key, keyID, hash, err := models.GenerateAPIKey()
	if err != nil {
		t.Fatalf("api key: %v", err)
	}
	acct := &models.Account{
		DisplayName: strings.ToLower(gofakeit.FirstName()) + "_" + keyID[:6],
		KeyID:       keyID,
		KeyHash:     hash,
		Balance:     balance,
		IsActive:    true,
	}
	if err := db.Create(acct).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acct, key
}

// GenerateMarket inserts an open LMSR market with liquidity b.
func GenerateMarket(t testing.TB, db *gorm.DB, b uint64) *models.Market {
	t.Helper()
	m := &models.Market{
		QuestionTitle:      FakeQuestion(),
		Description:        gofakeit.Sentence(12),
		Category:           "general",
		YesLabel:           "YES",
		NoLabel:            "NO",
		ResolutionDateTime: time.Now().Add(72 * time.Hour),
		PricingModel:       models.PricingLMSR,
		B:                  b,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create market: %v", err)
	}
	return m
}

// FakeQuestion returns a random yes/no question.
func FakeQuestion() string {
	return "Will " + gofakeit.Company() + " " + gofakeit.HackerVerb() + " the " + gofakeit.HackerNoun() + "?"
}
