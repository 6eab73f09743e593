package models

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const apiKeyPrefix = "bm_"

var ErrMalformedAPIKey = errors.New("malformed API key")

// Account holds collateral and owns positions. Only a bcrypt hash of the
// API key secret is stored.
type Account struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	DisplayName string    `json:"displayName" gorm:"unique;not null;size:50"`
	KeyID       string    `json:"-" gorm:"uniqueIndex;not null;size:32"`
	KeyHash     string    `json:"-" gorm:"not null"`
	Balance     uint64    `json:"balance" gorm:"not null;default:0"`
	IsActive    bool      `json:"isActive" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AccountPublic is the public-facing account profile
type AccountPublic struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Balance     uint64 `json:"balance"`
	IsActive    bool   `json:"isActive"`
}

// ToPublic converts Account to AccountPublic (hides key material)
func (a *Account) ToPublic() AccountPublic {
	return AccountPublic{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		Balance:     a.Balance,
		IsActive:    a.IsActive,
	}
}

// GenerateAPIKey creates a key of the form bm_<keyID>_<secret> and returns
// it with the key ID and the bcrypt hash to persist.
func GenerateAPIKey() (key, keyID, hash string, err error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", "", "", err
	}
	keyID = strings.ReplaceAll(uuid.NewString(), "-", "")
	secretHex := hex.EncodeToString(secret)

	hashed, err := bcrypt.GenerateFromPassword([]byte(secretHex), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", err
	}
	return apiKeyPrefix + keyID + "_" + secretHex, keyID, string(hashed), nil
}

// SplitAPIKey returns the key ID and secret of a key made by GenerateAPIKey.
func SplitAPIKey(key string) (keyID, secret string, err error) {
	rest, ok := strings.CutPrefix(key, apiKeyPrefix)
	if !ok {
		return "", "", ErrMalformedAPIKey
	}
	keyID, secret, ok = strings.Cut(rest, "_")
	if !ok || len(keyID) != 32 || secret == "" {
		return "", "", ErrMalformedAPIKey
	}
	return keyID, secret, nil
}

// CheckSecret reports whether secret matches the stored hash.
func (a *Account) CheckSecret(secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.KeyHash), []byte(secret)) == nil
}
