package middleware

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"binarymarket/models"
)

// HTTPError is an authentication failure ready to be written with http.Error.
type HTTPError struct {
	StatusCode int
	Message    string
}

// accountKey extracts the API key from X-Account-Key or "Authorization: Account <key>".
func accountKey(r *http.Request) string {
	if key := r.Header.Get("X-Account-Key"); key != "" {
		return key
	}
	if key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Account "); ok {
		return strings.TrimSpace(key)
	}
	return ""
}

// ValidateAccountAPIKey validates an account's API key and returns the account
func ValidateAccountAPIKey(r *http.Request, db *gorm.DB) (*models.Account, *HTTPError) {
	apiKey := accountKey(r)
	if apiKey == "" {
		return nil, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "API key required. Use X-Account-Key header or 'Account <key>' in Authorization header",
		}
	}

	keyID, secret, err := models.SplitAPIKey(apiKey)
	if err != nil {
		return nil, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Invalid API key format",
		}
	}

	var account models.Account
	result := db.Where("key_id = ?", keyID).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, &HTTPError{
				StatusCode: http.StatusUnauthorized,
				Message:    "Invalid API key",
			}
		}
		return nil, &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Database error validating account",
		}
	}

	if !account.CheckSecret(secret) {
		return nil, &HTTPError{
			StatusCode: http.StatusUnauthorized,
			Message:    "Invalid API key",
		}
	}

	if !account.IsActive {
		return nil, &HTTPError{
			StatusCode: http.StatusForbidden,
			Message:    "Account is deactivated",
		}
	}

	return &account, nil
}
