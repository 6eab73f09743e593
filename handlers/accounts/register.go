package accounts

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"binarymarket/handlers"
	"binarymarket/ledger"
	"binarymarket/middleware"
	"binarymarket/models"
)

// RegisterRequest is the request body for account registration
type RegisterRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=3,max=50,excludesall=<>\"'"`
}

// RegisterResponse is returned after successful registration
type RegisterResponse struct {
	Account   models.AccountPublic `json:"account"`
	APIKey    string               `json:"apiKey"`
	Important string               `json:"important"`
}

// RegisterHandler handles POST /v0/accounts
func RegisterHandler(l *ledger.Ledger, startingBalance uint64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := handlers.DecodeAndValidate(w, r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		account, apiKey, err := l.OpenAccount(r.Context(), strings.TrimSpace(req.DisplayName), startingBalance)
		if err != nil {
			handlers.Fail(w, err)
			return
		}

		handlers.WriteJSON(w, http.StatusCreated, RegisterResponse{
			Account:   account.ToPublic(),
			APIKey:    apiKey,
			Important: "Save your API key. It is shown once and cannot be recovered.",
		})
	}
}

// MeResponse is the authenticated account with its open positions.
type MeResponse struct {
	Account   models.AccountPublic `json:"account"`
	Positions []models.Position    `json:"positions"`
}

// MeHandler handles GET /v0/accounts/me
func MeHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, httpErr := middleware.ValidateAccountAPIKey(r, db)
		if httpErr != nil {
			http.Error(w, httpErr.Message, httpErr.StatusCode)
			return
		}

		var positions []models.Position
		if err := db.WithContext(r.Context()).
			Where("account_id = ? AND shares > 0", account.ID).
			Order("market_id DESC").
			Find(&positions).Error; err != nil {
			http.Error(w, "Failed to fetch positions", http.StatusInternalServerError)
			return
		}

		handlers.WriteJSON(w, http.StatusOK, MeResponse{Account: account.ToPublic(), Positions: positions})
	}
}
