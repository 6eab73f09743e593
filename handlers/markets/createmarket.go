package markets

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"binarymarket/handlers"
	"binarymarket/ledger"
	"binarymarket/middleware"
	"binarymarket/models"
	"binarymarket/security"
)

// minResolutionLead is how far in the future a new market must resolve.
const minResolutionLead = time.Hour

// CreateMarketRequest is the request body for creating a market
type CreateMarketRequest struct {
	QuestionTitle      string    `json:"questionTitle" validate:"required"`
	Description        string    `json:"description"`
	Category           string    `json:"category" validate:"omitempty,max=32,alphanum"`
	ResolutionDateTime time.Time `json:"resolutionDateTime" validate:"required"`
	YesLabel           string    `json:"yesLabel,omitempty"`
	NoLabel            string    `json:"noLabel,omitempty"`
	// Liquidity is the LMSR b parameter in base units; zero uses the default.
	Liquidity uint64 `json:"liquidity,omitempty"`
}

// CreateMarketResponse is returned after creating a market
type CreateMarketResponse struct {
	Success bool                `json:"success"`
	Market  models.MarketPublic `json:"market"`
	Message string              `json:"message,omitempty"`
}

// CreateMarketHandler handles POST /v0/markets
func CreateMarketHandler(l *ledger.Ledger, db *gorm.DB, defaultLiquidity uint64, logger *zap.Logger) http.HandlerFunc {
	securityService := security.NewSecurityService()

	return func(w http.ResponseWriter, r *http.Request) {
		account, httpErr := middleware.ValidateAccountAPIKey(r, db)
		if httpErr != nil {
			http.Error(w, httpErr.Message, httpErr.StatusCode)
			return
		}

		var req CreateMarketRequest
		if err := handlers.DecodeAndValidate(w, r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if req.ResolutionDateTime.Before(time.Now().Add(minResolutionLead)) {
			http.Error(w, fmt.Sprintf("Resolution time must be at least %s in the future", minResolutionLead), http.StatusBadRequest)
			return
		}

		sanitized, err := securityService.ValidateAndSanitizeMarketInput(security.MarketInput{
			Title:       req.QuestionTitle,
			Description: req.Description,
			YesLabel:    req.YesLabel,
			NoLabel:     req.NoLabel,
		})
		if err != nil {
			http.Error(w, "Invalid market data: "+err.Error(), http.StatusBadRequest)
			return
		}

		b := req.Liquidity
		if b == 0 {
			b = defaultLiquidity
		}
		category := strings.ToLower(req.Category)
		if category == "" {
			category = "general"
		}

		newMarket := models.Market{
			QuestionTitle:      sanitized.Title,
			Description:        sanitized.Description,
			DescriptionHTML:    sanitized.DescriptionHTML,
			Category:           category,
			YesLabel:           sanitized.YesLabel,
			NoLabel:            sanitized.NoLabel,
			ResolutionDateTime: req.ResolutionDateTime.UTC(),
			CreatorAccountID:   account.ID,
			B:                  b,
		}
		if err := l.CreateMarket(r.Context(), &newMarket); err != nil {
			handlers.Fail(w, err)
			return
		}

		logger.Info("market created via api", zap.Int64("marketId", newMarket.ID), zap.Int64("creator", account.ID))
		handlers.WriteJSON(w, http.StatusCreated, CreateMarketResponse{
			Success: true,
			Market:  newMarket.ToPublic(),
			Message: "Market created successfully",
		})
	}
}
