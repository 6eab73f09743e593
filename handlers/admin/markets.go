package adminhandlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"binarymarket/handlers"
	"binarymarket/handlers/math/market"
	"binarymarket/ledger"
	"binarymarket/models"
)

// ResolveRequest is the body of a resolution.
type ResolveRequest struct {
	Outcome *market.Outcome `json:"outcome" validate:"required"`
}

// ResolveMarketHandler handles POST /v0/admin/markets/{id}/resolve
func ResolveMarketHandler(l *ledger.Ledger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marketID, err := handlers.PathID(r, "id")
		if err != nil {
			http.Error(w, "Invalid market ID", http.StatusBadRequest)
			return
		}
		var req ResolveRequest
		if err := handlers.DecodeAndValidate(w, r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		m, err := l.Resolve(r.Context(), marketID, *req.Outcome)
		if err != nil {
			handlers.Fail(w, err)
			return
		}

		logger.Info("market resolved by admin", zap.Int64("marketId", marketID), zap.Stringer("outcome", *req.Outcome))
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"market":  m.ToPublic(),
		})
	}
}

// DeleteMarketHandler handles DELETE /v0/admin/markets/{id}
func DeleteMarketHandler(l *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marketID, err := handlers.PathID(r, "id")
		if err != nil {
			http.Error(w, "Invalid market ID", http.StatusBadRequest)
			return
		}

		if err := l.DeleteMarket(r.Context(), marketID); err != nil {
			handlers.Fail(w, err)
			return
		}

		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"deleted": marketID,
		})
	}
}

// LegacyTicket is one stake in an imported pool market.
type LegacyTicket struct {
	AccountID  int64           `json:"accountId" validate:"required,gt=0"`
	Outcome    *market.Outcome `json:"outcome" validate:"required"`
	AmountPaid uint64          `json:"amountPaid" validate:"required"`
}

// ImportLegacyRequest describes a proportional-pool market to import.
type ImportLegacyRequest struct {
	QuestionTitle      string         `json:"questionTitle" validate:"required,max=160"`
	Description        string         `json:"description" validate:"max=2000"`
	ResolutionDateTime time.Time      `json:"resolutionDateTime"`
	Tickets            []LegacyTicket `json:"tickets" validate:"dive"`
}

// ImportLegacyMarketHandler handles POST /v0/admin/markets/legacy
func ImportLegacyMarketHandler(l *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportLegacyRequest
		if err := handlers.DecodeAndValidate(w, r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		m := models.Market{
			QuestionTitle:      req.QuestionTitle,
			Description:        req.Description,
			ResolutionDateTime: req.ResolutionDateTime,
		}
		tickets := make([]models.PoolTicket, len(req.Tickets))
		for i, t := range req.Tickets {
			tickets[i] = models.PoolTicket{
				AccountID:  t.AccountID,
				Outcome:    t.Outcome.String(),
				AmountPaid: t.AmountPaid,
			}
		}
		if err := l.ImportPoolMarket(r.Context(), &m, tickets); err != nil {
			handlers.Fail(w, err)
			return
		}

		handlers.WriteJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"market":  m.ToPublic(),
			"tickets": len(tickets),
		})
	}
}
