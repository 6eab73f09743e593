package markets

import (
	"net/http"
	"strconv"

	"binarymarket/handlers"
	"binarymarket/ledger"
	"binarymarket/models"
)

// HoldersResponse is a market's top holders.
type HoldersResponse struct {
	MarketID int64                `json:"marketId"`
	Holders  []models.HolderEntry `json:"holders"`
}

// TopHoldersHandler handles GET /v0/markets/{id}/holders
func TopHoldersHandler(l *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marketID, err := handlers.PathID(r, "id")
		if err != nil {
			http.Error(w, "Invalid market ID", http.StatusBadRequest)
			return
		}

		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= ledger.MaxHolders {
				limit = parsed
			}
		}

		holders, err := l.TopHolders(r.Context(), marketID, limit)
		if err != nil {
			handlers.Fail(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, HoldersResponse{MarketID: marketID, Holders: holders})
	}
}
