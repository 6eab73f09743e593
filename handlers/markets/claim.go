package markets

import (
	"net/http"

	"gorm.io/gorm"

	"binarymarket/format"
	"binarymarket/handlers"
	"binarymarket/ledger"
	"binarymarket/middleware"
)

// ClaimResponse reports a settled claim.
type ClaimResponse struct {
	Success         bool   `json:"success"`
	Payout          uint64 `json:"payout"`
	PayoutDisplay   string `json:"payoutDisplay"`
	PositionsBurned int    `json:"positionsBurned"`
	TicketsClaimed  int    `json:"ticketsClaimed"`
	NewBalance      uint64 `json:"newBalance"`
}

func claimResponse(res *ledger.ClaimResult) ClaimResponse {
	return ClaimResponse{
		Success:         true,
		Payout:          res.Payout,
		PayoutDisplay:   format.FormatAmount(res.Payout, 3),
		PositionsBurned: len(res.Burned),
		TicketsClaimed:  len(res.Tickets),
		NewBalance:      res.Balance,
	}
}

// ClaimHandler handles POST /v0/markets/{id}/claim
func ClaimHandler(l *ledger.Ledger, db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, httpErr := middleware.ValidateAccountAPIKey(r, db)
		if httpErr != nil {
			http.Error(w, httpErr.Message, httpErr.StatusCode)
			return
		}
		marketID, err := handlers.PathID(r, "id")
		if err != nil {
			http.Error(w, "Invalid market ID", http.StatusBadRequest)
			return
		}
		res, err := l.Claim(r.Context(), account.ID, marketID)
		if err != nil {
			handlers.Fail(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, claimResponse(res))
	}
}

// ClaimTicketHandler handles POST /v0/tickets/{id}/claim
func ClaimTicketHandler(l *ledger.Ledger, db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, httpErr := middleware.ValidateAccountAPIKey(r, db)
		if httpErr != nil {
			http.Error(w, httpErr.Message, httpErr.StatusCode)
			return
		}
		ticketID, err := handlers.PathID(r, "id")
		if err != nil {
			http.Error(w, "Invalid ticket ID", http.StatusBadRequest)
			return
		}
		res, err := l.ClaimTicket(r.Context(), account.ID, ticketID)
		if err != nil {
			handlers.Fail(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, claimResponse(res))
	}
}
