package markets

import (
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"binarymarket/format"
	"binarymarket/handlers"
	"binarymarket/handlers/math/market"
	"binarymarket/ledger"
	"binarymarket/middleware"
	"binarymarket/models"
)

// OrderRequest is the body of buy, sell and quote requests. Amount is a budget
// in base units for buys and a share count for sells; AmountDisplay is the
// same in display units and wins when both are set.
type OrderRequest struct {
	Side          market.Side     `json:"side,omitempty" validate:"omitempty,oneof=buy sell"`
	Outcome       *market.Outcome `json:"outcome" validate:"required"`
	Amount        uint64          `json:"amount,omitempty"`
	AmountDisplay string          `json:"amountDisplay,omitempty" validate:"omitempty,numeric"`
}

func (o OrderRequest) amount() (uint64, error) {
	if o.AmountDisplay == "" {
		return o.Amount, nil
	}
	return format.ParseAmount(o.AmountDisplay)
}

// QuoteResponse previews a trade.
type QuoteResponse struct {
	Quote        market.Quote `json:"quote"`
	AveragePrice float64      `json:"averagePrice"`
	Collateral   string       `json:"collateralDisplay"`
	PriceAfter   string       `json:"priceAfterCents"`
	Version      uint64       `json:"version"`
}

func quoteResponse(q market.Quote, version uint64) QuoteResponse {
	return QuoteResponse{
		Quote:        q,
		AveragePrice: q.AveragePrice(),
		Collateral:   format.FormatAmount(q.CollateralDelta, 3),
		PriceAfter:   format.FormatCents(q.ResultingPrice, 1),
		Version:      version,
	}
}

// TradeResponse is returned after a committed trade
type TradeResponse struct {
	Success    bool                `json:"success"`
	Quote      QuoteResponse       `json:"quote"`
	NewBalance uint64              `json:"newBalance"`
	Position   uint64              `json:"position"`
	Market     models.MarketPublic `json:"market"`
}

// QuoteHandler handles POST /v0/markets/{id}/quote
func QuoteHandler(l *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marketID, req, amount, ok := parseOrder(w, r)
		if !ok {
			return
		}
		side := req.Side
		if side == "" {
			side = market.Buy
		}
		q, m, err := l.Quote(r.Context(), marketID, side, *req.Outcome, amount)
		if err != nil {
			handlers.Fail(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, quoteResponse(q, m.Version))
	}
}

// BuyHandler handles POST /v0/markets/{id}/buy
func BuyHandler(l *ledger.Ledger, db *gorm.DB) http.HandlerFunc {
	return tradeHandler(l, db, market.Buy)
}

// SellHandler handles POST /v0/markets/{id}/sell
func SellHandler(l *ledger.Ledger, db *gorm.DB) http.HandlerFunc {
	return tradeHandler(l, db, market.Sell)
}

func tradeHandler(l *ledger.Ledger, db *gorm.DB, side market.Side) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, httpErr := middleware.ValidateAccountAPIKey(r, db)
		if httpErr != nil {
			http.Error(w, httpErr.Message, httpErr.StatusCode)
			return
		}

		marketID, req, amount, ok := parseOrder(w, r)
		if !ok {
			return
		}
		if req.Side != "" && req.Side != side {
			http.Error(w, fmt.Sprintf("side %q does not match this endpoint", req.Side), http.StatusBadRequest)
			return
		}

		var res *ledger.TradeResult
		var err error
		if side == market.Buy {
			res, err = l.Buy(r.Context(), account.ID, marketID, *req.Outcome, amount)
		} else {
			res, err = l.Sell(r.Context(), account.ID, marketID, *req.Outcome, amount)
		}
		if err != nil {
			handlers.Fail(w, err)
			return
		}

		handlers.WriteJSON(w, http.StatusOK, TradeResponse{
			Success:    true,
			Quote:      quoteResponse(res.Quote, res.Market.Version),
			NewBalance: res.Balance,
			Position:   res.Position,
			Market:     res.Market.ToPublic(),
		})
	}
}

func parseOrder(w http.ResponseWriter, r *http.Request) (int64, OrderRequest, uint64, bool) {
	var req OrderRequest
	marketID, err := handlers.PathID(r, "id")
	if err != nil {
		http.Error(w, "Invalid market ID", http.StatusBadRequest)
		return 0, req, 0, false
	}
	if err := handlers.DecodeAndValidate(w, r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return 0, req, 0, false
	}
	amount, err := req.amount()
	if err != nil {
		http.Error(w, "Invalid amount: "+err.Error(), http.StatusBadRequest)
		return 0, req, 0, false
	}
	return marketID, req, amount, true
}
