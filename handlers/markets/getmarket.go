package markets

import (
	"net/http"
	"strconv"

	"binarymarket/format"
	"binarymarket/handlers"
	"binarymarket/ledger"
	"binarymarket/models"
)

// MarketResponse is a market with its prices rendered for display.
type MarketResponse struct {
	Market   models.MarketPublic `json:"market"`
	YesCents string              `json:"yesCents"`
	NoCents  string              `json:"noCents"`
	YesPct   string              `json:"yesPercent"`
}

func marketResponse(m *models.Market) MarketResponse {
	pub := m.ToPublic()
	return MarketResponse{
		Market:   pub,
		YesCents: format.FormatCents(pub.PriceYes, 0),
		NoCents:  format.FormatCents(pub.PriceNo, 0),
		YesPct:   format.FormatPercent(pub.PriceYes, 1),
	}
}

// GetMarketHandler handles GET /v0/markets/{id}
func GetMarketHandler(l *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := handlers.PathID(r, "id")
		if err != nil {
			http.Error(w, "Invalid market ID", http.StatusBadRequest)
			return
		}
		m, err := l.Market(r.Context(), id)
		if err != nil {
			handlers.Fail(w, err)
			return
		}
		handlers.WriteJSON(w, http.StatusOK, marketResponse(m))
	}
}

// ListMarketsResponse is one page of markets.
type ListMarketsResponse struct {
	Markets  []MarketResponse `json:"markets"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}

// ListMarketsHandler handles GET /v0/markets
func ListMarketsHandler(l *ledger.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		page := 1
		if p := query.Get("page"); p != "" {
			if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
				page = parsed
			}
		}

		pageSize := 50
		if ps := query.Get("pageSize"); ps != "" {
			if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= 100 {
				pageSize = parsed
			}
		}

		var resolved *bool
		switch query.Get("status") {
		case "open":
			v := false
			resolved = &v
		case "resolved":
			v := true
			resolved = &v
		case "", "all":
		default:
			http.Error(w, "status must be open, resolved or all", http.StatusBadRequest)
			return
		}

		markets, err := l.ListMarkets(r.Context(), query.Get("category"), resolved, pageSize, (page-1)*pageSize)
		if err != nil {
			handlers.Fail(w, err)
			return
		}

		resp := ListMarketsResponse{
			Markets:  make([]MarketResponse, len(markets)),
			Page:     page,
			PageSize: pageSize,
		}
		for i := range markets {
			resp.Markets[i] = marketResponse(&markets[i])
		}
		handlers.WriteJSON(w, http.StatusOK, resp)
	}
}
