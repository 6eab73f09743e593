package accounts

import (
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"binarymarket/handlers"
	"binarymarket/models"
)

// LeaderboardEntry is one ranked account.
type LeaderboardEntry struct {
	Rank        int64  `json:"rank"`
	AccountID   int64  `json:"accountId"`
	DisplayName string `json:"displayName"`
	Balance     uint64 `json:"balance"`
}

// LeaderboardResponse is a page of the balance leaderboard.
type LeaderboardResponse struct {
	Leaderboard   []LeaderboardEntry `json:"leaderboard"`
	TotalAccounts int64              `json:"totalAccounts"`
	Page          int                `json:"page"`
	PageSize      int                `json:"pageSize"`
}

// LeaderboardHandler handles GET /v0/leaderboard
func LeaderboardHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
				page = parsed
			}
		}

		pageSize := 50
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= 100 {
				pageSize = parsed
			}
		}

		offset := (page - 1) * pageSize
		var accounts []models.Account
		if err := db.WithContext(r.Context()).
			Where("is_active = ?", true).
			Order("balance DESC, id").
			Limit(pageSize).
			Offset(offset).
			Find(&accounts).Error; err != nil {
			http.Error(w, "Failed to fetch leaderboard", http.StatusInternalServerError)
			return
		}

		entries := make([]LeaderboardEntry, len(accounts))
		for i, a := range accounts {
			entries[i] = LeaderboardEntry{
				Rank:        int64(offset + i + 1),
				AccountID:   a.ID,
				DisplayName: a.DisplayName,
				Balance:     a.Balance,
			}
		}

		var total int64
		if err := db.WithContext(r.Context()).Model(&models.Account{}).Where("is_active = ?", true).Count(&total).Error; err != nil {
			http.Error(w, "Failed to count accounts", http.StatusInternalServerError)
			return
		}

		handlers.WriteJSON(w, http.StatusOK, LeaderboardResponse{
			Leaderboard:   entries,
			TotalAccounts: total,
			Page:          page,
			PageSize:      pageSize,
		})
	}
}
