// Package server wires the HTTP routes, CORS policy and rate limiting.
package server

import (
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"binarymarket/handlers/accounts"
	adminhandlers "binarymarket/handlers/admin"
	"binarymarket/handlers/feed"
	"binarymarket/handlers/markets"
	"binarymarket/ledger"
	"binarymarket/middleware"
	"binarymarket/setup"
)

// Deps are the long-lived collaborators the routes share.
type Deps struct {
	Config  *setup.Config
	DB      *gorm.DB
	Ledger  *ledger.Ledger
	Hub     *feed.Hub
	Limiter *middleware.RateLimiter
	Logger  *zap.Logger
}

// NewRouter registers every route on a fresh mux.Router.
func NewRouter(d Deps) *mux.Router {
	cfg := d.Config
	adminSecret := []byte(cfg.Admin.JWTSecret)

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	v0 := router.PathPrefix("/v0").Subrouter()

	v0.HandleFunc("/accounts", accounts.RegisterHandler(d.Ledger, cfg.Markets.StartingBalance)).Methods(http.MethodPost)
	v0.HandleFunc("/accounts/me", accounts.MeHandler(d.DB)).Methods(http.MethodGet)
	v0.HandleFunc("/leaderboard", accounts.LeaderboardHandler(d.DB)).Methods(http.MethodGet)

	v0.HandleFunc("/markets", markets.ListMarketsHandler(d.Ledger)).Methods(http.MethodGet)
	v0.HandleFunc("/markets", markets.CreateMarketHandler(d.Ledger, d.DB, cfg.Markets.DefaultLiquidity, d.Logger)).Methods(http.MethodPost)
	v0.HandleFunc("/markets/{id:[0-9]+}", markets.GetMarketHandler(d.Ledger)).Methods(http.MethodGet)
	v0.HandleFunc("/markets/{id:[0-9]+}/holders", markets.TopHoldersHandler(d.Ledger)).Methods(http.MethodGet)
	v0.HandleFunc("/markets/{id:[0-9]+}/quote", markets.QuoteHandler(d.Ledger)).Methods(http.MethodPost)
	v0.HandleFunc("/markets/{id:[0-9]+}/buy", markets.BuyHandler(d.Ledger, d.DB)).Methods(http.MethodPost)
	v0.HandleFunc("/markets/{id:[0-9]+}/sell", markets.SellHandler(d.Ledger, d.DB)).Methods(http.MethodPost)
	v0.HandleFunc("/markets/{id:[0-9]+}/claim", markets.ClaimHandler(d.Ledger, d.DB)).Methods(http.MethodPost)
	v0.HandleFunc("/tickets/{id:[0-9]+}/claim", markets.ClaimTicketHandler(d.Ledger, d.DB)).Methods(http.MethodPost)
	v0.HandleFunc("/markets/{id:[0-9]+}/feed", feed.StreamHandler(d.Hub, d.Ledger.MarketExists, originChecker(cfg.Server.AllowedOrigins), d.Logger)).Methods(http.MethodGet)

	admin := v0.PathPrefix("/admin").Subrouter()
	admin.Use(func(next http.Handler) http.Handler { return middleware.RequireAdmin(adminSecret, next) })
	admin.HandleFunc("/markets/{id:[0-9]+}/resolve", adminhandlers.ResolveMarketHandler(d.Ledger, d.Logger)).Methods(http.MethodPost)
	admin.HandleFunc("/markets/{id:[0-9]+}", adminhandlers.DeleteMarketHandler(d.Ledger)).Methods(http.MethodDelete)
	admin.HandleFunc("/markets/legacy", adminhandlers.ImportLegacyMarketHandler(d.Ledger)).Methods(http.MethodPost)

	return router
}

// NewHandler returns the router behind CORS and the rate limiter.
func NewHandler(d Deps) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   d.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Account-Key"},
		AllowCredentials: true,
	})
	var h http.Handler = NewRouter(d)
	if d.Limiter != nil {
		h = d.Limiter.Middleware(h)
	}
	return c.Handler(h)
}

// originChecker admits websocket upgrades from the configured CORS origins,
// and from same-origin clients that send no Origin header.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}
