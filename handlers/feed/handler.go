package feed

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// MarketExists reports whether a market id is known.
type MarketExists func(id int64) (bool, error)

// StreamHandler handles GET /v0/markets/{id}/feed
func StreamHandler(hub *Hub, exists MarketExists, checkOrigin func(*http.Request) bool, logger *zap.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{CheckOrigin: checkOrigin}

	return func(w http.ResponseWriter, r *http.Request) {
		marketID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			http.Error(w, "Invalid market ID", http.StatusBadRequest)
			return
		}
		ok, err := exists(marketID)
		if err != nil {
			logger.Error("feed market lookup", zap.Int64("marketId", marketID), zap.Error(err))
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "Market not found", http.StatusNotFound)
			return
		}

		// Upgrade writes its own error response.
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		ticks, cancel := hub.Subscribe(marketID)
		defer cancel()

		// The read side only exists to notice the client going away and to
		// extend the deadline on pongs.
		gone := make(chan struct{})
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()

		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case t, open := <-ticks:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !open {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
					return
				}
				if err := conn.WriteJSON(t); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}
}
