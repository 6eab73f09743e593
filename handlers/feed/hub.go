// Package feed streams live price ticks to websocket subscribers. Ticks are
// fire-and-forget: nothing is stored, and a subscriber that falls behind is
// dropped rather than allowed to stall the publisher.
package feed

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// subscriberBuffer is how many ticks may queue for one subscriber before it is
// considered too slow and disconnected.
const subscriberBuffer = 32

// Kind tells what caused a tick.
type Kind string

const (
	KindTrade      Kind = "trade"
	KindResolution Kind = "resolution"
)

// Tick is the price snapshot pushed after a committed state change.
type Tick struct {
	MarketID   int64     `json:"marketId"`
	Kind       Kind      `json:"kind"`
	PriceYes   float64   `json:"priceYes"`
	PriceNo    float64   `json:"priceNo"`
	QYes       uint64    `json:"qYes"`
	QNo        uint64    `json:"qNo"`
	Version    uint64    `json:"version"`
	Resolution string    `json:"resolution,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher receives ticks from the ledger.
type Publisher interface {
	Publish(Tick)
}

// Discard is a Publisher that drops every tick.
type Discard struct{}

func (Discard) Publish(Tick) {}

type subscriber struct {
	ch   chan Tick
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub fans ticks out to the subscribers of each market.
type Hub struct {
	logger *zap.Logger

	mtx  sync.RWMutex
	subs map[int64]map[*subscriber]struct{}
}

// NewHub returns an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[int64]map[*subscriber]struct{}),
	}
}

// Subscribe registers interest in one market. The returned channel is closed
// when cancel is called or when the subscriber is dropped for being slow.
func (h *Hub) Subscribe(marketID int64) (ticks <-chan Tick, cancel func()) {
	sub := &subscriber{ch: make(chan Tick, subscriberBuffer)}

	h.mtx.Lock()
	if h.subs[marketID] == nil {
		h.subs[marketID] = make(map[*subscriber]struct{})
	}
	h.subs[marketID][sub] = struct{}{}
	h.mtx.Unlock()

	return sub.ch, func() { h.remove(marketID, sub) }
}

func (h *Hub) remove(marketID int64, sub *subscriber) {
	h.mtx.Lock()
	if set, ok := h.subs[marketID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, marketID)
		}
	}
	h.mtx.Unlock()
	sub.close()
}

// Publish implements Publisher. It never blocks.
func (h *Hub) Publish(t Tick) {
	var slow []*subscriber

	h.mtx.RLock()
	for sub := range h.subs[t.MarketID] {
		select {
		case sub.ch <- t:
		default:
			slow = append(slow, sub)
		}
	}
	h.mtx.RUnlock()

	for _, sub := range slow {
		h.logger.Warn("dropping slow feed subscriber", zap.Int64("marketId", t.MarketID))
		h.remove(t.MarketID, sub)
	}
}

// Subscribers returns the number of live subscribers for a market.
func (h *Hub) Subscribers(marketID int64) int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()
	return len(h.subs[marketID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mtx.Lock()
	all := h.subs
	h.subs = make(map[int64]map[*subscriber]struct{})
	h.mtx.Unlock()

	for _, set := range all {
		for sub := range set {
			sub.close()
		}
	}
}
