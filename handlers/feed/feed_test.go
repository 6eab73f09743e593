package feed

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubDeliversPerMarket(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ticks, cancel := hub.Subscribe(1)
	defer cancel()
	other, cancelOther := hub.Subscribe(2)
	defer cancelOther()

	hub.Publish(Tick{MarketID: 1, Kind: KindTrade, PriceYes: 0.6, PriceNo: 0.4})

	select {
	case got := <-ticks:
		assert.Equal(t, 0.6, got.PriceYes)
	case <-time.After(time.Second):
		t.Fatal("tick not delivered")
	}
	select {
	case got := <-other:
		t.Fatalf("market 2 got a tick for market %d", got.MarketID)
	default:
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ticks, cancel := hub.Subscribe(7)
	defer cancel()

	for i := 0; i <= subscriberBuffer; i++ {
		hub.Publish(Tick{MarketID: 7})
	}
	assert.Zero(t, hub.Subscribers(7))

	n := 0
	for range ticks {
		n++
	}
	assert.Equal(t, subscriberBuffer, n)
}

func TestHubCancelAndClose(t *testing.T) {
	hub := NewHub(zap.NewNop())
	_, cancel := hub.Subscribe(3)
	assert.Equal(t, 1, hub.Subscribers(3))
	cancel()
	cancel()
	assert.Zero(t, hub.Subscribers(3))

	ticks, _ := hub.Subscribe(3)
	hub.Close()
	_, open := <-ticks
	assert.False(t, open)
}

func TestStreamHandler(t *testing.T) {
	hub := NewHub(zap.NewNop())
	exists := func(id int64) (bool, error) { return id == 42, nil }

	router := mux.NewRouter()
	router.HandleFunc("/v0/markets/{id}/feed", StreamHandler(hub, exists, func(*http.Request) bool { return true }, zap.NewNop()))
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v0/markets/9/feed")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v0/markets/42/feed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers(42) == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(Tick{MarketID: 42, Kind: KindResolution, Resolution: "NO", PriceYes: 0.2, PriceNo: 0.8})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Tick
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, int64(42), got.MarketID)
	assert.Equal(t, KindResolution, got.Kind)
	assert.Equal(t, "NO", got.Resolution)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers(42) == 0 }, 2*time.Second, 10*time.Millisecond)
}
