package web

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesbot/internal/domain"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_BroadcastsStoredSale(t *testing.T) {
	s := newTestServer(t, &MockQueries{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.hub.Publish(&domain.SaleRecord{
		IDHash:     "a1b2c3d4e5f6",
		GroupID:    9,
		Item:       "Hat",
		BuyerName:  "alice",
		Amount:     250,
		OccurredAt: now,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev SaleEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "sale", ev.Type)
	assert.Equal(t, int64(9), ev.GroupID)
	assert.Equal(t, "Hat", ev.Item)
	assert.Equal(t, int64(250), ev.Amount)
	assert.NotEmpty(t, ev.Ref)
	assert.True(t, now.Equal(ev.OccurredAt))
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	s := newTestServer(t, &MockQueries{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialHub(t, srv)
	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	h := NewHub(nil, log.New(io.Discard, "", 0))
	h.Publish(&domain.SaleRecord{IDHash: "x", Amount: 1, OccurredAt: now})
	assert.Equal(t, 0, h.Len())
}

func TestHub_CloseDisconnectsSubscribers(t *testing.T) {
	s := newTestServer(t, &MockQueries{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialHub(t, srv)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.hub.Close()
	assert.Equal(t, 0, s.hub.Len())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
