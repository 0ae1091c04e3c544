package broadcast

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/laurent357/Sniping-bot/internal/events"
)

func dial(t *testing.T, server *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) WSEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event WSEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestClientReceivesInitialStats(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, func() any {
		return map[string]int{"total_transactions": 7}
	}, zaptest.NewLogger(t))

	conn := dial(t, server)
	event := readEvent(t, conn)
	assert.Equal(t, EventStatsUpdate, event.Type)
	data, ok := event.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 7, data["total_transactions"])
}

func TestBroadcastReachesAllClients(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil, zaptest.NewLogger(t))

	first := dial(t, server)
	second := dial(t, server)

	// Both handshakes must finish before the broadcast.
	require.Eventually(t, func() bool { return server.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	server.Broadcast(NewWSEvent(EventTransactionUpdate, map[string]string{"signature": "SIG1"}))

	for _, conn := range []*websocket.Conn{first, second} {
		event := readEvent(t, conn)
		assert.Equal(t, EventTransactionUpdate, event.Type)
	}
}

func TestBusEventsForwardedToClients(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 8)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	server := NewServer("127.0.0.1:0", bus, nil, zaptest.NewLogger(t))
	server.subscribeBus()
	defer func() {
		for _, sub := range server.subs {
			sub.Unsubscribe()
		}
	}()

	conn := dial(t, server)
	require.Eventually(t, func() bool { return server.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, bus.PublishSync(context.Background(), events.OpportunityDetectedEvent{
		BaseEvent:    events.NewBase(events.OpportunityDetected),
		TokenAddress: "MintA",
	}))

	event := readEvent(t, conn)
	assert.Equal(t, EventNewToken, event.Type)
}

func TestDisconnectedClientUnregisters(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil, nil, zaptest.NewLogger(t))

	conn := dial(t, server)
	require.Eventually(t, func() bool { return server.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return server.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
