package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:              url,
		HandshakeTimeout: time.Second,
		PingTimeout:      30 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       100,
	}
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)

	require.NoError(t, client.Connect(context.Background()))
	assert.True(t, client.IsConnected())

	assert.NoError(t, client.Close())
	assert.False(t, client.IsConnected())
}

func TestClient_Send(t *testing.T) {
	var received []byte
	var mu sync.Mutex

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	testMsg := []byte(`{"type":"market","channel":"trades","market_id":"0xabc"}`)
	require.NoError(t, client.Send(testMsg))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return string(received) == string(testMsg)
	}, time.Second, 5*time.Millisecond)
}

func TestClient_Messages(t *testing.T) {
	testMessages := []string{
		`{"market_id":"0xabc","size":10,"price":0.41}`,
		`{"market_id":"0xabc","size":20,"price":0.42}`,
		`{"market_id":"0xabc","size":30,"price":0.43}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range testMessages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	var received []string
	timeout := time.After(500 * time.Millisecond)
	for i := 0; i < len(testMessages); i++ {
		select {
		case msg := <-client.Messages():
			received = append(received, string(msg.Data))
			assert.False(t, msg.ReceivedAt.IsZero(), "ReceivedAt should be stamped")
		case <-timeout:
			t.Fatalf("timeout waiting for messages, received %d of %d", len(received), len(testMessages))
		}
	}

	assert.Equal(t, testMessages, received)
}

func TestClient_ServerCloseReportsError(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// returning closes the connection
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case err := <-client.Errors():
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for connection error")
	}

	assert.False(t, client.IsConnected())
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(testClientConfig("ws://localhost:12345"), nil)
	assert.ErrorIs(t, client.Send([]byte("test")), ErrNotConnected)
}

func TestClient_ConnectAfterClose(t *testing.T) {
	client := NewClient(testClientConfig("ws://localhost:12345"), nil)
	client.Close()

	assert.ErrorIs(t, client.Connect(context.Background()), ErrAlreadyClosed)
}

func TestClient_DoubleClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	require.NoError(t, client.Connect(context.Background()))

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
}

func TestClient_PingHandler(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		if err := conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)); err != nil {
			t.Logf("ping error: %v", err)
			return
		}
		drain(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	time.Sleep(100 * time.Millisecond)
	assert.True(t, client.IsConnected())
}

func TestClient_SilentFeedGoesStale(t *testing.T) {
	// Never reads, so the client's pings go unanswered.
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 50 * time.Millisecond

	client := NewClient(cfg, nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	select {
	case err := <-client.Errors():
		assert.ErrorIs(t, err, ErrStaleConnection)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("silent connection was not reported stale")
	}
}

func TestClient_DataFramesKeepFeedAlive(t *testing.T) {
	// Streams trades but never reads, so no pong ever comes back.
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for i := 0; i < 30; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"market_id":"m1","size":1,"price":0.5}`)); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 60 * time.Millisecond

	client := NewClient(cfg, nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	received := 0
	deadline := time.After(250 * time.Millisecond)
	for {
		select {
		case <-client.Messages():
			received++
			continue
		case err := <-client.Errors():
			t.Fatalf("feed with steady traffic reported %v", err)
		case <-deadline:
		}
		break
	}
	assert.Greater(t, received, 10)
	assert.True(t, client.IsConnected())
}

func TestClient_FullInboxDropsFrames(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		for i := 0; i < 5; i++ {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"market_id":"m1"}`)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.BufferSize = 1

	client := NewClient(cfg, nil)
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	ws := client.(*wsClient)
	assert.Eventually(t, func() bool { return ws.dropped.Load() == 4 }, time.Second, 5*time.Millisecond)
	assert.Len(t, client.Messages(), 1)
}

func TestDefaultConfigs(t *testing.T) {
	clientCfg := DefaultClientConfig()
	assert.Equal(t, DefaultURL, clientCfg.URL)
	assert.Equal(t, 10*time.Second, clientCfg.HandshakeTimeout)

	mgrCfg := DefaultManagerConfig()
	assert.Equal(t, 2*time.Second, mgrCfg.ReconnectDelay)
}
