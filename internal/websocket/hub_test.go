package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/askwhyharsh/fogofearth/internal/location"
	"github.com/askwhyharsh/fogofearth/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(ctx, logger.NewNop())
	go hub.Run()

	router := gin.New()
	router.GET("/ws", NewHandler(hub, logger.NewNop()).HandleWebSocket)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, hub *Hub, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() > 0 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_BroadcastsFogEvents(t *testing.T) {
	hub, url := newTestServer(t)
	conn := dial(t, hub, url)

	hub.PointRevealed(location.GeoPoint{Latitude: 51.5, Longitude: -0.12}, 3)
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypePointRevealed, msg.Type)
	require.NotNil(t, msg.Point)
	assert.Equal(t, 51.5, msg.Point.Latitude)
	assert.Equal(t, 3, msg.PrimaryCount)
	assert.NotZero(t, msg.Timestamp)

	hub.TransferProgress("abc", 2, 5)
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeTransferProgress, msg.Type)
	assert.Equal(t, "abc", msg.TransferID)
	assert.Equal(t, 2, msg.Have)
	assert.Equal(t, 5, msg.Total)

	hub.SharedImported(7)
	msg = readMessage(t, conn)
	assert.Equal(t, MessageTypeSharedImported, msg.Type)
	assert.Equal(t, 7, msg.SharedCount)

	hub.FogReset()
	assert.Equal(t, MessageTypeFogReset, readMessage(t, conn).Type)
}

func TestClient_AnswersPing(t *testing.T) {
	hub, url := newTestServer(t)
	conn := dial(t, hub, url)

	require.NoError(t, conn.WriteJSON(IncomingMessage{Type: MessageTypePing}))
	assert.Equal(t, MessageTypePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "INVALID_FORMAT", msg.ErrorCode)
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, url := newTestServer(t)
	conn := dial(t, hub, url)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
