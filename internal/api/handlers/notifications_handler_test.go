package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/backstage/dashboard/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	center := notify.NewCenter(10)
	hub := NewHub(center)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	router := gin.New()
	NewNotificationsHandler(center, hub, []string{"http://localhost:4200"}).RegisterRoutes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/notifications/ws"
	header := http.Header{"Origin": []string{"http://localhost:4200"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientsCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	center.Info("start_production", "Pedido enviado a producción")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var n notify.Notification
	require.NoError(t, json.Unmarshal(data, &n))
	assert.Equal(t, notify.LevelInfo, n.Level)
	assert.Equal(t, "Pedido enviado a producción", n.Message)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var listed []notify.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, n.ID, listed[0].ID)
}

func TestNotificationStreamRejectsUnknownOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	center := notify.NewCenter(10)
	hub := NewHub(center)

	router := gin.New()
	NewNotificationsHandler(center, hub, []string{"http://localhost:4200"}).RegisterRoutes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/notifications/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, hub.ClientsCount())
}

func TestHubDisconnectsClientsOnShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	center := notify.NewCenter(10)
	hub := NewHub(center)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	router := gin.New()
	NewNotificationsHandler(center, hub, []string{"*"}).RegisterRoutes(router)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/notifications/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientsCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	assert.Zero(t, hub.ClientsCount())
}
