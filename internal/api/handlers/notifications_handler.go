package handlers

import (
	"net/http"

	"example.com/backstage/dashboard/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// NotificationsHandler serves the notification list and its live stream
type NotificationsHandler struct {
	center   *notify.Center
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewNotificationsHandler creates a new notifications handler. Websocket
// upgrades are accepted from allowedOrigins; "*" accepts any.
func NewNotificationsHandler(center *notify.Center, hub *Hub, allowedOrigins []string) *NotificationsHandler {
	allowAll := lo.Contains(allowedOrigins, "*")
	return &NotificationsHandler{
		center: center,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowAll || lo.Contains(allowedOrigins, origin)
			},
		},
	}
}

// HandleList returns the remembered notifications, oldest first
func (h *NotificationsHandler) HandleList(c *gin.Context) {
	c.JSON(http.StatusOK, h.center.List())
}

// HandleStream upgrades to a websocket that receives every new notification
func (h *NotificationsHandler) HandleStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.hub.AddClient(conn)
	log.Info().Int("clients", h.hub.ClientsCount()).Msg("notification stream connected")

	defer func() {
		h.hub.RemoveClient(conn)
		log.Info().Int("clients", h.hub.ClientsCount()).Msg("notification stream disconnected")
	}()

	// the client never sends anything useful; reading detects the disconnect
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("notification stream closed unexpectedly")
			}
			return
		}
	}
}

// RegisterRoutes registers the handler's routes
func (h *NotificationsHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/api/notifications", h.HandleList)
	router.GET("/api/notifications/ws", h.HandleStream)
}
