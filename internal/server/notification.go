package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/smallbiznis/bizcore/internal/authorization"
	"github.com/smallbiznis/bizcore/internal/bizcontext"
	businessdomain "github.com/smallbiznis/bizcore/internal/business/domain"
	notificationdomain "github.com/smallbiznis/bizcore/internal/notification/domain"
	"github.com/smallbiznis/bizcore/internal/notification/live"
	"go.uber.org/zap"
)

const (
	streamWriteWait    = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

func (s *Server) registerNotificationRoutes(biz *gin.RouterGroup) {
	read := s.authorize(authorization.ResourceNotification, authorization.ActionRead)
	write := s.authorize(authorization.ResourceNotification, authorization.ActionWrite)

	notifications := resource[notificationdomain.Notification]{
		path:   "notifications",
		object: authorization.ResourceNotification,
		store:  s.notificationSvc.Notifications(),
		filters: []filter{
			boolFilter("is_read", "is_read"),
			textFilter("type", "type"),
			textFilter("channel", "channel"),
			textFilter("priority", "priority"),
			dateRange("created_at"),
		},
		readOnly: true,
	}
	rg := notifications.mount(s, biz)
	rg.POST("", write, s.requireRole(businessdomain.RoleOwner, businessdomain.RoleAdmin), notifications.create)
	rg.PATCH("/:id", write, notifications.update)
	rg.DELETE("/:id", write, notifications.delete)

	rg.POST("/:id/read", write, s.MarkNotificationRead)
	rg.POST("/read-all", write, s.MarkAllNotificationsRead)
	rg.GET("/unread-count", read, s.UnreadNotificationCount)
	rg.GET("/preferences", read, s.GetNotificationPreference)
	rg.PUT("/preferences", write, s.UpsertNotificationPreference)
	rg.GET("/stream", read, s.StreamNotifications)
}

func (s *Server) MarkNotificationRead(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	n, err := s.notificationSvc.MarkRead(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": n})
}

func (s *Server) MarkAllNotificationsRead(c *gin.Context) {
	count, err := s.notificationSvc.MarkAllRead(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": count}})
}

func (s *Server) UnreadNotificationCount(c *gin.Context) {
	count, err := s.notificationSvc.UnreadCount(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"unread": count}})
}

func (s *Server) GetNotificationPreference(c *gin.Context) {
	pref, err := s.notificationSvc.GetPreference(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pref})
}

func (s *Server) UpsertNotificationPreference(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	pref, err := s.notificationSvc.UpsertPreference(c.Request.Context(), body)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pref})
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range s.cfg.CORSAllowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			u, err := url.Parse(origin)
			if err == nil && strings.EqualFold(u.Host, r.Host) {
				return true
			}
			s.log.Warn("websocket origin rejected", zap.String("origin", origin))
			return false
		},
	}
}

// StreamNotifications pushes the caller's in-app notifications for this
// business over a websocket, starting with the buffered backlog.
func (s *Server) StreamNotifications(c *gin.Context) {
	if s.liveNotifications == nil {
		AbortWithError(c, ErrNotFound)
		return
	}
	ctx := c.Request.Context()
	actor, ok := bizcontext.ActorFromContext(ctx)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	businessID, _ := bizcontext.BusinessIDFromContext(ctx)

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub, backlog := s.liveNotifications.Subscribe(actor.UserID)
	defer sub.Close()

	// Clients only listen; reading surfaces their close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(event live.Event) error {
		if !forBusiness(event, businessID) {
			return nil
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(event)
	}

	for _, event := range backlog {
		if err := send(event); err != nil {
			return
		}
	}

	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := send(event); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.log.Debug("notification stream closed", zap.String("user_id", actor.UserID.String()))
				}
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

// forBusiness drops notifications that belong to another business of the same user.
func forBusiness(event live.Event, businessID snowflake.ID) bool {
	n, ok := event.Payload.(*notificationdomain.Notification)
	if !ok || businessID == 0 {
		return true
	}
	return n.BusinessID == businessID
}
