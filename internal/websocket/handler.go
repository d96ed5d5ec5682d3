package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"poll-service/internal/events"
	"poll-service/internal/transport/httpdto"
	poll_errors "poll-service/pkg/errors"
	"poll-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const subscribeTimeout = 5 * time.Second

type Handler struct {
	hub        *Hub
	polls      PollReader
	authorizer *ChannelAuthorizer
	upgrader   websocket.Upgrader
	logger     *logger.Logger
}

func NewHandler(hub *Hub, polls PollReader, l *logger.Logger) *Handler {
	return &Handler{
		hub:        hub,
		polls:      polls,
		authorizer: NewChannelAuthorizer(polls),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: l,
	}
}

// Connect handles GET /api/ws?name=<poll>. Without a name the client
// follows every poll.
func (h *Handler) Connect(c *gin.Context) {
	name := c.Query("name")
	channel := ChannelFor(name)

	if err := h.authorizer.CanSubscribe(c.Request.Context(), channel); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, poll_errors.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), "SUBSCRIBE_REJECTED"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written an error response
		return
	}

	client := NewClient(conn, c.ClientIP())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	select {
	case <-h.hub.Subscribe(client, channel):
	case <-time.After(subscribeTimeout):
		h.hub.Unregister(client)
		_ = conn.Close()
		if h.logger != nil {
			h.logger.Warnf("websocket %s: subscription to %s timed out", client.ID, channel)
		}
		return
	}
	if h.logger != nil {
		h.logger.Infof("websocket %s subscribed to %s from %s (%d clients)", client.ID, channel, client.RemoteAddr, h.hub.ClientCount())
	}

	// the subscription is live, so no update between the read and now is lost
	if name != "" {
		h.sendSnapshot(c.Request.Context(), client, name, channel)
	}

	go client.WriteLoop(ctx)
	client.ReadLoop()

	h.hub.Unregister(client)
	if h.logger != nil {
		h.logger.Infof("websocket %s disconnected (%d messages dropped for slow clients so far)", client.ID, h.hub.DroppedCount())
	}
}

// sendSnapshot queues the poll's current state so a new viewer does not
// wait for the next vote to see the tally.
func (h *Handler) sendSnapshot(ctx context.Context, client *Client, name, channel string) {
	p, err := h.polls.Get(ctx, name)
	if err != nil {
		return
	}
	event := events.NewPollEvent(events.EventPollSnapshot, p, h.polls.Now())
	event.Viewers = h.hub.Viewers(channel)
	data, err := json.Marshal(event)
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("failed to marshal snapshot for %s: %s", name, err)
		}
		return
	}
	client.SendMessage(data)
}
