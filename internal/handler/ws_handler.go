package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"prepchat/internal/bus"
	"prepchat/internal/middleware"
	"prepchat/internal/nlog"
	"prepchat/internal/service"
	apperrors "prepchat/pkg/errors"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	egressBuffer   = 256
)

// Client-side actions over the socket. Joining and leaving only touch the
// connection's subscriptions; send runs the same gateway commit-then-publish
// as the HTTP path.
const (
	actionJoin  = "join"
	actionLeave = "leave"
	actionSend  = "send"
)

type clientFrame struct {
	Action         string `json:"action"`
	ChannelID      string `json:"channelId"`
	Content        string `json:"content"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

type WSHandler struct {
	subscriber     bus.Subscriber
	messageService service.MessageService
	jwtSecret      string
	logger         nlog.Logger
	upgrader       websocket.Upgrader
}

func NewWSHandler(subscriber bus.Subscriber, messageService service.MessageService, jwtSecret string, logger nlog.Logger) *WSHandler {
	return &WSHandler{
		subscriber:     subscriber,
		messageService: messageService,
		jwtSecret:      jwtSecret,
		logger:         logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *WSHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on websocket dials, so the token may also
	// arrive as a query parameter.
	header := r.Header.Get("Authorization")
	if header == "" {
		if tok := r.URL.Query().Get("token"); tok != "" {
			header = "Bearer " + tok
		}
	}
	identity, err := middleware.VerifyBearer(h.jwtSecret, header)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Logf("Websocket upgrade failed: %v", err)
		return
	}

	client := newWSClient(conn, identity, h.subscriber, h.messageService, h.logger)
	h.logger.Logf("Connection opened for user %s", identity.UserID)

	go client.writeLoop()
	client.readLoop(r.Context())

	h.logger.Logf("Connection closed for user %s", identity.UserID)
}

type wsClient struct {
	conn           *websocket.Conn
	identity       middleware.Identity
	subscriber     bus.Subscriber
	messageService service.MessageService
	logger         nlog.Logger

	lock sync.Mutex
	subs map[string]bus.Subscription

	egress chan bus.Event
	done   chan struct{}
}

func newWSClient(conn *websocket.Conn, identity middleware.Identity, subscriber bus.Subscriber, messageService service.MessageService, logger nlog.Logger) *wsClient {
	return &wsClient{
		conn:           conn,
		identity:       identity,
		subscriber:     subscriber,
		messageService: messageService,
		logger:         logger,
		subs:           make(map[string]bus.Subscription),
		egress:         make(chan bus.Event, egressBuffer),
		done:           make(chan struct{}),
	}
}

// readLoop consumes client frames until the connection drops, then performs
// the implicit leave-all.
func (c *wsClient) readLoop(ctx context.Context) {
	defer func() {
		close(c.done)
		c.leaveAll()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame clientFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Logf("Read error for user %s: %v", c.identity.UserID, err)
			}
			return
		}

		switch frame.Action {
		case actionJoin:
			c.join(frame.ChannelID)
		case actionLeave:
			c.leave(frame.ChannelID)
		case actionSend:
			c.send(ctx, frame)
		default:
			c.reportError("unknown action")
		}
	}
}

// writeLoop is the single writer for the connection; events leave in the
// order the bus delivered them.
func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				c.logger.Logf("Write error for user %s: %v", c.identity.UserID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsClient) join(channelID string) {
	if channelID == "" {
		c.reportError("channelId is required")
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if _, ok := c.subs[channelID]; ok {
		return
	}

	sub, err := c.subscriber.Subscribe(channelID, func(event bus.Event) {
		select {
		case c.egress <- event:
		default:
			// A stalled connection never blocks fan-out to the rest of the
			// topic; the client catches up on its next history fetch.
			c.logger.Logf("Dropping event for slow connection of user %s", c.identity.UserID)
		}
	})
	if err != nil {
		c.logger.Logf("Join failed for user %s on channel %s: %v", c.identity.UserID, channelID, err)
		c.reportError("join failed")
		return
	}
	c.subs[channelID] = sub
}

func (c *wsClient) leave(channelID string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	sub, ok := c.subs[channelID]
	if !ok {
		return // idempotent
	}
	delete(c.subs, channelID)
	if err := sub.Unsubscribe(); err != nil {
		c.logger.Logf("Unsubscribe failed for channel %s: %v", channelID, err)
	}
}

func (c *wsClient) leaveAll() {
	c.lock.Lock()
	defer c.lock.Unlock()

	for channelID, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Logf("Unsubscribe failed for channel %s: %v", channelID, err)
		}
	}
	clear(c.subs)
}

func (c *wsClient) send(ctx context.Context, frame clientFrame) {
	_, err := c.messageService.Send(ctx, service.SendInput{
		ChannelID:      frame.ChannelID,
		SenderID:       c.identity.UserID,
		Content:        frame.Content,
		IdempotencyKey: frame.IdempotencyKey,
	})
	if err != nil {
		c.logger.Logf("Send failed for user %s: %v", c.identity.UserID, err)
		c.reportError(apperrors.PublicMessage(err))
	}
	// The commit's MessageCreated broadcast echoes back to this connection
	// too; there is no self-suppression.
}

func (c *wsClient) reportError(message string) {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return
	}
	select {
	case c.egress <- bus.Event{Type: "error", Payload: payload}:
	default:
	}
}
