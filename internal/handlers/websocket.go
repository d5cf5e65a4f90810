package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mental-gin-backend/internal/game"
	"mental-gin-backend/internal/models"
	"mental-gin-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
	rateWindow     = time.Minute
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	gameEngine *services.GameEngine
	limiter    services.RateLimiter
	hub        *WebSocketHub
	logger     *zap.Logger
}

// WebSocketHub tracks one connection per seat per game. The hub goroutine owns
// the rooms; each client has its own writer.
type WebSocketHub struct {
	rooms      map[string]map[game.PlayerID]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	closeRoom  chan string
	logger     *zap.Logger
}

type Client struct {
	GameID string
	Seat   game.PlayerID
	Conn   *websocket.Conn

	send chan models.Delivery
}

// Message carries deliveries for one game into the hub.
type Message struct {
	GameID     string
	Deliveries []models.Delivery
}

// NewWebSocketHandler starts the hub and closes a game's room whenever the
// engine drops the game. limiter may be nil, which disables throttling.
func NewWebSocketHandler(gameEngine *services.GameEngine, limiter services.RateLimiter, logger *zap.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		rooms:      make(map[string]map[game.PlayerID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		closeRoom:  make(chan string),
		logger:     logger,
	}

	go hub.run()

	h := &WebSocketHandler{
		gameEngine: gameEngine,
		limiter:    limiter,
		hub:        hub,
		logger:     logger,
	}
	gameEngine.OnRemove(h.CloseGame)
	return h
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	gameID, seat, ok := seatOf(c)
	if !ok {
		return
	}
	if _, exists := h.gameEngine.GetGame(gameID); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		GameID: gameID,
		Seat:   seat,
		Conn:   conn,
		send:   make(chan models.Delivery, sendBufferSize),
	}
	h.hub.register <- client
	go client.writePump(h.logger)

	defer func() {
		h.hub.unregister <- client
	}()

	ctx := c.Request.Context()
	for {
		var action models.Action
		if err := conn.ReadJSON(&action); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", zap.String("game_id", gameID), zap.Error(err))
			}
			break
		}

		if !h.allow(ctx, gameID, seat, action.Type) {
			h.Deliver(gameID, []models.Delivery{{
				To:    string(seat),
				Event: models.EventError,
				Data:  models.ErrorPayload{Error: "Rate limit exceeded"},
			}})
			continue
		}

		out, err := h.gameEngine.HandleAction(ctx, gameID, seat, action)
		if err != nil && len(out) == 0 {
			out = []models.Delivery{{
				To:    string(seat),
				Event: models.EventError,
				Data:  models.ErrorPayload{Error: err.Error()},
			}}
		}
		h.Deliver(gameID, out)
	}
}

// allow applies the same per-seat buckets as the REST middleware.
func (h *WebSocketHandler) allow(ctx context.Context, gameID string, seat game.PlayerID, action models.ActionType) bool {
	bucket, limit, limited := services.ActionBucket(action)
	if !limited || h.limiter == nil {
		return true
	}
	allowed, err := h.limiter.CheckRateLimit(ctx, services.SeatSubject(gameID, string(seat)), bucket, limit, rateWindow)
	if err != nil {
		h.logger.Warn("rate limit check failed", zap.String("game_id", gameID), zap.Error(err))
		return false
	}
	return allowed
}

// Deliver queues deliveries for the seats of gameID.
func (h *WebSocketHandler) Deliver(gameID string, deliveries []models.Delivery) {
	if len(deliveries) == 0 {
		return
	}
	h.hub.broadcast <- &Message{GameID: gameID, Deliveries: deliveries}
}

// CloseGame disconnects every seat of gameID.
func (h *WebSocketHandler) CloseGame(gameID string) {
	h.hub.closeRoom <- gameID
}

func (c *Client) writePump(logger *zap.Logger) {
	defer c.Conn.Close()

	for d := range c.send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteJSON(d); err != nil {
			logger.Debug("websocket write failed", zap.String("game_id", c.GameID), zap.Error(err))
			return
		}
	}

	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			room, ok := hub.rooms[client.GameID]
			if !ok {
				room = make(map[game.PlayerID]*Client)
				hub.rooms[client.GameID] = room
			}
			if old, ok := room[client.Seat]; ok {
				close(old.send)
			}
			room[client.Seat] = client
			hub.logger.Debug("client registered", zap.String("game_id", client.GameID), zap.String("seat", string(client.Seat)))

		case client := <-hub.unregister:
			hub.remove(client)

		case gameID := <-hub.closeRoom:
			for _, client := range hub.rooms[gameID] {
				close(client.send)
			}
			delete(hub.rooms, gameID)
			hub.logger.Debug("room closed", zap.String("game_id", gameID))

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

// remove drops client if it still owns its seat. A client's send channel is
// closed exactly once, when it leaves its room.
func (hub *WebSocketHub) remove(client *Client) {
	room, ok := hub.rooms[client.GameID]
	if !ok || room[client.Seat] != client {
		return
	}
	delete(room, client.Seat)
	close(client.send)
	if len(room) == 0 {
		delete(hub.rooms, client.GameID)
	}
	hub.logger.Debug("client unregistered", zap.String("game_id", client.GameID), zap.String("seat", string(client.Seat)))
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	for _, d := range message.Deliveries {
		for seat, client := range hub.rooms[message.GameID] {
			if d.To != "" && d.To != string(seat) {
				continue
			}
			select {
			case client.send <- d:
			default:
				hub.logger.Warn("websocket client too slow, disconnecting",
					zap.String("game_id", message.GameID),
					zap.String("seat", string(seat)))
				hub.remove(client)
			}
		}
	}
}
