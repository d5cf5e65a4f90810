package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mental-gin-backend/internal/config"
	"mental-gin-backend/internal/game"
	"mental-gin-backend/internal/handlers"
	"mental-gin-backend/internal/middleware"
	"mental-gin-backend/internal/models"
	"mental-gin-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recorder is a Broadcaster that keeps what it was given.
type recorder struct {
	mu  sync.Mutex
	got []models.Delivery
}

func (r *recorder) Deliver(_ string, ds []models.Delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ds...)
}

func (r *recorder) deliveries() []models.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Delivery(nil), r.got...)
}

type fixture struct {
	router *gin.Engine
	engine *services.GameEngine
	sent   *recorder
	ws     *handlers.WebSocketHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	jwt := services.NewJWTService(&config.Config{JWTSecret: "handler-secret", TokenTTL: time.Hour})
	store := services.NewMemoryStore()
	engine := services.NewGameEngine(game.Options{Rounds: 3}, store, logger)
	sent := &recorder{}

	gameHandler := handlers.NewGameHandler(engine, jwt, sent, logger)
	seatHandler := handlers.NewSeatHandler(engine)
	wsHandler := handlers.NewWebSocketHandler(engine, store, logger)

	r := gin.New()
	r.POST("/games", gameHandler.StartGame)
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(jwt))
	{
		api.GET("/me", seatHandler.GetCurrentSeat)
		api.GET("/ws", wsHandler.HandleWebSocket)
		games := api.Group("/games")
		games.GET("/state", gameHandler.GetState)
		games.GET("/history", gameHandler.GetHistory)
		games.GET("/shuffle", gameHandler.GetShuffle)
		games.POST("/draw", gameHandler.Draw)
		games.POST("/discard", gameHandler.Discard)
		games.POST("/knock", gameHandler.Knock)
		games.POST("/move", gameHandler.MoveCard)
		games.POST("/new-round", gameHandler.NewRound)
		games.POST("/new-game", gameHandler.NewGame)
	}

	return &fixture{router: r, engine: engine, sent: sent, ws: wsHandler}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) start(t *testing.T) models.StartGameResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/games", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.StartGameResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

type actionResponse struct {
	Success bool `json:"success"`
	Events  []struct {
		To    string          `json:"to"`
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	} `json:"events"`
}

func TestStartGame(t *testing.T) {
	f := newFixture(t)
	resp := f.start(t)

	assert.NotEmpty(t, resp.GameID)
	assert.Len(t, resp.Tokens, 2)
	assert.NotEmpty(t, resp.Tokens["player1"])
	assert.NotEmpty(t, resp.Tokens["player2"])
	assert.NotEmpty(t, resp.PublicKey["p"])
	require.Len(t, resp.Shuffle, 2)
	assert.Equal(t, "player1", resp.Shuffle[0].Party)
	assert.Equal(t, 3, resp.Shuffle[0].Rounds)
	assert.Equal(t, 1, f.engine.ActiveGames())
}

func TestSeatEndpoints(t *testing.T) {
	f := newFixture(t)
	resp := f.start(t)
	p2 := resp.Tokens["player2"]

	w := f.do(t, http.MethodGet, "/api/me", p2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info models.SeatInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, resp.GameID, info.GameID)
	assert.Equal(t, "player2", info.Seat)
	assert.Equal(t, 1, info.Round)

	w = f.do(t, http.MethodGet, "/api/games/state", p2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st models.GameState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Len(t, st.Hand, game.HandSize)
	assert.Equal(t, "player1", st.Turn)

	w = f.do(t, http.MethodGet, "/api/games/shuffle", p2, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/games/history?limit=5", p2, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"game_id":"`+resp.GameID+`","rounds":[],"count":0}`,
		strings.Replace(w.Body.String(), `"rounds":null`, `"rounds":[]`, 1))

	w = f.do(t, http.MethodGet, "/api/games/history?limit=zero", p2, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/games/state", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActions(t *testing.T) {
	f := newFixture(t)
	resp := f.start(t)
	p1, p2 := resp.Tokens["player1"], resp.Tokens["player2"]

	w := f.do(t, http.MethodPost, "/api/games/draw", p2, models.DrawRequest{Source: "stock"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var refused actionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &refused))
	assert.False(t, refused.Success)
	require.Len(t, refused.Events, 1)
	assert.Contains(t, string(refused.Events[0].Data), "Not your turn!")

	w = f.do(t, http.MethodPost, "/api/games/draw", p1, gin.H{"source": "pocket"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/games/draw", p1, models.DrawRequest{Source: "discard"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var drew actionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &drew))
	assert.True(t, drew.Success)
	require.Len(t, drew.Events, 1)
	assert.Equal(t, "player1", drew.Events[0].To)

	pushed := f.sent.deliveries()
	require.Len(t, pushed, 1)
	assert.Equal(t, "player2", pushed[0].To)

	w = f.do(t, http.MethodPost, "/api/games/move", p1, gin.H{"fromIndex": 0, "toIndex": 10})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/games/discard", p1, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/games/discard", p1, gin.H{"cardIndex": 42})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/games/new-game", p2, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/games/knock", p1, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var knock actionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &knock))
	require.Len(t, knock.Events, 1)
	assert.Equal(t, string(models.EventKnockError), knock.Events[0].Event)
}

func TestActionOnRemovedGame(t *testing.T) {
	f := newFixture(t)
	resp := f.start(t)
	f.engine.RemoveGame(resp.GameID)

	w := f.do(t, http.MethodPost, "/api/games/knock", resp.Tokens["player1"], nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(t, http.MethodGet, "/api/me", resp.Tokens["player1"], nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebSocketRoutesDeliveries(t *testing.T) {
	f := newFixture(t)
	resp := f.start(t)

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	c1 := dial(t, srv, resp.Tokens["player1"])
	c2 := dial(t, srv, resp.Tokens["player2"])
	read := func(conn *websocket.Conn) models.Delivery { return readDelivery(t, conn) }

	require.NoError(t, c2.WriteJSON(models.Action{Type: models.ActionJoin}))
	joined := read(c2)
	assert.Equal(t, models.EventUpdateGame, joined.Event)
	assert.Equal(t, "player2", joined.To)

	require.NoError(t, c1.WriteJSON(models.Action{Type: models.ActionDraw}))
	d1, d2 := read(c1), read(c2)
	assert.Equal(t, "player1", d1.To)
	assert.Equal(t, "player2", d2.To)

	data, ok := d2.Data.(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, game.HandSize+1, data["opponent_count"])
	assert.EqualValues(t, game.HandSize, len(data["hand"].([]any)))

	require.NoError(t, c2.WriteJSON(models.Action{Type: "cheat"}))
	bad := read(c2)
	assert.Equal(t, models.EventError, bad.Event)
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readDelivery(t *testing.T, conn *websocket.Conn) models.Delivery {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var d models.Delivery
	require.NoError(t, conn.ReadJSON(&d))
	return d
}

func TestWebSocketThrottlesResets(t *testing.T) {
	f := newFixture(t)
	resp := f.start(t)

	srv := httptest.NewServer(f.router)
	defer srv.Close()
	conn := dial(t, srv, resp.Tokens["player1"])

	for i := 0; i < services.DefaultRateLimitResets; i++ {
		require.NoError(t, conn.WriteJSON(models.Action{Type: models.ActionNewRound}))
		d := readDelivery(t, conn)
		require.Equal(t, models.EventUpdateGame, d.Event, "new_round %d", i+1)
	}

	require.NoError(t, conn.WriteJSON(models.Action{Type: models.ActionNewRound}))
	refused := readDelivery(t, conn)
	assert.Equal(t, models.EventError, refused.Event)
	assert.Equal(t, map[string]any{"error": "Rate limit exceeded"}, refused.Data)

	instance, ok := f.engine.GetGame(resp.GameID)
	require.True(t, ok)
	assert.Equal(t, services.DefaultRateLimitResets+1, instance.Game.Round())

	require.NoError(t, conn.WriteJSON(models.Action{Type: models.ActionJoin}))
	assert.Equal(t, models.EventUpdateGame, readDelivery(t, conn).Event, "joining is not throttled")
}

func TestWebSocketClosedWhenGameRemoved(t *testing.T) {
	f := newFixture(t)
	resp := f.start(t)

	srv := httptest.NewServer(f.router)
	defer srv.Close()
	conn := dial(t, srv, resp.Tokens["player2"])

	require.NoError(t, conn.WriteJSON(models.Action{Type: models.ActionJoin}))
	readDelivery(t, conn)

	f.engine.RemoveGame(resp.GameID)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var d models.Delivery
	err := conn.ReadJSON(&d)
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
