package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mental-gin-backend/internal/game"
	"mental-gin-backend/internal/middleware"
	"mental-gin-backend/internal/models"
	"mental-gin-backend/internal/services"
)

const defaultHistoryLimit = 20

type GameHandler struct {
	gameEngine  *services.GameEngine
	jwtService  *services.JWTService
	broadcaster services.Broadcaster
	logger      *zap.Logger
}

func NewGameHandler(gameEngine *services.GameEngine, jwtService *services.JWTService, broadcaster services.Broadcaster, logger *zap.Logger) *GameHandler {
	if broadcaster == nil {
		broadcaster = services.NopBroadcaster{}
	}
	return &GameHandler{
		gameEngine:  gameEngine,
		jwtService:  jwtService,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// StartGame deals a new game and hands out one token per seat.
func (h *GameHandler) StartGame(c *gin.Context) {
	instance, err := h.gameEngine.CreateGame(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to start game",
			"details": game.Message(err),
		})
		return
	}

	tokens := make(map[string]string, len(game.Seats))
	for _, seat := range game.Seats {
		token, err := h.jwtService.GenerateToken(instance.ID, string(seat))
		if err != nil {
			h.gameEngine.RemoveGame(instance.ID)
			h.logger.Error("failed to issue seat token", zap.String("game_id", instance.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue seat tokens"})
			return
		}
		tokens[string(seat)] = token
	}

	pub := instance.Game.PublicKey()
	c.JSON(http.StatusCreated, models.StartGameResponse{
		GameID: instance.ID,
		Tokens: tokens,
		PublicKey: map[string]string{
			"p": pub.P.String(),
			"g": pub.G.String(),
			"y": pub.Y.String(),
		},
		Shuffle: models.NewTranscripts(instance.Game.Transcripts()),
	})
}

func (h *GameHandler) GetState(c *gin.Context) {
	gameID, seat, ok := seatOf(c)
	if !ok {
		return
	}

	st, err := h.gameEngine.State(gameID, seat)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *GameHandler) GetHistory(c *gin.Context) {
	gameID, _, ok := seatOf(c)
	if !ok {
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)), 10, 64)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	rounds, err := h.gameEngine.History(c.Request.Context(), gameID, limit)
	if err != nil {
		h.logger.Error("failed to load history", zap.String("game_id", gameID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"game_id": gameID,
		"rounds":  rounds,
		"count":   len(rounds),
	})
}

// GetShuffle returns the cut-and-choose transcripts of the current deal.
func (h *GameHandler) GetShuffle(c *gin.Context) {
	gameID, _, ok := seatOf(c)
	if !ok {
		return
	}

	ts, err := h.gameEngine.Transcripts(gameID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"game_id": gameID,
		"shuffle": models.NewTranscripts(ts),
	})
}

func (h *GameHandler) Draw(c *gin.Context) {
	var req models.DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.dispatch(c, models.Action{Type: models.ActionDraw, Data: models.ActionData{Source: req.Source}})
}

func (h *GameHandler) Discard(c *gin.Context) {
	var req models.DiscardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.dispatch(c, models.Action{Type: models.ActionDiscard, Data: models.ActionData{CardIndex: req.CardIndex}})
}

func (h *GameHandler) Knock(c *gin.Context) {
	h.dispatch(c, models.Action{Type: models.ActionKnock})
}

func (h *GameHandler) MoveCard(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.dispatch(c, models.Action{
		Type: models.ActionMoveCard,
		Data: models.ActionData{FromIndex: req.FromIndex, ToIndex: req.ToIndex},
	})
}

func (h *GameHandler) NewRound(c *gin.Context) {
	h.dispatch(c, models.Action{Type: models.ActionNewRound})
}

func (h *GameHandler) NewGame(c *gin.Context) {
	h.dispatch(c, models.Action{Type: models.ActionNewGame})
}

// dispatch runs an action for the caller's seat. Events for the caller make up
// the response body; everything else goes out through the broadcaster.
func (h *GameHandler) dispatch(c *gin.Context, action models.Action) {
	gameID, seat, ok := seatOf(c)
	if !ok {
		return
	}

	out, err := h.gameEngine.HandleAction(c.Request.Context(), gameID, seat, action)
	if errors.Is(err, services.ErrGameNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	mine, others := splitDeliveries(out, string(seat))
	if len(others) > 0 {
		h.broadcaster.Deliver(gameID, others)
	}

	c.JSON(statusFor(err), gin.H{
		"success": err == nil,
		"events":  mine,
	})
}

func (h *GameHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, services.ErrGameNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}
	c.JSON(statusFor(err), gin.H{"error": game.Message(err)})
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, services.ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnknownAction):
		return http.StatusBadRequest
	case game.SeverityOf(err) == game.Recoverable:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// splitDeliveries separates what the acting seat sees from what must be
// pushed. Broadcasts land in both.
func splitDeliveries(out []models.Delivery, seat string) (mine, others []models.Delivery) {
	for _, d := range out {
		switch d.To {
		case seat:
			mine = append(mine, d)
		case "":
			mine = append(mine, d)
			others = append(others, d)
		default:
			others = append(others, d)
		}
	}
	return mine, others
}

func seatOf(c *gin.Context) (string, game.PlayerID, bool) {
	gameID := c.GetString(middleware.CtxGameID)
	seat := game.PlayerID(c.GetString(middleware.CtxSeat))
	if gameID == "" || !seat.Valid() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Seat not authenticated"})
		return "", "", false
	}
	return gameID, seat, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"details": err.Error(),
	})
}
