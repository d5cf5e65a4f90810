package services

import "mental-gin-backend/internal/models"

// Broadcaster pushes deliveries to the seats of a game.
type Broadcaster interface {
	Deliver(gameID string, deliveries []models.Delivery)
}

// NopBroadcaster drops every delivery.
type NopBroadcaster struct{}

func (NopBroadcaster) Deliver(string, []models.Delivery) {}
