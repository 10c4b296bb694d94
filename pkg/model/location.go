package model

import "time"

// Location is a physical site (building, office, venue) containing rooms.
type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Room is a cleanable area within a location.
type Room struct {
	ID         string    `json:"id"`
	LocationID string    `json:"location_id"`
	Name       string    `json:"name"`
	Floor      string    `json:"floor,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
