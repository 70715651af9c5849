package material

import "time"

// Material is a consumable used on service orders
type Material struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	DefaultPrice float64   `json:"default_price"`
	IsCustom     bool      `json:"is_custom"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Update holds the fields a material update may change
type Update struct {
	Name         *string
	Unit         *string
	DefaultPrice *float64
}
