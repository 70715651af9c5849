package serviceorder

import (
	"time"
)

// Order statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Service types
const (
	ServiceInstallation = "installation"
	ServiceMaintenance  = "maintenance"
	ServiceCleaning     = "cleaning"
	ServiceGasRecharge  = "gas_recharge"
	ServiceOther        = "other"
)

// Photo stages
const (
	PhotoBefore = "before"
	PhotoDuring = "during"
	PhotoAfter  = "after"
)

// Address is where the service takes place
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zipCode"`
}

// Item is one service performed on an order
type Item struct {
	ID             string  `json:"id"`
	ServiceType    string  `json:"service_type"`
	EquipmentType  string  `json:"equipment_type,omitempty"`
	EquipmentPower string  `json:"equipment_power,omitempty"`
	Value          float64 `json:"custom_service_value"`
	Description    string  `json:"description,omitempty"`
}

// MaterialLine is a material consumed on an order, priced at order time
type MaterialLine struct {
	ID         string  `json:"id"`
	MaterialID string  `json:"material_id"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

// Cost is the line's total
func (m MaterialLine) Cost() float64 {
	return m.Quantity * m.UnitPrice
}

// Photo is an image attached to an order
type Photo struct {
	ID        string    `json:"id"`
	PhotoURL  string    `json:"photo_url"`
	PhotoType string    `json:"photo_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is a service order with its items, materials and photos
type Order struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	CustomerID    string         `json:"customer_id"`
	Address       Address        `json:"address"`
	Status        string         `json:"status"`
	IncludePhotos bool           `json:"include_photos"`
	LocationLat   *float64       `json:"location_lat,omitempty"`
	LocationLng   *float64       `json:"location_lng,omitempty"`
	TotalAmount   float64        `json:"total_amount"`
	Items         []Item         `json:"services"`
	Materials     []MaterialLine `json:"materials"`
	Photos        []Photo        `json:"photos,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ComputeTotal sets TotalAmount to the sum of the item values
func (o *Order) ComputeTotal() float64 {
	var total float64
	for _, it := range o.Items {
		total += it.Value
	}
	o.TotalAmount = total
	return total
}

// MaterialsCost is the sum of all material lines
func (o *Order) MaterialsCost() float64 {
	var total float64
	for _, m := range o.Materials {
		total += m.Cost()
	}
	return total
}

// Filter narrows an order listing
type Filter struct {
	Status     string
	CustomerID string
	From       *time.Time
	To         *time.Time
}

// ValidStatus reports whether s is a known order status
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}
