package dto

// AddressDTO is the service location
type AddressDTO struct {
	Street       string `json:"street" validate:"required"`
	Number       string `json:"number" validate:"required"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	ZipCode      string `json:"zipCode"`
}

// ServiceItemDTO is one service performed on an order
type ServiceItemDTO struct {
	ServiceType        string  `json:"service_type" validate:"required,oneof=installation maintenance cleaning gas_recharge other"`
	EquipmentType      string  `json:"equipment_type,omitempty"`
	EquipmentPower     string  `json:"equipment_power,omitempty"`
	CustomServiceValue float64 `json:"custom_service_value" validate:"gte=0"`
	Description        string  `json:"description,omitempty" validate:"max=1000"`
}

// MaterialLineDTO is a material consumed on an order
type MaterialLineDTO struct {
	MaterialID string  `json:"material_id" validate:"required"`
	Quantity   float64 `json:"quantity" validate:"gt=0"`
	UnitPrice  float64 `json:"unit_price" validate:"gte=0"`
}

// CreateServiceOrderRequest represents a service order creation request
type CreateServiceOrderRequest struct {
	CustomerID    string            `json:"customer_id" validate:"required"`
	Address       AddressDTO        `json:"address" validate:"required"`
	Status        string            `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed"`
	IncludePhotos bool              `json:"include_photos"`
	LocationLat   *float64          `json:"location_lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	LocationLng   *float64          `json:"location_lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Services      []ServiceItemDTO  `json:"services" validate:"required,min=1,dive"`
	Materials     []MaterialLineDTO `json:"materials" validate:"dive"`
}

// UpdateStatusRequest changes an order's status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}
