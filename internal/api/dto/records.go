package dto

// CreateMaterialRequest represents a material creation request
type CreateMaterialRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Unit         string  `json:"unit" validate:"required,max=20"`
	DefaultPrice float64 `json:"default_price" validate:"gte=0"`
	IsCustom     bool    `json:"is_custom"`
}

// UpdateMaterialRequest represents a partial material update
type UpdateMaterialRequest struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Unit         *string  `json:"unit,omitempty" validate:"omitempty,min=1,max=20"`
	DefaultPrice *float64 `json:"default_price,omitempty" validate:"omitempty,gte=0"`
}

// CustomerRequest represents a customer create or update request
type CustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty" validate:"max=40"`
	Address string `json:"address,omitempty" validate:"max=500"`
}

// PricesRequest replaces the user's price table
type PricesRequest struct {
	InstallationPrices map[string]map[string]string `json:"installation_prices"`
	CleaningPrices     map[string]string            `json:"cleaning_prices"`
}

// CompanyRequest represents the company profile
type CompanyRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	CNPJ  string `json:"cnpj" validate:"max=20"`
	Phone string `json:"phone" validate:"max=40"`
	Email string `json:"email" validate:"omitempty,email"`
	Logo  string `json:"logo,omitempty" validate:"omitempty,url"`
}

// AccountingSummaryRequest holds the accounting query parameters
type AccountingSummaryRequest struct {
	Month string `json:"month" validate:"required,month"`
}
