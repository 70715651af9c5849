package company

import "time"

// Info is the business identity printed on service orders
type Info struct {
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	CNPJ      string    `json:"cnpj"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Logo      string    `json:"logo,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
