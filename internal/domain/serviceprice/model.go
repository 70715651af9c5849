package serviceprice

import "time"

// Prices is the user's price table. Installation prices are keyed by
// equipment type and then capacity in BTUs; cleaning prices by equipment type.
type Prices struct {
	ID                 string                       `json:"id"`
	UserID             string                       `json:"-"`
	InstallationPrices map[string]map[string]string `json:"installation_prices"`
	CleaningPrices     map[string]string            `json:"cleaning_prices"`
	UpdatedAt          time.Time                    `json:"updated_at"`
}
