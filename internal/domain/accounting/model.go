package accounting

import "time"

// Summary is the monthly revenue and cost roll-up of service orders
type Summary struct {
	Month            string             `json:"month"`
	TotalRevenue     float64            `json:"total_revenue"`
	TotalCosts       float64            `json:"total_costs"`
	Profit           float64            `json:"profit"`
	OrderCount       int                `json:"order_count"`
	RevenueByService map[string]float64 `json:"revenue_by_service"`
}

// MonthRange returns the UTC [start, end) bounds of a YYYY-MM month
func MonthRange(month string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation("2006-01", month, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 1, 0), nil
}
