package client

import (
	"context"
	"net/http"
	"net/url"
)

// AccountingService handles monthly accounting reports
type AccountingService struct {
	client *Client
}

// Summary returns the summary for month (YYYY-MM)
func (s *AccountingService) Summary(ctx context.Context, month string) (*AccountingSummary, error) {
	var out AccountingSummary
	path := "/api/v1/accounting/summary?month=" + url.QueryEscape(month)
	if err := s.client.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
