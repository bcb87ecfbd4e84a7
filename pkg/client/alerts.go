package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// AlertService handles alert-related API calls
type AlertService struct {
	client *Client
}

// AlertListOptions contains options for listing alerts
type AlertListOptions struct {
	ListOptions
	Since    string // duration such as "6h" or an RFC3339 time
	Platform *string
	Type     *string
	Severity *string
	Status   *string
}

func (o *AlertListOptions) query() url.Values {
	query := url.Values{}
	if o == nil {
		return query
	}
	if o.Page > 0 {
		query.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		query.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if o.Since != "" {
		query.Set("since", o.Since)
	}
	if o.Platform != nil {
		query.Set("platform", *o.Platform)
	}
	if o.Type != nil {
		query.Set("type", *o.Type)
	}
	if o.Severity != nil {
		query.Set("severity", *o.Severity)
	}
	if o.Status != nil {
		query.Set("status", *o.Status)
	}
	return query
}

// List retrieves one page of alerts, newest first
func (s *AlertService) List(ctx context.Context, opts *AlertListOptions) (*PaginatedResponse[Alert], error) {
	path := "/api/v1/alerts"
	if query := opts.query(); len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page PaginatedResponse[Alert]
	if err := s.client.doRequest(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Summary counts alerts by severity and type
func (s *AlertService) Summary(ctx context.Context, opts *AlertListOptions) (*AlertSummary, error) {
	path := "/api/v1/alerts/summary"
	if query := opts.query(); len(query) > 0 {
		path += "?" + query.Encode()
	}

	var summary AlertSummary
	if err := s.client.doRequest(ctx, "GET", path, nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Get retrieves a single alert by ID
func (s *AlertService) Get(ctx context.Context, id int64) (*Alert, error) {
	path := fmt.Sprintf("/api/v1/alerts/%d", id)

	var alert Alert
	if err := s.client.doRequest(ctx, "GET", path, nil, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

// UpdateStatus moves an alert to acknowledged or resolved
func (s *AlertService) UpdateStatus(ctx context.Context, id int64, status string) error {
	path := fmt.Sprintf("/api/v1/alerts/%d/status", id)
	return s.client.doRequest(ctx, "PUT", path, map[string]string{"status": status}, nil)
}

// Acknowledge acknowledges an alert
func (s *AlertService) Acknowledge(ctx context.Context, id int64) error {
	return s.UpdateStatus(ctx, id, "acknowledged")
}

// Resolve resolves an alert
func (s *AlertService) Resolve(ctx context.Context, id int64) error {
	return s.UpdateStatus(ctx, id, "resolved")
}
