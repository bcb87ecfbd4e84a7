package client

import (
	"context"
	"net/url"
	"strings"
)

// JobService handles job queue API calls
type JobService struct {
	client *Client
}

// List retrieves queued jobs, optionally filtered by state and platform
func (s *JobService) List(ctx context.Context, platform string, states ...string) ([]Job, error) {
	query := url.Values{}
	if len(states) > 0 {
		query.Set("state", strings.Join(states, ","))
	}
	if platform != "" {
		query.Set("platform", platform)
	}

	path := "/api/v1/jobs"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var jobs []Job
	if err := s.client.doRequest(ctx, "GET", path, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}
