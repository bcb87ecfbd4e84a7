package client

import (
	"context"
	"net/url"
)

// MonitoringService handles platform monitoring API calls
type MonitoringService struct {
	client *Client
}

func platformPath(p, suffix string) string {
	return "/api/v1/monitoring/platforms/" + url.PathEscape(p) + suffix
}

// Dashboard retrieves the aggregated operator snapshot
func (s *MonitoringService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	if err := s.client.doRequest(ctx, "GET", "/api/v1/monitoring/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Platforms retrieves the status of every monitored platform
func (s *MonitoringService) Platforms(ctx context.Context) ([]PlatformStatus, error) {
	var statuses []PlatformStatus
	if err := s.client.doRequest(ctx, "GET", "/api/v1/monitoring/platforms", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// Platform retrieves the status of one platform
func (s *MonitoringService) Platform(ctx context.Context, p string) (*PlatformStatus, error) {
	var status PlatformStatus
	if err := s.client.doRequest(ctx, "GET", platformPath(p, ""), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Schedule retrieves the sliding-scale schedule and live timers
func (s *MonitoringService) Schedule(ctx context.Context) (*Schedule, error) {
	var sched Schedule
	if err := s.client.doRequest(ctx, "GET", "/api/v1/monitoring/schedule", nil, &sched); err != nil {
		return nil, err
	}
	return &sched, nil
}

// ComplianceReport evaluates every regulation against every platform
func (s *MonitoringService) ComplianceReport(ctx context.Context) (*ComplianceReport, error) {
	var report ComplianceReport
	if err := s.client.doRequest(ctx, "GET", "/api/v1/monitoring/compliance/report", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ReportResponse records one upstream API response and its headers
func (s *MonitoringService) ReportResponse(ctx context.Context, p string, headers map[string]string) (*IngestResult, error) {
	body := map[string]interface{}{"headers": headers}

	var result IngestResult
	if err := s.client.doRequest(ctx, "POST", platformPath(p, "/responses"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SpamFlag reports a spam flag and triggers the emergency stop
func (s *MonitoringService) SpamFlag(ctx context.Context, p, code, message string) (*SpamFlagResult, error) {
	body := map[string]string{"errorCode": code, "errorMessage": message}

	var result SpamFlagResult
	if err := s.client.doRequest(ctx, "POST", platformPath(p, "/spam-flag"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Resume returns a platform to normal operation
func (s *MonitoringService) Resume(ctx context.Context, p string) (*ResumeResult, error) {
	var result ResumeResult
	if err := s.client.doRequest(ctx, "POST", platformPath(p, "/resume"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Trigger enqueues a manual job. platform is only used by platform_monitor.
func (s *MonitoringService) Trigger(ctx context.Context, jobType, platform string) (*Job, error) {
	body := map[string]string{"jobType": jobType}
	if platform != "" {
		body["platform"] = platform
	}

	var j Job
	if err := s.client.doRequest(ctx, "POST", "/api/v1/monitoring/jobs", body, &j); err != nil {
		return nil, err
	}
	return &j, nil
}
