package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/ratewatch/internal/domain/alert"
	"github.com/pratik-mahalle/ratewatch/internal/domain/job"
	"github.com/pratik-mahalle/ratewatch/internal/domain/platform"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/logger"
	"github.com/pratik-mahalle/ratewatch/internal/pkg/validator"
	"github.com/pratik-mahalle/ratewatch/internal/queue"
	"github.com/pratik-mahalle/ratewatch/internal/services"
	"github.com/pratik-mahalle/ratewatch/internal/testutil"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiFixture struct {
	router      http.Handler
	coordinator *services.MonitorCoordinator
	alerts      *testutil.MockAlertRepository
	queue       *queue.MemoryQueue
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	clk := testutil.NewClock()
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	val := validator.New()
	alertRepo := testutil.NewMockAlertRepository()
	q := queue.NewMemoryQueue(clk)
	platforms := []platform.Platform{platform.Facebook, platform.Twitter, platform.WhatsApp}

	alerts := services.NewAlertService(alertRepo, nil, clk, log)
	tracker := services.NewActivityTracker(alerts, clk, log)
	engine := services.NewComplianceEngine(platforms, alerts, clk, log)
	coordinator := services.NewMonitorCoordinator(platforms, tracker, engine, alerts, q, nil, clk, log)
	scheduler := services.NewJobScheduler(services.SchedulerConfig{
		Platforms:                 platforms,
		EnableRateLimitMonitoring: true,
	}, q, tracker, coordinator, clk, log)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	db := testutil.NewTestDB(t)
	t.Cleanup(func() { testutil.CleanupDB(db) })

	health := NewHealthHandler(db.DB, nil, log)
	monitoring := NewMonitoringHandler(coordinator, engine, scheduler, log, val)
	alertHandler := NewAlertHandler(alerts, log, val)
	jobs := NewJobHandler(q, log)

	r := chi.NewRouter()
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/monitoring", func(r chi.Router) {
			r.Get("/dashboard", monitoring.Dashboard)
			r.Get("/schedule", monitoring.Schedule)
			r.Get("/compliance/report", monitoring.ComplianceReport)
			r.Post("/jobs", monitoring.Trigger)
			r.Get("/platforms", monitoring.Platforms)
			r.Route("/platforms/{platform}", func(r chi.Router) {
				r.Get("/", monitoring.Platform)
				r.Post("/responses", monitoring.Ingest)
				r.Post("/spam-flag", monitoring.SpamFlag)
				r.Post("/resume", monitoring.Resume)
			})
		})
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", alertHandler.List)
			r.Get("/summary", alertHandler.Summary)
			r.Get("/{id}", alertHandler.Get)
			r.Put("/{id}/status", alertHandler.UpdateStatus)
		})
		r.Get("/jobs", jobs.ListJobs)
	})

	return &apiFixture{router: r, coordinator: coordinator, alerts: alertRepo, queue: q}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func TestHealthHandler(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		code, env := f.do(t, http.MethodGet, path, "")
		if code != http.StatusOK || !env.Success {
			t.Errorf("GET %s = %d, success=%v", path, code, env.Success)
		}
	}
}

func TestMonitoringHandler_Ingest(t *testing.T) {
	f := newAPIFixture(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/monitoring/platforms/twitter/responses",
		`{"headers":{"x-rate-limit-limit":"100","x-rate-limit-remaining":"5"}}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, body error = %+v", code, env.Error)
	}

	var result struct {
		Action string `json:"action"`
		State  string `json:"state"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Action != "pause" || result.State != "paused" {
		t.Errorf("result = %+v, want pause/paused", result)
	}
	if n := f.alerts.Count(alert.Filter{Platform: platform.Twitter, Severity: alert.SeverityCritical}); n != 1 {
		t.Errorf("critical alerts = %d, want 1", n)
	}
}

func TestMonitoringHandler_UnknownPlatform(t *testing.T) {
	f := newAPIFixture(t)

	code, env := f.do(t, http.MethodGet, "/api/v1/monitoring/platforms/myspace/", "")
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
	if env.Error.Code != "UNKNOWN_PLATFORM" {
		t.Errorf("error code = %q", env.Error.Code)
	}
}

func TestMonitoringHandler_SpamFlagAndResume(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		f.queue.Enqueue(ctx, string(job.JobTypePlatformMonitor), job.ScheduledJob{
			Platform: platform.WhatsApp,
			JobType:  job.JobTypePlatformMonitor,
		}, job.EnqueueOptions{})
	}

	code, env := f.do(t, http.MethodPost, "/api/v1/monitoring/platforms/whatsapp/spam-flag", `{"errorMessage":"missing code"}`)
	if code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("missing errorCode: status = %d, code = %q", code, env.Error.Code)
	}

	code, env = f.do(t, http.MethodPost, "/api/v1/monitoring/platforms/whatsapp/spam-flag",
		`{"errorCode":"131048","errorMessage":"Spam rate limit hit"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, error = %+v", code, env.Error)
	}
	var flagged struct {
		JobsRemoved int    `json:"jobsRemoved"`
		State       string `json:"state"`
	}
	json.Unmarshal(env.Data, &flagged)
	if flagged.JobsRemoved != 2 || flagged.State != "stopped" {
		t.Errorf("spam flag result = %+v", flagged)
	}

	code, env = f.do(t, http.MethodPost, "/api/v1/monitoring/platforms/whatsapp/resume", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var resumed struct {
		PreviousState string `json:"previousState"`
		State         string `json:"state"`
	}
	json.Unmarshal(env.Data, &resumed)
	if resumed.PreviousState != "stopped" || resumed.State != "normal" {
		t.Errorf("resume result = %+v", resumed)
	}
}

func TestMonitoringHandler_Trigger(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"platform monitor", `{"jobType":"platform_monitor","platform":"facebook"}`, http.StatusAccepted},
		{"compliance check", `{"jobType":"compliance_check"}`, http.StatusAccepted},
		{"unknown platform", `{"jobType":"platform_monitor","platform":"myspace"}`, http.StatusBadRequest},
		{"unknown job type", `{"jobType":"reticulate_splines"}`, http.StatusBadRequest},
		{"malformed body", `{"jobType":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			code, env := f.do(t, http.MethodPost, "/api/v1/monitoring/jobs", tt.body)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d (error %+v)", code, tt.wantCode, env.Error)
			}
			if code != http.StatusAccepted {
				return
			}
			var j struct {
				ID     string `json:"id"`
				Manual bool   `json:"manual"`
			}
			json.Unmarshal(env.Data, &j)
			if !strings.HasPrefix(j.ID, job.ManualPrefix) || !j.Manual {
				t.Errorf("job = %+v, want manual", j)
			}
		})
	}
}

func TestMonitoringHandler_ReadOnlyViews(t *testing.T) {
	f := newAPIFixture(t)

	paths := []string{
		"/api/v1/monitoring/dashboard",
		"/api/v1/monitoring/schedule",
		"/api/v1/monitoring/compliance/report",
		"/api/v1/monitoring/platforms",
		"/api/v1/monitoring/platforms/facebook/",
	}
	for _, path := range paths {
		code, env := f.do(t, http.MethodGet, path, "")
		if code != http.StatusOK || !env.Success {
			t.Errorf("GET %s = %d, error = %+v", path, code, env.Error)
		}
	}
	if len(f.alerts.Alerts) != 0 {
		t.Errorf("read-only views recorded %d alerts", len(f.alerts.Alerts))
	}
}

func TestAlertHandler(t *testing.T) {
	f := newAPIFixture(t)
	f.coordinator.HandleSpamFlag(context.Background(), platform.Facebook, "368", "blocked")

	// alerts are stamped with the fixture clock, so widen the window explicitly
	const since = "?since=2024-03-01T00:00:00Z"

	code, env := f.do(t, http.MethodGet, "/api/v1/alerts/"+since, "")
	if code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	var page struct {
		Data       []map[string]interface{} `json:"data"`
		TotalItems int64                    `json:"total_items"`
	}
	json.Unmarshal(env.Data, &page)
	if page.TotalItems != 1 || len(page.Data) != 1 {
		t.Fatalf("page = %+v", page)
	}
	if page.Data[0]["alertType"] != alert.TypeSpamFlag {
		t.Errorf("alertType = %v", page.Data[0]["alertType"])
	}

	code, env = f.do(t, http.MethodGet, "/api/v1/alerts/summary"+since, "")
	var summary struct {
		Total    int `json:"total"`
		Critical int `json:"critical"`
	}
	json.Unmarshal(env.Data, &summary)
	if code != http.StatusOK || summary.Total != 1 || summary.Critical != 1 {
		t.Errorf("summary = %d %+v", code, summary)
	}

	code, _ = f.do(t, http.MethodGet, "/api/v1/alerts/1", "")
	if code != http.StatusOK {
		t.Errorf("get status = %d", code)
	}
	code, _ = f.do(t, http.MethodGet, "/api/v1/alerts/99", "")
	if code != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", code)
	}

	code, _ = f.do(t, http.MethodPut, "/api/v1/alerts/1/status", `{"status":"acknowledged"}`)
	if code != http.StatusOK {
		t.Errorf("acknowledge status = %d", code)
	}
	code, env = f.do(t, http.MethodPut, "/api/v1/alerts/1/status", `{"status":"acknowledged"}`)
	if code != http.StatusBadRequest || env.Error.Code != "BAD_REQUEST" {
		t.Errorf("repeat acknowledge = %d %q, want 400 BAD_REQUEST", code, env.Error.Code)
	}
	code, _ = f.do(t, http.MethodPut, "/api/v1/alerts/1/status", `{"status":"new"}`)
	if code != http.StatusBadRequest {
		t.Errorf("status new should fail validation, got %d", code)
	}

	code, _ = f.do(t, http.MethodGet, "/api/v1/alerts/?since=yesterday", "")
	if code != http.StatusBadRequest {
		t.Errorf("bad since status = %d, want 400", code)
	}
}

func TestJobHandler_ListJobs(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	f.queue.Enqueue(ctx, string(job.JobTypePlatformMonitor), job.ScheduledJob{Platform: platform.Twitter, JobType: job.JobTypePlatformMonitor}, job.EnqueueOptions{})
	f.queue.Enqueue(ctx, string(job.JobTypePlatformMonitor), job.ScheduledJob{Platform: platform.Facebook, JobType: job.JobTypePlatformMonitor}, job.EnqueueOptions{})

	code, env := f.do(t, http.MethodGet, "/api/v1/jobs?state=waiting&platform=twitter", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	var jobs []map[string]interface{}
	json.Unmarshal(env.Data, &jobs)
	if len(jobs) != 1 || jobs[0]["platform"] != "twitter" {
		t.Errorf("jobs = %v", jobs)
	}
}
