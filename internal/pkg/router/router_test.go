package router

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/FormFox/app/controllers"
	"github.com/ManuelReschke/FormFox/internal/pkg/assignment"
	"github.com/ManuelReschke/FormFox/internal/pkg/metrics"
	"github.com/ManuelReschke/FormFox/internal/pkg/webhook"
	"github.com/ManuelReschke/FormFox/internal/testutil"
)

func newTestApp(t *testing.T, monitorPassword string) *fiber.App {
	t.Helper()
	store := testutil.NewMemStore()
	repos := store.Repositories()
	registry := prometheus.NewRegistry()
	sink := metrics.NewPrometheusSink(registry)

	engine := assignment.NewEngine(nil)
	materializer := assignment.NewMaterializer(repos.Template, repos.Assignment, sink)
	reprocessor := assignment.NewReprocessor(repos.Submission, engine, materializer, nil, sink)
	coordinator := webhook.NewCoordinator(webhook.Dependencies{
		Verifier:     webhook.NewVerifier("secret"),
		Events:       repos.WebhookEvent,
		Submissions:  repos.Submission,
		Engine:       engine,
		Materializer: materializer,
		Metrics:      sink,
	})

	app := fiber.New()
	InstallRouter(app, Options{
		Controllers: Controllers{
			Webhook:      controllers.NewWebhookController(coordinator),
			WebhookEvent: controllers.NewWebhookEventController(repos.WebhookEvent),
			Submission:   controllers.NewSubmissionController(reprocessor, nil, repos.Submission, repos.Assignment, 10),
			Job:          controllers.NewJobController(nil),
		},
		AdminAPIKey:     "admin-key",
		Gatherer:        registry,
		MonitorUser:     "admin",
		MonitorPassword: monitorPassword,
	})
	return app
}

func status(t *testing.T, app *fiber.App, method, target string, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestInstallRouter_Routes(t *testing.T) {
	app := newTestApp(t, "")
	withKey := map[string]string{"X-API-Key": "admin-key"}

	tests := []struct {
		name    string
		method  string
		target  string
		headers map[string]string
		want    int
	}{
		{"health", "GET", "/health", nil, fiber.StatusOK},
		{"webhook without headers", "POST", "/api/v1/webhooks/fillout", nil, fiber.StatusBadRequest},
		{"admin without key", "GET", "/api/v1/admin/webhooks/events", nil, fiber.StatusUnauthorized},
		{"admin events", "GET", "/api/v1/admin/webhooks/events", withKey, fiber.StatusOK},
		{"admin assignments unknown", "GET", "/api/v1/admin/submissions/5/assignments", withKey, fiber.StatusNotFound},
		{"admin job without queue", "GET", "/api/v1/admin/jobs/abc", withKey, fiber.StatusServiceUnavailable},
		{"monitor disabled", "GET", "/monitor", nil, fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := status(t, app, tt.method, tt.target, tt.headers)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInstallRouter_MetricsExposition(t *testing.T) {
	app := newTestApp(t, "")

	// one rejected delivery so the counters have samples
	status(t, app, "POST", "/api/v1/webhooks/fillout", nil)

	code, body := status(t, app, "GET", "/metrics", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.True(t, strings.Contains(body, "formfox_webhook_outcomes_total"), body)
}

func TestInstallRouter_MonitorRequiresBasicAuth(t *testing.T) {
	app := newTestApp(t, "pw")

	code, _ := status(t, app, "GET", "/monitor", nil)
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestHttpRouter_Health(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]HealthCheck
		want     int
		contains []string
	}{
		{name: "no checks", want: fiber.StatusOK, contains: []string{`"status":"ok"`}},
		{
			name: "all healthy",
			checks: map[string]HealthCheck{
				"database": func(context.Context) error { return nil },
				"cache":    func(context.Context) error { return nil },
			},
			want:     fiber.StatusOK,
			contains: []string{`"status":"ok"`, `"database":"ok"`, `"cache":"ok"`},
		},
		{
			name: "cache down",
			checks: map[string]HealthCheck{
				"database": func(context.Context) error { return nil },
				"cache":    func(context.Context) error { return errors.New("connection refused") },
			},
			want:     fiber.StatusServiceUnavailable,
			contains: []string{`"status":"degraded"`, `"database":"ok"`, `"cache":"connection refused"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			NewHttpRouter(Options{HealthChecks: tt.checks, Gatherer: prometheus.NewRegistry()}).InstallRouter(app)

			code, body := status(t, app, "GET", "/health", nil)
			assert.Equal(t, tt.want, code)
			for _, want := range tt.contains {
				assert.Contains(t, body, want)
			}
		})
	}
}
