package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ManuelReschke/FormFox/app/controllers"
	"github.com/ManuelReschke/FormFox/app/repository"
	"github.com/ManuelReschke/FormFox/internal/pkg/archive"
	"github.com/ManuelReschke/FormFox/internal/pkg/assignment"
	"github.com/ManuelReschke/FormFox/internal/pkg/audit"
	"github.com/ManuelReschke/FormFox/internal/pkg/cache"
	"github.com/ManuelReschke/FormFox/internal/pkg/config"
	"github.com/ManuelReschke/FormFox/internal/pkg/database"
	"github.com/ManuelReschke/FormFox/internal/pkg/env"
	"github.com/ManuelReschke/FormFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/FormFox/internal/pkg/metrics"
	"github.com/ManuelReschke/FormFox/internal/pkg/ratelimit"
	"github.com/ManuelReschke/FormFox/internal/pkg/router"
	"github.com/ManuelReschke/FormFox/internal/pkg/webhook"
)

// webhook bodies are small JSON documents
const bodyLimit = 4 * 1024 * 1024

func main() {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	app, manager, err := NewApplication(cfg)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Server] Shutting down...")
	if err := app.ShutdownWithTimeout(15 * time.Second); err != nil {
		log.Errorf("[Server] Shutdown: %v", err)
	}
	manager.Stop()
	if err := cache.Close(); err != nil {
		log.Warnf("[Cache] Close: %v", err)
	}
	if err := database.Close(); err != nil {
		log.Warnf("[Database] Close: %v", err)
	}
}

// NewApplication connects the stores and wires the HTTP app. The returned
// job manager is already started.
func NewApplication(cfg *config.Config) (*fiber.App, *jobqueue.Manager, error) {
	db, err := database.SetupDatabase(cfg.DB, cfg.IsDev())
	if err != nil {
		return nil, nil, err
	}
	rdb := cache.SetupCache(cfg.Cache)

	repository.InitializeFactory(db)
	repos := repository.GetGlobalRepositories()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sink := metrics.NewPrometheusSink(registry)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	archiver, err := archive.New(ctx, cfg.Archive, cfg.AppEnv)
	if err != nil {
		// the archive is best-effort; ingestion runs without it
		log.Errorf("[Archive] Disabled: %v", err)
		archiver = archive.Noop{}
	}

	auditSink := audit.NewRepositorySink(repos.AuditLog)
	engine := assignment.NewEngine(nil)
	materializer := assignment.NewMaterializer(repos.Template, repos.Assignment, sink)
	reprocessor := assignment.NewReprocessor(repos.Submission, engine, materializer, auditSink, sink)

	policy := webhook.DedupRetryFailed
	if !cfg.Webhook.RetryFailedEvents {
		policy = webhook.DedupStrict
	}
	if cfg.Webhook.Secret == "" {
		log.Warn("[Webhook] FILLOUT_WEBHOOK_SECRET is empty, deliveries will be rejected")
	}
	coordinator := webhook.NewCoordinator(webhook.Dependencies{
		Verifier:     webhook.NewVerifier(cfg.Webhook.Secret),
		Events:       repos.WebhookEvent,
		Submissions:  repos.Submission,
		Engine:       engine,
		Materializer: materializer,
		Audit:        auditSink,
		Archiver:     archiver,
		Metrics:      sink,
		Policy:       policy,
	})

	queue := jobqueue.NewQueue(rdb, cfg.Reprocess.Workers)
	queue.RegisterHandler(jobqueue.JobTypeReprocessSubmissions, jobqueue.NewReprocessHandler(reprocessor, cfg.Reprocess.ChunkSize))
	manager := jobqueue.NewManager(queue)
	jobqueue.SetManager(manager)
	manager.Start()

	app := fiber.New(fiber.Config{
		AppName:   "FormFox",
		BodyLimit: bodyLimit,
	})
	app.Use(recover.New(), logger.New())

	if specPath, ok := findOpenAPISpec(); ok {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}))
	} else {
		log.Warn("[Server] openapi.yml not found, /docs/api/v1 is disabled")
	}

	router.InstallRouter(app, router.Options{
		Controllers: router.Controllers{
			Webhook:      controllers.NewWebhookController(coordinator),
			WebhookEvent: controllers.NewWebhookEventController(repos.WebhookEvent),
			Submission:   controllers.NewSubmissionController(reprocessor, queue, repos.Submission, repos.Assignment, cfg.Reprocess.MaxBatch),
			Job:          controllers.NewJobController(queue),
		},
		HealthChecks: map[string]router.HealthCheck{
			"database": func(ctx context.Context) error {
				sqlDB, err := database.GetDB().DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"cache": func(ctx context.Context) error {
				return cache.GetClient().Ping(ctx).Err()
			},
		},
		AdminAPIKey:     cfg.AdminAPIKey,
		WebhookLimiter:  ratelimit.New(cfg.Webhook.RateLimitPerMinute, ratelimit.NewStorage(cfg.Cache)),
		Gatherer:        registry,
		MonitorUser:     cfg.MonitorUser,
		MonitorPassword: cfg.MonitorPassword,
	})

	return app, manager, nil
}

func findOpenAPISpec() (string, bool) {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/formfox to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		candidate := path + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}
