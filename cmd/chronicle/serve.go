package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "chronicle/docs"
	"chronicle/internal/auth"
	"chronicle/internal/handler"
	"chronicle/internal/models"
	"chronicle/internal/notify"
	"chronicle/internal/scheduler"
	"chronicle/internal/service"
	"chronicle/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and webhook receivers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := cfg.App.Location()
	hub := stream.NewHub(logger, a.metrics)
	listeners := []service.EventListener{a.metrics, hub}
	if strings.TrimSpace(cfg.Notify.WebhookURL) != "" {
		listeners = append(listeners, &notify.WebhookSender{URL: cfg.Notify.WebhookURL, Timeout: cfg.Notify.Timeout, Logger: logger})
	}
	a.materializer.Listeners = listeners

	events := &service.EventService{Store: a.store, Listeners: listeners, Logger: logger, Location: loc}
	webhooks := service.NewWebhookService(a.store, a.materializer, cfg.Webhooks.GitHubSecret, cfg.Webhooks.GitLabSecret, logger)
	webhooks.Recorder = a.metrics
	var githubSync *service.GitHubSync
	if strings.TrimSpace(cfg.GitHubSync.Repo) != "" {
		githubSync = service.NewGitHubSync(ctx, cfg.GitHubSync, a.store, a.materializer, logger)
		githubSync.Recorder = a.metrics
	}
	templates := &service.TemplateService{Store: a.store, Logger: logger}
	if _, err := templates.SeedBuiltIns(ctx); err != nil {
		return err
	}
	backups := a.backups()
	jwt := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: cfg.Auth.TokenTTL, Issuer: cfg.Auth.Issuer}
	if !jwt.Enabled() {
		logger.Warn("auth.jwt_secret is empty; write routes are unauthenticated")
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware(cfg.Server.CORSOrigin))

	(&handler.HealthHandler{DB: a.db.Gorm, Version: version}).Register(engine)
	(&handler.WebhookHandler{
		Service:      webhooks,
		Limiter:      handler.NewIPRateLimiter(cfg.Webhooks.RateLimit, cfg.Webhooks.Burst, logger),
		MaxBodyBytes: cfg.Webhooks.MaxBodyBytes,
		Logger:       logger,
	}).Register(engine)

	api := engine.Group("/api", auth.RequireWriteToken(jwt))
	(&handler.EventsHandler{Events: events, Stream: hub}).Register(api)
	(&handler.InsightsHandler{
		Search: &service.SearchService{Store: a.store},
		Stats:  &service.StatsService{Store: a.store, Location: loc},
		Events: events,
	}).Register(api)
	(&handler.DocumentsHandler{
		Export: &service.ExportService{Store: a.store, Location: loc},
		Report: &service.ReportService{Store: a.store, Location: loc},
	}).Register(api)
	(&handler.ImportHandler{
		Import: &service.ImportService{Store: a.store, Materializer: a.materializer, Logger: logger},
		Sync:   githubSync,
	}).Register(api)
	(&handler.WebhookLogHandler{Service: webhooks}).Register(api)
	(&handler.TemplatesHandler{Templates: templates}).Register(api)
	(&handler.BackupHandler{Backups: backups}).Register(api)

	engine.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	sched := scheduler.New(ctx, logger)
	if cfg.GitHubSync.Enabled && githubSync != nil {
		_, err := sched.Add("github-sync", cfg.GitHubSync.Schedule, func(ctx context.Context) error {
			res, err := githubSync.Run(ctx)
			if err == nil {
				logger.Info("github sync", zap.String("result", res.Message))
			}
			return err
		})
		if err != nil {
			return err
		}
	}
	if cfg.Backup.Enabled {
		_, err := sched.Add("backup", cfg.Backup.Schedule, func(ctx context.Context) error {
			_, err := backups.Create(ctx, models.BackupScheduled)
			return err
		})
		if err != nil {
			return err
		}
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return err
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func corsMiddleware(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
