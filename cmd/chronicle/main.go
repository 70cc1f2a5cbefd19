package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chronicle/internal/config"
	"chronicle/internal/db"
	"chronicle/internal/logger"
	"chronicle/internal/metrics"
	gormrepository "chronicle/internal/repository/gorm"
	"chronicle/internal/service"
)

var (
	version = "dev"
	cfgPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "chronicle",
	Short: "Homelab change timeline",
	Long: `chronicle records what changed in a homelab: pushes, deploys, playbook runs,
alerts and container updates arrive as webhooks and become timeline events.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	def := os.Getenv("CHRONICLE_CONFIG")
	if def == "" {
		def = "config/config.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", def, "config file (yaml)")
	rootCmd.AddCommand(serveCmd, importCmd, syncCmd, tokenCmd, backupCmd)
}

// app holds what every subcommand needs: config, logger and an open,
// migrated database.
type app struct {
	cfg          config.Config
	logger       *zap.Logger
	db           *db.DB
	store        *gormrepository.Store
	metrics      *metrics.Collectors
	materializer *service.Materializer
}

func loadConfig() (config.Config, error) {
	envOnly := false
	if raw := os.Getenv("CHRONICLE_ENV_ONLY"); raw != "" {
		envOnly = strings.EqualFold(raw, "true") || raw == "1"
	}
	return config.Load(cfgPath, envOnly)
}

func bootstrap() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(cfg.DB)
	if err != nil {
		log.Error("db open failed", zap.Error(err))
		return nil, err
	}
	if err := db.SetTimezone(conn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(conn); err != nil {
		_ = db.Close(conn)
		log.Error("auto-migrate failed", zap.Error(err))
		return nil, err
	}
	store := gormrepository.New(conn.Gorm)
	collectors := metrics.New()
	return &app{
		cfg:     cfg,
		logger:  log,
		db:      conn,
		store:   store,
		metrics: collectors,
		materializer: &service.Materializer{
			Store:     store,
			Logger:    log,
			Listeners: []service.EventListener{collectors},
		},
	}, nil
}

func (a *app) backups() *service.BackupService {
	return &service.BackupService{
		Store:    a.store,
		Dir:      a.cfg.Backup.Dir,
		LogLimit: a.cfg.Backup.WebhookLogLimit,
		Logger:   a.logger,
	}
}

func (a *app) close() {
	_ = db.Close(a.db)
	_ = a.logger.Sync()
}
