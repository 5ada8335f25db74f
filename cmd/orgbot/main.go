package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/bot"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/disk"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/genai"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/knowledge"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/messaging"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/reports"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/scheduler"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/search"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/session"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/store"
	"github.com/pavlik242002-collab/Pavlik2.3/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for orgbot state data
	DefaultStateDir = "/var/lib/orgbot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "orgbot.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	if err := run(flags); err != nil {
		slog.Error("orgbot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("orgbot exited successfully")
}

// Config holds environment configuration
type Config struct {
	TelegramToken string
	YandexToken   string
	XAIToken      string
	DatabaseURL   string
	StateDir      string
	DefaultAdmin  int64
	Models        []string
	BaseURL       string
	ReminderCron  string
}

// Flags holds command line flag values
type Flags struct {
	telegramToken *string
	yandexToken   *string
	xaiToken      *string
	dbDSN         *string
	stateDir      *string
	defaultAdmin  *int64
	baseURL       *string
	models        *string
	reminderCron  *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		YandexToken:   os.Getenv("YANDEX_TOKEN"),
		XAIToken:      os.Getenv("XAI_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("ORGBOT_STATE_DIR"),
		DefaultAdmin:  util.ParseInt64Env("DEFAULT_ADMIN_ID", 0),
		Models:        util.ParseListEnv("XAI_MODELS", nil),
		BaseURL:       os.Getenv("XAI_BASE_URL"),
		ReminderCron:  os.Getenv("REMINDER_SCHEDULE"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No ORGBOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"TELEGRAM_TOKEN_SET", config.TelegramToken != "",
		"YANDEX_TOKEN_SET", config.YandexToken != "",
		"XAI_TOKEN_SET", config.XAIToken != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"ORGBOT_STATE_DIR", config.StateDir,
		"DEFAULT_ADMIN_ID_SET", config.DefaultAdmin != 0)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		telegramToken: flag.String("telegram-token", config.TelegramToken, "Telegram bot token (overrides $TELEGRAM_TOKEN)"),
		yandexToken:   flag.String("yandex-token", config.YandexToken, "Yandex Disk OAuth token (overrides $YANDEX_TOKEN)"),
		xaiToken:      flag.String("xai-token", config.XAIToken, "xAI API key (overrides $XAI_TOKEN)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for orgbot data (overrides $ORGBOT_STATE_DIR)"),
		defaultAdmin:  flag.Int64("default-admin", config.DefaultAdmin, "user ID seeded into the admin set (overrides $DEFAULT_ADMIN_ID)"),
		baseURL:       flag.String("llm-base-url", config.BaseURL, "LLM API base URL (overrides $XAI_BASE_URL)"),
		models:        flag.String("llm-models", strings.Join(config.Models, ","), "comma-separated candidate model list (overrides $XAI_MODELS)"),
		reminderCron:  flag.String("reminder-cron", config.ReminderCron, "cron expression for the report reminder sweep; empty means every 6 hours (overrides $REMINDER_SCHEDULE)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"telegramTokenSet", *flags.telegramToken != "",
		"yandexTokenSet", *flags.yandexToken != "",
		"xaiTokenSet", *flags.xaiToken != "",
		"dbDSN_set", *flags.dbDSN != "",
		"stateDir", *flags.stateDir,
		"defaultAdmin", *flags.defaultAdmin)

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// openStore selects the backend by DSN type and runs migrations.
func openStore(flags Flags) (store.Store, error) {
	opts := []store.Option{store.WithDSN(*flags.dbDSN)}
	if *flags.defaultAdmin != 0 {
		opts = append(opts, store.WithDefaultAdmin(*flags.defaultAdmin))
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(opts...)
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(opts...)
}

// run wires every module together and blocks until shutdown.
func run(flags Flags) error {
	st, err := openStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	ai, err := genai.NewClient(*flags.xaiToken, *flags.baseURL, splitModels(*flags.models))
	if err != nil {
		return err
	}
	dsk, err := disk.NewClient(*flags.yandexToken, "")
	if err != nil {
		return err
	}
	srch := search.NewClient(st, "")

	facts := knowledge.NewCache(st)
	if err := facts.Reload(); err != nil {
		return err
	}

	msg, err := messaging.NewTelegramService(*flags.telegramToken)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rep := reports.NewService(st, msg)
	b := bot.New(st, session.NewStore(), msg, ai, dsk, srch, facts, rep)

	if err := msg.Start(ctx); err != nil {
		return err
	}

	sched := scheduler.NewScheduler()
	rep.Start(ctx, sched, *flags.reminderCron)

	go b.Run(ctx)
	slog.Info("orgbot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("Shutdown signal received", "signal", sig.String())

	sched.Stop()
	if err := msg.Stop(); err != nil {
		slog.Error("Transport stop failed", "error", err)
	}
	cancel()
	return nil
}

func splitModels(list string) []string {
	var out []string
	for _, m := range strings.Split(list, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
