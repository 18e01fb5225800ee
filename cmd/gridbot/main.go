package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gridbot/internal/audit"
	"gridbot/internal/backend"
	"gridbot/internal/bus"
	"gridbot/internal/channel"
	"gridbot/internal/command"
	"gridbot/internal/config"
	"gridbot/internal/correlate"
	"gridbot/internal/health"
	"gridbot/internal/jobs"
	"gridbot/internal/permission"
	"gridbot/internal/router"
	"gridbot/internal/submit"

	"github.com/spf13/cobra"
)

var (
	version    = "1.0.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "gridbot",
		Short: "gridbot: Discord front end for the football simulation backend",
		Long:  "gridbot relays play submissions, coin tosses, and game commands between Discord and the game engine's REST API.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.gridbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(wizardCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(restoreCmd())
	root.AddCommand(installDaemonCmd())
	root.AddCommand(uninstallDaemonCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config directory with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gridbot version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("gridbot " + version)
		},
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Connect to Discord and start relaying game traffic",
		Long:  "Starts the Discord gateway, event router, health endpoint, and background jobs. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = buildLogger(cfg.General)

	if cfg.Discord.Token == "" {
		return fmt.Errorf("discord.token is not configured (run 'gridbot wizard')")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := bus.New(cfg.Router.BusBuffer, logger)
	defer eventBus.Close()

	client := backend.New(backend.Config{
		BaseURL:        cfg.Backend.BaseURL,
		ConnectTimeout: time.Duration(cfg.Backend.ConnectTimeoutSeconds) * time.Second,
		RequestTimeout: time.Duration(cfg.Backend.RequestTimeoutSeconds) * time.Second,
		Logger:         logger,
	})

	var auditStore *audit.Store
	if cfg.Audit.Enabled {
		auditStore, err = audit.NewStore(cfg.Audit.DBPath, logger)
		if err != nil {
			return fmt.Errorf("audit store: %w", err)
		}
		defer auditStore.Close()
	}

	gate, err := permission.LoadGate(cfg.Discord.PermissionsFile, logger)
	if err != nil {
		return fmt.Errorf("permission table: %w", err)
	}

	registry := command.NewRegistry(logger)
	command.RegisterBuiltins(registry, client)

	correlator := correlate.New(client, logger)

	pipeline := submit.New(submit.Config{
		Writer: client,
		Store:  auditStore,
		Logger: logger,
		Policy: submit.Policy{
			MaxAttempts:  cfg.Backend.Retry.MaxAttempts,
			InitialDelay: time.Duration(cfg.Backend.Retry.InitialDelayMs) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.Backend.Retry.MaxDelayMs) * time.Millisecond,
		},
	})

	discord := channel.NewDiscord(channel.DiscordConfig{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
		Roles: channel.RoleConfig{
			AdminRoleIDs:        cfg.Discord.AdminRoleIDs,
			CommissionerRoleIDs: cfg.Discord.CommissionerRoleIDs,
		},
		Commands: registry,
		Logger:   logger,
	})

	eventRouter := router.New(router.Config{
		Bus:         eventBus,
		Gate:        gate,
		Commands:    registry,
		Resolver:    correlator,
		Pipeline:    pipeline,
		Roles:       discord.ResolveRole,
		Logger:      logger,
		Concurrency: cfg.Router.MaxConcurrentEvents,
	})
	go eventRouter.Run(ctx)

	tracker := health.NewTracker()

	heartbeat := jobs.NewHeartbeat(jobs.HeartbeatConfig{
		Interval: time.Duration(cfg.Jobs.HeartbeatIntervalSeconds) * time.Second,
		Backend:  client,
		Tracker:  tracker,
		Logger:   logger,
	})
	go heartbeat.Run(ctx)

	watchdog := jobs.NewWatchdog(jobs.WatchdogConfig{
		Interval:  time.Duration(cfg.Jobs.WatchdogIntervalSeconds) * time.Second,
		Tolerance: cfg.Jobs.WatchdogTolerance,
		Gateway:   discord,
		Tracker:   tracker,
		Logger:    logger,
	})
	go watchdog.Run(ctx)

	supervisor := health.NewSupervisor(health.Config{
		Tracker:       tracker,
		Transport:     discord,
		Logger:        logger,
		Interval:      time.Duration(cfg.Health.IntervalSeconds) * time.Second,
		MemThreshold:  cfg.Health.MemFreeThreshold,
		DiskThreshold: cfg.Health.DiskFreeThreshold,
	})
	go supervisor.Run(ctx)

	healthServer := health.NewServer(cfg.Health.Addr, supervisor, logger)
	go func() {
		if err := healthServer.Run(ctx); err != nil {
			logger.Error("health server error", "err", err)
		}
	}()

	if auditStore != nil {
		go pruneAuditLoop(ctx, auditStore, cfg.Audit.RetentionDays)
	}

	logger.Info("gateway starting", "backend", cfg.Backend.BaseURL, "health", cfg.Health.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- discord.Start(ctx, eventBus)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("discord gateway: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down gateway...")
		select {
		case <-errCh:
		case <-time.After(10 * time.Second):
			logger.Warn("shutdown timed out, forcing exit")
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// pruneAuditLoop trims old audit rows once a day.
func pruneAuditLoop(ctx context.Context, store *audit.Store, retentionDays int) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			maxAge := time.Duration(retentionDays) * 24 * time.Hour
			if n, err := store.Prune(ctx, maxAge); err != nil {
				logger.Warn("audit prune failed", "err", err)
			} else if n > 0 {
				logger.Info("audit pruned", "rows", n)
			}
		}
	}
}

func buildLogger(cfg config.GeneralConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := io.Writer(os.Stderr)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.LogFile, "err", err)
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query the running bot's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			}

			url := "http://" + cfg.Health.Addr + "/health"
			httpClient := &http.Client{Timeout: 5 * time.Second}
			resp, err := httpClient.Get(url)
			if err != nil {
				return fmt.Errorf("bot not reachable at %s: %w", url, err)
			}
			defer resp.Body.Close()

			var snap health.Snapshot
			if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
				return fmt.Errorf("decode health response: %w", err)
			}

			fmt.Printf("Status:    %s\n", snap.Status)
			fmt.Printf("Memory:    %s (%.1f%% free)\n", snap.Memory.Status, snap.Memory.FreeRatio*100)
			fmt.Printf("Disk:      %s (%.1f%% free)\n", snap.Disk.Status, snap.Disk.FreeRatio*100)
			fmt.Printf("Transport: %s\n", snap.Transport.Status)
			for name, job := range snap.Jobs {
				fmt.Printf("Job %-10s %s (last beat %s)\n", name+":", job.Status, job.LastBeat.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. backend.baseUrl)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. backend.retry.maxAttempts 5)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
