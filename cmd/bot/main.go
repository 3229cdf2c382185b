
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Armin-kho/fsub-video-bot/internal/bot"
	"github.com/Armin-kho/fsub-video-bot/internal/config"
	"github.com/Armin-kho/fsub-video-bot/internal/metrics"
	"github.com/Armin-kho/fsub-video-bot/internal/scheduler"
	"github.com/Armin-kho/fsub-video-bot/internal/store"
	"github.com/Armin-kho/fsub-video-bot/internal/utils"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "fsub-bot",
		Short:         "Telegram bot that gates videos behind channel subscriptions",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultConfigPath(), "path to config.yaml or config.json")
	root.AddCommand(runCmd(&cfgPath), exportCmd(&cfgPath), backupCmd(&cfgPath))
	return root
}

func runCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), *cfgPath)
		},
	}
}

func exportCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the stored configuration document as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOffline(*cfgPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, _, err := openStore(ctx, cfg, zap.NewNop().Sugar())
			if err != nil {
				return err
			}
			defer st.Close()

			b, err := st.Export(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}

func backupCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a backup snapshot and print its path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOffline(*cfgPath)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Debug)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			st, ext, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()

			clock, err := utils.NewClock(cfg.Calendar, cfg.Timezone)
			if err != nil {
				return err
			}
			path, err := scheduler.NewBackups(st, cfg.BackupDir(), ext, cfg.BackupKeep, clock, nil, log).Create(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg = zap.NewDevelopmentConfig()
	}
	l, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l.Sugar(), nil
}

// openStore picks the backend named by cfg.Store.Driver and returns the
// file extension its snapshots use.
func openStore(ctx context.Context, cfg config.Config, log *zap.SugaredLogger) (*store.Store, string, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		b, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, "", err
		}
		return store.New(b, log), "db", nil
	case config.DriverRedis:
		b, err := store.NewRedisBackend(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB, cfg.Store.RedisKey)
		if err != nil {
			return nil, "", err
		}
		return store.New(b, log), "json", nil
	default:
		b, err := store.NewFileBackend(cfg.Store.Path)
		if err != nil {
			return nil, "", err
		}
		return store.New(b, log), "json", nil
	}
}

func run(parent context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, ext, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warnw("close store failed", "err", err)
		}
	}()

	clock, err := utils.NewClock(cfg.Calendar, cfg.Timezone)
	if err != nil {
		return err
	}
	m := metrics.New()
	backups := scheduler.NewBackups(st, cfg.BackupDir(), ext, cfg.BackupKeep, clock, m, log)

	app, err := bot.New(cfg, bot.Deps{Store: st, Metrics: m, Backups: backups, Clock: clock, Log: log})
	if err != nil {
		return err
	}
	if err := app.SeedAdmins(ctx, cfg.InitialAdminIDs); err != nil {
		return fmt.Errorf("seed admins: %w", err)
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, m, log)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Warnw("metrics server shutdown failed", "err", err)
			}
		}()
	}

	if cfg.BackupCron != "" {
		sched := scheduler.New(log)
		if err := sched.Add(scheduler.Job{Name: "backup", Schedule: cfg.BackupCron, Run: backups.Run}); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	log.Infow("starting", "driver", cfg.Store.Driver, "metrics", cfg.MetricsAddr, "backup_cron", cfg.BackupCron)
	return app.Run(ctx)
}
