package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HendryAvila/projektbot/internal/commands"
	"github.com/HendryAvila/projektbot/internal/gateway"
	projektserver "github.com/HendryAvila/projektbot/internal/server"
	"github.com/HendryAvila/projektbot/internal/telemetry"
)

// serveCmd connects to the chat gateway.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the chat gateway and answer commands",
	Long: `Connect to the chat gateway, enroll guild members and answer prefixed
commands until interrupted. Prometheus metrics and a health check are served
on metrics.addr unless metrics.enabled is false.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.RequireToken(); err != nil {
		return err
	}
	if cfg.Discord.GuildID == "" {
		return projektserver.ErrNoGuild
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := telemetry.NewMetrics(reg)

	session, err := gateway.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}
	tagger := gateway.NewRoleTagger(session, cfg.Discord.GuildID, cfg.Roles.RatePerSecond, cfg.Roles.Burst)

	core, cleanup, err := projektserver.NewCore(cfg, tagger, metrics, log)
	if err != nil {
		return fmt.Errorf("creating services: %w", err)
	}
	defer cleanup()

	sampler := telemetry.NewSampler(session.HeartbeatLatency, telemetry.SamplerConfig{
		Interval:   cfg.Latency.Interval,
		Window:     cfg.Latency.Window,
		ForceAfter: cfg.Latency.ForceAfter,
	}, metrics.SetLatency)
	go sampler.Run(ctx)

	if cfg.Metrics.Enabled {
		handler := telemetry.NewRouter(reg, core.Store, log.Named("http"))
		go func() {
			if err := telemetry.Serve(ctx, cfg.Metrics.Addr, handler, log); err != nil {
				log.Error(ctx, "metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	router := commands.NewRouter(commands.Deps{
		Directory:  core.Directory,
		Membership: core.Membership,
		Latency:    sampler,
		Tracker:    metrics,
		Logger:     log.Named("commands"),
		Prefix:     cfg.Discord.Prefix,
		Timeout:    cfg.Commands.Timeout,
	})

	bot := gateway.New(session, gateway.Config{
		GuildID:    cfg.Discord.GuildID,
		AdminRoles: cfg.Discord.AdminRoles,
		JoinLink:   cfg.Discord.JoinLink,
	}, router, core.Directory, core.Store, metrics, log)

	log.Info(ctx, "starting", zap.String("version", projektserver.Version),
		zap.String("delete_policy", string(core.Directory.Policy())))
	return bot.Run(ctx)
}
