package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/honeywatch/internal/eventstore"
	"github.com/tinytelemetry/honeywatch/internal/httpserver"
	"github.com/tinytelemetry/honeywatch/internal/liveview"
	"github.com/tinytelemetry/honeywatch/internal/logging"
	"github.com/tinytelemetry/honeywatch/internal/model"
	"github.com/tinytelemetry/honeywatch/internal/report"
	"github.com/tinytelemetry/honeywatch/internal/severity"
	"github.com/tinytelemetry/honeywatch/internal/socketrpc"
)

const shutdownDeadline = 10 * time.Second

// runServer polls the record store and serves the live view over HTTP and
// the unix socket until interrupted.
func runServer(cfg appConfig) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	catalog := severity.DefaultCatalog()
	if cfg.CatalogFile != "" {
		catalog, err = severity.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			return fmt.Errorf("failed to load category catalog: %w", err)
		}
	}

	reader, closer, err := eventstore.Open(cfg.storeConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to open record store: %w", err)
	}
	defer closer.Close()

	view := liveview.New(reader, logger)
	if err := view.Start(cfg.UpdateInterval); err != nil {
		return fmt.Errorf("failed to start live view: %w", err)
	}
	defer view.Stop()

	var reports httpserver.Reporter
	if cfg.ReportEnabled {
		trigger, err := report.NewTrigger(cfg.reportConfig(), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize report trigger: %w", err)
		}
		reports = trigger
	}

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(httpserver.Config{
			Addr:             cfg.APIAddr,
			RefreshRateLimit: cfg.RefreshRateLimit,
			Catalog:          catalog,
			Reports:          reports,
			Logger:           logger,
		}, view)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	sockServer := socketrpc.NewServer(cfg.SocketPath, liveview.NewQuerier(view), logger)
	socketUp := true
	if err := sockServer.Start(); err != nil {
		logger.Warn("socket server not started", zap.String("path", cfg.SocketPath), zap.Error(err))
		socketUp = false
	} else {
		defer sockServer.Stop()
	}

	// Set up context and signal handling before errgroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(shutdownDeadline)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	printStartupBanner(cfg, socketUp)

	g, gctx := errgroup.WithContext(ctx)

	// Surface refresh failures in the service log as they happen.
	g.Go(func() error {
		updates := make(chan model.Update, 8)
		unsubscribe := view.Subscribe(func(u model.Update) {
			select {
			case updates <- u:
			default:
			}
		})
		defer unsubscribe()

		var failing bool
		for {
			select {
			case <-gctx.Done():
				return nil
			case u := <-updates:
				switch {
				case u.Err != nil && !failing:
					failing = true
					logger.Error("refresh failing; serving last good snapshot", zap.Error(u.Err))
				case u.Err == nil && failing:
					failing = false
					logger.Info("refresh recovered", zap.Int("records", recordCount(u.Snapshot)))
				}
			}
		}
	})

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server: errgroup exited with error", zap.Error(err))
	}

	// If we reach here, graceful shutdown is underway within the deadline.
	// The signal goroutine (if active) dies with the process.
	signal.Stop(sigCh)
	logger.Info("shutdown complete")

	return nil
}

func recordCount(s *model.Snapshot) int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func printStartupBanner(cfg appConfig, socketUp bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	row := func(ok bool, name, value string) string {
		mark := dot
		if ok {
			mark = check
		}
		return fmt.Sprintf("    %s  %-14s %s", mark, name, value)
	}

	logo := yellow.Bold(true).Render(`
    ╦ ╦╔═╗╔╗╔╔═╗╦ ╦╦ ╦╔═╗╔╦╗╔═╗╦ ╦
    ╠═╣║ ║║║║║╣ ╚╦╝║║║╠═╣ ║ ║  ╠═╣
    ╩ ╩╚═╝╝╚╝╚═╝ ╩ ╚╩╝╩ ╩ ╩ ╚═╝╩ ╩`)

	separator := dim.Render("    ─────────────────────────────────")
	lines := []string{"", logo, "    " + dim.Render("v"+version), "", separator, ""}

	lines = append(lines, bold.Render("    Serving"), "")
	if cfg.APIEnabled {
		lines = append(lines, row(true, "HTTP API", cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, row(false, "HTTP API", dim.Render("disabled")))
	}
	if socketUp {
		lines = append(lines, row(true, "Unix Socket", cyan.Render(shortenPath(cfg.SocketPath))))
	} else {
		lines = append(lines, row(false, "Unix Socket", dim.Render("unavailable")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Records"), "")
	switch cfg.StoreBackend {
	case eventstore.BackendRedis:
		lines = append(lines, row(true, "Redis List", dim.Render(cfg.RedisAddr+" "+cfg.RedisKey)))
	default:
		lines = append(lines, row(true, "Log File", dim.Render(shortenPath(cfg.LogFile))))
	}
	lines = append(lines, row(true, "Refresh", dim.Render("every "+cfg.UpdateInterval.String())))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Reports"), "")
	if cfg.ReportEnabled {
		lines = append(lines, row(true, "Generator", dim.Render(strings.Join(append([]string{cfg.ReportCommand}, cfg.ReportArgs...), " "))))
	} else {
		lines = append(lines, row(false, "Generator", dim.Render("disabled")))
	}
	if cfg.ReportArchiveEnabled {
		lines = append(lines, row(true, "Archive", dim.Render(shortenPath(cfg.ReportArchiveDir))))
	} else {
		lines = append(lines, row(false, "Archive", dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, row(true, "Config File", dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, row(false, "Config File", dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
