package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/honeywatch/internal/severity"
	"github.com/tinytelemetry/honeywatch/internal/socketrpc"
	"github.com/tinytelemetry/honeywatch/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var socketPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/honeywatch/config.yml)")
	flag.StringVar(&socketPath, "socket", "", "override socket path to connect to the honeywatch service")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Honeywatch CLI - Dashboard Client\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if socketPath != "" {
		cfg.SocketPath = socketPath
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	catalog := severity.DefaultCatalog()
	if cfg.CatalogFile != "" {
		loaded, err := severity.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load catalog '%s': %v (using defaults)\n", cfg.CatalogFile, err)
		} else {
			catalog = loaded
		}
	}

	client, err := socketrpc.Dial(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("cannot connect to honeywatch service at %s: %w\nIs the service running? Start it with: honeywatch", cfg.SocketPath, err)
	}
	defer client.Close()

	dashboard := tui.NewDashboardModel(client, catalog, cfg.UpdateInterval)
	app := tui.NewApp(tui.NewDashboardPage(dashboard), tui.NewHelpPage(tui.DefaultKeyMap()))

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
