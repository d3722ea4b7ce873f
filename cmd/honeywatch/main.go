package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args and starts the service, returning the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("honeywatch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default is $HOME/.config/honeywatch/config.yml)")
	showVersion := fs.Bool("version", false, "print version information")
	checkConfig := fs.Bool("check-config", false, "validate the configuration and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		printVersion(stdout)
		return 0
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if *checkConfig {
		source := cfg.ConfigPath
		if source == "" {
			source = "defaults and environment"
		}
		fmt.Fprintf(stdout, "config ok (%s): %s backend, api %s\n", source, cfg.StoreBackend, apiSummary(cfg))
		return 0
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Honeywatch - Honeypot Event Service\n")
	fmt.Fprintf(w, "  Version:    %s\n", version)
	fmt.Fprintf(w, "  Commit:     %s\n", commit)
	fmt.Fprintf(w, "  Built:      %s\n", buildTime)
	fmt.Fprintf(w, "  Go version: %s\n", goVersion)
}

func apiSummary(cfg appConfig) string {
	if !cfg.APIEnabled {
		return "disabled"
	}
	return cfg.APIAddr
}
