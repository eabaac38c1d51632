// Package main is the entry point for the stigward CLI. stigward ingests
// STIG checklist scans (.ckl/.cklb), maps findings to NIST controls via
// their CCI references, and maintains per-control compliance scores
// across systems.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/stigward/stigward/cmd/importscan"
	"github.com/stigward/stigward/cmd/list"
	"github.com/stigward/stigward/cmd/mapcci"
	"github.com/stigward/stigward/cmd/score"
	"github.com/stigward/stigward/internal/config"
	"github.com/stigward/stigward/pkg/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var (
		configFile  string
		debug       bool
		logFormat   string
		showVersion bool
	)

	globalFlags := flag.NewFlagSet("stigward", flag.ExitOnError)
	globalFlags.StringVar(&configFile, "config", "", "Configuration file path")
	globalFlags.BoolVar(&debug, "debug", false, "Enable debug logging")
	globalFlags.StringVar(&logFormat, "log-format", "", "Log format (text or json)")
	globalFlags.BoolVar(&showVersion, "version", false, "Show version information")

	if err := globalFlags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if showVersion {
		fmt.Printf("stigward version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if debug {
		cfg.Debug = true
	}

	logger.SetupLogger(cfg.Debug, cfg.LogFormat)

	args := globalFlags.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "import":
		if err := importscan.Run(cfg, commandArgs); err != nil {
			logger.Error("import failed", "error", err)
			os.Exit(1)
		}
	case "map-cci":
		if err := mapcci.Run(cfg, commandArgs); err != nil {
			logger.Error("CCI mapping failed", "error", err)
			os.Exit(1)
		}
	case "score":
		if err := score.Run(cfg, commandArgs); err != nil {
			logger.Error("scoring failed", "error", err)
			os.Exit(1)
		}
	case "list":
		if err := list.Run(cfg, commandArgs); err != nil {
			logger.Error("list failed", "error", err)
			os.Exit(1)
		}
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`stigward - STIG compliance tracking

Usage:
  stigward [global flags] <command> [command flags]

Commands:
  import    Import a .ckl/.cklb checklist for a system
  map-cci   Map a scan's findings to NIST controls via CCI references
  score     Compute and persist per-control compliance scores
  list      List scans, findings, or control assessments
  help      Show this help message

Global Flags:
  --config        Configuration file path
  --debug         Enable debug logging
  --log-format    Log format (text or json) (default: text)
  --version       Show version information`)
}
