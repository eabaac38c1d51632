// Package importscan implements the import command.
package importscan

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stigward/stigward/internal/aggregator"
	"github.com/stigward/stigward/internal/config"
	"github.com/stigward/stigward/internal/database"
	"github.com/stigward/stigward/internal/importer"
	"github.com/stigward/stigward/pkg/logger"
)

// Options represents import command options.
type Options struct {
	File       string
	ImportedBy string
	SystemID   int64
	CreateAs   string
}

// Run executes the import command.
func Run(cfg *config.Config, args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fs.Int64Var(&opts.SystemID, "system", 0, "Target system ID")
	fs.StringVar(&opts.CreateAs, "create-system", "", "Create a new system with this name and import into it")
	fs.StringVar(&opts.File, "file", "", "Checklist file to import (.ckl or .cklb)")
	fs.StringVar(&opts.ImportedBy, "imported-by", "", "Name recorded as the importer")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: stigward import [options]

Import a STIG checklist file for a system.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  stigward import --system 3 --file rhel8.ckl
  stigward import --create-system web-01 --file rhel8.cklb --imported-by auditor`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.File == "" {
		fs.Usage()
		return fmt.Errorf("--file is required")
	}
	if opts.SystemID == 0 && opts.CreateAs == "" {
		fs.Usage()
		return fmt.Errorf("--system or --create-system is required")
	}

	content, err := os.ReadFile(opts.File)
	if err != nil {
		return fmt.Errorf("reading %s: %w", opts.File, err)
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()

	if opts.CreateAs != "" {
		systemID, err := db.CreateSystem(ctx, opts.CreateAs)
		if err != nil {
			return fmt.Errorf("creating system %q: %w", opts.CreateAs, err)
		}
		opts.SystemID = systemID
		logger.Info("created system", "system", systemID, "name", opts.CreateAs)
	}

	log := logger.GetGlobalLogger()
	imp := importer.New(db, aggregator.New(db, log), log)

	result, err := imp.ImportScan(ctx, opts.SystemID, opts.File, opts.ImportedBy, content)
	if err != nil {
		return err
	}

	fmt.Printf("Imported scan %d: %d findings (%d written) for system %d\n",
		result.ScanID, result.FindingCount, result.Written, opts.SystemID)
	return nil
}
