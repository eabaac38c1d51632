// Package mapcci implements the map-cci command: the CLI surface of the
// background CCI mapping job.
package mapcci

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stigward/stigward/internal/aggregator"
	"github.com/stigward/stigward/internal/ccimap"
	"github.com/stigward/stigward/internal/config"
	"github.com/stigward/stigward/internal/database"
	"github.com/stigward/stigward/internal/worker"
	"github.com/stigward/stigward/pkg/logger"
)

// Options represents map-cci command options.
type Options struct {
	ScanID       int64
	SystemID     int64
	MappingsFile string
}

// Run executes the map-cci command.
func Run(cfg *config.Config, args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("map-cci", flag.ExitOnError)
	fs.Int64Var(&opts.ScanID, "scan", 0, "Scan whose findings should be mapped")
	fs.Int64Var(&opts.SystemID, "system", 0, "System the scan belongs to")
	fs.StringVar(&opts.MappingsFile, "mappings", "", "JSON reference file to load into cci_mappings first")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: stigward map-cci [options]

Map a scan's unmapped findings to NIST controls via their CCI references,
then recompute the system's control assessments.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  stigward map-cci --scan 12 --system 3
  stigward map-cci --scan 12 --system 3 --mappings cci-list.json`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.ScanID == 0 || opts.SystemID == 0 {
		fs.Usage()
		return fmt.Errorf("--scan and --system are required")
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()
	log := logger.GetGlobalLogger()

	if opts.MappingsFile != "" {
		content, err := os.ReadFile(opts.MappingsFile)
		if err != nil {
			return fmt.Errorf("reading mappings file: %w", err)
		}
		mappings, err := ccimap.ParseReference(content)
		if err != nil {
			return err
		}
		if err := db.UpsertCciMappings(ctx, mappings); err != nil {
			return fmt.Errorf("loading mappings: %w", err)
		}
		logger.Info("loaded CCI reference file", "file", opts.MappingsFile, "entries", len(mappings))
	}

	table := ccimap.New(db, log)
	if err := table.Load(ctx); err != nil {
		return err
	}
	if table.Size() == 0 {
		logger.Warn("CCI mapping table is empty; load cci_mappings before mapping")
	}

	job := worker.NewMappingJob(db, table, aggregator.New(db, log), worker.Payload{
		ScanID:   opts.ScanID,
		SystemID: opts.SystemID,
	}, log)

	result, err := job.Run(ctx, func(percent float64) {
		logger.Info("mapping progress", "percent", fmt.Sprintf("%.0f", percent))
	})
	if err != nil {
		return err
	}

	fmt.Printf("Mapped %d of %d findings for scan %d\n",
		result.MappedCount, result.TotalFindings, opts.ScanID)
	return nil
}
