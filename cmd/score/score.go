// Package score implements the score command.
package score

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stigward/stigward/internal/config"
	"github.com/stigward/stigward/internal/database"
	"github.com/stigward/stigward/internal/scoring"
	"github.com/stigward/stigward/pkg/logger"
)

// Options represents score command options.
type Options struct {
	ControlID string
}

// Run executes the score command.
func Run(cfg *config.Config, args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("score", flag.ExitOnError)
	fs.StringVar(&opts.ControlID, "control", "", "Score a single control (all controls with findings when omitted)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: stigward score [options]

Compute compliance scores and persist per-control compliance status.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  stigward score
  stigward score --control CM-6`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()
	calc := scoring.New(db, logger.GetGlobalLogger())

	written, err := calc.UpdateComplianceFromFindings(ctx, opts.ControlID)
	if err != nil {
		return err
	}

	if opts.ControlID != "" {
		result, err := calc.ScoreForControl(ctx, opts.ControlID)
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Printf("Control %s has not been assessed on any system\n", opts.ControlID)
			return nil
		}
		fmt.Printf("%s: score %.1f (%s), %d/%d findings open, %d of %d systems assessed\n",
			result.ControlID, result.OverallScore, result.ComplianceStatus,
			result.OpenFindings, result.TotalFindings,
			result.SystemsAssessed, result.TotalSystems)
		return nil
	}

	fmt.Printf("Updated compliance status for %d controls\n", written)
	return nil
}
