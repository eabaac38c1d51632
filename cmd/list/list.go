// Package list implements the list command.
package list

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/stigward/stigward/internal/config"
	"github.com/stigward/stigward/internal/database"
)

// Options represents list command options.
type Options struct {
	SystemID  int64
	ScanID    int64
	ControlID string
}

// Run executes the list command.
func Run(cfg *config.Config, args []string) error {
	opts := &Options{}

	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Int64Var(&opts.SystemID, "system", 0, "List scans for a system")
	fs.Int64Var(&opts.ScanID, "scan", 0, "List findings for a scan")
	fs.StringVar(&opts.ControlID, "control", "", "List per-system assessments for a control")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: stigward list [options]

List scans, findings, or control assessments.

Options:`)
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, `
Examples:
  stigward list --system 1
  stigward list --scan 42
  stigward list --control CM-6`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.SystemID == 0 && opts.ScanID == 0 && opts.ControlID == "" {
		fs.Usage()
		return fmt.Errorf("one of --system, --scan, or --control is required")
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()

	switch {
	case opts.ScanID != 0:
		return listFindings(ctx, db, opts.ScanID)
	case opts.ControlID != "":
		return listAssessments(ctx, db, opts.ControlID)
	default:
		return listScans(ctx, db, opts.SystemID)
	}
}

func listScans(ctx context.Context, db *database.DB, systemID int64) error {
	scans, err := db.ListScans(ctx, systemID)
	if err != nil {
		return fmt.Errorf("listing scans: %w", err)
	}
	if len(scans) == 0 {
		fmt.Printf("No scans imported for system %d\n", systemID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tFINDINGS\tIMPORTED BY\tIMPORTED AT")
	for _, s := range scans {
		importedBy := "-"
		if s.ImportedBy.Valid {
			importedBy = s.ImportedBy.String
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n",
			s.ID, s.Filename, s.FindingCount, importedBy,
			s.ImportedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func listFindings(ctx context.Context, db *database.DB, scanID int64) error {
	findings, err := db.GetFindings(ctx, scanID)
	if err != nil {
		return fmt.Errorf("listing findings: %w", err)
	}
	if len(findings) == 0 {
		fmt.Printf("No findings recorded for scan %d\n", scanID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tVULN\tSEVERITY\tSTATUS\tCONTROL\tCCIS\tTITLE")
	for _, f := range findings {
		controlID := "-"
		if f.ControlID.Valid {
			controlID = f.ControlID.String
		}
		ccis := "-"
		if len(f.CCIRefs) > 0 {
			ccis = strings.Join(f.CCIRefs, ",")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.RuleID, f.VulnID, f.Severity, f.Status, controlID, ccis, truncate(f.Title, 60))
	}
	return w.Flush()
}

func listAssessments(ctx context.Context, db *database.DB, controlID string) error {
	rows, err := db.StatusRowsForControl(ctx, controlID)
	if err != nil {
		return fmt.Errorf("listing assessments: %w", err)
	}
	if len(rows) == 0 {
		fmt.Printf("Control %s has not been assessed on any system\n", controlID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "SYSTEM\tSCORE\tOPEN\tCRITICAL\tTOTAL\tLAST ASSESSED")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%.1f\t%d\t%d\t%d\t%s\n",
			r.SystemID, r.ComplianceScore, r.OpenCount, r.CriticalCount, r.TotalFindings,
			r.LastAssessed.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// truncate shortens s to at most max runes, never splitting a multi-byte
// character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
