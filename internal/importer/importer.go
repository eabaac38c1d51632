// Package importer is the entrypoint for bringing a checklist file into
// the store: parse, record the scan, persist findings, reaggregate.
package importer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stigward/stigward/internal/aggregator"
	"github.com/stigward/stigward/internal/database"
	"github.com/stigward/stigward/internal/parser"
	"github.com/stigward/stigward/pkg/logger"
)

// Importer imports checklist files for systems.
type Importer struct {
	db     *database.DB
	agg    *aggregator.Aggregator
	logger logger.Logger
}

// Result describes one completed import.
type Result struct {
	ScanID       int64
	FindingCount int
	Written      int
}

// New creates an importer over db.
func New(db *database.DB, agg *aggregator.Aggregator, log logger.Logger) *Importer {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	return &Importer{
		db:     db,
		agg:    agg,
		logger: log.With("component", "importer"),
	}
}

// ImportScan ingests one checklist file for a system. Structural parse
// errors abort before anything is written; after a successful save the
// system's assessment rows are recomputed synchronously so previously
// mapped controls reflect the new scan.
func (i *Importer) ImportScan(ctx context.Context, systemID int64, filename, importedBy string, content []byte) (*Result, error) {
	if _, err := i.db.GetSystem(ctx, systemID); err != nil {
		return nil, err
	}

	findings, err := parser.Parse(content, filename)
	if err != nil {
		return nil, err
	}

	importedByNull := sql.NullString{String: importedBy, Valid: importedBy != ""}
	scanID, err := i.db.CreateScan(ctx, &database.Scan{
		SystemID:     systemID,
		Filename:     filename,
		ImportedBy:   importedByNull,
		FindingCount: len(findings),
	})
	if err != nil {
		return nil, fmt.Errorf("recording scan: %w", err)
	}

	written, err := i.db.SaveFindings(ctx, scanID, systemID, findings)
	if err != nil {
		return nil, fmt.Errorf("saving findings for scan %d: %w", scanID, err)
	}

	if err := i.agg.RecomputeAll(ctx, systemID); err != nil {
		return nil, err
	}

	i.logger.Info("imported scan",
		"scan", scanID, "system", systemID, "file", filename, "findings", written)

	return &Result{
		ScanID:       scanID,
		FindingCount: len(findings),
		Written:      written,
	}, nil
}
