package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/openpgx/pgscore/internal/model"
	"github.com/openpgx/pgscore/internal/score"
)

// RunSummary is one persisted score run.
type RunSummary struct {
	RunID             string
	ModelID           string
	Trait             string
	GenomeBuild       string
	Score             float64
	SitesTotal        int
	SitesMatched      int
	SitesUnresolvable int
	CreatedAt         time.Time
}

// SaveResult persists a score run and its per-site contributions.
// Returns the generated run id.
func (s *Store) SaveResult(m *model.Model, result *score.Result) (string, error) {
	now := time.Now().UTC()
	modelID := m.ID
	if modelID == "" {
		modelID = "unnamed"
	}
	runID := fmt.Sprintf("%s-%d", modelID, now.UnixNano())

	_, err := s.db.Exec(`INSERT INTO score_runs
		(run_id, model_id, trait, genome_build, score, sites_total, sites_matched, sites_unresolvable, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, modelID, m.Trait, string(m.Build),
		result.Score, result.SitesTotal, result.SitesMatched, result.SitesUnresolvable, now)
	if err != nil {
		return "", fmt.Errorf("insert score run: %w", err)
	}

	if err := s.writeContributions(runID, result); err != nil {
		return "", err
	}
	return runID, nil
}

// writeContributions batch-inserts per-site rows using the Appender API.
func (s *Store) writeContributions(runID string, result *score.Result) error {
	if len(result.PerSite) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "site_contributions")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i, sr := range result.PerSite {
		var dosage int64 = -1
		if sr.Dosage != score.DosageUnknown {
			dosage = int64(sr.Dosage)
		}
		if err := appender.AppendRow(
			runID,
			int64(i),
			sr.Site.ID,
			sr.Site.Coordinate.Chrom,
			sr.Site.Coordinate.Pos,
			sr.Site.EffectAllele,
			sr.Site.OtherAllele,
			sr.Site.Weight,
			sr.Match.Kind.String(),
			sr.Match.Orientation.String(),
			dosage,
			sr.Contribution,
		); err != nil {
			return fmt.Errorf("append site contribution: %w", err)
		}
	}

	if err := appender.Flush(); err != nil {
		return fmt.Errorf("flush appender: %w", err)
	}
	return nil
}

// Runs lists persisted score runs, most recent first.
func (s *Store) Runs() ([]RunSummary, error) {
	rows, err := s.db.Query(`SELECT run_id, model_id, trait, genome_build, score,
		sites_total, sites_matched, sites_unresolvable, created_at
		FROM score_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query score runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.ModelID, &r.Trait, &r.GenomeBuild, &r.Score,
			&r.SitesTotal, &r.SitesMatched, &r.SitesUnresolvable, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan score run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
