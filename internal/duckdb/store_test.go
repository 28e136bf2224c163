package duckdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpgx/pgscore/internal/genome"
	"github.com/openpgx/pgscore/internal/model"
	"github.com/openpgx/pgscore/internal/score"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() (*model.Model, *score.Result) {
	m := &model.Model{
		ID:    "PGS000906",
		Trait: "Coronary artery disease",
		Build: genome.GRCh38,
	}
	r := &score.Result{
		Score:             1.25,
		SitesTotal:        3,
		SitesMatched:      2,
		SitesUnresolvable: 1,
		PerSite: []score.SiteResult{
			{
				Site: model.Site{
					Coordinate:   genome.NewCoordinate(genome.GRCh38, "6", 100),
					EffectAllele: "G", OtherAllele: "A", Weight: 0.5, ID: "rs1",
				},
				Match:        score.Match{Kind: score.DirectMatch},
				Dosage:       2,
				Contribution: 1.0,
			},
			{
				Site: model.Site{
					Coordinate:   genome.NewCoordinate(genome.GRCh38, "2", 900),
					EffectAllele: "C", OtherAllele: "T", Weight: 0.25, ID: "rs2",
				},
				Match:        score.Match{Kind: score.DirectMatch},
				Dosage:       1,
				Contribution: 0.25,
			},
			{
				Site: model.Site{
					Coordinate:   genome.NewCoordinate(genome.GRCh38, "1", 500),
					EffectAllele: "T", OtherAllele: "A", Weight: 2.0, ID: "rs3",
				},
				Match:  score.Match{Kind: score.Ambiguous},
				Dosage: score.DosageUnknown,
			},
		},
	}
	return m, r
}

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.DB())
}

func TestSaveAndListRuns(t *testing.T) {
	s := openInMemory(t)

	m, r := sampleResult()
	runID, err := s.SaveResult(m, r)
	require.NoError(t, err)
	assert.Contains(t, runID, "PGS000906-")

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, runID, runs[0].RunID)
	assert.Equal(t, "PGS000906", runs[0].ModelID)
	assert.Equal(t, "Coronary artery disease", runs[0].Trait)
	assert.Equal(t, "GRCh38", runs[0].GenomeBuild)
	assert.Equal(t, 1.25, runs[0].Score)
	assert.Equal(t, 3, runs[0].SitesTotal)
	assert.Equal(t, 2, runs[0].SitesMatched)
	assert.Equal(t, 1, runs[0].SitesUnresolvable)
	assert.False(t, runs[0].CreatedAt.IsZero())
}

func TestSaveResultContributions(t *testing.T) {
	s := openInMemory(t)

	m, r := sampleResult()
	runID, err := s.SaveResult(m, r)
	require.NoError(t, err)

	rows, err := s.DB().Query(`SELECT site_id, chrom, pos, match, dosage, contribution
		FROM site_contributions WHERE run_id = ? ORDER BY site_index`, runID)
	require.NoError(t, err)
	defer rows.Close()

	type row struct {
		siteID, chrom, match string
		pos, dosage          int64
		contribution         float64
	}
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.siteID, &r.chrom, &r.pos, &r.match, &r.dosage, &r.contribution))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())
	require.Len(t, got, 3)

	assert.Equal(t, row{"rs1", "6", "direct", 100, 2, 1.0}, got[0])
	assert.Equal(t, row{"rs2", "2", "direct", 900, 1, 0.25}, got[1])

	// Unresolvable sites persist dosage -1 so queries can filter them.
	assert.Equal(t, "ambiguous", got[2].match)
	assert.Equal(t, int64(-1), got[2].dosage)
	assert.Zero(t, got[2].contribution)
}

func TestSaveResultUnnamedModel(t *testing.T) {
	s := openInMemory(t)

	m, r := sampleResult()
	m.ID = ""
	runID, err := s.SaveResult(m, r)
	require.NoError(t, err)
	assert.Contains(t, runID, "unnamed-")
}

func TestRunsEmpty(t *testing.T) {
	s := openInMemory(t)

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}
