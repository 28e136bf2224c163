// Package model loads and represents PGS scoring models: ordered lists
// of weighted variant sites keyed by genomic coordinate.
package model

import (
	"github.com/openpgx/pgscore/internal/genome"
)

// Site is one weighted variant in a scoring model. Sites are created
// once at load time and never mutated.
type Site struct {
	Coordinate   genome.Coordinate
	OtherAllele  string // the non-effect allele (PGS Catalog "other_allele")
	EffectAllele string // the allele the weight applies to
	Weight       float64
	ID           string // rsID, optional
}

// Model is an ordered sequence of weighted sites plus the scoring-file
// metadata. Duplicate coordinates are permitted; each occurrence is
// scored independently.
type Model struct {
	ID       string // e.g. "PGS000906"
	Trait    string
	Build    genome.Build
	Metadata map[string]string // raw #key=value header entries
	Sites    []Site

	// SkippedRows counts malformed data rows dropped during loading.
	SkippedRows int
}

// Len returns the number of sites in the model.
func (m *Model) Len() int { return len(m.Sites) }
