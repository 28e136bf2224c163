// Package genotype builds an in-memory index of observed call-set
// records keyed by normalized genomic coordinate.
package genotype

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/openpgx/pgscore/internal/genome"
	"github.com/openpgx/pgscore/internal/vcf"
)

type key struct {
	chrom string
	pos   int64
}

// Index maps normalized coordinates to the call-set records observed
// there. It is mutated only during construction (AddSource) and must be
// treated as read-only afterwards, which makes concurrent lookups safe
// without locking.
type Index struct {
	build   genome.Build
	records map[key][]*vcf.Record

	recordCount int
	skippedRows int

	logger *zap.Logger
}

// NewIndex creates an empty index for call sets aligned to the given build.
func NewIndex(build genome.Build) *Index {
	return &Index{
		build:   build,
		records: make(map[key][]*vcf.Record),
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for skipped-row warnings.
func (x *Index) SetLogger(l *zap.Logger) {
	x.logger = l
}

// AddSource consumes a record reader into the index. Rows that fail to
// parse (*vcf.ParseError) are skipped and counted so one corrupt line
// cannot abort a multi-gigabyte call set; any other error is fatal.
// Overlapping records at one coordinate accumulate in file order.
func (x *Index) AddSource(r vcf.RecordReader) error {
	for {
		rec, err := r.Next()
		if err != nil {
			var perr *vcf.ParseError
			if errors.As(err, &perr) {
				x.skippedRows++
				x.logger.Warn("skipping malformed call-set row",
					zap.Int("line", perr.Line),
					zap.String("reason", perr.Message))
				continue
			}
			return fmt.Errorf("read call set: %w", err)
		}
		if rec == nil {
			return nil
		}

		k := key{chrom: rec.NormalizeChrom(), pos: rec.Pos}
		x.records[k] = append(x.records[k], rec)
		x.recordCount++
	}
}

// Dedupe keeps only the most recently added record at each coordinate.
// Callers that merge multiple call-set sources must request this
// explicitly; by default all overlapping records are retained.
func (x *Index) Dedupe() {
	for k, recs := range x.records {
		if len(recs) > 1 {
			x.records[k] = recs[len(recs)-1:]
		}
	}
}

// Lookup returns all records observed at the coordinate, or an empty
// slice when the site is absent. The coordinate's build must match the
// index build; querying across builds without translation finds nothing.
func (x *Index) Lookup(c genome.Coordinate) []*vcf.Record {
	if c.Build != x.build {
		return nil
	}
	return x.records[key{chrom: c.Chrom, pos: c.Pos}]
}

// Build returns the genome build the indexed call set is aligned to.
func (x *Index) Build() genome.Build { return x.build }

// RecordCount returns the number of records indexed.
func (x *Index) RecordCount() int { return x.recordCount }

// SkippedRows returns the number of malformed rows dropped during indexing.
func (x *Index) SkippedRows() int { return x.skippedRows }
