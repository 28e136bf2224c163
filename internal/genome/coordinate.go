// Package genome provides genomic coordinate and allele primitives.
package genome

import (
	"fmt"
	"strings"
)

// Build identifies a reference genome assembly.
type Build string

const (
	GRCh37 Build = "GRCh37"
	GRCh38 Build = "GRCh38"
)

// ParseBuild parses an assembly name, accepting the common UCSC aliases
// (hg19 for GRCh37, hg38 for GRCh38).
func ParseBuild(s string) (Build, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GRCH37", "HG19":
		return GRCh37, nil
	case "GRCH38", "HG38":
		return GRCh38, nil
	default:
		return "", fmt.Errorf("unknown genome build %q (expected GRCh37 or GRCh38)", s)
	}
}

// Coordinate is an immutable (build, chromosome, position) triple.
// The chromosome is stored in canonical form; two coordinates are equal
// only if build, chromosome, and position all match.
type Coordinate struct {
	Build Build
	Chrom string // canonical: "1".."22", "X", "Y", "M"
	Pos   int64  // 1-based
}

// NewCoordinate creates a coordinate, canonicalizing the chromosome name.
// This is the single normalization point: callers must not pre-process
// chromosome names themselves.
func NewCoordinate(build Build, chrom string, pos int64) Coordinate {
	return Coordinate{
		Build: build,
		Chrom: CanonicalChrom(chrom),
		Pos:   pos,
	}
}

// WithBuild returns a copy of the coordinate tagged with a different build.
// The position is unchanged; use liftover.Translator when the position
// itself must move between builds.
func (c Coordinate) WithBuild(b Build) Coordinate {
	c.Build = b
	return c
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s:%s:%d", c.Build, c.Chrom, c.Pos)
}

// CanonicalChrom normalizes a chromosome name: the "chr" prefix (any
// case) is stripped, X/Y/M are upper-cased, and the mitochondrial
// aliases "MT"/"chrM" both map to "M".
func CanonicalChrom(chrom string) string {
	chrom = strings.TrimSpace(chrom)
	if len(chrom) > 3 && strings.EqualFold(chrom[:3], "chr") {
		chrom = chrom[3:]
	}
	switch strings.ToUpper(chrom) {
	case "X":
		return "X"
	case "Y":
		return "Y"
	case "M", "MT":
		return "M"
	}
	return chrom
}
