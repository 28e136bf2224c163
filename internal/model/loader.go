package model

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/openpgx/pgscore/internal/genome"
)

// Required scoring-file columns. Optional: rsID, genome_build.
const (
	colChrom        = "chr_name"
	colPos          = "chr_position"
	colEffectAllele = "effect_allele"
	colOtherAllele  = "other_allele"
	colWeight       = "effect_weight"
	colRSID         = "rsID"
	colBuild        = "genome_build"
)

// ParseError reports a structural problem that makes a scoring file
// unusable as a whole. Malformed individual rows are skipped and
// counted instead.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("scoring file parse error at line %d: %s", e.Line, e.Message)
}

// Load reads a PGS Catalog scoring file from disk. Supports both plain
// and gzipped (.gz) files. defaultBuild is used when the file carries
// no #genome_build= metadata line.
func Load(path string, defaultBuild genome.Build) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scoring file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("read gzipped scoring file: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	return Parse(r, defaultBuild)
}

// Parse reads a scoring model from a reader. Header lines beginning
// with "#" hold key=value metadata; the first non-comment line must be
// the column header. Data rows that fail to parse are skipped and
// counted in Model.SkippedRows; only a missing or unusable column
// header is fatal.
func Parse(r io.Reader, defaultBuild genome.Build) (*Model, error) {
	m := &Model{
		Build:    defaultBuild,
		Metadata: make(map[string]string),
	}

	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		columns    map[string]int
		lineNumber int
	)

	for scan.Scan() {
		lineNumber++
		line := strings.TrimRight(scan.Text(), "\r\n")
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			key, value, ok := strings.Cut(strings.TrimLeft(line, "# "), "=")
			if ok {
				m.Metadata[key] = value
				// The declared build must be in effect before any data
				// row is parsed.
				if key == "genome_build" {
					if b, err := genome.ParseBuild(value); err == nil {
						m.Build = b
					}
				}
			}
			continue
		}

		if columns == nil {
			cols, err := parseHeader(line, lineNumber)
			if err != nil {
				return nil, err
			}
			columns = cols
			continue
		}

		site, ok := parseRow(line, columns, m.Build)
		if !ok {
			m.SkippedRows++
			continue
		}
		m.Sites = append(m.Sites, site)
	}
	if err := scan.Err(); err != nil {
		return nil, fmt.Errorf("read scoring file: %w", err)
	}

	if columns == nil {
		return nil, &ParseError{Line: lineNumber, Message: "no column header found"}
	}

	applyMetadata(m)
	return m, nil
}

// parseHeader validates the column header and maps names to indices.
func parseHeader(line string, lineNumber int) (map[string]int, error) {
	fields := strings.Split(line, "\t")
	cols := make(map[string]int, len(fields))
	for i, name := range fields {
		cols[strings.TrimSpace(name)] = i
	}

	for _, required := range []string{colChrom, colPos, colEffectAllele, colOtherAllele, colWeight} {
		if _, ok := cols[required]; !ok {
			return nil, &ParseError{
				Line:    lineNumber,
				Message: fmt.Sprintf("missing required column %q", required),
			}
		}
	}
	return cols, nil
}

// parseRow converts one data row into a Site. ok is false for rows
// that are malformed or carry invalid alleles.
func parseRow(line string, columns map[string]int, build genome.Build) (Site, bool) {
	fields := strings.Split(line, "\t")
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	pos, err := strconv.ParseInt(field(colPos), 10, 64)
	if err != nil || pos < 1 {
		return Site{}, false
	}

	weight, err := strconv.ParseFloat(field(colWeight), 64)
	if err != nil {
		return Site{}, false
	}

	effect := genome.NormalizeAllele(field(colEffectAllele))
	other := genome.NormalizeAllele(field(colOtherAllele))
	if !genome.ValidAllele(effect) || !genome.ValidAllele(other) || effect == other {
		return Site{}, false
	}

	siteBuild := build
	if raw := field(colBuild); raw != "" {
		b, err := genome.ParseBuild(raw)
		if err != nil {
			return Site{}, false
		}
		siteBuild = b
	}

	chrom := field(colChrom)
	if chrom == "" {
		return Site{}, false
	}
	// Some GWAS tables encode the sex chromosomes numerically.
	switch chrom {
	case "23":
		chrom = "X"
	case "24":
		chrom = "Y"
	}

	return Site{
		Coordinate:   genome.NewCoordinate(siteBuild, chrom, pos),
		OtherAllele:  other,
		EffectAllele: effect,
		Weight:       weight,
		ID:           field(colRSID),
	}, true
}

// applyMetadata lifts well-known metadata keys into Model fields.
func applyMetadata(m *Model) {
	if id, ok := m.Metadata["pgs_id"]; ok {
		m.ID = id
	}
	if trait, ok := m.Metadata["trait_reported"]; ok {
		m.Trait = trait
	}
}
