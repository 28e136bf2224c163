package model

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/openpgx/pgscore/internal/genome"
	"github.com/openpgx/pgscore/internal/liftover"
)

// RewriteStats summarizes a scoring-file build conversion.
type RewriteStats struct {
	Converted int
	Failed    int // rows dropped because the position has no mapping
	Skipped   int // malformed rows passed over
}

// RewriteBuild streams a scoring file from r to w, translating every
// row's coordinate to the translator's destination build. The
// #genome_build= metadata line is rewritten; rows whose position has no
// mapping in the destination build are dropped and counted. When a row
// lands on a reverse-strand interval its alleles are reverse-complemented
// so they stay expressed on the destination plus strand.
func RewriteBuild(r io.Reader, w io.Writer, t *liftover.Translator) (RewriteStats, error) {
	var stats RewriteStats

	out := bufio.NewWriter(w)
	defer out.Flush()

	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		columns    map[string]int
		lineNumber int
	)

	for scan.Scan() {
		lineNumber++
		line := strings.TrimRight(scan.Text(), "\r\n")

		if strings.HasPrefix(line, "#") {
			if strings.HasPrefix(line, "#genome_build=") {
				line = fmt.Sprintf("#genome_build=%s", t.To())
			}
			fmt.Fprintln(out, line)
			continue
		}
		if line == "" {
			continue
		}

		if columns == nil {
			cols, err := parseHeader(line, lineNumber)
			if err != nil {
				return stats, err
			}
			columns = cols
			fmt.Fprintln(out, line)
			continue
		}

		fields := strings.Split(line, "\t")
		rewritten, ok := rewriteRow(fields, columns, t)
		if !ok {
			stats.Failed++
			continue
		}
		if rewritten == nil {
			stats.Skipped++
			continue
		}
		fmt.Fprintln(out, strings.Join(rewritten, "\t"))
		stats.Converted++
	}
	if err := scan.Err(); err != nil {
		return stats, fmt.Errorf("read scoring file: %w", err)
	}
	if columns == nil {
		return stats, &ParseError{Line: lineNumber, Message: "no column header found"}
	}
	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("write scoring file: %w", err)
	}
	return stats, nil
}

// rewriteRow translates one data row in place. Returns (nil, true) for
// malformed rows that should be counted as skipped rather than failed.
func rewriteRow(fields []string, columns map[string]int, t *liftover.Translator) ([]string, bool) {
	chromIdx := columns[colChrom]
	posIdx := columns[colPos]
	if chromIdx >= len(fields) || posIdx >= len(fields) {
		return nil, true
	}

	pos, err := strconv.ParseInt(strings.TrimSpace(fields[posIdx]), 10, 64)
	if err != nil || pos < 1 {
		return nil, true
	}

	coord := genome.NewCoordinate(t.From(), fields[chromIdx], pos)
	mapped, reverse, err := t.Translate(coord, t.To())
	if err != nil {
		return nil, false
	}

	rewritten := make([]string, len(fields))
	copy(rewritten, fields)
	rewritten[chromIdx] = mapped.Chrom
	rewritten[posIdx] = strconv.FormatInt(mapped.Pos, 10)

	if reverse {
		for _, col := range []string{colEffectAllele, colOtherAllele} {
			idx, ok := columns[col]
			if !ok || idx >= len(fields) {
				continue
			}
			rc, ok := genome.ReverseComplement(genome.NormalizeAllele(fields[idx]))
			if !ok {
				return nil, false
			}
			rewritten[idx] = rc
		}
	}
	return rewritten, true
}
