package output

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/openpgx/pgscore/internal/model"
	"github.com/openpgx/pgscore/internal/score"
)

// ReportWriter renders a human-readable score summary.
type ReportWriter struct {
	w    io.Writer
	topN int
}

// NewReportWriter creates a report writer that lists the topN
// contributing sites by absolute contribution.
func NewReportWriter(w io.Writer, topN int) *ReportWriter {
	if topN <= 0 {
		topN = 10
	}
	return &ReportWriter{w: w, topN: topN}
}

// Write renders the report for one scored model.
func (rw *ReportWriter) Write(m *model.Model, result *score.Result) error {
	var b strings.Builder
	rule := strings.Repeat("=", 50)

	title := "POLYGENIC SCORE REPORT"
	if m.ID != "" {
		title = fmt.Sprintf("%s - %s", title, m.ID)
	}
	fmt.Fprintf(&b, "%s\n%s\n%s\n\n", rule, title, rule)

	b.WriteString("MODEL:\n")
	if m.ID != "" {
		fmt.Fprintf(&b, "  ID: %s\n", m.ID)
	}
	if m.Trait != "" {
		fmt.Fprintf(&b, "  Trait: %s\n", m.Trait)
	}
	fmt.Fprintf(&b, "  Genome build: %s\n", m.Build)
	fmt.Fprintf(&b, "  Sites: %d", m.Len())
	if m.SkippedRows > 0 {
		fmt.Fprintf(&b, " (%d malformed rows skipped at load)", m.SkippedRows)
	}
	b.WriteString("\n\n")

	b.WriteString("SCORE:\n")
	fmt.Fprintf(&b, "  Total score: %.6f\n", result.Score)
	fmt.Fprintf(&b, "  Matched sites: %d of %d (%.2f%%)\n",
		result.SitesMatched, result.SitesTotal, 100*result.Coverage())
	fmt.Fprintf(&b, "  Unresolvable sites: %d\n", result.SitesUnresolvable)
	writeUnresolvableBreakdown(&b, result)
	b.WriteString("\n")

	top := topContributions(result, rw.topN)
	if len(top) > 0 {
		b.WriteString("TOP CONTRIBUTING SITES:\n")
		for _, sr := range top {
			id := sr.Site.ID
			if id == "" {
				id = fmt.Sprintf("%s:%d", sr.Site.Coordinate.Chrom, sr.Site.Coordinate.Pos)
			}
			fmt.Fprintf(&b, "  %s %s>%s dosage=%d weight=%.4f contribution=%.4f\n",
				id, sr.Site.OtherAllele, sr.Site.EffectAllele,
				sr.Dosage, sr.Site.Weight, sr.Contribution)
		}
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n")

	_, err := io.WriteString(rw.w, b.String())
	return err
}

// writeUnresolvableBreakdown counts unresolvable sites per match kind.
func writeUnresolvableBreakdown(b *strings.Builder, result *score.Result) {
	counts := make(map[score.MatchKind]int)
	missingGT := 0
	for _, sr := range result.PerSite {
		if sr.Dosage != score.DosageUnknown {
			continue
		}
		switch sr.Match.Kind {
		case score.DirectMatch, score.StrandFlipMatch:
			missingGT++
		default:
			counts[sr.Match.Kind]++
		}
	}
	for _, kind := range []score.MatchKind{score.NoRecordFound, score.Ambiguous, score.AlleleMismatch} {
		if counts[kind] > 0 {
			fmt.Fprintf(b, "    %s: %d\n", kind, counts[kind])
		}
	}
	if missingGT > 0 {
		fmt.Fprintf(b, "    missing_genotype: %d\n", missingGT)
	}
}

// topContributions returns the n largest contributions by magnitude.
// The result is a copy; the score result itself is never reordered.
func topContributions(result *score.Result, n int) []score.SiteResult {
	var contributing []score.SiteResult
	for _, sr := range result.PerSite {
		if sr.Dosage != score.DosageUnknown && sr.Contribution != 0 {
			contributing = append(contributing, sr)
		}
	}
	sort.SliceStable(contributing, func(i, j int) bool {
		return math.Abs(contributing[i].Contribution) > math.Abs(contributing[j].Contribution)
	})
	if len(contributing) > n {
		contributing = contributing[:n]
	}
	return contributing
}
