// Package output renders score results as reports and tab-delimited tables.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/openpgx/pgscore/internal/score"
)

// TabWriter writes per-site scoring detail in tab-delimited format, one
// row per model site in model input order.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#site_id",
			"chrom",
			"position",
			"effect_allele",
			"other_allele",
			"weight",
			"match",
			"orientation",
			"dosage",
			"contribution",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single site result.
func (tw *TabWriter) Write(sr score.SiteResult) error {
	siteID := sr.Site.ID
	if siteID == "" {
		siteID = "-"
	}

	dosage := "NA"
	contribution := "NA"
	if sr.Dosage != score.DosageUnknown {
		dosage = fmt.Sprintf("%d", sr.Dosage)
		contribution = fmt.Sprintf("%.6f", sr.Contribution)
	}

	orientation := "-"
	switch sr.Match.Kind {
	case score.DirectMatch, score.StrandFlipMatch:
		orientation = sr.Match.Orientation.String()
	}

	matchLabel := sr.Match.Kind.String()
	if sr.Match.Reason != "" {
		matchLabel = fmt.Sprintf("%s(%s)", matchLabel, sr.Match.Reason)
	}

	row := []string{
		siteID,
		sr.Site.Coordinate.Chrom,
		fmt.Sprintf("%d", sr.Site.Coordinate.Pos),
		sr.Site.EffectAllele,
		sr.Site.OtherAllele,
		fmt.Sprintf("%.6f", sr.Site.Weight),
		matchLabel,
		orientation,
		dosage,
		contribution,
	}

	_, err := tw.w.WriteString(strings.Join(row, "\t") + "\n")
	return err
}

// WriteAll writes every per-site result followed by a flush.
func (tw *TabWriter) WriteAll(result *score.Result) error {
	for _, sr := range result.PerSite {
		if err := tw.Write(sr); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Flush flushes buffered output.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
