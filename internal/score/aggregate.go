package score

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/openpgx/pgscore/internal/genome"
	"github.com/openpgx/pgscore/internal/genotype"
	"github.com/openpgx/pgscore/internal/liftover"
	"github.com/openpgx/pgscore/internal/model"
)

// SiteResult is the scoring outcome for one model site. The Site field
// always holds the model's original site; coordinate translation is
// visible only through the Match.
type SiteResult struct {
	Site         model.Site
	Match        Match
	Dosage       int // DosageUnknown when unresolvable
	Contribution float64
}

// Result is the aggregate score over one (model, index) pair. PerSite
// preserves model input order 1:1 for reproducibility and audit.
type Result struct {
	Score             float64
	SitesTotal        int
	SitesMatched      int
	SitesUnresolvable int
	PerSite           []SiteResult
}

// Coverage returns the fraction of model sites that resolved to a
// numeric dosage. Callers decide what coverage is acceptable; the
// engine only reports it.
func (r *Result) Coverage() float64 {
	if r.SitesTotal == 0 {
		return 0
	}
	return float64(r.SitesMatched) / float64(r.SitesTotal)
}

// Aggregator scores models against a genotype index. The index is
// treated as immutable, so one aggregator may be shared across models.
type Aggregator struct {
	index      *genotype.Index
	translator *liftover.Translator
	logger     *zap.Logger
	workers    int
}

// NewAggregator creates an aggregator over the given index.
func NewAggregator(index *genotype.Index) *Aggregator {
	return &Aggregator{
		index:  index,
		logger: zap.NewNop(),
	}
}

// SetTranslator supplies the coordinate translator used when a model's
// build differs from the index build. Without one, cross-build sites
// are reported as unresolvable, never silently treated as identity.
func (a *Aggregator) SetTranslator(t *liftover.Translator) {
	a.translator = t
}

// SetLogger sets the logger for per-site diagnostics.
func (a *Aggregator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// SetWorkers configures parallel per-site evaluation. Values below 2
// keep the pass single-threaded.
func (a *Aggregator) SetWorkers(n int) {
	a.workers = n
}

// Score evaluates every site of the model in input order. A single
// site's failure never aborts the pass: unresolvable sites are counted
// and recorded with a zero contribution. The pass can be cancelled
// between sites via ctx.
func (a *Aggregator) Score(ctx context.Context, m *model.Model) (*Result, error) {
	if a.workers > 1 {
		return a.scoreParallel(ctx, m)
	}

	res := &Result{
		SitesTotal: m.Len(),
		PerSite:    make([]SiteResult, 0, m.Len()),
	}
	for _, site := range m.Sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.accumulate(a.scoreSite(site))
	}
	return res, nil
}

// accumulate folds one site result into the aggregate. The reduction is
// a plain sum, so partial results recombine identically regardless of
// execution order.
func (r *Result) accumulate(sr SiteResult) {
	r.PerSite = append(r.PerSite, sr)
	if sr.Dosage == DosageUnknown {
		r.SitesUnresolvable++
		return
	}
	r.SitesMatched++
	r.Score += sr.Contribution
}

// scoreSite resolves a single model site: translate the coordinate if
// the builds disagree, look up candidates, match alleles, resolve the
// dosage.
func (a *Aggregator) scoreSite(site model.Site) SiteResult {
	lookup := site

	if site.Coordinate.Build != a.index.Build() {
		if a.translator == nil {
			a.logger.Warn("build mismatch with no translator",
				zap.String("site", site.Coordinate.String()),
				zap.String("index_build", string(a.index.Build())))
			return unresolvable(site, "build mismatch, no mapping table")
		}

		mapped, reverse, err := a.translator.Translate(site.Coordinate, a.index.Build())
		if err != nil {
			if errors.Is(err, liftover.ErrNoMapping) {
				a.logger.Debug("position unmapped in target build",
					zap.String("site", site.Coordinate.String()))
			} else {
				a.logger.Warn("coordinate translation failed",
					zap.String("site", site.Coordinate.String()),
					zap.Error(err))
			}
			return unresolvable(site, "no liftover mapping")
		}

		lookup.Coordinate = mapped
		if reverse {
			// The destination interval is on the opposite strand; the
			// model's alleles must be carried over in destination-strand
			// terms before any comparison.
			effect, ok1 := genome.ReverseComplement(site.EffectAllele)
			other, ok2 := genome.ReverseComplement(site.OtherAllele)
			if !ok1 || !ok2 {
				return unresolvable(site, "allele not complementable across strands")
			}
			lookup.EffectAllele = effect
			lookup.OtherAllele = other
		}
	}

	match := MatchSite(lookup, a.index.Lookup(lookup.Coordinate))
	dosage := ResolveDosage(match)

	sr := SiteResult{Site: site, Match: match, Dosage: dosage}
	if dosage != DosageUnknown {
		sr.Contribution = site.Weight * float64(dosage)
	}
	return sr
}

func unresolvable(site model.Site, reason string) SiteResult {
	return SiteResult{
		Site:   site,
		Match:  Match{Kind: NoRecordFound, Reason: reason},
		Dosage: DosageUnknown,
	}
}
