package score

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpgx/pgscore/internal/genome"
	"github.com/openpgx/pgscore/internal/genotype"
	"github.com/openpgx/pgscore/internal/liftover"
	"github.com/openpgx/pgscore/internal/model"
	"github.com/openpgx/pgscore/internal/vcf"
)

// recReader feeds fixed records into an index.
type recReader struct {
	recs []*vcf.Record
	pos  int
}

func (r *recReader) Next() (*vcf.Record, error) {
	if r.pos >= len(r.recs) {
		return nil, nil
	}
	rec := r.recs[r.pos]
	r.pos++
	return rec, nil
}

func (r *recReader) Close() error { return nil }
func (r *recReader) LineNumber() int { return r.pos }

func buildIndex(t *testing.T, build genome.Build, recs ...*vcf.Record) *genotype.Index {
	t.Helper()
	x := genotype.NewIndex(build)
	require.NoError(t, x.AddSource(&recReader{recs: recs}))
	return x
}

func record(chrom string, pos int64, ref string, alts []string, a1, a2 int) *vcf.Record {
	return &vcf.Record{
		Chrom:    chrom,
		Pos:      pos,
		Ref:      ref,
		Alt:      alts,
		Genotype: vcf.Genotype{A1: a1, A2: a2},
	}
}

func modelSite(build genome.Build, chrom string, pos int64, effect, other string, weight float64) model.Site {
	return model.Site{
		Coordinate:   genome.NewCoordinate(build, chrom, pos),
		EffectAllele: effect,
		OtherAllele:  other,
		Weight:       weight,
	}
}

func TestScore_MixedSites(t *testing.T) {
	index := buildIndex(t, genome.GRCh38,
		record("chr6", 100, "A", []string{"G"}, 0, 1),       // direct het
		record("chr1", 500, "A", []string{"T"}, 1, 1),       // palindromic
		record("chr2", 900, "A", []string{"G", "T"}, 0, 2),  // multi-allelic, other alt
	)

	m := &model.Model{
		Build: genome.GRCh38,
		Sites: []model.Site{
			modelSite(genome.GRCh38, "6", 100, "G", "A", 0.5),  // het direct match
			modelSite(genome.GRCh38, "6", 200, "G", "A", 1.0),  // no record at position
			modelSite(genome.GRCh38, "1", 500, "T", "A", 2.0),  // palindromic pair
			modelSite(genome.GRCh38, "2", 900, "G", "A", 0.25), // genotype carries a different alt
		},
	}

	agg := NewAggregator(index)
	res, err := agg.Score(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, 4, res.SitesTotal)
	assert.Equal(t, 2, res.SitesMatched)
	assert.Equal(t, 2, res.SitesUnresolvable)
	assert.Equal(t, 0.5, res.Score)
	require.Len(t, res.PerSite, 4)

	// Het direct match: dosage 1, contribution 0.5.
	assert.Equal(t, DirectMatch, res.PerSite[0].Match.Kind)
	assert.Equal(t, OrientationSame, res.PerSite[0].Match.Orientation)
	assert.Equal(t, 1, res.PerSite[0].Dosage)
	assert.Equal(t, 0.5, res.PerSite[0].Contribution)

	// No record at the position.
	assert.Equal(t, NoRecordFound, res.PerSite[1].Match.Kind)
	assert.Equal(t, DosageUnknown, res.PerSite[1].Dosage)
	assert.Zero(t, res.PerSite[1].Contribution)

	// Palindromic pair, never guessed, whatever the genotype.
	assert.Equal(t, Ambiguous, res.PerSite[2].Match.Kind)
	assert.Equal(t, DosageUnknown, res.PerSite[2].Dosage)

	// Heterozygous for a different alt counts as zero
	// copies of the modeled allele, matched rather than unresolvable.
	assert.Equal(t, DirectMatch, res.PerSite[3].Match.Kind)
	assert.Equal(t, 0, res.PerSite[3].Dosage)
	assert.Zero(t, res.PerSite[3].Contribution)
}

func TestScore_SwappedOrientation(t *testing.T) {
	// Record ref=G alt=[A], genotype (1,1) is homozygous
	// for the model's other allele.
	index := buildIndex(t, genome.GRCh38,
		record("6", 100, "G", []string{"A"}, 1, 1),
	)
	m := &model.Model{
		Build: genome.GRCh38,
		Sites: []model.Site{modelSite(genome.GRCh38, "6", 100, "G", "A", 0.5)},
	}

	res, err := NewAggregator(index).Score(context.Background(), m)
	require.NoError(t, err)

	require.Len(t, res.PerSite, 1)
	assert.Equal(t, DirectMatch, res.PerSite[0].Match.Kind)
	assert.Equal(t, OrientationSwapped, res.PerSite[0].Match.Orientation)
	assert.Equal(t, 0, res.PerSite[0].Dosage)
	assert.Zero(t, res.Score)
	assert.Equal(t, 1, res.SitesMatched)
}

// Permuting model site order changes only per-site order, never the
// aggregate numbers.
func TestScore_OrderInvariance(t *testing.T) {
	index := buildIndex(t, genome.GRCh38,
		record("1", 10, "A", []string{"G"}, 0, 1),
		record("1", 20, "C", []string{"T"}, 1, 1),
		record("2", 30, "G", []string{"A"}, 0, 0),
	)

	sites := []model.Site{
		modelSite(genome.GRCh38, "1", 10, "G", "A", 0.5),
		modelSite(genome.GRCh38, "1", 20, "T", "C", 0.25),
		modelSite(genome.GRCh38, "2", 30, "A", "G", -0.125),
		modelSite(genome.GRCh38, "3", 40, "A", "G", 1.0), // absent
	}

	agg := NewAggregator(index)
	base, err := agg.Score(context.Background(), &model.Model{Build: genome.GRCh38, Sites: sites})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for range 5 {
		perm := make([]model.Site, len(sites))
		copy(perm, sites)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

		res, err := agg.Score(context.Background(), &model.Model{Build: genome.GRCh38, Sites: perm})
		require.NoError(t, err)

		assert.InDelta(t, base.Score, res.Score, 1e-12)
		assert.Equal(t, base.SitesMatched, res.SitesMatched)
		assert.Equal(t, base.SitesUnresolvable, res.SitesUnresolvable)

		// per_site tracks the permuted input order 1:1.
		for i, sr := range res.PerSite {
			assert.Equal(t, perm[i].Coordinate, sr.Site.Coordinate)
		}
	}
}

// Adding unmatched sites raises totals and unresolvable counts equally
// and leaves the score untouched.
func TestScore_MissingDataMonotonicity(t *testing.T) {
	index := buildIndex(t, genome.GRCh38,
		record("1", 10, "A", []string{"G"}, 0, 1),
	)
	base := []model.Site{modelSite(genome.GRCh38, "1", 10, "G", "A", 0.5)}

	agg := NewAggregator(index)
	before, err := agg.Score(context.Background(), &model.Model{Build: genome.GRCh38, Sites: base})
	require.NoError(t, err)

	extended := append([]model.Site{}, base...)
	for i := range 7 {
		extended = append(extended, modelSite(genome.GRCh38, "9", int64(1000+i), "G", "A", 3.0))
	}
	after, err := agg.Score(context.Background(), &model.Model{Build: genome.GRCh38, Sites: extended})
	require.NoError(t, err)

	assert.Equal(t, before.Score, after.Score)
	assert.Equal(t, before.SitesTotal+7, after.SitesTotal)
	assert.Equal(t, before.SitesUnresolvable+7, after.SitesUnresolvable)
	assert.Equal(t, before.SitesMatched, after.SitesMatched)
}

func TestScore_CrossBuildWithTranslator(t *testing.T) {
	// GRCh37 model positions are shifted +1000 on GRCh38.
	index := buildIndex(t, genome.GRCh38,
		record("6", 1100, "A", []string{"G"}, 1, 1),
	)
	m := &model.Model{
		Build: genome.GRCh37,
		Sites: []model.Site{
			modelSite(genome.GRCh37, "6", 100, "G", "A", 0.5),
			modelSite(genome.GRCh37, "7", 100, "G", "A", 1.0), // unmapped chromosome
		},
	}

	agg := NewAggregator(index)
	agg.SetTranslator(liftover.NewTranslator(genome.GRCh37, genome.GRCh38, []liftover.Segment{
		{SrcChrom: "6", SrcStart: 0, SrcEnd: 10000, DestChrom: "6", DestStart: 1000},
	}))

	res, err := agg.Score(context.Background(), m)
	require.NoError(t, err)

	require.Len(t, res.PerSite, 2)
	assert.Equal(t, DirectMatch, res.PerSite[0].Match.Kind)
	assert.Equal(t, 2, res.PerSite[0].Dosage)
	assert.Equal(t, 1.0, res.Score)

	// An unmapped position is an unresolvable statistic, not an abort.
	assert.Equal(t, NoRecordFound, res.PerSite[1].Match.Kind)
	assert.Equal(t, 1, res.SitesUnresolvable)

	// The reported site keeps the model's original coordinate.
	assert.Equal(t, genome.NewCoordinate(genome.GRCh37, "6", 100), res.PerSite[0].Site.Coordinate)
}

func TestScore_CrossBuildReverseStrand(t *testing.T) {
	// The destination interval is reverse-strand: the model's G/A must
	// be compared as C/T on the destination plus strand.
	index := buildIndex(t, genome.GRCh38,
		record("2", 8900, "T", []string{"C"}, 0, 1),
	)
	m := &model.Model{
		Build: genome.GRCh37,
		Sites: []model.Site{modelSite(genome.GRCh37, "2", 101, "G", "A", 0.5)},
	}

	agg := NewAggregator(index)
	agg.SetTranslator(liftover.NewTranslator(genome.GRCh37, genome.GRCh38, []liftover.Segment{
		{SrcChrom: "2", SrcStart: 0, SrcEnd: 1000, DestChrom: "2", DestStart: 8999, Reverse: true},
	}))

	res, err := agg.Score(context.Background(), m)
	require.NoError(t, err)

	require.Len(t, res.PerSite, 1)
	assert.Equal(t, DirectMatch, res.PerSite[0].Match.Kind)
	assert.Equal(t, 1, res.PerSite[0].Dosage)
	assert.Equal(t, 0.5, res.Score)
}

func TestScore_CrossBuildWithoutTranslator(t *testing.T) {
	index := buildIndex(t, genome.GRCh38,
		record("6", 100, "A", []string{"G"}, 0, 1),
	)
	m := &model.Model{
		Build: genome.GRCh37,
		Sites: []model.Site{modelSite(genome.GRCh37, "6", 100, "G", "A", 0.5)},
	}

	// Never treat a build mismatch as identity: without a mapping table
	// the site is reported unresolvable even though the position would
	// coincidentally match.
	res, err := NewAggregator(index).Score(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SitesMatched)
	assert.Equal(t, 1, res.SitesUnresolvable)
	assert.Zero(t, res.Score)
}

func TestScore_Cancellation(t *testing.T) {
	index := buildIndex(t, genome.GRCh38)
	sites := make([]model.Site, 100)
	for i := range sites {
		sites[i] = modelSite(genome.GRCh38, "1", int64(i+1), "G", "A", 1.0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAggregator(index).Score(ctx, &model.Model{Build: genome.GRCh38, Sites: sites})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_Coverage(t *testing.T) {
	r := &Result{SitesTotal: 4, SitesMatched: 3}
	assert.InDelta(t, 0.75, r.Coverage(), 1e-12)

	empty := &Result{}
	assert.Zero(t, empty.Coverage())
}
