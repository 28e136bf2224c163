package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openpgx/pgscore/internal/genome"
	"github.com/openpgx/pgscore/internal/model"
	"github.com/openpgx/pgscore/internal/vcf"
)

func site(effect, other string) model.Site {
	return model.Site{
		Coordinate:   genome.NewCoordinate(genome.GRCh38, "6", 100),
		EffectAllele: effect,
		OtherAllele:  other,
		Weight:       0.5,
	}
}

func obs(ref string, alts ...string) *vcf.Record {
	return &vcf.Record{Chrom: "6", Pos: 100, Ref: ref, Alt: alts}
}

func TestMatchSite_NoRecordFound(t *testing.T) {
	m := MatchSite(site("G", "A"), nil)
	assert.Equal(t, NoRecordFound, m.Kind)
}

func TestMatchSite_Direct(t *testing.T) {
	m := MatchSite(site("G", "A"), []*vcf.Record{obs("A", "G")})
	assert.Equal(t, DirectMatch, m.Kind)
	assert.Equal(t, OrientationSame, m.Orientation)
	assert.Equal(t, "G", m.EffectAllele)
}

func TestMatchSite_Swapped(t *testing.T) {
	// The call set reports the model's effect allele as REF.
	m := MatchSite(site("G", "A"), []*vcf.Record{obs("G", "A")})
	assert.Equal(t, DirectMatch, m.Kind)
	assert.Equal(t, OrientationSwapped, m.Orientation)
	assert.Equal(t, "G", m.EffectAllele)
}

func TestMatchSite_StrandFlip(t *testing.T) {
	// Model G/A appears only as complements C/T: reported on the other strand.
	m := MatchSite(site("G", "A"), []*vcf.Record{obs("T", "C")})
	assert.Equal(t, StrandFlipMatch, m.Kind)
	assert.Equal(t, "C", m.EffectAllele, "dosage is computed against the complemented effect allele")
}

func TestMatchSite_DirectWinsOverFlip(t *testing.T) {
	// Both representations exist; identity has precedence.
	m := MatchSite(site("G", "A"), []*vcf.Record{obs("T", "C"), obs("A", "G")})
	assert.Equal(t, DirectMatch, m.Kind)
}

func TestMatchSite_PalindromicAlwaysAmbiguous(t *testing.T) {
	pairs := [][2]string{{"A", "T"}, {"T", "A"}, {"C", "G"}, {"G", "C"}}
	for _, p := range pairs {
		m := MatchSite(site(p[0], p[1]), []*vcf.Record{obs(p[1], p[0])})
		assert.Equal(t, Ambiguous, m.Kind, "palindromic pair %v must never be guessed", p)
		assert.Equal(t, "palindromic", m.Reason)
	}
}

func TestMatchSite_AlleleMismatch(t *testing.T) {
	m := MatchSite(site("G", "A"), []*vcf.Record{obs("C", "T", "A")})
	assert.Equal(t, AlleleMismatch, m.Kind)
}

func TestMatchSite_IndelNoFlip(t *testing.T) {
	// Multi-base alleles never go through strand-flip resolution.
	m := MatchSite(site("AT", "A"), []*vcf.Record{obs("T", "TA")})
	assert.Equal(t, AlleleMismatch, m.Kind)

	m = MatchSite(site("AT", "A"), []*vcf.Record{obs("A", "AT")})
	assert.Equal(t, DirectMatch, m.Kind, "indels still match directly")
}

func TestMatchSite_MultiAllelic(t *testing.T) {
	m := MatchSite(site("G", "C"), []*vcf.Record{obs("C", "G", "T")})
	assert.Equal(t, DirectMatch, m.Kind)
	assert.Equal(t, OrientationSame, m.Orientation)
}

// Complementing both the model's alleles and the observed record's
// alleles yields the same classification for non-palindromic sites.
func TestMatchSite_StrandSymmetry(t *testing.T) {
	cases := []struct {
		effect, other string
		ref           string
		alts          []string
	}{
		{"G", "A", "A", []string{"G"}},
		{"G", "A", "G", []string{"A"}},
		{"C", "T", "T", []string{"C", "A"}},
	}

	for _, c := range cases {
		orig := MatchSite(site(c.effect, c.other), []*vcf.Record{obs(c.ref, c.alts...)})

		cEffect, _ := genome.Complement(c.effect)
		cOther, _ := genome.Complement(c.other)
		cRef, _ := genome.Complement(c.ref)
		cAlts := make([]string, len(c.alts))
		for i, a := range c.alts {
			cAlts[i], _ = genome.Complement(a)
		}
		flipped := MatchSite(site(cEffect, cOther), []*vcf.Record{obs(cRef, cAlts...)})

		assert.Equal(t, orig.Kind, flipped.Kind, "case %+v", c)
		assert.Equal(t, orig.Orientation, flipped.Orientation, "case %+v", c)
	}
}
