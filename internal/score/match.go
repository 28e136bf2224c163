// Package score matches model sites against observed genotypes and
// aggregates effect-allele dosages into a polygenic score.
package score

import (
	"github.com/openpgx/pgscore/internal/genome"
	"github.com/openpgx/pgscore/internal/model"
	"github.com/openpgx/pgscore/internal/vcf"
)

// MatchKind classifies how a model site relates to the observed records
// at its coordinate.
type MatchKind int

const (
	// NoRecordFound: the call set has no record at the site's coordinate.
	NoRecordFound MatchKind = iota
	// DirectMatch: both model alleles appear in a record as written.
	DirectMatch
	// StrandFlipMatch: both model alleles appear only as their
	// base-pair complements; the model was reported on the other strand.
	StrandFlipMatch
	// Ambiguous: the true strand cannot be determined from allele
	// content. Ambiguous sites are excluded from scoring, never guessed.
	Ambiguous
	// AlleleMismatch: records exist but carry neither orientation of
	// the model's alleles.
	AlleleMismatch
)

func (k MatchKind) String() string {
	switch k {
	case NoRecordFound:
		return "no_record"
	case DirectMatch:
		return "direct"
	case StrandFlipMatch:
		return "strand_flip"
	case Ambiguous:
		return "ambiguous"
	case AlleleMismatch:
		return "allele_mismatch"
	default:
		return "unknown"
	}
}

// Orientation records whether the model's effect allele corresponds to
// the record's REF (Swapped) or one of its ALTs (Same).
type Orientation int

const (
	OrientationSame Orientation = iota
	OrientationSwapped
)

func (o Orientation) String() string {
	if o == OrientationSwapped {
		return "swapped"
	}
	return "same"
}

// Match is the outcome of resolving one model site against its
// candidate records. EffectAllele is the allele to count in the winning
// record's allele space: the model's effect allele for a direct match,
// its complement for a strand flip.
type Match struct {
	Kind         MatchKind
	Orientation  Orientation
	Record       *vcf.Record
	EffectAllele string
	Reason       string // set for Ambiguous and synthetic NoRecordFound
}

// MatchSite resolves how a model site's alleles are represented among
// the candidate records. Precedence, first success wins:
//
//  1. no candidates → NoRecordFound
//  2. both model alleles present as written → DirectMatch, unless the
//     pair is palindromic, in which case the strand is unknowable and
//     the result is Ambiguous
//  3. both complements present (single-base alleles only) → StrandFlipMatch
//  4. otherwise → AlleleMismatch
//
// Callers must never substitute a guess for Ambiguous or AlleleMismatch:
// a wrong strand resolution silently flips the sign of a contribution.
func MatchSite(site model.Site, candidates []*vcf.Record) Match {
	if len(candidates) == 0 {
		return Match{Kind: NoRecordFound}
	}

	effect := site.EffectAllele
	other := site.OtherAllele
	palindromic := genome.IsPalindromic(effect, other)

	for _, rec := range candidates {
		if rec.HasAllele(effect) && rec.HasAllele(other) {
			if palindromic {
				return Match{Kind: Ambiguous, Record: rec, Reason: "palindromic"}
			}
			return Match{
				Kind:         DirectMatch,
				Orientation:  orientationFor(rec, effect),
				Record:       rec,
				EffectAllele: effect,
			}
		}
	}

	// Strand-flip resolution only makes sense for single-base alleles;
	// an indel with no direct match is a mismatch.
	if len(effect) == 1 && len(other) == 1 {
		cEffect, ok1 := genome.Complement(effect)
		cOther, ok2 := genome.Complement(other)
		if ok1 && ok2 {
			for _, rec := range candidates {
				if rec.HasAllele(cEffect) && rec.HasAllele(cOther) {
					return Match{
						Kind:         StrandFlipMatch,
						Orientation:  orientationFor(rec, cEffect),
						Record:       rec,
						EffectAllele: cEffect,
					}
				}
			}
		}
	}

	return Match{Kind: AlleleMismatch}
}

func orientationFor(rec *vcf.Record, effect string) Orientation {
	if rec.Ref == effect {
		return OrientationSwapped
	}
	return OrientationSame
}
