// Package vcf provides streaming VCF call-set parsing.
package vcf

import "github.com/openpgx/pgscore/internal/genome"

// Genotype is a diploid call as a pair of allele indices into the
// record's {REF} ∪ ALT list (0 = REF, i = ALT[i-1]).
type Genotype struct {
	A1, A2  int
	Missing bool
}

// Record is one observed variant from a personal call set. Multi-allelic
// sites are kept as a single record carrying the full ALT list, because
// the genotype indices reference that list.
type Record struct {
	Chrom    string // as written in the file; canonicalized at index time
	Pos      int64  // 1-based
	ID       string
	Ref      string
	Alt      []string // ordered alternate alleles, referenced by index 1..len
	Genotype Genotype
}

// Allele returns the allele string for a genotype index (0 = REF).
// ok is false when the index is out of range.
func (r *Record) Allele(i int) (string, bool) {
	if i == 0 {
		return r.Ref, true
	}
	if i < 1 || i > len(r.Alt) {
		return "", false
	}
	return r.Alt[i-1], true
}

// HasAllele reports whether the given allele appears as REF or any ALT.
func (r *Record) HasAllele(allele string) bool {
	if r.Ref == allele {
		return true
	}
	for _, alt := range r.Alt {
		if alt == allele {
			return true
		}
	}
	return false
}

// IsSNV returns true if REF and every ALT are single bases.
func (r *Record) IsSNV() bool {
	if len(r.Ref) != 1 {
		return false
	}
	for _, alt := range r.Alt {
		if len(alt) != 1 {
			return false
		}
	}
	return true
}

// NormalizeChrom returns the canonical chromosome name.
func (r *Record) NormalizeChrom() string {
	return genome.CanonicalChrom(r.Chrom)
}
