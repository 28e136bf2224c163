package genome

import "strings"

var complement = map[byte]byte{
	'A': 'T',
	'T': 'A',
	'C': 'G',
	'G': 'C',
}

// ValidAllele reports whether an allele string is a non-empty sequence
// over {A,C,G,T}. Symbolic alleles (<DEL>, <INS>, breakends) are not
// valid: scoring only handles fully spelled-out allele sequences.
func ValidAllele(allele string) bool {
	if allele == "" {
		return false
	}
	for i := 0; i < len(allele); i++ {
		if _, ok := complement[allele[i]]; !ok {
			return false
		}
	}
	return true
}

// NormalizeAllele upper-cases an allele string.
func NormalizeAllele(allele string) string {
	return strings.ToUpper(strings.TrimSpace(allele))
}

// Complement returns the base-pair complement of each base in the
// allele, preserving order. ok is false if any base is outside {A,C,G,T}.
func Complement(allele string) (string, bool) {
	b := make([]byte, len(allele))
	for i := 0; i < len(allele); i++ {
		c, ok := complement[allele[i]]
		if !ok {
			return "", false
		}
		b[i] = c
	}
	return string(b), true
}

// ReverseComplement returns the reverse complement of the allele, used
// when a liftover interval maps to the opposite strand. ok is false if
// any base is outside {A,C,G,T}.
func ReverseComplement(allele string) (string, bool) {
	b := make([]byte, len(allele))
	for i := 0; i < len(allele); i++ {
		c, ok := complement[allele[len(allele)-1-i]]
		if !ok {
			return "", false
		}
		b[i] = c
	}
	return string(b), true
}

// IsPalindromic reports whether two single-base alleles are a
// complementary pair (A/T or C/G). For such sites strand orientation
// cannot be recovered from allele content alone.
func IsPalindromic(a, b string) bool {
	if len(a) != 1 || len(b) != 1 {
		return false
	}
	c, ok := Complement(a)
	return ok && c == b
}
