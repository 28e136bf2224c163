package score

// DosageUnknown marks a site whose effect-allele dosage cannot be
// determined. Unknown sites contribute nothing to the score and are
// counted as unresolvable.
const DosageUnknown = -1

// ResolveDosage converts a match plus its record's diploid genotype
// call into the number of effect-allele copies (0, 1, or 2), or
// DosageUnknown.
//
// At a multi-allelic site the model's effect allele corresponds to one
// specific ALT; a genotype carrying a different ALT counts as dosage 0,
// not Unknown, because it genuinely carries zero copies of the modeled
// allele.
func ResolveDosage(m Match) int {
	switch m.Kind {
	case DirectMatch, StrandFlipMatch:
	default:
		return DosageUnknown
	}

	rec := m.Record
	if rec == nil || rec.Genotype.Missing {
		return DosageUnknown
	}

	dosage := 0
	for _, idx := range [2]int{rec.Genotype.A1, rec.Genotype.A2} {
		allele, ok := rec.Allele(idx)
		if !ok {
			return DosageUnknown
		}
		if allele == m.EffectAllele {
			dosage++
		}
	}
	return dosage
}
