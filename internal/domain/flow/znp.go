package flow

import "time"

// DefaultPrevPeriodOffsetDays is how far back the "previous period" prefix
// reaches. The period stamp is month-granular, so any value that always
// lands in the previous month works; 32 is the canonical choice.
const DefaultPrevPeriodOffsetDays = 32

const periodStampLayout = "0106" // MMYY

// PeriodStamp encodes a date as the 4-digit MMYY stamp used in reference
// code prefixes.
func PeriodStamp(t time.Time) string {
	return t.Format(periodStampLayout)
}

// ValidPrefixes computes the 4 reference-code prefixes accepted at the
// given moment: {D,L} x {current period, previous period}. Validity is a
// pure function of the wall clock, never of conversation age, so callers
// must recompute at the moment of validation.
func ValidPrefixes(now time.Time, prevOffsetDays int) []string {
	if prevOffsetDays <= 0 {
		prevOffsetDays = DefaultPrevPeriodOffsetDays
	}
	cur := PeriodStamp(now)
	prev := PeriodStamp(now.AddDate(0, 0, -prevOffsetDays))
	return []string{"D" + cur, "L" + cur, "D" + prev, "L" + prev}
}
