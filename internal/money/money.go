// Package money converts between the core's micro-USD unit and payment
// processor cents. All internal amounts are integers in micro-USD
// (1 unit = $0.000001); cents appear only at the processor boundary.
package money

const MicroPerCent = 10_000

// ToCents floors a micro-USD amount to whole cents.
func ToCents(micro int64) int64 {
	return micro / MicroPerCent
}

// FromCents converts cents to micro-USD exactly.
func FromCents(cents int64) int64 {
	return cents * MicroPerCent
}
