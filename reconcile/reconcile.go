// Package reconcile implements the Reconciler: it compares the mother
// file's declared trailer totals against the Aggregator's computed sums
// across every PVBucket and produces a structured Verdict, per dimension,
// without aborting the run on divergence.
package reconcile

import (
	"fmt"

	"github.com/WilsonNous/netunna-rede-splitter-v2/aggregate"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

// dimensionsByKind lists, for each kind, the dimensions the Reconciler
// compares and the order they appear in the Verdict.
var dimensionsByKind = map[types.FileKind][]string{
	types.KindEEVC: {aggregate.DimLiquido},
	types.KindEEVD: {aggregate.DimBruto, aggregate.DimDesconto, aggregate.DimLiquido},
	types.KindEEFI: {aggregate.DimReconTotal},
}

// Reconcile sums dimension totals across every bucket and compares them
// against mother's declared totals, within tolerance cents (0 means exact).
// For EEFI, mother.Totals[aggregate.DimReconTotal] must be the mother 052's
// signed total; the computed side is aggregate.EEFITotal summed over the
// buckets here (see computeTotals below).
func Reconcile(kind types.FileKind, mother types.MotherTrailer, buckets []*types.PVBucket, tolerance types.Cents) types.Verdict {
	computed := computeTotals(kind, buckets)

	v := types.Verdict{Kind: kind, OK: true}
	for _, dim := range dimensionsByKind[kind] {
		expected := mother.Totals[dim]
		got := computed[dim]
		delta := expected - got
		if delta < 0 {
			delta = -delta
		}
		ok := delta <= tolerance
		detail := "OK"
		if !ok {
			direction := "low"
			if got > expected {
				direction = "high"
			}
			detail = fmt.Sprintf("divergence of %d cents (%s)", delta, direction)
		}
		v.Dimensions = append(v.Dimensions, types.DimensionVerdict{
			Dimension: dim,
			Expected:  expected,
			Computed:  got,
			OK:        ok,
			Detail:    detail,
		})
		if !ok {
			v.OK = false
		}
	}
	return v
}

// computeTotals sums the reconciliation dimension(s) across every bucket.
// EEFI's single signed dimension is derived via aggregate.EEFITotal rather
// than read directly off b.Totals, since it is a combination of four
// underlying dimensions.
func computeTotals(kind types.FileKind, buckets []*types.PVBucket) map[string]types.Cents {
	sums := make(map[string]types.Cents)
	for _, b := range buckets {
		switch kind {
		case types.KindEEFI:
			sums[aggregate.DimReconTotal] += aggregate.EEFITotal(b)
		default:
			for _, dim := range dimensionsByKind[kind] {
				sums[dim] += b.Totals[dim]
			}
		}
	}
	return sums
}
