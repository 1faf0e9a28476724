// Package aggregate implements the Aggregator: given a PV and a classified
// record from the Router, it updates that PV's running dimension totals and
// counters using the kind-specific sign/inclusion rules below. It holds no
// file-level state of its own beyond the open types.PVBucket table, matching
// the single-threaded-per-mother-file model.
package aggregate

import (
	"github.com/WilsonNous/netunna-rede-splitter-v2/ferr"
	"github.com/WilsonNous/netunna-rede-splitter-v2/layout"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

// Dimension names, shared with the Trailer Synthesizer and Reconciler.
const (
	DimBruto       = "bruto"
	DimDesconto    = "desconto"
	DimLiquido     = "liquido"
	DimBrutoPre    = "bruto_pre"
	DimDescontoPre = "desconto_pre"
	DimLiquidoPre  = "liquido_pre"
	DimCredNorm    = "cred_norm"
	DimAntecipacao = "antecipacao"
	DimAjusteCred  = "ajuste_cred"
	DimAjusteDeb   = "ajuste_deb"
	DimReconTotal  = "total" // EEFI's signed reconciliation total
)

// Counter names.
const (
	CounterQtdRV     = "qtd_rv"
	CounterQtdCV     = "qtd_cv"
	CounterMatrizes  = "qtde_matrizes"
	CounterRegistros = "qtde_registros"
)

// Aggregator accumulates per-PV totals for one mother file.
type Aggregator struct {
	kind    types.FileKind
	buckets map[types.PV]*types.PVBucket
	order   []types.PV
}

// New returns an empty Aggregator for kind.
func New(kind types.FileKind) *Aggregator {
	return &Aggregator{kind: kind, buckets: make(map[types.PV]*types.PVBucket)}
}

// bucket returns (creating if necessary) the PVBucket for pv, recording
// first-seen order so output is deterministic.
func (a *Aggregator) bucket(pv types.PV) *types.PVBucket {
	b, ok := a.buckets[pv]
	if !ok {
		b = types.NewPVBucket(pv)
		a.buckets[pv] = b
		a.order = append(a.order, pv)
	}
	return b
}

// Buckets returns every open bucket in first-seen order.
func (a *Aggregator) Buckets() []*types.PVBucket {
	out := make([]*types.PVBucket, 0, len(a.order))
	for _, pv := range a.order {
		out = append(out, a.buckets[pv])
	}
	return out
}

// Add attaches rec to pv's bucket (recording it for the Child Writer and
// incrementing its type counter) and applies the kind's sign/inclusion
// rule to update dimension totals.
func (a *Aggregator) Add(pv types.PV, rec types.Record) error {
	b := a.bucket(pv)
	b.Records = append(b.Records, rec)
	b.TypeCounts[rec.TypeCode]++

	switch a.kind {
	case types.KindEEFI:
		return a.addEEFI(b, rec)
	case types.KindEEVC:
		return a.addEEVC(b, rec)
	case types.KindEEVD:
		return a.addEEVD(b, rec)
	}
	return nil
}

func (a *Aggregator) addEEVC(b *types.PVBucket, rec types.Record) error {
	switch rec.TypeCode {
	case "006", "010", "016", "022":
		rl, _ := layout.Lookup(types.KindEEVC, rec.TypeCode)
		f, _ := rl.FieldByName("valor_liquido")
		raw, err := layout.Slice(rec.Raw, f, rec.LineNo)
		if err != nil {
			return ferr.Wrap(ferr.LayoutError, err)
		}
		cents, err := layout.ParseMoney(raw)
		if err != nil {
			return ferr.Wrap(ferr.InputError, err)
		}
		b.AddCents(DimLiquido, cents)
	}
	// 008/012/014/018/024 are carried into the child via b.Records above
	// but never contribute to the reconciliation sum.
	return nil
}

func (a *Aggregator) addEEVD(b *types.PVBucket, rec types.Record) error {
	switch rec.TypeCode {
	case "01", "012", "013":
		bruto, err := parseEEVDMoney(rec, layout.EEVDDetailBruto)
		if err != nil {
			return err
		}
		desconto, err := parseEEVDMoney(rec, layout.EEVDDetailDesconto)
		if err != nil {
			return err
		}
		liquido, err := parseEEVDMoney(rec, layout.EEVDDetailLiquido)
		if err != nil {
			return err
		}
		b.AddCents(DimBruto, bruto)
		b.AddCents(DimDesconto, desconto)
		b.AddCents(DimLiquido, liquido)
		if layout.CSVField(rec.CSVFields, layout.EEVDDetailPreFlag) == "P" {
			b.AddCents(DimBrutoPre, bruto)
			b.AddCents(DimDescontoPre, desconto)
			b.AddCents(DimLiquidoPre, liquido)
		}
		// Each row declares how many CVs its RV bundles; the trailer's
		// qtd_cv is the sum of those, not the row count.
		qtdCV, err := layout.ParseCounter(layout.CSVField(rec.CSVFields, layout.EEVDDetailQtdCV))
		if err != nil {
			return ferr.Wrap(ferr.InputError, err)
		}
		b.Counters[CounterQtdCV] += qtdCV
		if rec.TypeCode == "01" {
			b.Counters[CounterQtdRV]++
		}
	case "011":
		// Cancellation: kept in the child and its own counters, but
		// explicitly excluded from the reconciliation sum.
		b.Counters["qtd_cancelamento"]++
	}
	// 05,13,20,08,09,11,17,18,19 are routed but not summed, pending
	// acquirer confirmation that any of them should contribute.
	return nil
}

func parseEEVDMoney(rec types.Record, idx int) (types.Cents, error) {
	raw := layout.CSVField(rec.CSVFields, idx)
	cents, err := layout.ParseMoney(raw)
	if err != nil {
		return 0, ferr.Wrap(ferr.InputError, err)
	}
	return cents, nil
}

func (a *Aggregator) addEEFI(b *types.PVBucket, rec types.Record) error {
	switch rec.TypeCode {
	case "034", "040":
		return addEEFIValue(b, rec, rec.TypeCode, DimCredNorm)
	case "036":
		return addEEFIValue(b, rec, "036", DimAntecipacao)
	case "043":
		return addEEFIValue(b, rec, "043", DimAjusteCred)
	case "035", "038":
		return addEEFIValue(b, rec, rec.TypeCode, DimAjusteDeb)
	case "045":
		return addEEFIValue(b, rec, "045", DimAjusteDeb)
	}
	return nil
}

// addEEFIValue slices the "valor" field using layoutType's declared byte
// range (040/045 share the same range as each other but differ from
// 034/035/036/038/043) and adds it into dimension.
func addEEFIValue(b *types.PVBucket, rec types.Record, layoutType, dimension string) error {
	rl, ok := layout.Lookup(types.KindEEFI, layoutType)
	if !ok {
		return nil
	}
	f, ok := rl.FieldByName("valor")
	if !ok {
		return nil
	}
	raw, err := layout.Slice(rec.Raw, f, rec.LineNo)
	if err != nil {
		return ferr.Wrap(ferr.LayoutError, err)
	}
	cents, err := layout.ParseMoney(raw)
	if err != nil {
		return ferr.Wrap(ferr.InputError, err)
	}
	b.AddCents(dimension, cents)
	return nil
}

// EEFITotal returns cred_norm + antecipacao + ajuste_cred - ajuste_deb for
// bucket, the signed per-PV reconciliation total.
func EEFITotal(b *types.PVBucket) types.Cents {
	return b.Totals[DimCredNorm] + b.Totals[DimAntecipacao] + b.Totals[DimAjusteCred] - b.Totals[DimAjusteDeb]
}
