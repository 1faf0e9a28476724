// Package trailer implements the Trailer Synthesizer: given one PVBucket's
// aggregated totals, it rebuilds the per-PV trailer record(s) in the exact
// on-wire format the Layout Registry declares, so that a downstream
// consumer of a child file cannot tell the trailer was recomputed rather
// than copied from the mother.
package trailer

import (
	"strings"

	"github.com/WilsonNous/netunna-rede-splitter-v2/aggregate"
	"github.com/WilsonNous/netunna-rede-splitter-v2/layout"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

// Synthesize rebuilds the trailer line(s) for bucket under kind/mode. mother
// carries the matrix/group identifier EEVD's 03 "matrix copy" trailer
// needs; the other kinds do not use it. It returns the trailer lines in the
// order they must be appended to the child file.
func Synthesize(kind types.FileKind, mode types.EEFIMode, bucket *types.PVBucket, mother types.MotherTrailer) []string {
	switch kind {
	case types.KindEEFI:
		return []string{synthesizeEEFI(bucket)}
	case types.KindEEVC:
		return []string{synthesizeEEVC(bucket)}
	case types.KindEEVD:
		return synthesizeEEVD(bucket, mother)
	default:
		return nil
	}
}

// fixedWidthLine returns a width-byte buffer of '0' bytes with typeCode
// written at its first three bytes; money/numeric fields are zero-padded
// like every other digit field in these layouts, so
// starting from an all-zero buffer and overlaying only the named
// fields reproduces the "remaining fields zeroed" rule without having to
// enumerate every unused byte individually.
func fixedWidthLine(width int, typeCode string) []byte {
	buf := make([]byte, width)
	for i := range buf {
		buf[i] = '0'
	}
	copy(buf, typeCode)
	return buf
}

func overlay(buf []byte, f layout.Field, value string) {
	if f.End > len(buf) {
		return
	}
	copy(buf[f.Start:f.End], value)
}

// synthesizeEEFI rebuilds the 052 trailer: one physical 400-char,
// zero/space-padded line.
func synthesizeEEFI(b *types.PVBucket) string {
	rl, _ := layout.Lookup(types.KindEEFI, "052")
	buf := make([]byte, rl.Width)
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf, "052")

	set := func(name string, value string) {
		f, ok := rl.FieldByName(name)
		if ok {
			overlay(buf, f, value)
		}
	}

	qtdeRegistros := 0
	for _, n := range b.TypeCounts {
		qtdeRegistros += n
	}

	set("qtde_matrizes", layout.PadCounter(1, mustWidth(rl, "qtde_matrizes")))
	set("qtde_registros", layout.PadCounter(qtdeRegistros, mustWidth(rl, "qtde_registros")))
	set("pv_solicitante", string(b.PV.Normalize()))
	set("qtd_cred_norm", layout.PadCounter(b.TypeCounts["034"]+b.TypeCounts["040"], mustWidth(rl, "qtd_cred_norm")))
	set("valor_rv", layout.PadMoney(b.Totals[aggregate.DimCredNorm], mustWidth(rl, "valor_rv")))
	set("qtd_ant", layout.PadCounter(b.TypeCounts["036"], mustWidth(rl, "qtd_ant")))
	set("valor_ant", layout.PadMoney(b.Totals[aggregate.DimAntecipacao], mustWidth(rl, "valor_ant")))
	set("qtd_aj_cred", layout.PadCounter(b.TypeCounts["043"], mustWidth(rl, "qtd_aj_cred")))
	set("valor_aj_cred", layout.PadMoney(b.Totals[aggregate.DimAjusteCred], mustWidth(rl, "valor_aj_cred")))
	set("qtd_aj_deb", layout.PadCounter(b.TypeCounts["035"]+b.TypeCounts["038"]+b.TypeCounts["045"], mustWidth(rl, "qtd_aj_deb")))
	set("valor_aj_deb", layout.PadMoney(b.Totals[aggregate.DimAjusteDeb], mustWidth(rl, "valor_aj_deb")))

	return string(buf)
}

// synthesizeEEVC rebuilds the 026 trailer: type + pv + the single named
// total-liquido field, everything else zeroed.
func synthesizeEEVC(b *types.PVBucket) string {
	rl, _ := layout.Lookup(types.KindEEVC, "026")
	buf := fixedWidthLine(rl.Width, "026")

	if f, ok := rl.FieldByName("pv"); ok {
		overlay(buf, f, string(b.PV.Normalize()))
	}
	if f, ok := rl.FieldByName("valor_total_liquido"); ok {
		overlay(buf, f, layout.PadMoney(b.Totals[aggregate.DimLiquido], f.Width()))
	}
	return string(buf)
}

// eevdMoneyWidth and eevdCounterWidth are the declared widths of EEVD's
// 9(15)V99-style money fields and qtd_cv/total-records counters across all
// three trailer types; qtd_rv's width differs between "02"/"03" (3) and
// "04" (6).
const (
	eevdMoneyWidth        = 15
	eevdCounterWidth      = 6
	eevdQtdRVWidthPerPV   = 3
	eevdQtdRVWidthPerFile = 6
)

// synthesizeEEVD rebuilds the three CSV trailers every child carries: "02" (per-PV), "03" (matrix copy), "04" (file-level
// for this child). Every numeric field is zero-padded to its declared
// width, not emitted as a bare decimal: money fields to 15 digits, qtd_cv
// to 6, and qtd_rv to 3 on "02"/"03" but 6 on "04". totalRecords is
// computed by the caller (splitter package), which knows the
// header+detail line count; here we only place the per-dimension sums.
func synthesizeEEVD(b *types.PVBucket, mother types.MotherTrailer) []string {
	fields := func(typeCode, pv string, qtdRVWidth int) []string {
		return []string{
			typeCode,
			pv,
			layout.PadCounter(b.Counters[aggregate.CounterQtdRV], qtdRVWidth),
			layout.PadCounter(b.Counters[aggregate.CounterQtdCV], eevdCounterWidth),
			layout.PadMoney(b.Totals[aggregate.DimBruto], eevdMoneyWidth),
			layout.PadMoney(b.Totals[aggregate.DimDesconto], eevdMoneyWidth),
			layout.PadMoney(b.Totals[aggregate.DimLiquido], eevdMoneyWidth),
			layout.PadMoney(b.Totals[aggregate.DimBrutoPre], eevdMoneyWidth),
			layout.PadMoney(b.Totals[aggregate.DimDescontoPre], eevdMoneyWidth),
			layout.PadMoney(b.Totals[aggregate.DimLiquidoPre], eevdMoneyWidth),
		}
	}

	per := strings.Join(fields("02", string(b.PV), eevdQtdRVWidthPerPV), ",")
	// "03" is the matrix copy: same per-PV sums, but carries the mother's
	// matrix/group identifier in the PV position instead of the bucket PV
	// (MatrixOrGroup is echoed into the child trailers).
	matrixPV := mother.MatrixOrGroup
	if matrixPV == "" {
		matrixPV = string(b.PV)
	}
	matrix := strings.Join(fields("03", matrixPV, eevdQtdRVWidthPerPV), ",")
	file := strings.Join(fields("04", string(b.PV), eevdQtdRVWidthPerFile), ",")

	return []string{per, matrix, file}
}

// AppendTotalRecords appends the "total records" field to the "04"
// trailer: header + details + 3 trailer lines,
// zero-padded to the same 6-digit width as the other EEVD counters.
func AppendTotalRecords(line string, detailCount int) string {
	return line + "," + layout.PadCounter(detailCount+1+3, eevdCounterWidth)
}

func mustWidth(rl layout.RecordLayout, name string) int {
	f, ok := rl.FieldByName(name)
	if !ok {
		return 0
	}
	return f.Width()
}
