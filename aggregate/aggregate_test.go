package aggregate

import (
	"strings"
	"testing"

	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

func pad(prefix string, valueStart int) string {
	s := prefix
	for len(s) < valueStart {
		s += " "
	}
	return s
}

func TestAggregateEEVC(t *testing.T) {
	a := New(types.KindEEVC)
	pv := types.PV("020770677")

	line1 := pad("006", 114) + "000000000012345"
	line2 := pad("010", 114) + "000000000023456"
	// 008 must not contribute.
	line3 := pad("008", 114) + "000000000099999"

	for _, rec := range []types.Record{
		{TypeCode: "006", Raw: line1, LineNo: 1},
		{TypeCode: "010", Raw: line2, LineNo: 2},
		{TypeCode: "008", Raw: line3, LineNo: 3},
	} {
		if err := a.Add(pv, rec); err != nil {
			t.Fatal(err)
		}
	}

	b := a.Buckets()[0]
	if b.Totals[DimLiquido] != 35801 {
		t.Fatalf("liquido = %d, want 35801", b.Totals[DimLiquido])
	}
	if len(b.Records) != 3 {
		t.Fatalf("expected all 3 records carried into child, got %d", len(b.Records))
	}
}

func TestAggregateEEVDExcludesCancellation(t *testing.T) {
	a := New(types.KindEEVD)
	pv := types.PV("020770677")

	detail := types.Record{
		TypeCode:  "01",
		CSVFields: strings.Split("01,020770677,x,x,RV1,1,30000,100,29900,", ","),
	}
	cancellation := types.Record{
		TypeCode:  "011",
		CSVFields: strings.Split("011,020770677,x,x,RV1", ","),
	}
	if err := a.Add(pv, detail); err != nil {
		t.Fatal(err)
	}
	if err := a.Add(pv, cancellation); err != nil {
		t.Fatal(err)
	}

	b := a.Buckets()[0]
	if b.Totals[DimBruto] != 30000 || b.Totals[DimDesconto] != 100 || b.Totals[DimLiquido] != 29900 {
		t.Fatalf("totals = %+v, want bruto=30000 desconto=100 liquido=29900", b.Totals)
	}
	if len(b.Records) != 2 {
		t.Fatalf("expected cancellation carried into child records, got %d", len(b.Records))
	}
	if b.Counters[CounterQtdRV] != 1 || b.Counters[CounterQtdCV] != 1 {
		t.Fatalf("counters = %+v, want qtd_rv=1 qtd_cv=1", b.Counters)
	}
}

func TestAggregateEEFISignedTotal(t *testing.T) {
	a := New(types.KindEEFI)
	pv := types.PV("020770677")

	credLine := pad("034", 31) + "000000000000100"
	debLine := pad("035", 29) + "000000000000050"

	if err := a.Add(pv, types.Record{TypeCode: "034", Raw: credLine, LineNo: 1}); err != nil {
		t.Fatal(err)
	}
	if err := a.Add(pv, types.Record{TypeCode: "035", Raw: debLine, LineNo: 2}); err != nil {
		t.Fatal(err)
	}

	b := a.Buckets()[0]
	if got := EEFITotal(b); got != 50 {
		t.Fatalf("EEFITotal = %d, want 50", got)
	}
}
