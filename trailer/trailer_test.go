package trailer

import (
	"strings"
	"testing"

	"github.com/WilsonNous/netunna-rede-splitter-v2/aggregate"
	"github.com/WilsonNous/netunna-rede-splitter-v2/layout"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

func TestSynthesizeEEVC(t *testing.T) {
	b := types.NewPVBucket(types.PV("020770677"))
	b.AddCents(aggregate.DimLiquido, 12345)

	lines := Synthesize(types.KindEEVC, 0, b, types.MotherTrailer{})
	if len(lines) != 1 {
		t.Fatalf("expected 1 trailer line, got %d", len(lines))
	}
	rl, _ := layout.Lookup(types.KindEEVC, "026")
	if len(lines[0]) != rl.Width {
		t.Fatalf("trailer width = %d, want %d", len(lines[0]), rl.Width)
	}
	if !strings.HasPrefix(lines[0], "026") {
		t.Fatalf("trailer should start with type code 026: %q", lines[0])
	}
	f, _ := rl.FieldByName("valor_total_liquido")
	raw, err := layout.Slice(lines[0], f, 0)
	if err != nil {
		t.Fatal(err)
	}
	cents, err := layout.ParseMoney(raw)
	if err != nil {
		t.Fatal(err)
	}
	if cents != 12345 {
		t.Fatalf("valor_total_liquido = %d, want 12345", cents)
	}
}

func TestSynthesizeEEFIWidth(t *testing.T) {
	b := types.NewPVBucket(types.PV("020770677"))
	b.TypeCounts["034"] = 2
	b.AddCents(aggregate.DimCredNorm, 500)

	lines := Synthesize(types.KindEEFI, types.EEFIComplete, b, types.MotherTrailer{})
	rl, _ := layout.Lookup(types.KindEEFI, "052")
	if len(lines) != 1 || len(lines[0]) != rl.Width {
		t.Fatalf("synthesizeEEFI produced %v, want width %d", lines, rl.Width)
	}
}

func TestSynthesizeEEVDProducesThreeTrailers(t *testing.T) {
	b := types.NewPVBucket(types.PV("020770677"))
	b.Counters = map[string]int{aggregate.CounterQtdRV: 2, aggregate.CounterQtdCV: 1}
	b.AddCents(aggregate.DimBruto, 1000)
	b.AddCents(aggregate.DimDesconto, 100)
	b.AddCents(aggregate.DimLiquido, 900)

	mother := types.MotherTrailer{MatrixOrGroup: "999999999"}
	lines := Synthesize(types.KindEEVD, 0, b, mother)
	if len(lines) != 3 {
		t.Fatalf("expected 3 EEVD trailer lines, got %d", len(lines))
	}

	wantPer := "02,020770677,002,000001,000000000001000,000000000000100,000000000000900,000000000000000,000000000000000,000000000000000"
	if lines[0] != wantPer {
		t.Fatalf("02 trailer = %q, want %q", lines[0], wantPer)
	}
	wantMatrix := "03,999999999,002,000001,000000000001000,000000000000100,000000000000900,000000000000000,000000000000000,000000000000000"
	if lines[1] != wantMatrix {
		t.Fatalf("03 trailer = %q, want %q", lines[1], wantMatrix)
	}
	wantFile := "04,020770677,000002,000001,000000000001000,000000000000100,000000000000900,000000000000000,000000000000000,000000000000000"
	if lines[2] != wantFile {
		t.Fatalf("04 trailer = %q, want %q", lines[2], wantFile)
	}
}

func TestAppendTotalRecords(t *testing.T) {
	got := AppendTotalRecords("04,020770677", 5)
	want := "04,020770677,000009" // 5 details + header + 3 trailers, zero-padded to 6 digits
	if got != want {
		t.Fatalf("AppendTotalRecords = %q, want %q", got, want)
	}
}
