package layout

import (
	"testing"

	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

func TestParseMoneyAndPadMoney(t *testing.T) {
	tests := []struct {
		raw  string
		want types.Cents
	}{
		{"000000012345", 12345},
		{"            ", 0},
		{"", 0},
	}
	for _, tt := range tests {
		got, err := ParseMoney(tt.raw)
		if err != nil {
			t.Fatalf("ParseMoney(%q) error: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("ParseMoney(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}

	if got := PadMoney(12345, 15); got != "000000000012345" {
		t.Errorf("PadMoney(12345, 15) = %q", got)
	}
}

func TestParseCounterAndPadCounter(t *testing.T) {
	n, err := ParseCounter("00042")
	if err != nil || n != 42 {
		t.Fatalf("ParseCounter(00042) = %d, %v", n, err)
	}
	if got := PadCounter(7, 4); got != "0007" {
		t.Errorf("PadCounter(7, 4) = %q", got)
	}
}

func TestSliceTruncated(t *testing.T) {
	f := Field{Name: "pv", Start: 3, End: 12, Kind: Numeric}
	_, err := Slice("short", f, 5)
	if err == nil {
		t.Fatal("expected ErrTruncatedLine")
	}
	if _, ok := err.(ErrTruncatedLine); !ok {
		t.Fatalf("expected ErrTruncatedLine, got %T", err)
	}
}

func TestRegistryLookup(t *testing.T) {
	rl, ok := Lookup(types.KindEEFI, "052")
	if !ok {
		t.Fatal("expected EEFI 052 to be registered")
	}
	if rl.Width != 400 {
		t.Errorf("EEFI 052 width = %d, want 400", rl.Width)
	}
	if _, ok := rl.FieldByName("valor_rv"); !ok {
		t.Error("expected valor_rv field on 052")
	}

	if _, ok := Lookup(types.KindEEVC, "004"); !ok {
		t.Fatal("expected EEVC 004 to be registered")
	}

	if _, ok := Lookup(types.KindEEVD, "01"); ok {
		t.Fatal("EEVD is CSV-indexed and must not appear in Registry")
	}
}

func TestEEVDPVIndex(t *testing.T) {
	idx, ok := EEVDPVIndex("01")
	if !ok || idx != EEVDDetailPV {
		t.Fatalf("EEVDPVIndex(01) = %d, %v", idx, ok)
	}
	if _, ok := EEVDPVIndex("20"); ok {
		t.Fatal("type 20 has no direct PV field and must require RV resolution")
	}
}

func TestCSVField(t *testing.T) {
	fields := []string{"01", "020770677", "x"}
	if got := CSVField(fields, 1); got != "020770677" {
		t.Errorf("CSVField = %q", got)
	}
	if got := CSVField(fields, 99); got != "" {
		t.Errorf("CSVField out of range = %q, want empty", got)
	}
}
