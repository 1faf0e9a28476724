package splitter

import (
	"strings"
	"testing"

	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

func pad(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}

// eefiLine builds a width-byte, space-padded EEFI line with typeCode at
// offset 0 and each fields[start] value overlaid at its declared position.
func eefiLine(width int, typeCode string, fields map[int]string) string {
	buf := []byte(strings.Repeat(" ", width))
	copy(buf, typeCode)
	for start, val := range fields {
		copy(buf[start:], val)
	}
	return string(buf)
}

// eevcMother builds a minimal one-PV EEVC mother file: 002 header, 004 PV
// open, one 006 value record (liquido=12345), 026 per-PV close, 028 mother
// trailer with the same total.
func eevcMother(t *testing.T, liquido string) string {
	t.Helper()
	header := "002" + "05102025" + strings.Repeat(" ", 70) + "020770677"
	open := pad("004020770677", 12)
	value := "006" + strings.Repeat("0", 111) + pad(liquido, 15)
	close026 := pad("026", 148)
	mother028 := "028" + strings.Repeat("0", 130) + pad(liquido, 15)

	return strings.Join([]string{header, open, value, close026, mother028}, "\n") + "\n"
}

func TestRunEEVCHappyPath(t *testing.T) {
	in := strings.NewReader(eevcMother(t, "12345"))
	dir := t.TempDir()

	result, err := Run(in, Options{
		Kind:       types.KindEEVC,
		OutputRoot: dir,
		NSA:        "050",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(result.Children))
	}
	if !result.Verdict.OK {
		t.Fatalf("expected OK verdict, got %+v", result.Verdict)
	}
	if result.Children[0].PV != types.PV("020770677") {
		t.Fatalf("unexpected child PV: %s", result.Children[0].PV)
	}
}

func TestRunEEVCDivergence(t *testing.T) {
	// mother trailer disagrees with the one 006 value record (12345 vs a
	// declared 99999), so the Verdict must report a divergence without
	// aborting the run.
	header := "002" + "05102025" + strings.Repeat(" ", 70) + "020770677"
	open := pad("004020770677", 12)
	value := "006" + strings.Repeat("0", 111) + pad("12345", 15)
	close026 := pad("026", 148)
	mother028 := "028" + strings.Repeat("0", 130) + pad("99999", 15)
	motherFile := strings.Join([]string{header, open, value, close026, mother028}, "\n") + "\n"

	result, err := Run(strings.NewReader(motherFile), Options{
		Kind:       types.KindEEVC,
		OutputRoot: t.TempDir(),
		NSA:        "050",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict.OK {
		t.Fatal("expected divergent verdict")
	}
	if len(result.Children) != 1 {
		t.Fatalf("children should still be written on divergence, got %d", len(result.Children))
	}
}

func TestRunMissingMotherTrailerAborts(t *testing.T) {
	header := "002" + "05102025" + strings.Repeat(" ", 70) + "020770677"
	open := pad("004020770677", 12)
	motherFile := strings.Join([]string{header, open}, "\n") + "\n"

	_, err := Run(strings.NewReader(motherFile), Options{
		Kind:       types.KindEEVC,
		OutputRoot: t.TempDir(),
		NSA:        "050",
	})
	if err == nil {
		t.Fatal("expected an error for a file missing its mother trailer")
	}
}

// TestRunEEFICompleteTwoPVs exercises a "complete"-mode
// EEFI mother with two 032 PV blocks, each carrying one 034 (cred_norm=100)
// and one 035 (ajuste_deb=50), and a mother 052 trailer whose valor_rv/
// valor_aj_deb are the sum across both PVs. Both children should reconcile
// with a per-PV total of 50 cents.
func TestRunEEFICompleteTwoPVs(t *testing.T) {
	header := eefiLine(90, "030", map[int]string{3: "05102025", 81: "020770677"})
	pv1Open := eefiLine(12, "032", map[int]string{3: "020770677"})
	pv1Credit := eefiLine(46, "034", map[int]string{31: "000000000000100"})
	pv1Debit := eefiLine(44, "035", map[int]string{29: "000000000000050"})
	pv2Open := eefiLine(12, "032", map[int]string{3: "020770678"})
	pv2Credit := eefiLine(46, "034", map[int]string{31: "000000000000100"})
	pv2Debit := eefiLine(44, "035", map[int]string{29: "000000000000050"})
	mother052 := eefiLine(400, "052", map[int]string{
		26: "000000000000200",
		85: "000000000000100",
	})

	motherFile := strings.Join([]string{
		header, pv1Open, pv1Credit, pv1Debit, pv2Open, pv2Credit, pv2Debit, mother052,
	}, "\n") + "\n"

	result, err := Run(strings.NewReader(motherFile), Options{
		Kind:       types.KindEEFI,
		Mode:       types.EEFIComplete,
		OutputRoot: t.TempDir(),
		NSA:        "041",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(result.Children))
	}
	if !result.Verdict.OK {
		t.Fatalf("expected OK verdict, got %+v", result.Verdict)
	}
	wantPVs := map[types.PV]bool{"020770677": true, "020770678": true}
	for _, c := range result.Children {
		if !wantPVs[c.PV] {
			t.Fatalf("unexpected child PV: %s", c.PV)
		}
	}
}

// TestRunEEVDSinglePVWithCancellation exercises two "01"
// rows for one PV summing bruto=30000/desconto=100/liquido=29900, plus an
// "011" cancellation for the same PV that must not contribute to the sum,
// and a "04" trailer mirroring the "01" totals exactly.
func TestRunEEVDSinglePVWithCancellation(t *testing.T) {
	header := "00,020770677,07102025,,,,,000043"
	row1 := "01,020770677,07102025,07102025,RV001,1,20000,0,20000,D"
	row2 := "01,020770677,07102025,07102025,RV002,1,10000,100,9900,D"
	cancel := "011,020770677,RV001,0,0,0"
	trailer := "04,020770677,000002,000002,30000,100,29900"

	motherFile := strings.Join([]string{header, row1, row2, cancel, trailer}, "\n") + "\n"

	result, err := Run(strings.NewReader(motherFile), Options{
		Kind:       types.KindEEVD,
		OutputRoot: t.TempDir(),
		NSA:        "043",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(result.Children))
	}
	if !result.Verdict.OK {
		t.Fatalf("expected OK verdict, got %+v", result.Verdict)
	}
	if result.Children[0].PV != types.PV("020770677") {
		t.Fatalf("unexpected child PV: %s", result.Children[0].PV)
	}
}

// TestRunEEVDDivergence exercises the case where the mother trailer's
// bruto total disagrees with the sum of "01" rows by 100 cents; desconto and
// liquido happen to match. The run must still write the child and report a
// low-direction divergence on bruto only.
func TestRunEEVDDivergence(t *testing.T) {
	header := "00,020770677,07102025,,,,,000043"
	row1 := "01,020770677,07102025,07102025,RV001,1,900,50,850,D"
	trailer := "04,020770677,000001,000001,1000,50,850"

	motherFile := strings.Join([]string{header, row1, trailer}, "\n") + "\n"

	result, err := Run(strings.NewReader(motherFile), Options{
		Kind:       types.KindEEVD,
		OutputRoot: t.TempDir(),
		NSA:        "043",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Verdict.OK {
		t.Fatal("expected divergent verdict")
	}
	if len(result.Children) != 1 {
		t.Fatalf("children should still be written on divergence, got %d", len(result.Children))
	}
	for _, d := range result.Verdict.Dimensions {
		switch d.Dimension {
		case "bruto":
			if d.OK || d.Computed != 900 || d.Expected != 1000 {
				t.Fatalf("bruto dimension = %+v, want a 100-cent low divergence", d)
			}
		case "desconto", "liquido":
			if !d.OK {
				t.Fatalf("%s dimension should reconcile: %+v", d.Dimension, d)
			}
		}
	}
}
