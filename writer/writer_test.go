package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

func TestWriteEEVDRewritesHeaderPVAndComputesDigest(t *testing.T) {
	dir := t.TempDir()

	bucket := types.NewPVBucket(types.PV("020770677"))
	bucket.Records = append(bucket.Records, types.Record{Raw: "20,020770677,detail", CSVFields: []string{"20", "020770677", "detail"}})

	headerCSV := []string{"00", "999999999", "05102025"}
	in := Input{
		Kind:         types.KindEEVD,
		NSA:          "001",
		EmissionDate: "051025",
		HeaderCSV:    headerCSV,
		Bucket:       bucket,
		Trailers:     []string{"02,020770677,0", "03,999999999,0", "04,020770677,0"},
	}

	child, err := Write(dir, in)
	if err != nil {
		t.Fatal(err)
	}

	wantPath := filepath.Join(dir, "NSA_001", "020770677_051025_001_EEVD.txt")
	if child.Path != wantPath {
		t.Fatalf("path = %q, want %q", child.Path, wantPath)
	}
	if child.SHA256 == "" {
		t.Fatal("expected a non-empty SHA-256 digest")
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if lines[0] != "00,020770677,05102025" {
		t.Fatalf("header not rewritten with bucket PV: %q", lines[0])
	}
	if lines[1] != "20,020770677,detail" {
		t.Fatalf("unexpected detail line: %q", lines[1])
	}
	if len(lines) != 5 {
		t.Fatalf("expected header+1 detail+3 trailers = 5 lines, got %d: %v", len(lines), lines)
	}
}

func TestWriteEEVCRewritesFixedWidthHeader(t *testing.T) {
	dir := t.TempDir()

	header := "002" + strings.Repeat(" ", 78) + "020770677" + strings.Repeat(" ", 9)
	bucket := types.NewPVBucket(types.PV("111111111"))
	bucket.Records = append(bucket.Records, types.Record{Raw: "004111111111"})

	in := Input{
		Kind:              types.KindEEVC,
		NSA:               "050",
		EmissionDate:      "051025",
		Header:            header,
		Bucket:            bucket,
		Trailers:          []string{strings.Repeat("0", 148)},
		MotherTrailerLine: "028mother",
	}

	child, err := Write(dir, in)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(child.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "111111111") {
		t.Fatalf("rewritten header missing bucket PV: %q", string(data))
	}
	if !strings.HasSuffix(strings.TrimRight(string(data), "\n"), "028mother") {
		t.Fatalf("mother trailer line not appended: %q", string(data))
	}
}

func TestWriteEEVCReencodesLatin1(t *testing.T) {
	dir := t.TempDir()

	header := "002" + strings.Repeat(" ", 78) + "020770677" + strings.Repeat(" ", 9)
	bucket := types.NewPVBucket(types.PV("111111111"))
	// "ã" decoded from the mother's latin-1 must go back out as 0xE3.
	bucket.Records = append(bucket.Records, types.Record{Raw: "006cartão"})

	in := Input{
		Kind:         types.KindEEVC,
		NSA:          "050",
		EmissionDate: "051025",
		Header:       header,
		Bucket:       bucket,
		Trailers:     []string{strings.Repeat("0", 148)},
	}

	child, err := Write(dir, in)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(child.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte{'c', 'a', 'r', 't', 0xE3, 'o'}) {
		t.Fatalf("detail line not re-encoded to latin-1: %q", data)
	}
	if bytes.Contains(data, []byte("cartão")) {
		t.Fatal("child still carries the UTF-8 encoding of the detail line")
	}
}
