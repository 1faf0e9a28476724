// Package layout is the frozen Layout Registry: a positional field map, keyed
// by (FileKind, record type), that the Record Reader uses to slice fields out
// of a fixed-width line, and that the Trailer Synthesizer uses to write
// per-PV trailers back out in the exact on-wire format. The tables below are
// package-level data, built once at init time and never mutated — the Go
// equivalent of the dict-of-dict positional layouts the acquirer's own
// documentation uses, turned into a typed, compile-time-checked structure.
package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/WilsonNous/netunna-rede-splitter-v2/build"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

// FieldKind identifies how a fixed-width field's raw bytes should be
// interpreted.
type FieldKind int

const (
	// Alphanumeric fields are copied/compared verbatim.
	Alphanumeric FieldKind = iota
	// Numeric fields are unsigned, zero-padded, fixed-width decimal
	// integers (counters, not money).
	Numeric
	// Money fields are unsigned, zero-padded, fixed-width integer cents
	// (no decimal point, no sign).
	Money
)

// Field describes one positional field within a fixed-width record type.
// Start is 0-based and inclusive; End is exclusive, matching Go slice
// semantics (line[Start:End]).
type Field struct {
	Name  string
	Start int
	End   int
	Kind  FieldKind
}

// Width returns the field's declared width in bytes.
func (f Field) Width() int {
	return f.End - f.Start
}

// RecordLayout is the ordered field list for one record type within one
// file kind.
type RecordLayout struct {
	Type   string
	Width  int // canonical total line width once space-padded; 0 means "not fixed" (e.g. a header whose trailing bytes aren't synthesized)
	Fields []Field
}

// FieldByName returns the named field, or false if the record type has no
// such field.
func (rl RecordLayout) FieldByName(name string) (Field, bool) {
	for _, f := range rl.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ErrTruncatedLine is returned when a field's declared range runs past the
// end of the line being sliced.
type ErrTruncatedLine struct {
	Field string
	Line  int
}

func (e ErrTruncatedLine) Error() string {
	return fmt.Sprintf("layout: field %s at line %d is truncated", e.Field, e.Line)
}

// Slice extracts the raw bytes of field f from line. It returns
// ErrTruncatedLine if the line is too short; lineNo is used only for the
// error message.
func Slice(line string, f Field, lineNo int) (string, error) {
	if f.End > len(line) {
		return "", ErrTruncatedLine{Field: f.Name, Line: lineNo}
	}
	return line[f.Start:f.End], nil
}

// ParseMoney interprets raw as a zero-padded, unsigned integer-cent value:
// every digit character contributes to the value; any non-digit characters
// (commonly spaces, in short/trailer records) are stripped before parsing.
func ParseMoney(raw string) (types.Cents, error) {
	digits := onlyDigits(raw)
	if digits == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("layout: invalid money field %q: %w", raw, err)
	}
	return types.Cents(n), nil
}

// ParseCounter interprets raw as a zero-padded unsigned integer counter.
func ParseCounter(raw string) (int, error) {
	digits := onlyDigits(raw)
	if digits == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("layout: invalid counter field %q: %w", raw, err)
	}
	return n, nil
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PadMoney zero-pads cents to width characters. It never emits a sign: the
// Trailer Synthesizer is responsible for routing debits into their own
// field rather than encoding a negative number, so a negative input here
// means an aggregation bug upstream.
func PadMoney(cents types.Cents, width int) string {
	if cents < 0 {
		build.Critical("layout: negative value", cents, "written into an unsigned money field")
		cents = -cents
	}
	return padLeft(strconv.FormatInt(int64(cents), 10), width)
}

// PadCounter zero-pads an integer counter to width characters.
func PadCounter(n int, width int) string {
	return padLeft(strconv.Itoa(n), width)
}

func padLeft(s string, width int) string {
	if len(s) > width {
		// Programmer/aggregator error: a total grew wider than its
		// declared field. The overflow is reported through
		// build.Critical; where that does not panic, the rightmost
		// width digits are kept.
		build.Critical("layout: value", s, "overflows a", width, "digit field")
		return s[len(s)-width:]
	}
	return strings.Repeat("0", width-len(s)) + s
}

// Registry is the frozen (FileKind, record-type) -> RecordLayout table.
var Registry = map[types.FileKind]map[string]RecordLayout{
	types.KindEEFI: eefiLayouts,
	types.KindEEVC: eevcLayouts,
}

// Lookup returns the RecordLayout for (kind, recordType), or false if the
// pair is not in the registry. EEVD is CSV-indexed and is not present here;
// see the eevdcsv subpackage-equivalent declarations in eevd.go.
func Lookup(kind types.FileKind, recordType string) (RecordLayout, bool) {
	kindMap, ok := Registry[kind]
	if !ok {
		return RecordLayout{}, false
	}
	rl, ok := kindMap[recordType]
	return rl, ok
}

// headerType and headerPVFieldName give the Child Writer, for each fixed-
// width kind, which record type is the header it must rewrite and which
// named field within that record type's layout carries the PV to write:
// the bucket PV overwrites the matrix/group PV bytes in EEFI's 030 header
// and EEVC's 002 header. EEVD's header PV lives at CSV field index
// EEVDHeaderPV instead and is handled separately by callers.
var headerType = map[types.FileKind]string{
	types.KindEEFI: "030",
	types.KindEEVC: "002",
}

var headerPVFieldName = map[types.FileKind]string{
	types.KindEEFI: "pv_grupo",
	types.KindEEVC: "pv_header",
}

// HeaderType returns the record type of kind's mother-file header, and
// whether kind has a fixed-width header at all (EEVD does not).
func HeaderType(kind types.FileKind) (string, bool) {
	t, ok := headerType[kind]
	return t, ok
}

// HeaderPVField returns the Field within kind's header record layout that
// the Child Writer overwrites with the bucket PV.
func HeaderPVField(kind types.FileKind) (Field, bool) {
	t, ok := headerType[kind]
	if !ok {
		return Field{}, false
	}
	rl, ok := Lookup(kind, t)
	if !ok {
		return Field{}, false
	}
	return rl.FieldByName(headerPVFieldName[kind])
}
