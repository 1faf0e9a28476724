// Package record implements the Record Reader: it streams a mother file
// line by line, in source order, classifying each line into a
// types.Record without interpreting its fields (that is the PV Router's
// and Aggregator's job). Lines are streamed rather than slurped, so
// arbitrarily large mother files never need to fit in memory
// at once.
package record

import (
	"bufio"
	"io"
	"strings"

	"github.com/NebulousLabs/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/WilsonNous/netunna-rede-splitter-v2/ferr"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

// ErrMalformedHeader is returned when the first record read is not the
// expected header type for the file kind.
var ErrMalformedHeader = errors.New("record: first line is not the expected header")

// knownTypes enumerates every record-type/field code each kind's Layout
// Registry and router recognize, used to decide whether an unreferenced
// type inside a PV bucket is merely unrouted (silently skipped) or
// genuinely unknown.
var knownTypes = map[types.FileKind]map[string]bool{
	types.KindEEFI: {
		"030": true, "032": true, "034": true, "035": true, "036": true,
		"038": true, "040": true, "043": true, "045": true, "052": true,
	},
	types.KindEEVC: {
		"002": true, "004": true, "006": true, "008": true, "010": true,
		"012": true, "014": true, "016": true, "018": true, "022": true,
		"024": true, "026": true, "028": true,
	},
	types.KindEEVD: {
		"00": true, "01": true, "011": true, "012": true, "013": true,
		"02": true, "03": true, "04": true, "05": true, "13": true,
		"20": true, "08": true, "09": true, "11": true, "17": true,
		"18": true, "19": true,
	},
}

// headerType is the record type every mother file of a given kind must
// begin with.
var headerType = map[types.FileKind]string{
	types.KindEEFI: "030",
	types.KindEEVC: "002",
	types.KindEEVD: "00",
}

// Reader streams types.Record values from a mother file, in source order.
type Reader struct {
	kind    types.FileKind
	scanner *bufio.Scanner
	lineNo  int
	started bool

	// OnUnknownType, if set, is called whenever a type code is not present
	// in this kind's known-type set. The router decides whether that makes
	// the record an UnknownType error (inside a PV bucket) or a silently
	// skipped sentinel line; the reader itself only reports.
	OnUnknownType func(lineNo int, typeCode string)
}

// New wraps r for kind. EEVC is decoded from latin-1; EEVD and EEFI are
// read as UTF-8 with lossy replacement, matching the acquirer's own mixed
// encoding practice.
func New(kind types.FileKind, r io.Reader) *Reader {
	var lineReader io.Reader = r
	if kind == types.KindEEVC {
		lineReader = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	scanner := bufio.NewScanner(lineReader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{kind: kind, scanner: scanner}
}

// Next returns the next record, or io.EOF when the file is exhausted. On
// the very first call it verifies the header type matches the kind's
// expected header, returning a ferr.InputError-wrapped ErrMalformedHeader
// otherwise.
func (r *Reader) Next() (types.Record, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return types.Record{}, ferr.Wrap(ferr.IOError, err)
		}
		return types.Record{}, io.EOF
	}
	r.lineNo++
	line := r.scanner.Text()
	if r.kind != types.KindEEVC {
		line = strings.ToValidUTF8(line, "�")
	}

	rec := types.Record{Raw: line, LineNo: r.lineNo}
	if r.kind == types.KindEEVD {
		rec.CSVFields = strings.Split(line, ",")
		if len(rec.CSVFields) > 0 {
			rec.TypeCode = rec.CSVFields[0]
		}
	} else {
		rec.TypeCode = firstN(line, 3)
	}

	if !r.started {
		r.started = true
		if rec.TypeCode != headerType[r.kind] {
			return rec, ferr.Wrap(ferr.InputError, ErrMalformedHeader)
		}
	}

	if !knownTypes[r.kind][rec.TypeCode] && r.OnUnknownType != nil {
		r.OnUnknownType(r.lineNo, rec.TypeCode)
	}

	return rec, nil
}

// IsKnownType reports whether typeCode is referenced anywhere in kind's
// Layout Registry or router policy.
func IsKnownType(kind types.FileKind, typeCode string) bool {
	return knownTypes[kind][typeCode]
}

func firstN(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
