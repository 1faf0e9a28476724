package layout

// EEVD is comma-delimited rather than fixed-width, so its "layout" is a set
// of field-index tables keyed by record type (the first CSV field) rather
// than byte ranges. The "00" header, "01" detail, and "04" trailer indices
// come straight from the acquirer's layout manual. The remaining routed-but-not-summed
// detail types do not all share one field position: 05, 13, 08 and 09
// carry PV at index 1 like "01", but 11, 18 and 19 carry it at index 2 and
// 17 carries it at index 5. "20" has no direct PV field at all and is
// resolved through the RV->PV map instead (see EEVDRecargaRVIndex). 011,
// 012 and 013 never appear in a settlement file this engine has seen; they
// are kept mapped to index 1 as a conservative guess pending a confirmed
// sample.

// EEVDHeaderPV, EEVDHeaderDate, EEVDHeaderNSA are the "00" header's field
// indices.
const (
	EEVDHeaderPV   = 1
	EEVDHeaderDate = 2
	EEVDHeaderNSA  = 7
)

// EEVD detail "01" field indices.
const (
	EEVDDetailPV       = 1
	EEVDDetailRV       = 4
	EEVDDetailQtdCV    = 5
	EEVDDetailBruto    = 6
	EEVDDetailDesconto = 7
	EEVDDetailLiquido  = 8
	EEVDDetailPreFlag  = 9
)

// EEVD trailer "04" field indices.
const (
	EEVDTrailerQtdRV        = 2
	EEVDTrailerQtdCV        = 3
	EEVDTrailerBruto        = 4
	EEVDTrailerDesconto     = 5
	EEVDTrailerLiquido      = 6
	EEVDTrailerBrutoPre     = 7
	EEVDTrailerDescontoPre  = 8
	EEVDTrailerLiquidoPre   = 9
	EEVDTrailerTotalRecords = 10
)

// eevdPVIndexByType gives the CSV field index that carries the PV for each
// routed detail type. Type "20" is intentionally absent: it has no direct
// PV field and must be resolved through the RV->PV map populated from "01"
// records.
var eevdPVIndexByType = map[string]int{
	"01":  EEVDDetailPV,
	"011": 1,
	"012": 1,
	"013": 1,
	"05":  1,
	"13":  1,
	"08":  1,
	"09":  1,
	"11":  2,
	"17":  5,
	"18":  2,
	"19":  2,
}

// EEVDPVIndex returns the CSV field index carrying the PV for recordType,
// and whether that type has a direct PV field at all.
func EEVDPVIndex(recordType string) (int, bool) {
	idx, ok := eevdPVIndexByType[recordType]
	return idx, ok
}

// EEVDRecargaRVIndex and EEVDRecargaRVIndexFallback are the CSV field
// indices on a "20" (recharge CV) record that may carry the RV number used
// to resolve its PV via the RV->PV map. The acquirer's own layout puts it
// at index 3, but some emitted files carry it at index 2 instead; callers
// try the primary index first and fall back to the other when it is empty
// or not numeric.
const (
	EEVDRecargaRVIndex         = 3
	EEVDRecargaRVIndexFallback = 2
)

// CSVField returns fields[idx], or "" if idx is out of range (the acquirer
// occasionally emits short trailer variants with fewer columns than the
// full layout).
func CSVField(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}

// EEVDRecargaRV returns the RV number off a "20" record, trying
// EEVDRecargaRVIndex first and EEVDRecargaRVIndexFallback if that field is
// absent or non-numeric.
func EEVDRecargaRV(fields []string) string {
	if v := CSVField(fields, EEVDRecargaRVIndex); isDigits(v) {
		return v
	}
	if v := CSVField(fields, EEVDRecargaRVIndexFallback); isDigits(v) {
		return v
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
