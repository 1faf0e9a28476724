// Package router implements the PV Router: given a stream of types.Record
// values from the Record Reader, it resolves which merchant PV each record
// belongs to, tracking the kind-specific state (current_pv, the EEVD
// RV->PV map) each kind calls for. It never emits a record to more
// than one bucket and preserves intra-bucket source order by handing
// records to the caller in the order they arrive.
package router

import (
	"regexp"

	"github.com/NebulousLabs/errors"

	"github.com/WilsonNous/netunna-rede-splitter-v2/ferr"
	"github.com/WilsonNous/netunna-rede-splitter-v2/layout"
	"github.com/WilsonNous/netunna-rede-splitter-v2/record"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

// ErrUnknownType is the InputError raised when a record's type code is not
// referenced by any layout or routing rule and the record fell inside an
// open PV bucket. Sentinel lines of an unknown type outside
// any bucket are silently skipped instead.
var ErrUnknownType = errors.New("router: unrecognized record type inside PV bucket")

// Decision is the router's verdict for one record.
type Decision struct {
	PV      types.PV
	Route   bool   // false means "skip silently" (e.g. an out-of-bucket sentinel line)
	Dropped string // non-empty explains why a record with a resolvable bucket was dropped anyway
}

// Router resolves the PV for each record of one mother file. Callers
// construct one Router per file kind per file, in the Record Reader's
// iteration order; a Router is not safe for concurrent use, matching the
// single-threaded-per-mother-file model.
type Router struct {
	kind types.FileKind
	mode types.EEFIMode

	currentPV types.PV
	havePV    bool

	// rvToPV is the EEVD in-memory RV->PV map, populated from each "01"
	// record's RV field as it is seen.
	rvToPV     map[string]types.PV
	seenPVs    map[types.PV]bool
	singlePV   types.PV
	multiplePV bool
}

// New returns a Router for kind. mode is only meaningful for KindEEFI.
func New(kind types.FileKind, mode types.EEFIMode) *Router {
	return &Router{
		kind:    kind,
		mode:    mode,
		rvToPV:  make(map[string]types.PV),
		seenPVs: make(map[types.PV]bool),
	}
}

// Route resolves rec's PV. err is non-nil for ErrUnknownType (wrapped as a
// ferr.InputError) and for an EEFI 032 or EEVC 004 line too short to hold
// its PV field (wrapped as a ferr.LayoutError); a record that resolves to no PV but is a
// recognized "drop silently" case returns Decision{Route:false} and a nil
// error.
func (rt *Router) Route(rec types.Record) (Decision, error) {
	switch rt.kind {
	case types.KindEEFI:
		return rt.routeEEFI(rec)
	case types.KindEEVC:
		return rt.routeEEVC(rec)
	case types.KindEEVD:
		return rt.routeEEVD(rec)
	default:
		return Decision{}, nil
	}
}

func (rt *Router) routeEEFI(rec types.Record) (Decision, error) {
	switch rec.TypeCode {
	case "030":
		return Decision{Route: false}, nil
	case "032":
		rl, _ := layout.Lookup(types.KindEEFI, "032")
		f, _ := rl.FieldByName("pv")
		raw, err := layout.Slice(rec.Raw, f, rec.LineNo)
		if err != nil {
			return Decision{}, ferr.Wrap(ferr.LayoutError, err)
		}
		rt.currentPV = types.PV(raw).Normalize()
		rt.havePV = true
		return Decision{Route: false}, nil
	case "034", "035", "036", "038", "043":
		if !rt.havePV {
			return Decision{Route: false, Dropped: "no current_pv set"}, nil
		}
		return Decision{PV: rt.currentPV, Route: true}, nil
	case "040", "045":
		// Both types are routed with the robust PV extractor regardless of
		// mode: 040 is authoritative in simplified mode, and 045
		// (cancellation->debit) carries its own PV range rather than
		// attaching to current_pv even in complete mode.
		pv, ok := eefiRobustPV(rec.Raw)
		if !ok {
			return Decision{Route: false, Dropped: "no PV extractable"}, nil
		}
		return Decision{PV: pv, Route: true}, nil
	case "052":
		return Decision{Route: false}, nil
	default:
		if rt.havePV {
			return Decision{}, ferr.Wrap(ferr.InputError, ErrUnknownType)
		}
		return Decision{Route: false}, nil
	}
}

// eefiPVCandidateRanges are the byte ranges tried, in order, for a 040/045
// record's PV; the Layout Registry declares no PV field for either type.
var eefiPVCandidateRanges = [][2]int{{12, 21}, {13, 22}, {22, 31}, {3, 12}}

var nineDigits = regexp.MustCompile(`\d{9}`)

// eefiRobustPV implements the PV Router's robust extractor for EEFI 040/045
// records: try each candidate range, then the first nine-digit run within
// the first 60 bytes.
func eefiRobustPV(line string) (types.PV, bool) {
	for _, rng := range eefiPVCandidateRanges {
		start, end := rng[0], rng[1]
		if end > len(line) {
			continue
		}
		candidate := line[start:end]
		if isAllDigits(candidate) && len(candidate) == 9 {
			return types.PV(candidate), true
		}
	}
	limit := len(line)
	if limit > 60 {
		limit = 60
	}
	if m := nineDigits.FindString(line[:limit]); m != "" {
		return types.PV(m), true
	}
	return "", false
}

func isAllDigits(s string) bool {
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

func (rt *Router) routeEEVC(rec types.Record) (Decision, error) {
	switch rec.TypeCode {
	case "002":
		return Decision{Route: false}, nil
	case "004":
		rl, _ := layout.Lookup(types.KindEEVC, "004")
		f, _ := rl.FieldByName("pv")
		raw, err := layout.Slice(rec.Raw, f, rec.LineNo)
		if err != nil {
			return Decision{}, ferr.Wrap(ferr.LayoutError, err)
		}
		rt.currentPV = types.PV(raw).Normalize()
		rt.havePV = true
		return Decision{PV: rt.currentPV, Route: true}, nil
	case "026":
		// 026 closes the bucket. It is never routed to the child body: the
		// Trailer Synthesizer replaces it entirely, and the Child Writer's
		// byte-preservation guarantee excludes per-PV trailer lines the
		// Synth is regenerating.
		rt.havePV = false
		return Decision{Route: false}, nil
	case "028":
		// Kept aside as the global mother trailer; never attached to a PV.
		return Decision{Route: false}, nil
	default:
		if !record.IsKnownType(types.KindEEVC, rec.TypeCode) {
			if rt.havePV {
				return Decision{}, ferr.Wrap(ferr.InputError, ErrUnknownType)
			}
			return Decision{Route: false}, nil
		}
		if !rt.havePV {
			return Decision{Route: false, Dropped: "no current_pv set"}, nil
		}
		return Decision{PV: rt.currentPV, Route: true}, nil
	}
}

func (rt *Router) routeEEVD(rec types.Record) (Decision, error) {
	switch rec.TypeCode {
	case "00":
		return Decision{Route: false}, nil
	case "02", "03", "04":
		// Trailer lines; the synthesizer regenerates all three per child,
		// and the file-level "04" is parsed separately as the mother
		// trailer.
		return Decision{Route: false}, nil
	case "01":
		pv := types.PV(layout.CSVField(rec.CSVFields, layout.EEVDDetailPV)).Normalize()
		rv := layout.CSVField(rec.CSVFields, layout.EEVDDetailRV)
		if rv != "" {
			rt.rvToPV[rv] = pv
		}
		rt.noteSeen(pv)
		return Decision{PV: pv, Route: true}, nil
	case "20":
		rv := layout.EEVDRecargaRV(rec.CSVFields)
		if pv, ok := rt.rvToPV[rv]; ok {
			return Decision{PV: pv, Route: true}, nil
		}
		if !rt.multiplePV && rt.singlePV != "" {
			return Decision{PV: rt.singlePV, Route: true}, nil
		}
		return Decision{Route: false, Dropped: "unresolvable RV->PV for type 20"}, nil
	default:
		idx, ok := layout.EEVDPVIndex(rec.TypeCode)
		if ok {
			pv := types.PV(layout.CSVField(rec.CSVFields, idx)).Normalize()
			rt.noteSeen(pv)
			return Decision{PV: pv, Route: true}, nil
		}
		if !record.IsKnownType(types.KindEEVD, rec.TypeCode) {
			if len(rt.seenPVs) > 0 {
				return Decision{}, ferr.Wrap(ferr.InputError, ErrUnknownType)
			}
			return Decision{Route: false}, nil
		}
		return Decision{Route: false}, nil
	}
}

func (rt *Router) noteSeen(pv types.PV) {
	if rt.seenPVs[pv] {
		return
	}
	rt.seenPVs[pv] = true
	if len(rt.seenPVs) == 1 {
		rt.singlePV = pv
		rt.multiplePV = false
	} else {
		rt.multiplePV = true
	}
}
