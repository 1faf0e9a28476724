// Package splitter is the entry-point orchestrator: it wires the Record
// Reader, PV Router, Aggregator, Trailer Synthesizer, Child Writer, and
// Reconciler together into the single-threaded-per-mother-file pipeline. One Run call processes exactly one mother file
// end to end.
package splitter

import (
	"io"

	"github.com/WilsonNous/netunna-rede-splitter-v2/aggregate"
	"github.com/WilsonNous/netunna-rede-splitter-v2/ferr"
	"github.com/WilsonNous/netunna-rede-splitter-v2/layout"
	"github.com/WilsonNous/netunna-rede-splitter-v2/reconcile"
	"github.com/WilsonNous/netunna-rede-splitter-v2/record"
	"github.com/WilsonNous/netunna-rede-splitter-v2/router"
	"github.com/WilsonNous/netunna-rede-splitter-v2/trailer"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
	"github.com/WilsonNous/netunna-rede-splitter-v2/writer"
)

// Options configures one Run.
type Options struct {
	Kind types.FileKind
	Mode types.EEFIMode // meaningful for KindEEFI only

	// OutputRoot is the directory under which output/NSA_<nsa>/ is
	// created.
	OutputRoot string

	// NSA overrides the NSA derived from the mother header. EEVC carries
	// no NSA field of its own, so callers MUST supply it for EEVC; for
	// EEFI/EEVD it is optional and only overrides the header-derived value.
	NSA string

	// Tolerance is the reconciliation tolerance in cents.
	Tolerance types.Cents

	// OnSkippedRecord, if set, is called for every record-level error or
	// drop, matching the record-level log-and-continue policy.
	OnSkippedRecord func(lineNo int, reason string)
}

// Result is everything Run produced for one mother file.
type Result struct {
	Kind         types.FileKind
	NSA          string
	EmissionDate string // DDMMAA
	Children     []types.ChildFile
	Verdict      types.Verdict

	// MotherCounts and ChildCounts let a caller run integrity.Check without
	// re-parsing the emitted children: both are populated from the same
	// single read pass, and ChildCounts for each PV is by construction
	// exactly what ended up in that PV's child file.
	MotherCounts map[types.PV]map[string]int
	ChildCounts  map[types.PV]map[string]int
}

// Run streams in through the full pipeline and writes children under
// opts.OutputRoot. It returns ferr.MissingMotherTrailer (an InputError) if
// the file ends without the trailer record its kind requires; individual
// record-level errors are reported via opts.OnSkippedRecord and otherwise
// do not abort the run.
func Run(in io.Reader, opts Options) (Result, error) {
	rr := record.New(opts.Kind, in)
	rt := router.New(opts.Kind, opts.Mode)
	ag := aggregate.New(opts.Kind)

	skip := func(lineNo int, reason string) {
		if opts.OnSkippedRecord != nil {
			opts.OnSkippedRecord(lineNo, reason)
		}
	}

	mother := types.MotherTrailer{Kind: opts.Kind, Totals: make(map[string]types.Cents)}
	haveMotherTrailer := false
	var mother28Line string // EEVC only: mother's verbatim 028 line, appended to every child

	var header types.Record
	haveHeader := false
	nsa := opts.NSA
	emissionDate := ""

	motherCounts := make(map[types.PV]map[string]int)
	countMother := func(pv types.PV, typeCode string) {
		if motherCounts[pv] == nil {
			motherCounts[pv] = make(map[string]int)
		}
		motherCounts[pv][typeCode]++
	}

	for {
		rec, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Both InputError (malformed header) and IOError (read
			// failure) are header/file-level: abort the run rather than
			// trying to resynchronize mid-stream.
			return Result{}, err
		}

		if !haveHeader {
			haveHeader = true
			header = rec
			switch opts.Kind {
			case types.KindEEFI:
				if rl, ok := layout.Lookup(types.KindEEFI, "030"); ok {
					if f, ok := rl.FieldByName("data"); ok {
						if raw, err := layout.Slice(rec.Raw, f, rec.LineNo); err == nil {
							emissionDate = types.ShortDate(raw)
						}
					}
					if nsa == "" {
						if f, ok := rl.FieldByName("sequencia"); ok {
							if raw, err := layout.Slice(rec.Raw, f, rec.LineNo); err == nil {
								nsa = last3(raw)
							}
						}
					}
				}
			case types.KindEEVC:
				if rl, ok := layout.Lookup(types.KindEEVC, "002"); ok {
					if f, ok := rl.FieldByName("data_emissao"); ok {
						if raw, err := layout.Slice(rec.Raw, f, rec.LineNo); err == nil {
							emissionDate = types.ShortDate(raw)
						}
					}
				}
			case types.KindEEVD:
				emissionDate = types.ShortDate(layout.CSVField(rec.CSVFields, layout.EEVDHeaderDate))
				mother.MatrixOrGroup = layout.CSVField(rec.CSVFields, layout.EEVDHeaderPV)
				if nsa == "" {
					nsa = last3(layout.CSVField(rec.CSVFields, layout.EEVDHeaderNSA))
				}
			}
			continue
		}

		if isMotherTrailer(opts.Kind, rec.TypeCode) {
			if err := parseMotherTrailer(opts.Kind, rec, &mother, &mother28Line); err != nil {
				return Result{}, err
			}
			haveMotherTrailer = true
			continue
		}

		decision, err := rt.Route(rec)
		if err != nil {
			skip(rec.LineNo, err.Error())
			continue
		}
		if !decision.Route {
			if decision.Dropped != "" {
				skip(rec.LineNo, decision.Dropped)
			}
			continue
		}

		countMother(decision.PV, rec.TypeCode)
		if err := ag.Add(decision.PV, rec); err != nil {
			skip(rec.LineNo, err.Error())
			continue
		}
	}

	if !haveMotherTrailer {
		return Result{}, ferr.MissingMotherTrailer
	}

	result := Result{
		Kind:         opts.Kind,
		NSA:          nsa,
		EmissionDate: emissionDate,
		MotherCounts: motherCounts,
		ChildCounts:  make(map[types.PV]map[string]int),
	}

	for _, bucket := range ag.Buckets() {
		trailerLines := trailer.Synthesize(opts.Kind, opts.Mode, bucket, mother)
		if opts.Kind == types.KindEEVD && len(trailerLines) == 3 {
			trailerLines[2] = trailer.AppendTotalRecords(trailerLines[2], len(bucket.Records))
		}

		in := writer.Input{
			Kind:         opts.Kind,
			NSA:          nsa,
			EmissionDate: emissionDate,
			Header:       header.Raw,
			HeaderCSV:    header.CSVFields,
			Bucket:       bucket,
			Trailers:     trailerLines,
		}
		if opts.Kind == types.KindEEVC {
			in.MotherTrailerLine = mother28Line
		}

		child, err := writer.Write(opts.OutputRoot, in)
		if err != nil {
			return Result{}, err
		}
		result.Children = append(result.Children, child)
		result.ChildCounts[bucket.PV] = bucket.TypeCounts
	}

	result.Verdict = reconcile.Reconcile(opts.Kind, mother, ag.Buckets(), opts.Tolerance)
	return result, nil
}

func isMotherTrailer(kind types.FileKind, typeCode string) bool {
	switch kind {
	case types.KindEEFI:
		return typeCode == "052"
	case types.KindEEVC:
		return typeCode == "028"
	case types.KindEEVD:
		return typeCode == "04"
	}
	return false
}

func parseMotherTrailer(kind types.FileKind, rec types.Record, mother *types.MotherTrailer, mother28Line *string) error {
	switch kind {
	case types.KindEEFI:
		rl, _ := layout.Lookup(types.KindEEFI, "052")
		return parseEEFIMotherTotal(rl, rec, mother)
	case types.KindEEVC:
		rl, _ := layout.Lookup(types.KindEEVC, "028")
		f, _ := rl.FieldByName("valor_total_liquido")
		raw, err := layout.Slice(rec.Raw, f, rec.LineNo)
		if err != nil {
			return ferr.Wrap(ferr.LayoutError, err)
		}
		cents, err := layout.ParseMoney(raw)
		if err != nil {
			return ferr.Wrap(ferr.InputError, err)
		}
		mother.Totals[aggregate.DimLiquido] = cents
		*mother28Line = rec.Raw
		return nil
	case types.KindEEVD:
		bruto, _ := layout.ParseMoney(layout.CSVField(rec.CSVFields, layout.EEVDTrailerBruto))
		desconto, _ := layout.ParseMoney(layout.CSVField(rec.CSVFields, layout.EEVDTrailerDesconto))
		liquido, _ := layout.ParseMoney(layout.CSVField(rec.CSVFields, layout.EEVDTrailerLiquido))
		mother.Totals[aggregate.DimBruto] = bruto
		mother.Totals[aggregate.DimDesconto] = desconto
		mother.Totals[aggregate.DimLiquido] = liquido
		return nil
	}
	return nil
}

// parseEEFIMotherTotal sums the mother 052's four signed components into
// the single reconciliation dimension aggregate.EEFITotal produces per
// bucket.
func parseEEFIMotherTotal(rl layout.RecordLayout, rec types.Record, mother *types.MotherTrailer) error {
	get := func(name string) (types.Cents, error) {
		f, ok := rl.FieldByName(name)
		if !ok {
			return 0, nil
		}
		raw, err := layout.Slice(rec.Raw, f, rec.LineNo)
		if err != nil {
			return 0, ferr.Wrap(ferr.LayoutError, err)
		}
		return layout.ParseMoney(raw)
	}
	rv, err := get("valor_rv")
	if err != nil {
		return err
	}
	ant, err := get("valor_ant")
	if err != nil {
		return err
	}
	ajCred, err := get("valor_aj_cred")
	if err != nil {
		return err
	}
	ajDeb, err := get("valor_aj_deb")
	if err != nil {
		return err
	}
	mother.Totals[aggregate.DimReconTotal] = rv + ant + ajCred - ajDeb
	return nil
}

func last3(s string) string {
	digits := ""
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits += string(r)
		}
	}
	if len(digits) <= 3 {
		return digits
	}
	return digits[len(digits)-3:]
}
