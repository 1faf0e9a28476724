// Package integrity implements the Integrity Validator: an independent pass,
// separate from the Reconciler, that indexes record-type counts per PV in
// the mother file and in each child, then reports per (PV, type) pair
// whether the child matches, is missing records, or has extra ones.
package integrity

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/WilsonNous/netunna-rede-splitter-v2/record"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

// skipTypes lists, per kind, the record types IndexChild ignores when
// re-counting a child: the header and the trailer lines the engine
// regenerates or appends rather than routes.
var skipTypes = map[types.FileKind]map[string]bool{
	types.KindEEVC: {"002": true, "026": true, "028": true},
	types.KindEEFI: {"030": true, "052": true},
	types.KindEEVD: {"00": true, "02": true, "03": true, "04": true},
}

// IndexChild re-reads an emitted child file and counts its detail records
// by type code, skipping header and trailer lines, so the result is
// directly comparable with the per-PV counts collected from the mother
// while routing. Re-parsing the bytes on disk, rather than trusting the
// in-memory buckets that produced them, is what makes this pass
// independent of the split itself.
func IndexChild(kind types.FileKind, in io.Reader) (map[string]int, error) {
	rr := record.New(kind, in)
	counts := make(map[string]int)
	for {
		rec, err := rr.Next()
		if err == io.EOF {
			return counts, nil
		}
		if err != nil {
			return nil, err
		}
		if skipTypes[kind][rec.TypeCode] {
			continue
		}
		counts[rec.TypeCode]++
	}
}

// Status is the per (PV, type) verdict.
type Status string

const (
	OK      Status = "OK"
	Missing Status = "Missing"
	Extra   Status = "Extra"
)

// Row is one line of the integrity report.
type Row struct {
	PV         types.PV
	Type       string
	MotherQty  int
	ChildQty   int
	Status     Status
}

// Check compares mother's per-PV, per-type counts (as the Aggregator
// recorded them while routing) against the per-PV, per-type counts of the
// children as supplied by the caller (for example IndexChild's re-read of
// each written child), and returns one Row per (PV, type) pair seen on
// either side.
func Check(motherCounts map[types.PV]map[string]int, childCounts map[types.PV]map[string]int) []Row {
	pvs := make(map[types.PV]bool)
	for pv := range motherCounts {
		pvs[pv] = true
	}
	for pv := range childCounts {
		pvs[pv] = true
	}

	var orderedPVs []types.PV
	for pv := range pvs {
		orderedPVs = append(orderedPVs, pv)
	}
	sort.Slice(orderedPVs, func(i, j int) bool { return orderedPVs[i] < orderedPVs[j] })

	var rows []Row
	for _, pv := range orderedPVs {
		types_ := make(map[string]bool)
		for t := range motherCounts[pv] {
			types_[t] = true
		}
		for t := range childCounts[pv] {
			types_[t] = true
		}
		var orderedTypes []string
		for t := range types_ {
			orderedTypes = append(orderedTypes, t)
		}
		sort.Strings(orderedTypes)

		for _, t := range orderedTypes {
			mQty := motherCounts[pv][t]
			cQty := childCounts[pv][t]
			status := OK
			switch {
			case cQty < mQty:
				status = Missing
			case cQty > mQty:
				status = Extra
			}
			rows = append(rows, Row{PV: pv, Type: t, MotherQty: mQty, ChildQty: cQty, Status: status})
		}
	}
	return rows
}

// WriteCSV renders rows as the integrity report CSV.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"pv", "tipo", "qtd_mae", "qtd_filho", "status"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			string(r.PV),
			r.Type,
			fmt.Sprintf("%d", r.MotherQty),
			fmt.Sprintf("%d", r.ChildQty),
			string(r.Status),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
