// Package writer implements the Child Writer: given a PVBucket, its
// synthesized trailer line(s), and the mother file's header, it emits one
// child file under output/NSA_<nsa>/ named <PV>_<DDMMAA>_<NSA>_<KIND>.txt,
// writing it atomically via a temp-file-then-rename commit so that a
// crash mid-write never leaves a partially visible child on disk.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/WilsonNous/netunna-rede-splitter-v2/ferr"
	"github.com/WilsonNous/netunna-rede-splitter-v2/hash"
	"github.com/WilsonNous/netunna-rede-splitter-v2/layout"
	"github.com/WilsonNous/netunna-rede-splitter-v2/persist"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

// Input bundles everything the writer needs to emit one child file. Header
// is the mother file's raw header line; it is not used for EEVD, whose
// header is rewritten from HeaderCSV instead.
type Input struct {
	Kind         types.FileKind
	NSA          string
	EmissionDate string // DDMMAA, already shortened
	Header       string
	HeaderCSV    []string
	Bucket       *types.PVBucket
	Trailers     []string // synthesized trailer line(s), in append order
	MotherTrailerLine string // EEVC only: mother's verbatim 028, appended for downstream reference
}

// WithSHA256 controls whether Write computes and records a SHA-256 digest
// of the emitted child, for the Pull Service's file descriptors.
var WithSHA256 = true

// Write renders in.Bucket into a child file under outputRoot/NSA_<nsa>/ and
// returns the resulting ChildFile descriptor. The write is atomic: either
// the final path appears complete, or (on any error) it is not created at
// all.
func Write(outputRoot string, in Input) (types.ChildFile, error) {
	header, err := rewriteHeader(in)
	if err != nil {
		return types.ChildFile{}, err
	}

	dir := filepath.Join(outputRoot, "NSA_"+in.NSA)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.ChildFile{}, ferr.Wrap(ferr.IOError, err)
	}

	name := fmt.Sprintf("%s_%s_%s_%s.txt", in.Bucket.PV.Normalize(), in.EmissionDate, in.NSA, in.Kind.String())
	path := filepath.Join(dir, name)

	sf, err := persist.NewSafeFile(path)
	if err != nil {
		return types.ChildFile{}, ferr.Wrap(ferr.IOError, err)
	}
	defer sf.Close()

	// EEVC children go back out as latin-1, matching the source encoding
	// the reader decoded from; the other kinds stay UTF-8. Round-tripped
	// bytes are always mappable, so the replacement fallback only matters
	// for synthesized content.
	var encode *encoding.Encoder
	if in.Kind == types.KindEEVC {
		encode = encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())
	}

	var size int64
	write := func(s string) error {
		if encode != nil {
			var err error
			s, err = encode.String(s)
			if err != nil {
				return err
			}
		}
		n, err := sf.Write([]byte(s + "\n"))
		size += int64(n)
		return err
	}

	if err := write(header); err != nil {
		return types.ChildFile{}, ferr.Wrap(ferr.IOError, err)
	}
	for _, rec := range in.Bucket.Records {
		if err := write(rec.Raw); err != nil {
			return types.ChildFile{}, ferr.Wrap(ferr.IOError, err)
		}
	}
	for _, t := range in.Trailers {
		if err := write(t); err != nil {
			return types.ChildFile{}, ferr.Wrap(ferr.IOError, err)
		}
	}
	if in.MotherTrailerLine != "" {
		if err := write(in.MotherTrailerLine); err != nil {
			return types.ChildFile{}, ferr.Wrap(ferr.IOError, err)
		}
	}

	if err := sf.Commit(); err != nil {
		return types.ChildFile{}, ferr.Wrap(ferr.IOError, err)
	}

	child := types.ChildFile{
		PV:           in.Bucket.PV.Normalize(),
		Kind:         in.Kind,
		NSA:          in.NSA,
		EmissionDate: in.EmissionDate,
		Path:         path,
		Size:         size,
	}
	if WithSHA256 {
		digest, err := hash.SumFile(path)
		if err != nil {
			return types.ChildFile{}, ferr.Wrap(ferr.IOError, err)
		}
		child.SHA256 = digest
	}
	return child, nil
}

// rewriteHeader overwrites the PV-carrying field of the mother header with
// the bucket's PV, leaving every other byte (or CSV field) intact.
func rewriteHeader(in Input) (string, error) {
	if in.Kind == types.KindEEVD {
		fields := make([]string, len(in.HeaderCSV))
		copy(fields, in.HeaderCSV)
		if layout.EEVDHeaderPV < len(fields) {
			fields[layout.EEVDHeaderPV] = string(in.Bucket.PV.Normalize())
		}
		return strings.Join(fields, ","), nil
	}

	f, ok := layout.HeaderPVField(in.Kind)
	if !ok {
		return in.Header, nil
	}
	if f.End > len(in.Header) {
		return "", ferr.Wrap(ferr.LayoutError, fmt.Errorf("writer: header shorter than PV field [%d,%d)", f.Start, f.End))
	}
	buf := []byte(in.Header)
	copy(buf[f.Start:f.End], string(in.Bucket.PV.Normalize()))
	return string(buf), nil
}
