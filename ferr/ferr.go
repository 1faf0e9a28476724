// Package ferr defines the error taxonomy shared across the split-and-
// reconcile pipeline and the pull transfer protocol. Each category is a
// sentinel that call sites wrap with NebulousLabs/errors.Extend so that a
// caller can classify an error with errors.Contains without string
// matching.
package ferr

import (
	"github.com/NebulousLabs/errors"
)

// Category sentinels. The pipeline and protocol packages wrap the errors
// they return with one of these via errors.Extend (the low-level helper
// packages such as persist return plain errors), so that
// errors.Contains(err, ferr.InputError) etc. classifies it without string
// matching.
var (
	// InputError covers a missing/malformed header, a truncated line, or an
	// unrecognized file kind.
	InputError = errors.New("input error")
	// LayoutError covers a record slicing operation that falls outside a
	// line — a Layout Registry/programmer bug, never an acquirer data
	// problem.
	LayoutError = errors.New("layout error")
	// ReconciliationDivergence is non-fatal; it is surfaced in a Verdict,
	// never returned as a call error, but is defined here so the same
	// vocabulary covers the whole taxonomy.
	ReconciliationDivergence = errors.New("reconciliation divergence")
	// IOError covers filesystem read/write failures.
	IOError = errors.New("io error")
	// ProtocolError covers HTTP transport failures, malformed JSON bodies,
	// and references to an unknown lease_id.
	ProtocolError = errors.New("protocol error")
	// IntegrityError covers a size or SHA-256 mismatch detected by the pull
	// agent.
	IntegrityError = errors.New("integrity error")
	// InternalError is the catch-all for anything that doesn't fit the
	// categories above.
	InternalError = errors.New("internal error")

	// MissingMotherTrailer is a specific InputError: the mother file ended
	// without a trailer record the splitter requires to reconcile against.
	MissingMotherTrailer = errors.Extend(errors.New("mother trailer missing"), InputError)
)

// Wrap extends err with category, preserving err's own message. Returns nil
// if err is nil.
func Wrap(category error, err error) error {
	if err == nil {
		return nil
	}
	return errors.Extend(err, category)
}
