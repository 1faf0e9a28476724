// Package pullsvc implements the server side of the pull/confirm transfer
// protocol: it tracks per-child-file state, hands out time-bounded leases,
// and resolves them via an explicit confirm step, guaranteeing a file_id
// never sits in two active leases at once.
package pullsvc

import (
	"sort"
	"strings"
	"time"

	"github.com/NebulousLabs/errors"

	"github.com/WilsonNous/netunna-rede-splitter-v2/ferr"
	"github.com/WilsonNous/netunna-rede-splitter-v2/lock"
	"github.com/WilsonNous/netunna-rede-splitter-v2/persist"
)

// State is a FileRecord's position in the lifecycle:
// pending -> leased -> {downloaded | failed | pending on TTL expiry};
// downloaded is terminal, failed may be re-leased.
type State string

const (
	Pending    State = "pending"
	Leased     State = "leased"
	Downloaded State = "downloaded"
	Failed     State = "failed"
)

// FileRecord is one child file the Pull Service knows about.
type FileRecord struct {
	ID      string
	PV      string
	Name    string
	Path    string // local filesystem path the HTTP handler streams from
	Size    int64
	SHA256  string
	Lote    string // batch/lote prefix, used by the lease lote filter
	State   State
	LeaseID string
}

// ErrUnknownLease is a ProtocolError: confirm referenced a lease_id the
// store has no record of (expired, evicted by Sweep after being resolved,
// or never issued).
var ErrUnknownLease = errors.New("pullsvc: unknown lease_id")

// ErrLeaseAlreadyResolved is a ProtocolError: a second confirm for the same
// lease_id disagrees with the first. Subsequent calls with conflicting
// outcomes are rejected outright.
var ErrLeaseAlreadyResolved = errors.New("pullsvc: lease already resolved with a different outcome")

type leaseEntry struct {
	id       string
	fileIDs  []string
	deadline time.Time
	closed   bool
	// okIDs/failIDs remember the first confirm's outcome so a repeated
	// confirm call can be checked for idempotence rather than blindly
	// reapplied.
	okIDs   map[string]bool
	failIDs map[string]bool
}

// Store is the Pull Service's file-state table plus its active-lease set.
// Every exported method is linearizable with respect to every other:
// guarded by a single lock.Lock, one logical transaction per operation,
// rather than fine-grained per-row locking.
type Store struct {
	mu *lock.Lock

	files  map[string]*FileRecord
	leases map[string]*leaseEntry
}

// NewStore returns an empty Store. maxLockTime bounds how long any single
// operation may hold the lock before the deadlock detector logs and force-
// unlocks it (see lock.New); it should be comfortably longer than a single
// lease/confirm/sweep call ever takes.
func NewStore(maxLockTime time.Duration) *Store {
	return &Store{
		mu:     lock.New(maxLockTime),
		files:  make(map[string]*FileRecord),
		leases: make(map[string]*leaseEntry),
	}
}

// Add registers a file in state Pending. Used to seed the store from a scan
// of freshly split children; re-adding an existing id is a no-op.
func (s *Store) Add(f FileRecord) {
	release := s.mu.Lock("Store.Add")
	defer release()

	if _, exists := s.files[f.ID]; exists {
		return
	}
	f.State = Pending
	f.LeaseID = ""
	s.files[f.ID] = &f
}

// Get returns a copy of the file record for id.
func (s *Store) Get(id string) (FileRecord, bool) {
	release := s.mu.RLock("Store.Get")
	defer release()
	f, ok := s.files[id]
	if !ok {
		return FileRecord{}, false
	}
	return *f, true
}

// Lease atomically selects up to limit Pending files (optionally filtered to
// one of the given lote prefixes), moves them to Leased with a TTL
// deadline, and returns a new lease_id plus their descriptors. Selection is
// stable-ordered by (pv, name). It never blocks: if fewer
// than limit files are pending, it returns what is available, possibly
// none.
func (s *Store) Lease(limit int, lotes []string, ttl time.Duration) (string, []FileRecord, error) {
	release := s.mu.Lock("Store.Lease")
	defer release()

	var candidates []*FileRecord
	for _, f := range s.files {
		if f.State != Pending {
			continue
		}
		if len(lotes) > 0 && !containsLote(lotes, f.Lote) {
			continue
		}
		candidates = append(candidates, f)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].PV != candidates[j].PV {
			return candidates[i].PV < candidates[j].PV
		}
		return candidates[i].Name < candidates[j].Name
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	leaseID := persist.RandomSuffix()
	entry := &leaseEntry{
		id:       leaseID,
		deadline: time.Now().Add(ttl),
		okIDs:    make(map[string]bool),
		failIDs:  make(map[string]bool),
	}

	out := make([]FileRecord, 0, len(candidates))
	for _, f := range candidates {
		f.State = Leased
		f.LeaseID = leaseID
		entry.fileIDs = append(entry.fileIDs, f.ID)
		out = append(out, *f)
	}
	s.leases[leaseID] = entry

	return leaseID, out, nil
}

// containsLote reports whether lote matches any of the requested prefixes.
func containsLote(lotes []string, lote string) bool {
	for _, l := range lotes {
		if strings.HasPrefix(lote, l) {
			return true
		}
	}
	return false
}

// RetryFailed transitions the named Failed files back to Pending so they
// can be leased again, and returns how many actually moved. With no ids it
// retries every Failed file. This is the operator-retry edge of the state
// machine; nothing transitions a Failed file automatically.
func (s *Store) RetryFailed(ids ...string) int {
	release := s.mu.Lock("Store.RetryFailed")
	defer release()

	moved := 0
	retry := func(f *FileRecord) {
		if f.State == Failed {
			f.State = Pending
			f.LeaseID = ""
			moved++
		}
	}
	if len(ids) == 0 {
		for _, f := range s.files {
			retry(f)
		}
		return moved
	}
	for _, id := range ids {
		if f, ok := s.files[id]; ok {
			retry(f)
		}
	}
	return moved
}

// Confirm resolves lease leaseID: files in okIDs move leased->downloaded,
// files in failIDs move leased->failed (releasing the lease). IDs that do
// not belong to leaseID are ignored. A repeated call
// with the exact same (okIDs, failIDs) outcome is a harmless no-op;
// repeating it with a different outcome returns ErrLeaseAlreadyResolved.
func (s *Store) Confirm(leaseID string, okIDs, failIDs []string) (confirmed, rejected int, err error) {
	release := s.mu.Lock("Store.Confirm")
	defer release()

	entry, ok := s.leases[leaseID]
	if !ok {
		return 0, 0, ferr.Wrap(ferr.ProtocolError, ErrUnknownLease)
	}

	belongs := make(map[string]bool, len(entry.fileIDs))
	for _, id := range entry.fileIDs {
		belongs[id] = true
	}

	if entry.closed {
		if sameOutcome(entry, okIDs, failIDs) {
			// A matching outcome means every id of the first call was
			// applied, so that call reported them all as confirmed.
			return len(entry.okIDs) + len(entry.failIDs), 0, nil
		}
		return 0, 0, ferr.Wrap(ferr.ProtocolError, ErrLeaseAlreadyResolved)
	}

	for _, id := range okIDs {
		if !belongs[id] {
			rejected++
			continue
		}
		if f, ok := s.files[id]; ok && f.State == Leased && f.LeaseID == leaseID {
			f.State = Downloaded
			f.LeaseID = ""
			entry.okIDs[id] = true
			confirmed++
		}
	}
	for _, id := range failIDs {
		if !belongs[id] {
			rejected++
			continue
		}
		if f, ok := s.files[id]; ok && f.State == Leased && f.LeaseID == leaseID {
			f.State = Failed
			f.LeaseID = ""
			entry.failIDs[id] = true
			confirmed++
		}
	}
	entry.closed = true
	return confirmed, rejected, nil
}

func sameOutcome(entry *leaseEntry, okIDs, failIDs []string) bool {
	if len(okIDs) != len(entry.okIDs) || len(failIDs) != len(entry.failIDs) {
		return false
	}
	for _, id := range okIDs {
		if !entry.okIDs[id] {
			return false
		}
	}
	for _, id := range failIDs {
		if !entry.failIDs[id] {
			return false
		}
	}
	return true
}

// Sweep transitions every Leased file whose lease has passed its TTL
// deadline back to Pending, clearing its lease_id, and marks the lease
// expired so a late confirm against it is rejected as unknown. Confirmed
// (closed) leases past their deadline are evicted too, which bounds the
// lease table's size; the idempotence window for a repeated confirm is
// therefore the lease's own TTL. It is safe to call concurrently with
// Lease/Confirm (all three take the same lock) and is idempotent:
// sweeping twice in a row after expiry is a no-op the second time.
// Returns the number of files released.
func (s *Store) Sweep(now time.Time) int {
	release := s.mu.Lock("Store.Sweep")
	defer release()

	released := 0
	for id, entry := range s.leases {
		if now.Before(entry.deadline) {
			continue
		}
		if entry.closed {
			delete(s.leases, id)
			continue
		}
		for _, fid := range entry.fileIDs {
			f, ok := s.files[fid]
			if !ok || f.State != Leased || f.LeaseID != entry.id {
				continue
			}
			f.State = Pending
			f.LeaseID = ""
			released++
		}
		delete(s.leases, id)
	}
	return released
}

// Snapshot returns a copy of every file record, for read-only dashboard
// callers. It may reflect state up to one sweep interval stale relative to
// a concurrent write.
func (s *Store) Snapshot() []FileRecord {
	release := s.mu.RLock("Store.Snapshot")
	defer release()

	out := make([]FileRecord, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, *f)
	}
	return out
}
