package pullsvc

import (
	"os"

	"github.com/WilsonNous/netunna-rede-splitter-v2/persist"
)

var stateMetadata = persist.Metadata{
	Header:  "Pull Service State",
	Version: "2.0",
}

// SaveState atomically writes every file record to path, so a restarted
// daemon does not re-serve files an agent already confirmed.
func (s *Store) SaveState(path string) error {
	return persist.SaveJSON(stateMetadata, s.Snapshot(), path)
}

// LoadState merges the records saved at path into the store. Files found
// mid-lease are reverted to Pending (leases do not survive a restart);
// Downloaded and Failed states are preserved. A missing state file is not
// an error: the store simply starts empty.
func (s *Store) LoadState(path string) error {
	var files []FileRecord
	err := persist.LoadJSON(stateMetadata, &files, path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	release := s.mu.Lock("Store.LoadState")
	defer release()

	for i := range files {
		f := files[i]
		if f.State == Leased {
			f.State = Pending
		}
		f.LeaseID = ""
		if _, exists := s.files[f.ID]; exists {
			continue
		}
		s.files[f.ID] = &f
	}
	return nil
}
