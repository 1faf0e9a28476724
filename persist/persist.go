// Package persist implements small, dependable building blocks for durable
// state: atomic file writes (via a temp-file-then-rename commit), a
// startup/shutdown-stamped line logger, and JSON save/load helpers. The
// child file writer and the pull service's file-state table write through
// this package; the CSV operation log (csvlog) and the pull agent's
// downloads open their files directly.
package persist

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const tempSuffix = "_temp"

// ErrBadFilenameSuffix is returned when a caller passes a filename that ends
// with the reserved temp-file suffix to an operation that doesn't expect one.
var ErrBadFilenameSuffix = errors.New("persist: filename must not end with the reserved temp suffix")

// Metadata identifies the structure and version of a persisted JSON object.
// It is stored alongside the data so that LoadJSON can detect incompatible
// formats before unmarshalling into a caller-provided struct.
type Metadata struct {
	Header  string
	Version string
}

// jsonEnvelope is the on-disk representation of a SaveJSON'd object.
type jsonEnvelope struct {
	Metadata Metadata
	Data     json.RawMessage
}

// RandomSuffix returns a hex-encoded random string, suitable for use as a
// unique filename suffix (e.g. for a safe file's temporary name) or as an
// opaque identifier such as a lease_id or file_id.
func RandomSuffix() string {
	b := make([]byte, 10)
	_, err := rand.Read(b)
	if err != nil {
		// crypto/rand failing is a severe, not recoverable, condition.
		panic("persist: failed to read random bytes: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// SafeFile wraps an *os.File that is written to a randomly-suffixed
// temporary name and only renamed onto its final name when Commit is called.
// Any process that dies (or any error that aborts the write) before Commit
// leaves the final file untouched, so readers of the final path never
// observe a partially-written file.
type SafeFile struct {
	file      *os.File
	finalName string
}

// NewSafeFile creates a new SafeFile whose final name will be finalName.
// finalName must not already end with the reserved temp suffix.
func NewSafeFile(finalName string) (*SafeFile, error) {
	if len(finalName) >= len(tempSuffix) && finalName[len(finalName)-len(tempSuffix):] == tempSuffix {
		return nil, ErrBadFilenameSuffix
	}
	// Resolve to an absolute path up front so that Commit is unaffected by
	// a later os.Chdir in the calling process.
	absFinal, err := filepath.Abs(finalName)
	if err != nil {
		return nil, err
	}
	tmpName := absFinal + "." + RandomSuffix() + tempSuffix
	f, err := os.Create(tmpName)
	if err != nil {
		return nil, err
	}
	return &SafeFile{file: f, finalName: absFinal}, nil
}

// Name returns the temporary filename currently backing the SafeFile. It is
// never equal to the final name that Commit will rename onto.
func (sf *SafeFile) Name() string {
	return sf.file.Name()
}

// Write writes to the underlying temporary file.
func (sf *SafeFile) Write(p []byte) (int, error) {
	return sf.file.Write(p)
}

// Commit flushes the temporary file to disk and atomically renames it onto
// the SafeFile's final name.
func (sf *SafeFile) Commit() error {
	if err := sf.file.Sync(); err != nil {
		return err
	}
	if err := sf.file.Close(); err != nil {
		return err
	}
	return os.Rename(sf.file.Name(), sf.finalName)
}

// Close closes the temporary file without renaming it into place, leaving
// the final path untouched. Calling Close after a successful Commit is a
// harmless no-op error that callers are expected to ignore via defer.
func (sf *SafeFile) Close() error {
	return sf.file.Close()
}

// SaveJSON serializes data, tags it with meta, and atomically writes it to
// filename using a SafeFile.
func SaveJSON(meta Metadata, data interface{}, filename string) error {
	raw, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	env := jsonEnvelope{Metadata: meta, Data: raw}
	envBytes, err := json.MarshalIndent(env, "", "\t")
	if err != nil {
		return err
	}

	sf, err := NewSafeFile(filename)
	if err != nil {
		return err
	}
	defer sf.Close()
	if _, err := sf.Write(envBytes); err != nil {
		return err
	}
	return sf.Commit()
}

// LoadJSON reads a file previously written by SaveJSON, verifies its
// metadata matches meta, and unmarshals its payload into data.
func LoadJSON(meta Metadata, data interface{}, filename string) error {
	if len(filename) >= len(tempSuffix) && filename[len(filename)-len(tempSuffix):] == tempSuffix {
		return ErrBadFilenameSuffix
	}
	raw, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	var env jsonEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}
	if env.Metadata.Header != meta.Header || env.Metadata.Version != meta.Version {
		return errors.New("persist: metadata mismatch loading " + filename)
	}
	return json.Unmarshal(env.Data, data)
}
