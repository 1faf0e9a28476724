// Package csvlog implements the operation log: one line per processed
// mother file, appended to a CSV with header
// "data_hora;arquivo;tipo;total_trailer;total_processado;status;detalhe".
package csvlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/WilsonNous/netunna-rede-splitter-v2/ferr"
)

var header = []string{"data_hora", "arquivo", "tipo", "total_trailer", "total_processado", "status", "detalhe"}

// Record is one operation-log entry.
type Record struct {
	Arquivo         string
	Tipo            string
	TotalTrailer    string
	TotalProcessado string
	Status          string
	Detalhe         string
}

// Logger appends Records to a single CSV file, writing the header once on
// first use. It is safe for concurrent use by multiple goroutines (the
// engine may process several mother files in parallel).
type Logger struct {
	mu   sync.Mutex
	path string
}

// Open returns a Logger writing to path, creating its parent directory if
// needed. It does not write the header until the first Append call, so an
// unused Logger leaves no file behind.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, ferr.Wrap(ferr.IOError, err)
	}
	return &Logger{path: path}, nil
}

// Append writes one Record, stamped with the current time, to the log,
// writing the header first if the file is new or empty.
func (l *Logger) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	needHeader := false
	if fi, err := os.Stat(l.path); err != nil || fi.Size() == 0 {
		needHeader = true
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return ferr.Wrap(ferr.IOError, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if needHeader {
		if err := w.Write(header); err != nil {
			return ferr.Wrap(ferr.IOError, err)
		}
	}
	row := []string{
		time.Now().Format("02/01/2006 15:04:05"),
		rec.Arquivo,
		rec.Tipo,
		rec.TotalTrailer,
		rec.TotalProcessado,
		rec.Status,
		rec.Detalhe,
	}
	if err := w.Write(row); err != nil {
		return ferr.Wrap(ferr.IOError, err)
	}
	w.Flush()
	return w.Error()
}
