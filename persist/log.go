package persist

import (
	"log"
	"os"
)

// Logger wraps the standard library's log.Logger, stamping a STARTUP line
// when it is created and a SHUTDOWN line when it is closed, so that a
// truncated log file is immediately recognizable by its missing SHUTDOWN
// footer.
type Logger struct {
	*log.Logger
	file *os.File
}

// NewLogger creates a new Logger that appends to filename, creating it if
// necessary.
func NewLogger(filename string) (*Logger, error) {
	f, err := os.OpenFile(filename, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	logger := log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile|log.LUTC)
	fl := &Logger{Logger: logger, file: f}
	fl.Println("STARTUP: Logging has started.")
	return fl, nil
}

// Close logs a SHUTDOWN line and closes the underlying file.
func (fl *Logger) Close() error {
	fl.Println("SHUTDOWN: Logging has terminated.")
	return fl.file.Close()
}
