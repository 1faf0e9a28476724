package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/WilsonNous/netunna-rede-splitter-v2/build"
)

// TestLogger checks that the basic functions of the file logger work as
// designed.
func TestLogger(t *testing.T) {
	testdir := build.TempDir(persistDir, "TestLogger")
	if err := os.MkdirAll(testdir, 0700); err != nil {
		t.Fatal(err)
	}

	logFilename := filepath.Join(testdir, "test.log")
	fl, err := NewLogger(logFilename)
	if err != nil {
		t.Fatal(err)
	}

	fl.Println("TEST: this should get written to the logfile")
	if err := fl.Close(); err != nil {
		t.Fatal(err)
	}

	expectedSubstring := []string{"STARTUP", "TEST", "SHUTDOWN", ""}
	fileData, err := os.ReadFile(logFilename)
	if err != nil {
		t.Fatal(err)
	}
	fileLines := strings.Split(string(fileData), "\n")
	for i, line := range fileLines {
		if !strings.Contains(line, expectedSubstring[i]) {
			t.Error("did not find the expected message in the logger")
		}
	}
	if len(fileLines) != 4 {
		t.Error("logger did not create the correct number of lines:", len(fileLines))
	}
}
