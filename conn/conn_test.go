package conn

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/NebulousLabs/fastrand"
)

// TestThrottleRead checks that reading through a Throttled conn takes at
// least as long as the configured byte rate allows.
func TestThrottleRead(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	payload := fastrand.Bytes(2000)
	go func() {
		server.Write(payload)
		server.Close()
	}()

	throttled := Throttle(client, 4000) // 2000 bytes at 4000 B/s: >= ~250ms
	defer throttled.Close()

	start := time.Now()
	got, err := io.ReadAll(throttled)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(payload) {
		t.Fatalf("read %d bytes, want %d", len(got), len(payload))
	}
	// The first window's budget (1000 bytes) moves immediately; the second
	// half has to wait at least one full window.
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Fatalf("read finished too fast for the configured rate: %v", elapsed)
	}
}

// TestThrottleWrite checks the write direction against the same budget.
func TestThrottleWrite(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		io.Copy(io.Discard, server)
	}()

	throttled := Throttle(client, 4000)
	payload := fastrand.Bytes(2000)

	start := time.Now()
	n, err := throttled.Write(payload)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(payload) {
		t.Fatalf("wrote %d bytes, want %d", n, len(payload))
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Fatalf("write finished too fast for the configured rate: %v", elapsed)
	}
	throttled.Close()
	<-done
}

// TestThrottleDisabled checks that a non-positive rate returns the conn
// unwrapped.
func TestThrottleDisabled(t *testing.T) {
	client, _ := net.Pipe()
	defer client.Close()
	if c := Throttle(client, 0); c != client {
		t.Fatal("zero rate should return the underlying conn unchanged")
	}
}
