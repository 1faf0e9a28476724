package pullsvc

import (
	"time"

	"github.com/NebulousLabs/threadgroup"
)

// Sweeper runs Store.Sweep on a fixed interval in the background, as a
// threadgroup-managed goroutine so Close blocks until the sweep loop has
// actually exited rather than leaking it. The sweep runs periodically and is
// serialized with every lease/confirm call through the same Store lock.
type Sweeper struct {
	store    *Store
	interval time.Duration
	tg       threadgroup.ThreadGroup
}

// NewSweeper returns a Sweeper that calls store.Sweep every interval once
// Start is called. interval should be at most a quarter of the shortest lease TTL.
func NewSweeper(store *Store, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, interval: interval}
}

// Start launches the sweep loop. It returns immediately; the loop runs
// until Close is called.
func (sw *Sweeper) Start() error {
	if err := sw.tg.Add(); err != nil {
		return err
	}
	go func() {
		defer sw.tg.Done()
		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()
		for {
			select {
			case <-sw.tg.StopChan():
				return
			case now := <-ticker.C:
				sw.store.Sweep(now)
			}
		}
	}()
	return nil
}

// Close stops the sweep loop and waits for it to exit.
func (sw *Sweeper) Close() error {
	return sw.tg.Stop()
}
