package dedup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

// Snapshot persistence for the dedup window. Optional: the core contract
// does not require durability, but restoring the window across a restart
// avoids re-applying the tail of the stream after a crash. The file is
// written atomically and guarded by a sibling flock so two daemons
// pointed at the same path cannot interleave writes.

const (
	lockRetry    = 100 * time.Millisecond
	lockMaxRetry = 50
)

type snapshotState struct {
	EventIDs []string `json:"event_ids"`
}

// Snapshot writes the current window to path in insertion order.
func (d *Deduplicator) Snapshot(path string) error {
	if path == "" {
		return nil
	}

	release, err := acquireLock(path + ".lock")
	if err != nil {
		return err
	}
	defer release()

	d.mu.Lock()
	state := snapshotState{EventIDs: d.ids()}
	d.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dedup snapshot: %w", err)
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

// Restore loads a previously written snapshot into the window. A missing
// file is not an error. Ids beyond the current capacity are dropped
// oldest-first, matching the live eviction policy.
func (d *Deduplicator) Restore(path string) error {
	if path == "" {
		return nil
	}

	release, err := acquireLock(path + ".lock")
	if err != nil {
		return err
	}
	defer release()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var state snapshotState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("unmarshal dedup snapshot: %w", err)
	}

	ids := state.EventIDs
	if len(ids) > d.maxSize {
		ids = ids[len(ids)-d.maxSize:]
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		if _, ok := d.seen[id]; ok {
			continue
		}
		d.record(id)
	}
	return nil
}

func acquireLock(lockPath string) (func(), error) {
	fl := flock.New(lockPath)
	for i := 0; i < lockMaxRetry; i++ {
		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire snapshot lock: %w", err)
		}
		if locked {
			return func() { fl.Unlock() }, nil
		}
		time.Sleep(lockRetry)
	}
	return nil, fmt.Errorf("snapshot file %s is locked by another instance", lockPath)
}
