// Package arbiter implements the concurrency arbiter (C8): the
// single-writer/many-reader lock discipline spec §4.8 names — a small set
// of named process-wide mutexes plus a bank of per-address bucket locks
// sized by runtime.GOMAXPROCS — and the deadlock watchdog that flags (and,
// on critical paths, cancels) any hold exceeding T_LOCK.
//
// Grounded on the teacher's node/sync.go SyncEngine, which serializes its
// own state behind a single sync.RWMutex field acquired with explicit
// Lock/RLock pairs around each accessor; this package generalizes that
// single field into several independently-acquirable named locks plus the
// per-address bucket bank spec §4.8's lock table adds, in the same
// explicit-Lock/Unlock idiom rather than channel-based locking.
package arbiter

import "time"

// TLock is the deadlock watchdog's hold-duration threshold (spec §4.8).
const TLock = 120 * time.Second
