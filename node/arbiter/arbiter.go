package arbiter

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Name identifies one of the process-wide named locks spec §4.8 lists.
type Name string

const (
	// Write guards any persistent mutation: unit insert, MC advance, ball
	// commit (spec §4.8).
	Write Name = "write"
	// HandleJoint guards validation of one received unit from step 8
	// onward, once conflict detection starts reading author state.
	HandleJoint Name = "handle_joint"
	// CatchupRequest bounds the load a single catchup-chain request can
	// impose on the node serving it.
	CatchupRequest Name = "catchup_request"
	// GetHistoryRequest bounds the load a light-history request can impose.
	GetHistoryRequest Name = "get_history_request"
)

var namedLocks = [...]Name{Write, HandleJoint, CatchupRequest, GetHistoryRequest}

// hold is one currently-acquired lock, tracked so the watchdog can scan for
// holds that have outlived T_LOCK.
type hold struct {
	name   string
	since  time.Time
	cancel context.CancelFunc
}

// Arbiter is the single-writer/many-reader lock table spec §4.8 describes:
// a fixed set of named process-wide mutexes plus a bank of per-address
// bucket locks, watched by a deadlock-detecting goroutine.
type Arbiter struct {
	locks   map[Name]*sync.Mutex
	buckets []sync.Mutex

	mu     sync.Mutex
	holds  map[int64]*hold
	nextID int64

	log *logrus.Logger

	holdSeconds   *prometheus.GaugeVec
	watchdogTrips prometheus.Counter

	stop    chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// New builds an Arbiter with bucketCount per-address locks (runtime.GOMAXPROCS
// when bucketCount <= 0, per spec §4.8 "sized by runtime.GOMAXPROCS").
// Metrics register against registry; a nil registry skips registration
// entirely (useful for tests that don't want to touch the global registry).
func New(log *logrus.Logger, registry prometheus.Registerer, bucketCount int) *Arbiter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if bucketCount <= 0 {
		bucketCount = runtime.GOMAXPROCS(0)
	}
	if bucketCount < 1 {
		bucketCount = 1
	}

	locks := make(map[Name]*sync.Mutex, len(namedLocks))
	for _, name := range namedLocks {
		locks[name] = &sync.Mutex{}
	}

	a := &Arbiter{
		locks:   locks,
		buckets: make([]sync.Mutex, bucketCount),
		holds:   make(map[int64]*hold),
		log:     log,
		holdSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "witnessdag_lock_hold_seconds",
			Help: "Current hold duration of an arbiter lock, by lock name.",
		}, []string{"lock"}),
		watchdogTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "witnessdag_lock_watchdog_trips_total",
			Help: "Count of lock holds observed exceeding T_LOCK.",
		}),
		stop: make(chan struct{}),
	}
	if registry != nil {
		registry.MustRegister(a.holdSeconds, a.watchdogTrips)
	}
	return a
}

// Lock acquires the named process-wide lock. If critical, the returned
// context is canceled by the watchdog should this hold exceed T_LOCK (spec
// §4.8 "for critical paths, auto-cancels the offending operation"); the
// caller must thread the returned context into the work done under the
// lock for that cancellation to have any effect.
func (a *Arbiter) Lock(ctx context.Context, name Name, critical bool) (release func(), watchedCtx context.Context) {
	lk, ok := a.locks[name]
	if !ok {
		panic(fmt.Sprintf("arbiter: unknown lock %q", name))
	}
	return a.acquire(ctx, string(name), critical, lk)
}

// LockAddress acquires the bucket lock address hashes to, grouping
// concurrent validations of units by the same author (spec §4.8
// "per-address | (hashed to a bucket)").
func (a *Arbiter) LockAddress(ctx context.Context, address string, critical bool) (release func(), watchedCtx context.Context) {
	idx := addressBucket(address, len(a.buckets))
	return a.acquire(ctx, fmt.Sprintf("address:%d", idx), critical, &a.buckets[idx])
}

func (a *Arbiter) acquire(ctx context.Context, label string, critical bool, lk sync.Locker) (func(), context.Context) {
	lk.Lock()

	watchedCtx := ctx
	var cancel context.CancelFunc
	if critical {
		watchedCtx, cancel = context.WithCancel(ctx)
	}

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.holds[id] = &hold{name: label, since: time.Now(), cancel: cancel}
	a.mu.Unlock()

	release := func() {
		a.mu.Lock()
		delete(a.holds, id)
		a.mu.Unlock()
		a.holdSeconds.WithLabelValues(label).Set(0)
		lk.Unlock()
		if cancel != nil {
			cancel()
		}
	}
	return release, watchedCtx
}

func addressBucket(address string, bucketCount int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(address))
	return int(h.Sum32() % uint32(bucketCount))
}

// StartWatchdog launches the background scan that flags (and, for critical
// holds, cancels) any lock held longer than T_LOCK (spec §4.8). Call
// StopWatchdog to shut it down.
func (a *Arbiter) StartWatchdog(scanInterval time.Duration) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(scanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.scan()
			case <-a.stop:
				return
			}
		}
	}()
}

// StopWatchdog stops the watchdog goroutine and waits for it to exit.
func (a *Arbiter) StopWatchdog() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.mu.Unlock()
	close(a.stop)
	a.wg.Wait()
}

func (a *Arbiter) scan() {
	now := time.Now()
	a.mu.Lock()
	snapshot := make([]*hold, 0, len(a.holds))
	for id, h := range a.holds {
		snapshot = append(snapshot, h)
		_ = id
	}
	a.mu.Unlock()

	for _, h := range snapshot {
		held := now.Sub(h.since)
		a.holdSeconds.WithLabelValues(h.name).Set(held.Seconds())
		if held <= TLock {
			continue
		}
		a.watchdogTrips.Inc()
		a.log.WithFields(logrus.Fields{
			"lock":     h.name,
			"held_for": held,
		}).Warn("arbiter: lock held beyond T_LOCK")
		if h.cancel != nil {
			h.cancel()
		}
	}
}
