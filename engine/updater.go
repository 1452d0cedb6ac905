package engine

import (
	"encoding/binary"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/codelayers/code"
)

// DefaultUpdateInterval is the default polling interval of an Updater.
const DefaultUpdateInterval = 5 * time.Second

// LayerProvider returns the current source layers, for example by
// rescanning directories.
type LayerProvider func() ([]*code.Sources, error)

// Updater periodically asks a LayerProvider for source layers and replaces
// the engine's code layers when any source was added, removed or modified.
// Failures never stop the loop; the most recent one is kept until the next
// successful check.
type Updater struct {
	engine   *Engine
	provider LayerProvider
	interval time.Duration
	enabled  atomic.Bool

	mu      sync.Mutex // start/stop
	stop    chan struct{}
	stopped chan struct{}

	checkMu     sync.Mutex // held for a whole check
	fingerprint uint64
	primed      bool

	errMu   sync.Mutex
	lastErr error

	updates atomic.Uint64
}

// NewUpdater creates a stopped updater. A non-positive interval means
// DefaultUpdateInterval.
func NewUpdater(e *Engine, provider LayerProvider, interval time.Duration) *Updater {
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	u := &Updater{
		engine:   e,
		provider: provider,
		interval: interval,
	}
	u.enabled.Store(true)
	return u
}

// Start begins polling. Calling Start on a running updater does nothing.
func (u *Updater) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.stop != nil {
		return
	}
	u.stop = make(chan struct{})
	u.stopped = make(chan struct{})
	go u.loop(u.stop, u.stopped)
}

// Stop halts polling and waits for an update in progress to finish.
func (u *Updater) Stop() {
	u.mu.Lock()
	stopCh, stoppedCh := u.stop, u.stopped
	u.stop, u.stopped = nil, nil
	u.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

// SetEnabled pauses or resumes polling without stopping the loop.
func (u *Updater) SetEnabled(enabled bool) { u.enabled.Store(enabled) }

func (u *Updater) IsEnabled() bool { return u.enabled.Load() }

func (u *Updater) Interval() time.Duration { return u.interval }

// UpdateCount returns how many times the layers were replaced.
func (u *Updater) UpdateCount() uint64 { return u.updates.Load() }

// LastError returns the error of the most recent check, or nil if it
// succeeded.
func (u *Updater) LastError() error {
	u.errMu.Lock()
	defer u.errMu.Unlock()
	return u.lastErr
}

func (u *Updater) setLastError(err error) {
	u.errMu.Lock()
	u.lastErr = err
	u.errMu.Unlock()
}

func (u *Updater) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !u.enabled.Load() {
				continue
			}
			if _, err := u.Check(); err != nil {
				log.Warningf("engine %s: layer update failed: %s", u.engine.ID(), err)
			}
		}
	}
}

// Check polls the provider once and updates the engine if the layers
// changed since the last successful update. The first check always
// updates. It reports whether the layers were replaced.
func (u *Updater) Check() (bool, error) {
	u.checkMu.Lock()
	defer u.checkMu.Unlock()

	layers, err := u.provider()
	if err != nil {
		u.setLastError(err)
		return false, err
	}
	fp := fingerprint(layers)
	if u.primed && fp == u.fingerprint {
		u.setLastError(nil)
		return false, nil
	}
	if err := u.engine.SetCodeLayersBySource(layers); err != nil {
		u.setLastError(err)
		return false, err
	}
	u.fingerprint = fp
	u.primed = true
	u.setLastError(nil)
	n := u.updates.Add(1)
	log.Debugf("engine %s: layers updated (%d)", u.engine.ID(), n)
	return true, nil
}

// fingerprint summarizes the names and member modification signals of
// layers, in order.
func fingerprint(layers []*code.Sources) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, s := range layers {
		h.Write([]byte(s.Name()))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(s.LastModified()))
		h.Write(buf[:])
	}
	return h.Sum64()
}
