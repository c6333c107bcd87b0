// Package cooldown implements the per-identity suppression state machine.
// It decides, for each resolved detection, whether to notify immediately,
// buffer a generic notification while waiting for a name, or suppress. The
// whole synchronous portion of a decision runs under one mutex, so the
// suppression check and the record write that gates delivery can never
// interleave with another decision for the same key.
package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/quietcam/reid/internal/domain/model"
	"github.com/quietcam/reid/pkg/logger"
	"github.com/quietcam/reid/pkg/metrics"
)

// Default state machine configuration constants.
const (
	defaultCooldownWindow = 5 * time.Minute
	defaultBufferDelay    = 10 * time.Second
	defaultMaxPending     = 256

	// Cooldown and label records are retained past the window only to keep
	// lookups correct near the boundary; the sweep drops them afterwards.
	retentionFactor = 2
)

// Action is the outcome kind of a decision.
type Action int

const (
	// ActionSuppress drops the detection without notifying.
	ActionSuppress Action = iota
	// ActionSendNamed notifies immediately with the recognized name. The
	// gating records are already written when this is returned.
	ActionSendNamed
	// ActionSendGenericDeferred buffered the detection; a generic
	// notification fires after the buffer delay unless a name arrives.
	ActionSendGenericDeferred
)

// Decision is the result of running a detection through the state machine.
type Decision struct {
	Action Action
	Reason string // populated for ActionSuppress
}

// Request carries everything the machine needs to decide on a detection.
type Request struct {
	PersonID   string
	Label      string // empty until the person is recognized
	Class      string
	CameraName string
	Image      []byte
	Box        model.Box
}

// Fired describes a buffered generic notification whose timer elapsed
// without a name arriving.
type Fired struct {
	PersonID   string
	Class      string
	CameraName string
	Image      []byte
	Box        model.Box
	At         time.Time
}

// GenericFunc receives fired generic notifications. It is invoked outside
// the machine's lock, on the timer goroutine.
type GenericFunc func(f Fired)

// record is the last notification-worthy event for an identity.
type record struct {
	at       time.Time
	label    string
	hasLabel bool
}

// pendingEntry is a buffered generic notification waiting for a name.
type pendingEntry struct {
	task       Task
	image      []byte
	box        model.Box
	class      string
	cameraName string
	createdAt  time.Time
}

// Machine holds the cooldown, label and pending-buffer state. All maps are
// guarded by mu.
type Machine struct {
	mu        sync.Mutex
	cooldowns map[string]record
	labelSeen map[string]time.Time
	pending   map[string]*pendingEntry
	closed    bool

	window     time.Duration
	delay      time.Duration
	maxPending int

	sched     Scheduler
	clock     func() time.Time
	onGeneric GenericFunc

	logger logger.Logger
}

// New creates a state machine. onGeneric receives buffered notifications
// whose delay elapsed; it may be nil when generic delivery is unwanted.
func New(onGeneric GenericFunc, opts ...Option) *Machine {
	m := &Machine{
		cooldowns:  make(map[string]record),
		labelSeen:  make(map[string]time.Time),
		pending:    make(map[string]*pendingEntry),
		window:     defaultCooldownWindow,
		delay:      defaultBufferDelay,
		maxPending: defaultMaxPending,
		sched:      NewTimerScheduler(),
		clock:      time.Now,
		onGeneric:  onGeneric,
		logger:     logger.Get().Named("cooldown"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Decide runs one detection through the suppression logic. The check and the
// record writes happen atomically; delivery for ActionSendNamed is the
// caller's job and must happen after this returns, outside the lock.
func (m *Machine) Decide(req Request, now time.Time) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return m.suppress("closed")
	}
	if req.Label != "" {
		return m.decideNamed(req, now)
	}
	return m.decideGeneric(req, now)
}

// decideNamed handles detections that carry a recognized name. Must be
// called with m.mu held.
func (m *Machine) decideNamed(req Request, now time.Time) Decision {
	// The label check runs first: it catches repeats across fragmented
	// person ids, which the per-identity record cannot.
	if last, ok := m.labelSeen[req.Label]; ok && now.Sub(last) < m.window {
		return m.suppress("label_cooldown")
	}

	if rec, ok := m.cooldowns[req.PersonID]; ok && now.Sub(rec.at) < m.window {
		upgrade := !rec.hasLabel
		relabel := rec.hasLabel && rec.label != req.Label
		if !upgrade && !relabel {
			return m.suppress("cooldown")
		}
		if relabel {
			// Likely identity fragmentation; notify rather than miss.
			m.logger.Info(context.Background(), "label changed within cooldown window",
				logger.String("personID", req.PersonID),
				logger.String("previous", rec.label),
				logger.String("label", req.Label),
			)
		}
	}

	// A name arrived before the buffer fired; the generic notification must
	// not go out afterwards.
	if p, ok := m.pending[req.PersonID]; ok {
		p.task.Cancel()
		delete(m.pending, req.PersonID)
		metrics.UpdatePendingBuffers(len(m.pending))
	}

	// Written before delivery begins, closing the decision/delivery race.
	m.cooldowns[req.PersonID] = record{at: now, label: req.Label, hasLabel: true}
	m.labelSeen[req.Label] = now
	metrics.UpdateCooldownRecords(len(m.cooldowns))

	return Decision{Action: ActionSendNamed}
}

// decideGeneric handles detections without a name. Must be called with m.mu
// held.
func (m *Machine) decideGeneric(req Request, now time.Time) Decision {
	if _, ok := m.pending[req.PersonID]; ok {
		// The existing buffer keeps its own captured image; this frame drops.
		return m.suppress("already_buffered")
	}
	if rec, ok := m.cooldowns[req.PersonID]; ok && now.Sub(rec.at) < m.window {
		return m.suppress("cooldown")
	}

	if m.maxPending > 0 && len(m.pending) >= m.maxPending {
		m.evictOldestPending()
	}

	personID := req.PersonID
	entry := &pendingEntry{
		image:      req.Image,
		box:        req.Box,
		class:      req.Class,
		cameraName: req.CameraName,
		createdAt:  now,
	}
	entry.task = m.sched.Schedule(m.delay, func() { m.fire(personID) })
	m.pending[personID] = entry
	metrics.UpdatePendingBuffers(len(m.pending))

	return Decision{Action: ActionSendGenericDeferred}
}

// fire runs when a buffer's delay elapses. A named notification may have
// landed during the wait, in which case the buffer discards silently.
func (m *Machine) fire(personID string) {
	m.mu.Lock()

	p, ok := m.pending[personID]
	if !ok {
		// Cancelled or superseded between timer fire and lock acquisition.
		m.mu.Unlock()
		return
	}
	delete(m.pending, personID)
	metrics.UpdatePendingBuffers(len(m.pending))

	now := m.clock()
	if rec, ok := m.cooldowns[personID]; ok && now.Sub(rec.at) < m.window {
		m.mu.Unlock()
		metrics.RecordSuppressed("superseded")
		return
	}

	m.cooldowns[personID] = record{at: now}
	metrics.UpdateCooldownRecords(len(m.cooldowns))
	fired := Fired{
		PersonID:   personID,
		Class:      p.class,
		CameraName: p.cameraName,
		Image:      p.image,
		Box:        p.box,
		At:         now,
	}
	m.mu.Unlock()

	if m.onGeneric != nil {
		m.onGeneric(fired)
	}
}

// evictOldestPending drops the oldest buffered notification to bound the
// pending map. Must be called with m.mu held.
func (m *Machine) evictOldestPending() {
	var oldestID string
	var oldest *pendingEntry
	for id, p := range m.pending {
		if oldest == nil || p.createdAt.Before(oldest.createdAt) {
			oldestID = id
			oldest = p
		}
	}
	if oldest == nil {
		return
	}
	oldest.task.Cancel()
	delete(m.pending, oldestID)
	metrics.RecordEviction("pending")
	m.logger.Warn(context.Background(), "pending buffer map full, dropped oldest",
		logger.String("personID", oldestID),
		logger.Int("maxPending", m.maxPending),
	)
}

// suppress records the suppression and builds the decision. Must be called
// with m.mu held.
func (m *Machine) suppress(reason string) Decision {
	metrics.RecordSuppressed(reason)
	return Decision{Action: ActionSuppress, Reason: reason}
}

// Sweep drops cooldown and label records past their retention window. The
// retention is well beyond the cooldown window, so removal only bounds
// memory and never changes decisions. Returns the number removed.
func (m *Machine) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	retention := m.window * retentionFactor
	removed := 0
	for id, rec := range m.cooldowns {
		if now.Sub(rec.at) > retention {
			delete(m.cooldowns, id)
			removed++
		}
	}
	for label, at := range m.labelSeen {
		if now.Sub(at) > retention {
			delete(m.labelSeen, label)
			removed++
		}
	}
	metrics.UpdateCooldownRecords(len(m.cooldowns))
	return removed
}

// PendingCount returns the number of buffered generic notifications.
func (m *Machine) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// CooldownCount returns the number of per-identity cooldown records.
func (m *Machine) CooldownCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cooldowns)
}

// Close cancels all outstanding buffer timers and clears all state. Further
// decisions are suppressed. Safe to call more than once.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for _, p := range m.pending {
		p.task.Cancel()
	}
	m.pending = make(map[string]*pendingEntry)
	m.cooldowns = make(map[string]record)
	m.labelSeen = make(map[string]time.Time)
	metrics.UpdatePendingBuffers(0)
	metrics.UpdateCooldownRecords(0)
}
