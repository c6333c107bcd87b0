// Package track implements the temporal identity cache and matcher. It
// stores recently seen identities with their appearance embeddings and, for
// each new detection, either matches an existing identity or allocates a new
// one. Entries expire after the tracking window and are evicted least
// recently updated first when the cache is full.
package track

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quietcam/reid/internal/domain/embedding"
	"github.com/quietcam/reid/internal/domain/model"
	"github.com/quietcam/reid/pkg/logger"
	"github.com/quietcam/reid/pkg/metrics"
)

// Default tracker configuration constants.
const (
	defaultThreshold       = 0.6
	defaultTrackingWindow  = 60 * time.Second
	defaultCapacity        = 1000
	defaultAmbiguityMargin = 0.05
	personIDSuffixLen      = 9
)

// Identity is a tracked person (or bucketed non-person detection). Owned
// exclusively by the Tracker; callers receive copies.
type Identity struct {
	PersonID   string
	Embedding  embedding.Vector
	FirstSeen  time.Time
	LastSeen   time.Time
	CameraID   string
	CameraName string
	Label      string
	Snapshot   []byte
}

// Resolution is the outcome of resolving a detection against the cache.
type Resolution struct {
	PersonID string
	IsNew    bool
}

// node is a cache entry on the intrusive recency list. head is the most
// recently updated entry, tail the least.
type node struct {
	id   Identity
	prev *node
	next *node
}

// Tracker is the temporal identity cache. All state is guarded by mu.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*node
	head    *node
	tail    *node

	threshold       float64
	window          time.Duration
	capacity        int
	ambiguityMargin float64

	logger logger.Logger
}

// New creates a tracker with default configuration.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		entries:         make(map[string]*node),
		threshold:       defaultThreshold,
		window:          defaultTrackingWindow,
		capacity:        defaultCapacity,
		ambiguityMargin: defaultAmbiguityMargin,
		logger:          logger.Get().Named("tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Resolve finds the best matching identity for an embedding or allocates a
// new one. Non person/face classes bypass appearance matching entirely and
// deduplicate per camera and time bucket.
func (t *Tracker) Resolve(ctx context.Context, emb embedding.Vector, cameraID, cameraName, class string, now time.Time) Resolution {
	t.mu.Lock()
	defer t.mu.Unlock()

	if class != model.ClassPerson && class != model.ClassFace {
		return t.resolveBucketed(class, cameraID, cameraName, now)
	}

	// Scan live entries in recency order. Strict greater-than keeps the
	// first-encountered entry on ties, which is stable within a run.
	var best *node
	bestSim := 0.0
	for n := t.head; n != nil; n = n.next {
		if len(n.id.Embedding) != embedding.Dim {
			continue
		}
		if now.Sub(n.id.LastSeen) > t.window {
			continue
		}
		sim := emb.Dot(n.id.Embedding)
		if sim > bestSim {
			bestSim = sim
			best = n
		}
	}

	if best != nil && math.Abs(bestSim-t.threshold) < t.ambiguityMargin {
		metrics.RecordMatchAmbiguity()
		t.logger.Info(ctx, "similarity near threshold",
			logger.String("personID", best.id.PersonID),
			logger.Float64("similarity", bestSim),
			logger.Float64("threshold", t.threshold),
		)
	}

	if best != nil && bestSim >= t.threshold {
		best.id.LastSeen = now
		t.moveToFront(best)
		metrics.RecordIdentityMatch()
		t.logger.Debug(ctx, "matched identity",
			logger.String("personID", best.id.PersonID),
			logger.String("camera", cameraName),
			logger.Float64("similarity", bestSim),
		)
		return Resolution{PersonID: best.id.PersonID}
	}

	id := t.newPersonID(now)
	t.insert(Identity{
		PersonID:   id,
		Embedding:  emb,
		FirstSeen:  now,
		LastSeen:   now,
		CameraID:   cameraID,
		CameraName: cameraName,
	})
	metrics.RecordIdentityNew()
	t.logger.Debug(ctx, "new identity",
		logger.String("personID", id),
		logger.String("camera", cameraName),
	)
	return Resolution{PersonID: id, IsNew: true}
}

// resolveBucketed deduplicates non person/face classes by camera and time
// bucket. Must be called with t.mu held.
func (t *Tracker) resolveBucketed(class, cameraID, cameraName string, now time.Time) Resolution {
	id := fmt.Sprintf("%s_%s_%d", class, cameraID, now.UnixMilli()/t.window.Milliseconds())
	if n, ok := t.entries[id]; ok {
		n.id.LastSeen = now
		t.moveToFront(n)
		return Resolution{PersonID: id}
	}
	t.insert(Identity{
		PersonID:   id,
		FirstSeen:  now,
		LastSeen:   now,
		CameraID:   cameraID,
		CameraName: cameraName,
	})
	return Resolution{PersonID: id, IsNew: true}
}

// Annotate records a label and, if not already held, a snapshot for an
// identity. A no-op when the identity is unknown or the label is empty.
func (t *Tracker) Annotate(personID, label string, snapshot []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.entries[personID]
	if !ok {
		return
	}
	if label != "" {
		n.id.Label = label
	}
	if n.id.Snapshot == nil && snapshot != nil {
		n.id.Snapshot = snapshot
	}
}

// Lookup returns a copy of the identity for personID.
func (t *Tracker) Lookup(personID string) (Identity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.entries[personID]
	if !ok {
		return Identity{}, false
	}
	return n.id, true
}

// Sweep purges entries whose last update is older than the tracking window
// and returns the number removed.
func (t *Tracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for n := t.tail; n != nil; {
		prev := n.prev
		if now.Sub(n.id.LastSeen) > t.window {
			t.unlink(n)
			delete(t.entries, n.id.PersonID)
			removed++
		}
		n = prev
	}
	metrics.UpdateTrackedIdentities(len(t.entries))
	return removed
}

// Size returns the current number of cached identities.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Clear removes all cached identities.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = make(map[string]*node)
	t.head = nil
	t.tail = nil
	metrics.UpdateTrackedIdentities(0)
}

// insert adds a new identity at the front of the recency list, evicting the
// least recently updated entry when the cache is full. Must be called with
// t.mu held.
func (t *Tracker) insert(id Identity) {
	if t.capacity > 0 && len(t.entries) >= t.capacity {
		victim := t.tail
		if victim != nil {
			t.unlink(victim)
			delete(t.entries, victim.id.PersonID)
			metrics.RecordEviction("tracker")
			t.logger.Warn(context.Background(), "identity cache full, evicted least recently updated",
				logger.String("personID", victim.id.PersonID),
				logger.Int("capacity", t.capacity),
			)
		}
	}

	n := &node{id: id}
	t.entries[id.PersonID] = n
	t.pushFront(n)
	metrics.UpdateTrackedIdentities(len(t.entries))
}

// newPersonID allocates a unique person id. Collisions against live keys are
// re-rolled. Must be called with t.mu held.
func (t *Tracker) newPersonID(now time.Time) string {
	for {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:personIDSuffixLen]
		id := fmt.Sprintf("person_%d_%s", now.UnixMilli(), suffix)
		if _, exists := t.entries[id]; !exists {
			return id
		}
	}
}

// Recency list helpers. Must be called with t.mu held.

func (t *Tracker) pushFront(n *node) {
	n.prev = nil
	n.next = t.head
	if t.head != nil {
		t.head.prev = n
	}
	t.head = n
	if t.tail == nil {
		t.tail = n
	}
}

func (t *Tracker) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		t.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		t.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}

func (t *Tracker) moveToFront(n *node) {
	if t.head == n {
		return
	}
	t.unlink(n)
	t.pushFront(n)
}
