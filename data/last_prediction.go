package data

import (
	"context"
	"sync"
	"time"

	"derma-inference-service/decision"
)

// LastPrediction is the most recent prediction of a session.
type LastPrediction struct {
	Predictions decision.Set `json:"predictions"`
	Timestamp   time.Time    `json:"timestamp"`
}

const (
	// DefaultMaxEntries bounds the number of sessions held at once.
	DefaultMaxEntries = 10000

	// expired entries are swept once every purgeEvery saves
	purgeEvery = 128
)

// LastPredictionStore keeps one LastPrediction per session id. Each Save
// overwrites the previous entry of that session; no history is kept.
type LastPredictionStore struct {
	mu         sync.RWMutex
	entries    map[string]LastPrediction
	ttl        time.Duration
	maxEntries int
	saves      int
	now        func() time.Time
}

// NewLastPredictionStore creates a store whose entries expire after ttl of
// inactivity. A zero ttl keeps entries until they are overwritten or
// evicted. At most DefaultMaxEntries sessions are held; saving a new
// session beyond that evicts the oldest entry.
func NewLastPredictionStore(ttl time.Duration) *LastPredictionStore {
	return &LastPredictionStore{
		entries:    make(map[string]LastPrediction),
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
}

func (r *LastPredictionStore) Save(ctx context.Context, sessionID string, set decision.Set) (LastPrediction, error) {
	if err := ctx.Err(); err != nil {
		return LastPrediction{}, err
	}
	entry := LastPrediction{
		Predictions: append(decision.Set(nil), set...),
		Timestamp:   r.now(),
	}

	r.mu.Lock()
	if _, ok := r.entries[sessionID]; !ok && len(r.entries) >= r.maxEntries {
		r.evictLocked()
	}
	r.entries[sessionID] = entry
	r.saves++
	if r.saves%purgeEvery == 0 {
		r.purgeLocked()
	}
	r.mu.Unlock()

	return entry, nil
}

// Get returns the session's last prediction. Expired entries are reported
// as absent.
func (r *LastPredictionStore) Get(ctx context.Context, sessionID string) (LastPrediction, bool, error) {
	if err := ctx.Err(); err != nil {
		return LastPrediction{}, false, err
	}
	if sessionID == "" {
		return LastPrediction{}, false, nil
	}

	r.mu.RLock()
	entry, ok := r.entries[sessionID]
	r.mu.RUnlock()

	if !ok || r.expired(entry) {
		return LastPrediction{}, false, nil
	}
	return entry, true, nil
}

func (r *LastPredictionStore) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *LastPredictionStore) expired(entry LastPrediction) bool {
	return r.ttl > 0 && r.now().Sub(entry.Timestamp) > r.ttl
}

func (r *LastPredictionStore) purgeLocked() {
	if r.ttl <= 0 {
		return
	}
	for id, entry := range r.entries {
		if r.expired(entry) {
			delete(r.entries, id)
		}
	}
}

// evictLocked makes room for one entry: it drops everything expired, or the
// oldest entry when nothing has expired.
func (r *LastPredictionStore) evictLocked() {
	var (
		oldestID string
		oldest   time.Time
		found    bool
		dropped  bool
	)
	for id, entry := range r.entries {
		if r.expired(entry) {
			delete(r.entries, id)
			dropped = true
			continue
		}
		if !found || entry.Timestamp.Before(oldest) {
			oldestID, oldest, found = id, entry.Timestamp, true
		}
	}
	if !dropped && found {
		delete(r.entries, oldestID)
	}
}
