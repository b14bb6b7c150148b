package farmlink

import (
	"sort"
	"sync"
)

// Reconciler merges the three message sources a chat view sees: the REST
// snapshot, the realtime stream, and locally echoed optimistic sends. A
// message may arrive through more than one path; identity is the server ID
// when present, the TempID until then.
type Reconciler struct {
	mu         sync.Mutex
	chatID     string
	confirmed  map[string]Message // server id -> message
	optimistic map[string]Message // temp id -> unconfirmed local echo
}

func NewReconciler(chatID string) *Reconciler {
	return &Reconciler{
		chatID:     chatID,
		confirmed:  make(map[string]Message),
		optimistic: make(map[string]Message),
	}
}

// LoadSnapshot replaces the confirmed set with a REST snapshot. Optimistic
// entries survive unless the snapshot already contains them.
func (r *Reconciler) LoadSnapshot(messages []Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.confirmed = make(map[string]Message, len(messages))
	for _, m := range messages {
		r.confirmed[m.ID] = m
		if m.TempID != "" {
			delete(r.optimistic, m.TempID)
		}
	}
}

// AddOptimistic records a local echo before the server has confirmed it.
// The message must carry a TempID.
func (r *Reconciler) AddOptimistic(m Message) {
	if m.TempID == "" {
		return
	}
	r.mu.Lock()
	r.optimistic[m.TempID] = m
	r.mu.Unlock()
}

// Apply folds in one message from the stream or a send response. A matching
// TempID retires the optimistic echo; a matching server ID replaces the
// stored copy, which is how negotiation status updates land.
func (r *Reconciler) Apply(m Message) {
	if m.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.TempID != "" {
		delete(r.optimistic, m.TempID)
	}
	r.confirmed[m.ID] = m
}

// Messages returns the merged view in (created_at, id) order. Unconfirmed
// optimistic entries sort by their TempID in place of a server ID.
func (r *Reconciler) Messages() []Message {
	r.mu.Lock()
	merged := make([]Message, 0, len(r.confirmed)+len(r.optimistic))
	for _, m := range r.confirmed {
		merged = append(merged, m)
	}
	for _, m := range r.optimistic {
		merged = append(merged, m)
	}
	r.mu.Unlock()

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return sortKey(a) < sortKey(b)
	})
	return merged
}

// Pending reports how many optimistic entries are still unconfirmed.
func (r *Reconciler) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.optimistic)
}

func sortKey(m Message) string {
	if m.ID != "" {
		return m.ID
	}
	return m.TempID
}
