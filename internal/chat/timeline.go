// Package chat keeps a per-application message timeline that merges the
// initial history load with live channel events.
package chat

import (
	"sort"
	"sync"

	"immigration-portal/internal/models"
)

// Timeline is an ordered, de-duplicated view of an application's messages.
// It is safe for concurrent use.
type Timeline struct {
	mu       sync.Mutex
	messages []models.Message
	seen     map[string]struct{}
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[string]struct{})}
}

// Add inserts msg in (created_at, id) order and reports whether it was new.
func (t *Timeline) Add(msg models.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[msg.ID]; ok {
		return false
	}
	t.seen[msg.ID] = struct{}{}

	i := sort.Search(len(t.messages), func(i int) bool {
		return less(msg, t.messages[i])
	})
	t.messages = append(t.messages, models.Message{})
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = msg
	return true
}

// Merge adds every message in batch and returns the ones that were new, in
// timeline order.
func (t *Timeline) Merge(batch []models.Message) []models.Message {
	var added []models.Message
	for _, m := range batch {
		if t.Add(m) {
			added = append(added, m)
		}
	}
	sort.SliceStable(added, func(i, j int) bool { return less(added[i], added[j]) })
	return added
}

// Messages returns a copy of the timeline.
func (t *Timeline) Messages() []models.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

func less(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
