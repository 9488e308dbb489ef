package application

import (
	"sort"
	"sync"
	"time"
)

// slotBuffer queues pending availability grids keyed by mentor so that rapid
// consecutive toggles coalesce into a bounded number of backend writes
// instead of one write per toggle. A grid being written stays visible in the
// inFlight stage until its flush finishes, so toggles issued mid-flush build
// on the snapshot under write rather than the stale backend state.
type slotBuffer struct {
	mu       sync.Mutex
	now      func() time.Time
	pending  map[string]slotBufferEntry
	inFlight map[string][]AvailabilitySlot
}

type slotBufferEntry struct {
	slots    []AvailabilitySlot
	queuedAt time.Time
}

func newSlotBuffer(now func() time.Time) *slotBuffer {
	if now == nil {
		now = time.Now
	}
	return &slotBuffer{
		now:      now,
		pending:  make(map[string]slotBufferEntry),
		inFlight: make(map[string][]AvailabilitySlot),
	}
}

// Put replaces the pending grid for a mentor. Later puts supersede earlier
// ones; only the newest grid is ever written.
func (b *slotBuffer) Put(mentorID string, slots []AvailabilitySlot) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.pending[mentorID] = slotBufferEntry{slots: cloneSlots(slots), queuedAt: b.now()}
	b.mu.Unlock()
}

// Get returns the newest unconfirmed grid for a mentor without consuming it:
// the pending stage if a toggle landed since the flush started, otherwise the
// grid currently being flushed.
func (b *slotBuffer) Get(mentorID string) ([]AvailabilitySlot, bool) {
	if b == nil {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if entry, ok := b.pending[mentorID]; ok {
		return cloneSlots(entry.slots), true
	}
	if slots, ok := b.inFlight[mentorID]; ok {
		return cloneSlots(slots), true
	}
	return nil, false
}

// BeginFlush moves the pending grid for a mentor into the in-flight stage and
// returns it. The grid stays visible to Get until EndFlush confirms or
// discards it.
func (b *slotBuffer) BeginFlush(mentorID string) ([]AvailabilitySlot, bool) {
	if b == nil {
		return nil, false
	}
	b.mu.Lock()
	entry, ok := b.pending[mentorID]
	if ok {
		delete(b.pending, mentorID)
		b.inFlight[mentorID] = entry.slots
	}
	b.mu.Unlock()
	if !ok {
		return nil, false
	}
	return cloneSlots(entry.slots), true
}

// EndFlush drops the in-flight grid once its flush has been applied or
// reverted.
func (b *slotBuffer) EndFlush(mentorID string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	delete(b.inFlight, mentorID)
	b.mu.Unlock()
}

// DirtyMentors lists mentors with unflushed grids in deterministic order.
func (b *slotBuffer) DirtyMentors() []string {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	ids := make([]string, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func cloneSlots(slots []AvailabilitySlot) []AvailabilitySlot {
	if len(slots) == 0 {
		return nil
	}
	out := make([]AvailabilitySlot, len(slots))
	copy(out, slots)
	return out
}
