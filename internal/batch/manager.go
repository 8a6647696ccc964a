package batch

import (
	"sync"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventAdded   EventKind = "added"
	EventRemoved EventKind = "removed"
	EventUpdated EventKind = "updated"
)

// Event describes one mutation. Item is the state right after the mutation,
// or the last known state for removals.
type Event struct {
	Kind EventKind
	Item Item
}

// Manager owns the ordered items of one session.
type Manager struct {
	mu       sync.RWMutex
	items    []Item
	issued   map[string]struct{}
	newID    func() string
	watchers map[int]func(Event)
	nextW    int
}

func NewManager() *Manager {
	return &Manager{
		issued:   make(map[string]struct{}),
		newID:    newItemID,
		watchers: make(map[int]func(Event)),
	}
}

// newItemID returns a UUIDv7: millisecond timestamp plus random bits.
func newItemID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// AddFiles appends one item per source, in order. Re-adding the same file
// creates a new item.
func (m *Manager) AddFiles(sources ...Source) []Item {
	m.mu.Lock()
	added := make([]Item, 0, len(sources))
	for _, src := range sources {
		if src == nil {
			continue
		}
		item := Item{
			ID:          m.uniqueIDLocked(),
			Source:      src,
			DisplayName: src.Name(),
			SizeMB:      sizeInMegabytes(src.Size()),
		}
		m.items = append(m.items, item)
		added = append(added, item)
	}
	m.mu.Unlock()

	for _, item := range added {
		m.notify(Event{Kind: EventAdded, Item: item})
	}
	return added
}

// Remove drops the item permanently. Unknown ids are ignored.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return
	}
	removed := m.items[idx]
	m.items = append(m.items[:idx], m.items[idx+1:]...)
	m.mu.Unlock()

	m.notify(Event{Kind: EventRemoved, Item: removed})
}

// Update applies patch to the item with id. It returns false when the item
// no longer exists.
func (m *Manager) Update(id string, patch Patch) bool {
	return m.mutate(id, func(item *Item) bool {
		item.apply(patch)
		return true
	})
}

// Begin starts a new transcription attempt: the error of the previous attempt
// is cleared and the item is marked as transcribing.
func (m *Manager) Begin(id string) (uint64, bool) {
	var attempt uint64
	ok := m.mutate(id, func(item *Item) bool {
		item.attempt++
		attempt = item.attempt
		item.LastError = ""
		item.Transcribing = true
		return true
	})
	return attempt, ok
}

// Finish applies the outcome of attempt. Outcomes of superseded attempts and
// of removed items are discarded and Finish returns false.
func (m *Manager) Finish(id string, attempt uint64, patch Patch) bool {
	return m.mutate(id, func(item *Item) bool {
		if item.attempt != attempt {
			return false
		}
		item.apply(patch)
		item.Transcribing = false
		return true
	})
}

func (m *Manager) Get(id string) (Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return Item{}, false
	}
	return m.items[idx], true
}

// Items returns a snapshot in insertion order.
func (m *Manager) Items() []Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Watch registers fn for every mutation. Callbacks run synchronously on the
// mutating goroutine after the manager lock is released.
func (m *Manager) Watch(fn func(Event)) (unwatch func()) {
	m.mu.Lock()
	key := m.nextW
	m.nextW++
	m.watchers[key] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers, key)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) mutate(id string, fn func(item *Item) bool) bool {
	m.mu.Lock()
	idx := m.indexLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	if !fn(&m.items[idx]) {
		m.mu.Unlock()
		return false
	}
	updated := m.items[idx]
	m.mu.Unlock()

	m.notify(Event{Kind: EventUpdated, Item: updated})
	return true
}

func (m *Manager) notify(ev Event) {
	m.mu.RLock()
	fns := make([]func(Event), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (m *Manager) uniqueIDLocked() string {
	for {
		id := m.newID()
		if _, taken := m.issued[id]; taken {
			continue
		}
		m.issued[id] = struct{}{}
		return id
	}
}

func (m *Manager) indexLocked(id string) int {
	for i := range m.items {
		if m.items[i].ID == id {
			return i
		}
	}
	return -1
}
