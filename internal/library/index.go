package library

import (
	"sort"
	"sync"
)

// Index is the project library's by-id lookup table. It owns no item
// lifecycle beyond membership; callers close items they remove.
type Index struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{items: make(map[string]*Item)}
}

// Add registers an item. Adding an id twice returns ErrDuplicateItem.
func (x *Index) Add(item *Item) error {
	if item == nil {
		return nil
	}
	id := item.ID()
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.items[id]; exists {
		return ErrDuplicateItem
	}
	x.items[id] = item
	return nil
}

// Get looks up an item by id.
func (x *Index) Get(id string) (*Item, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	item, ok := x.items[id]
	return item, ok
}

// Remove drops an item from the index and returns it. Removing an unknown
// id is a no-op.
func (x *Index) Remove(id string) (*Item, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	item, ok := x.items[id]
	if ok {
		delete(x.items, id)
	}
	return item, ok
}

// Items returns the members ordered by creation time, then id.
func (x *Index) Items() []*Item {
	x.mu.RLock()
	items := make([]*Item, 0, len(x.items))
	for _, item := range x.items {
		items = append(items, item)
	}
	x.mu.RUnlock()

	sort.Slice(items, func(a, b int) bool {
		ca, cb := items[a].CreatedAt(), items[b].CreatedAt()
		if ca.Equal(cb) {
			return items[a].ID() < items[b].ID()
		}
		return ca.Before(cb)
	})
	return items
}

// Len reports the number of items.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}
