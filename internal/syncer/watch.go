package syncer

import (
	"sort"
	"sync"

	"splice/internal/library"
)

// Watch fans a library item's single transition callback out to any number
// of subscribers. Subscribing immediately delivers the item's current status
// as an old == new notification so late subscribers observe settled state;
// deliveries to one watch never overlap and arrive in subscription order.
type Watch struct {
	item *library.Item

	// deliverMu serializes every delivery loop on this watch. mu guards the
	// subscriber map only; unsubscribe may run inside a delivery.
	deliverMu sync.Mutex
	mu        sync.Mutex
	subs      map[int]library.TransitionFunc
	next      int
}

// NewWatch installs itself as the item's transition callback.
func NewWatch(item *library.Item) *Watch {
	w := &Watch{
		item: item,
		subs: make(map[int]library.TransitionFunc),
	}
	item.SetOnTransition(w.dispatch)
	return w
}

// Subscribe registers fn and fires it once with the item's current status.
// The returned function removes the subscription; calling it more than once
// is harmless. Subscribers must not transition the watched item from inside
// a delivery.
func (w *Watch) Subscribe(fn library.TransitionFunc) func() {
	w.mu.Lock()
	id := w.next
	w.next++
	w.subs[id] = fn
	w.mu.Unlock()

	w.deliverMu.Lock()
	cur := w.item.Status()
	fn(cur, cur, nil)
	w.deliverMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
}

// Len reports the number of live subscriptions.
func (w *Watch) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// Close detaches the watch from its item. Pending subscriptions stop
// receiving notifications.
func (w *Watch) Close() {
	w.item.SetOnTransition(nil)
	w.mu.Lock()
	w.subs = make(map[int]library.TransitionFunc)
	w.mu.Unlock()
}

func (w *Watch) dispatch(old, new library.Status, tc library.TransitionContext) {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()

	w.mu.Lock()
	ids := make([]int, 0, len(w.subs))
	for id := range w.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]library.TransitionFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, w.subs[id])
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(old, new, tc)
	}
}
