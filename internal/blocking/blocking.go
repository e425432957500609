// Package blocking implements the blocking registry backing BLPOP and
// XREAD's BLOCK option: per-key FIFO queues of waiting connections, woken by
// RPUSH/LPUSH/XADD after they commit their write.
//
// A Registry never touches the keyspace directly and holds its own mutex,
// separate from the store's — the two must never be held at once in the
// reverse direction (a waiter mutex is never acquired while the keyspace
// mutex is held). List delivery is the exception in the other direction: a
// producer calls into the keyspace from inside DeliverList's critical
// section to perform the pop, which is safe precisely because it is the
// registry's mutex on the outside and the keyspace's on the inside, never
// the reverse.
//
// List waiters get a direct, one-shot handoff: DeliverList pops on the
// waiter's behalf and hands the value straight to it, removing the "who
// owns the pop" race a notify-then-retry design would otherwise have.
// Stream waiters keep a notify-and-recheck shape instead, because XREAD
// BLOCK is a fan-out read — several readers can all legitimately want the
// same newly appended entry, unlike a list pop which only one caller may
// consume.
package blocking

import "sync"

// waiter is one registered list-blocker. sink is invoked by whichever
// RPUSH/LPUSH later serves it, synchronously, while the registry's mutex is
// held, to deliver the popped value; it must not block. done then wakes the
// blocked BLPOP call.
type waiter struct {
	sink func(value string)
	done chan struct{}
}

// streamWaiter is one registered stream-blocker.
type streamWaiter struct {
	ready chan struct{}
}

// Registry holds the FIFO queues for list keys and stream keys. The two are
// kept in separate maps (and, implicitly, the same mutex) since BLPOP and
// XREAD BLOCK never interact.
type Registry struct {
	mu      sync.Mutex
	lists   map[string][]*waiter
	streams map[string][]*streamWaiter
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		lists:   make(map[string][]*waiter),
		streams: make(map[string][]*streamWaiter),
	}
}

// Wait is the channel a registered waiter blocks on; it fires once when the
// waiter is served (or, for streams, when it should recheck).
type Wait <-chan struct{}

// RegisterList enqueues a new waiter on key's list FIFO. sink is called
// exactly once if a producer serves this waiter — never concurrently with
// anything else touching it, since it runs inside DeliverList's critical
// section. cancel removes the waiter if it was never served and reports
// whether it actually did so: false means a producer already dequeued this
// waiter and is delivering (or has delivered) to it, so the caller must not
// also write a reply of its own — it should instead receive from the
// returned Wait, which is guaranteed to fire.
func (r *Registry) RegisterList(key string, sink func(value string)) (Wait, func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := &waiter{sink: sink, done: make(chan struct{}, 1)}
	r.lists[key] = append(r.lists[key], w)
	cancel := func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.removeListLocked(key, w)
	}
	return w.done, cancel
}

func (r *Registry) removeListLocked(key string, w *waiter) bool {
	queue := r.lists[key]
	for i, q := range queue {
		if q == w {
			r.lists[key] = append(queue[:i], queue[i+1:]...)
			if len(r.lists[key]) == 0 {
				delete(r.lists, key)
			}
			return true
		}
	}
	return false
}

// DeliverList serves the oldest waiter on key's FIFO, if any, with the
// result of popFn — which performs the actual pop against the keyspace.
// popFn only runs when a waiter is present, so a push that finds no one
// waiting never touches the list again; the element stays put for a future
// fast-path read, exactly as it would with no blocking registry at all.
func (r *Registry) DeliverList(key string, popFn func() (value string, ok bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue := r.lists[key]
	if len(queue) == 0 {
		return
	}
	value, ok := popFn()
	if !ok {
		return
	}

	w := queue[0]
	r.lists[key] = queue[1:]
	if len(r.lists[key]) == 0 {
		delete(r.lists, key)
	}

	w.sink(value)
	w.done <- struct{}{}
}

// RegisterStreams enqueues one waiter across every key in keys (used by
// XREAD BLOCK, which can watch several streams at once) and returns a single
// shared wake channel: whichever key is produced to first wakes it. cancel
// removes the waiter from every key's queue.
func (r *Registry) RegisterStreams(keys []string) (Wait, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := &streamWaiter{ready: make(chan struct{}, 1)}
	for _, key := range keys {
		r.streams[key] = append(r.streams[key], w)
	}
	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, key := range keys {
			r.removeStreamLocked(key, w)
		}
	}
	return w.ready, cancel
}

func (r *Registry) removeStreamLocked(key string, w *streamWaiter) {
	queue := r.streams[key]
	for i, q := range queue {
		if q == w {
			r.streams[key] = append(queue[:i], queue[i+1:]...)
			if len(r.streams[key]) == 0 {
				delete(r.streams, key)
			}
			return
		}
	}
}

// NotifyStream wakes every waiter registered on key, after a successful
// XADD. Since a single XREAD BLOCK waiter may be registered under several
// keys, each active waiter's channel is only ever actually observed once —
// further sends land in its already-full buffered channel harmlessly.
func (r *Registry) NotifyStream(key string) {
	r.mu.Lock()
	queue := r.streams[key]
	delete(r.streams, key)
	r.mu.Unlock()

	for _, w := range queue {
		select {
		case w.ready <- struct{}{}:
		default:
		}
	}
}
