package notify

import "sync"

// ringBuffer is a blocking FIFO that doubles its capacity at 70% fill,
// up to maxCapacity. Once at maxCapacity and full, push refuses items.
type ringBuffer[T any] struct {
	mu          sync.Mutex
	cond        *sync.Cond
	items       []T
	head        int
	tail        int
	count       int
	maxCapacity int
	closed      bool
	grows       int
}

func newRingBuffer[T any](initial, maxCapacity int) *ringBuffer[T] {
	initial = max(initial, 1)
	if maxCapacity < initial {
		maxCapacity = initial
	}
	b := &ringBuffer[T]{
		items:       make([]T, initial),
		maxCapacity: maxCapacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// push appends item. ok is false when the buffer is closed; full is true
// when it has no room left.
func (b *ringBuffer[T]) push(item T) (ok, full bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, false
	}

	capacity := len(b.items)
	if b.count+1 >= max(capacity*70/100, 1) && capacity < b.maxCapacity {
		b.resize(min(capacity*2, b.maxCapacity))
	}
	if b.count == len(b.items) {
		return false, true
	}

	b.items[b.tail] = item
	b.tail = (b.tail + 1) % len(b.items)
	b.count++
	b.cond.Signal()
	return true, false
}

// pop blocks until an item is available. It returns false once the buffer
// is closed and drained.
func (b *ringBuffer[T]) pop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	var zero T
	if b.count == 0 {
		return zero, false
	}

	item := b.items[b.head]
	b.items[b.head] = zero
	b.head = (b.head + 1) % len(b.items)
	b.count--
	return item, true
}

// close stops accepting items and wakes all waiters. Pending items can
// still be popped.
func (b *ringBuffer[T]) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

func (b *ringBuffer[T]) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *ringBuffer[T]) capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// resize moves pending items to a new slice of size n. Caller holds mu.
func (b *ringBuffer[T]) resize(n int) {
	next := make([]T, n)
	for i := range b.count {
		next[i] = b.items[(b.head+i)%len(b.items)]
	}
	b.items = next
	b.head = 0
	b.tail = b.count % n
	b.grows++
}
