package transport

import (
	"sync"
)

type subscriber struct {
	id uint64
	fn func(raw []byte)
}

// inbox queues inbound messages and hands them to subscribers from one
// goroutine, in arrival order. The queue is unbounded.
type inbox struct {
	mu     sync.Mutex
	queue  [][]byte
	subs   []subscriber
	nextID uint64
	closed bool

	wake chan struct{}
	done chan struct{}
}

func newInbox() *inbox {
	in := &inbox{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go in.run()
	return in
}

func (in *inbox) push(raw []byte) bool {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return false
	}
	in.queue = append(in.queue, raw)
	in.mu.Unlock()

	select {
	case in.wake <- struct{}{}:
	default:
	}
	return true
}

func (in *inbox) subscribe(fn func(raw []byte)) func() {
	if fn == nil {
		return func() {}
	}
	in.mu.Lock()
	in.nextID++
	id := in.nextID
	in.subs = append(in.subs, subscriber{id: id, fn: fn})
	in.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			in.mu.Lock()
			defer in.mu.Unlock()
			for i, sub := range in.subs {
				if sub.id == id {
					in.subs = append(in.subs[:i:i], in.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (in *inbox) close() {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return
	}
	in.closed = true
	in.queue = nil
	in.mu.Unlock()
	close(in.done)
}

func (in *inbox) run() {
	for {
		select {
		case <-in.done:
			return
		case <-in.wake:
		}
		for {
			in.mu.Lock()
			if in.closed || len(in.queue) == 0 {
				in.mu.Unlock()
				break
			}
			raw := in.queue[0]
			in.queue[0] = nil
			in.queue = in.queue[1:]
			subs := make([]subscriber, len(in.subs))
			copy(subs, in.subs)
			in.mu.Unlock()

			for _, sub := range subs {
				sub.fn(raw)
			}
		}
	}
}
