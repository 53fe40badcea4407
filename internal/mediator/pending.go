package mediator

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// PendingCall describes one correlated call awaiting its reply.
type PendingCall struct {
	MessageID string    `json:"message_id"`
	NameSpace string    `json:"nameSpace"`
	Event     string    `json:"event"`
	QueuedAt  time.Time `json:"queued_at"`
}

type settlement struct {
	data json.RawMessage
	err  error
}

type pendingEntry struct {
	PendingCall
	settle chan settlement
}

func newPendingEntry(call PendingCall) *pendingEntry {
	return &pendingEntry{
		PendingCall: call,
		settle:      make(chan settlement, 1),
	}
}

// PendingCalls stores calls by message_id. An entry leaves the table exactly
// once, through take or drain; whoever takes it delivers the settlement.
type PendingCalls struct {
	mu          sync.RWMutex
	items       map[string]*pendingEntry
	byNameSpace map[string]int
}

func NewPendingCalls() *PendingCalls {
	return &PendingCalls{
		items:       make(map[string]*pendingEntry),
		byNameSpace: make(map[string]int),
	}
}

// add stores e and reports whether it is the first pending call in its
// namespace.
func (p *PendingCalls) add(e *pendingEntry) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[e.MessageID] = e
	p.byNameSpace[e.NameSpace]++
	return p.byNameSpace[e.NameSpace] == 1
}

// take removes the entry for id if it belongs to nameSpace. last reports
// whether the namespace has no pending calls left.
func (p *PendingCalls) take(nameSpace, id string) (e *pendingEntry, last bool, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok = p.items[id]
	if !ok || e.NameSpace != nameSpace {
		return nil, false, false
	}
	delete(p.items, id)
	p.byNameSpace[nameSpace]--
	if p.byNameSpace[nameSpace] <= 0 {
		delete(p.byNameSpace, nameSpace)
		last = true
	}
	return e, last, true
}

func (p *PendingCalls) drain() []*pendingEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*pendingEntry, 0, len(p.items))
	for _, e := range p.items {
		out = append(out, e)
	}
	p.items = make(map[string]*pendingEntry)
	p.byNameSpace = make(map[string]int)
	return out
}

func (p *PendingCalls) Get(id string) (PendingCall, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.items[id]
	if !ok {
		return PendingCall{}, false
	}
	return e.PendingCall, true
}

func (p *PendingCalls) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.items)
}

// List returns pending calls oldest first.
func (p *PendingCalls) List() []PendingCall {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PendingCall, 0, len(p.items))
	for _, e := range p.items {
		out = append(out, e.PendingCall)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueuedAt.Equal(out[j].QueuedAt) {
			return out[i].MessageID < out[j].MessageID
		}
		return out[i].QueuedAt.Before(out[j].QueuedAt)
	})
	return out
}
