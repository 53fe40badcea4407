package mediator

import (
	"encoding/json"
	"sync"
)

// Handler receives the raw data of a dispatched envelope. A returned error is
// logged and counted; it never reaches other handlers.
type Handler func(data json.RawMessage) error

// HandlerID identifies one registration. The zero value means nothing was
// registered.
type HandlerID uint64

type entry struct {
	id HandlerID
	fn Handler
}

// Registry maps (nameSpace, event) to an ordered list of handlers.
// Insertion order is invocation order; duplicates are kept.
type Registry struct {
	mu       sync.RWMutex
	nextID   HandlerID
	handlers map[string]map[string][]entry
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]map[string][]entry),
	}
}

// Register appends h under (nameSpace, event). A nil handler or an empty key
// is a no-op returning the zero id.
func (r *Registry) Register(nameSpace, event string, h Handler) HandlerID {
	if h == nil || nameSpace == "" || event == "" {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	events, ok := r.handlers[nameSpace]
	if !ok {
		events = make(map[string][]entry)
		r.handlers[nameSpace] = events
	}
	r.nextID++
	id := r.nextID
	events[event] = append(events[event], entry{id: id, fn: h})
	return id
}

// Remove drops the registration with id from (nameSpace, event). It reports
// whether anything was removed.
func (r *Registry) Remove(nameSpace, event string, id HandlerID) bool {
	if id == 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	list, ok := r.handlers[nameSpace][event]
	if !ok {
		return false
	}
	for i, e := range list {
		if e.id == id {
			next := make([]entry, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			r.handlers[nameSpace][event] = next
			return true
		}
	}
	return false
}

// RemoveAll clears every handler for (nameSpace, event). The key stays in
// place with an empty list; sibling keys are untouched.
func (r *Registry) RemoveAll(nameSpace, event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events, ok := r.handlers[nameSpace]
	if !ok {
		return
	}
	if _, ok := events[event]; !ok {
		return
	}
	events[event] = []entry{}
}

// Handlers returns a snapshot of the handlers for (nameSpace, event).
func (r *Registry) Handlers(nameSpace, event string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.handlers[nameSpace][event]
	if len(list) == 0 {
		return nil
	}
	out := make([]Handler, len(list))
	for i, e := range list {
		out[i] = e.fn
	}
	return out
}

func (r *Registry) Len(nameSpace, event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[nameSpace][event])
}
