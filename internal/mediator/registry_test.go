package mediator

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/danmuck/framelink/internal/testutil/testlog"
)

func recorder(calls *[]string, name string) Handler {
	return func(json.RawMessage) error {
		*calls = append(*calls, name)
		return nil
	}
}

func invokeAll(r *Registry, ns, event string) {
	for _, h := range r.Handlers(ns, event) {
		_ = h(nil)
	}
}

func TestRegistryRegisterIgnoresInvalid(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	if id := r.Register("ns", "ev", nil); id != 0 {
		t.Fatalf("nil handler registered id=%d", id)
	}
	noop := func(json.RawMessage) error { return nil }
	if id := r.Register("", "ev", noop); id != 0 {
		t.Fatalf("empty namespace registered id=%d", id)
	}
	if id := r.Register("ns", "", noop); id != 0 {
		t.Fatalf("empty event registered id=%d", id)
	}
	if r.Len("ns", "ev") != 0 {
		t.Fatalf("expected no handlers")
	}
}

func TestRegistryOrderAndDuplicates(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	var calls []string
	a := recorder(&calls, "a")
	first := r.Register("ns", "ev", a)
	r.Register("ns", "ev", recorder(&calls, "b"))
	second := r.Register("ns", "ev", a)
	r.Register("ns", "other", recorder(&calls, "x"))
	r.Register("other", "ev", recorder(&calls, "y"))
	if first == second {
		t.Fatalf("duplicate registrations must get distinct ids")
	}

	invokeAll(r, "ns", "ev")
	if got := strings.Join(calls, ","); got != "a,b,a" {
		t.Fatalf("unexpected invocation order: %s", got)
	}
}

func TestRegistryRemoveOneOccurrence(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	var calls []string
	a := recorder(&calls, "a")
	first := r.Register("ns", "ev", a)
	r.Register("ns", "ev", recorder(&calls, "b"))
	r.Register("ns", "ev", a)

	if !r.Remove("ns", "ev", first) {
		t.Fatalf("expected first registration removed")
	}
	if r.Remove("ns", "ev", first) {
		t.Fatalf("second removal of same id should be a no-op")
	}
	if r.Remove("missing", "ev", first) || r.Remove("ns", "missing", first) || r.Remove("ns", "ev", 0) {
		t.Fatalf("removal from unknown key or zero id should be a no-op")
	}

	invokeAll(r, "ns", "ev")
	if got := strings.Join(calls, ","); got != "b,a" {
		t.Fatalf("unexpected invocations after remove: %s", got)
	}
}

func TestRegistryRemoveAllScopedAndIdempotent(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	var calls []string
	r.Register("ns", "ev", recorder(&calls, "a"))
	r.Register("ns", "ev", recorder(&calls, "b"))
	r.Register("ns", "sibling", recorder(&calls, "s"))
	r.Register("other", "ev", recorder(&calls, "o"))

	r.RemoveAll("ns", "ev")
	r.RemoveAll("ns", "ev")
	r.RemoveAll("never", "registered")

	if r.Len("ns", "ev") != 0 {
		t.Fatalf("expected key cleared")
	}
	invokeAll(r, "ns", "ev")
	invokeAll(r, "ns", "sibling")
	invokeAll(r, "other", "ev")
	if got := strings.Join(calls, ","); got != "s,o" {
		t.Fatalf("unexpected invocations after remove all: %s", got)
	}

	r.Register("ns", "ev", recorder(&calls, "again"))
	if r.Len("ns", "ev") != 1 {
		t.Fatalf("key should accept registrations after remove all")
	}
}

func TestRegistryHandlersIsSnapshot(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	var calls []string
	var selfID HandlerID
	selfID = r.Register("ns", "ev", func(json.RawMessage) error {
		calls = append(calls, "self")
		r.Remove("ns", "ev", selfID)
		return nil
	})
	r.Register("ns", "ev", recorder(&calls, "next"))

	invokeAll(r, "ns", "ev")
	invokeAll(r, "ns", "ev")
	if got := strings.Join(calls, ","); got != "self,next,next" {
		t.Fatalf("unexpected invocations: %s", got)
	}
}
