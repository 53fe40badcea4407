// Package mediator owns the pub/sub and request/response layer that sits on
// top of a Transport.
//
// Ownership boundary:
// - handler registry keyed by (nameSpace, event)
// - dispatch of inbound envelopes with per-handler failure isolation
// - fire-and-forget sends to the local or remote context
// - correlated calls: message_id stamping, pending table, reply routing
// - responders that answer correlated calls
//
// Every correlated reply travels on protocol.EventDataReturned inside the
// call's namespace. Application code cannot register on that event through
// the Mediator.
//
// Handlers run on the transport's delivery goroutine, one message at a time.
// A handler that blocks stalls all later dispatch on that mediator; in
// particular a handler must not wait on a Call to the same mediator.
package mediator
