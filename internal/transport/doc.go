// Package transport owns the cross-context delivery boundary.
//
// Ownership boundary:
// - Transport contract (send to local/remote, subscribe to inbound)
// - single-goroutine ordered delivery per endpoint
// - pipe, websocket and redis pub/sub adapters
// - dial retry/backoff primitives
//
// Adapters carry whole messages and never inspect them. Filtering foreign
// traffic is the dispatcher's job.
package transport
