// Package host owns the HTTP surface of the embedding side.
//
// Ownership boundary:
// - websocket endpoint the embedded frame connects to (one frame at a time)
// - health/ready/metrics routes
// - operator routes that send events and correlated calls to the frame
package host
