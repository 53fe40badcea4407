// Package protocol owns the framelink wire contract.
//
// Ownership boundary:
// - envelope shape {nameSpace, event, data}
// - reply sub-protocol carried on the reserved datareturned event
// - encode/decode and inbound shape validation
package protocol
