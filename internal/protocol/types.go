package protocol

import "encoding/json"

// EventDataReturned is the reserved event every correlated reply travels on.
// Application handlers must not use it for normal traffic.
const EventDataReturned = "datareturned"

const (
	ReplyTypeResponse = "response"
	StatusSuccess     = "success"
	StatusFailure     = "failure"
	FieldMessageID    = "message_id"
)

// Target selects which context a message is delivered to.
type Target string

const (
	TargetLocal  Target = "local"
	TargetRemote Target = "remote"
)

// Envelope is the outgoing unit of transmission.
type Envelope struct {
	NameSpace string `json:"nameSpace"`
	Event     string `json:"event"`
	Data      any    `json:"data"`
}

// Inbound is a decoded envelope whose data is left as raw json for handlers.
type Inbound struct {
	NameSpace string
	Event     string
	Data      json.RawMessage
}

// Reply is the body of a datareturned envelope.
type Reply struct {
	MessageID string          `json:"message_id"`
	Type      string          `json:"type"`
	Status    string          `json:"status,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Err       json.RawMessage `json:"err,omitempty"`
}

// HasErr reports whether the reply carried an err payload. An explicit json
// null counts as absent.
func (r Reply) HasErr() bool {
	return len(r.Err) > 0 && string(r.Err) != "null"
}
