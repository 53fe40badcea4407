package protocol

import (
	"encoding/json"
)

// DecodeEnvelope parses an inbound message. ok is false when the message is
// not an object or nameSpace/event are missing, null or not strings: the
// shared channel carries foreign traffic and such messages are simply not ours.
func DecodeEnvelope(raw []byte) (Inbound, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Inbound{}, false
	}
	nameSpace, ok := stringField(fields, "nameSpace")
	if !ok {
		return Inbound{}, false
	}
	event, ok := stringField(fields, "event")
	if !ok {
		return Inbound{}, false
	}
	return Inbound{
		NameSpace: nameSpace,
		Event:     event,
		Data:      fields["data"],
	}, true
}

// DecodeReply parses a datareturned body. ok is false when data is not an
// object or carries no message_id.
func DecodeReply(data json.RawMessage) (Reply, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Reply{}, false
	}
	id, ok := stringField(fields, FieldMessageID)
	if !ok || id == "" {
		return Reply{}, false
	}
	reply := Reply{MessageID: id}
	reply.Type, _ = stringField(fields, "type")
	reply.Status, _ = stringField(fields, "status")
	reply.Data = fields["data"]
	reply.Err = fields["err"]
	return reply, true
}

// MessageID reads message_id from an inbound request body.
func MessageID(data json.RawMessage) (string, bool) {
	var body struct {
		MessageID *string `json:"message_id"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.MessageID == nil {
		return "", false
	}
	if *body.MessageID == "" {
		return "", false
	}
	return *body.MessageID, true
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return "", false
	}
	return *s, true
}
