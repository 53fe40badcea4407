package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeEnvelope serializes one outgoing envelope. Empty nameSpace or event
// is rejected since nothing could ever be registered to receive it.
func EncodeEnvelope(nameSpace, event string, data any) ([]byte, error) {
	if nameSpace == "" {
		return nil, ErrMissingNameSpace
	}
	if event == "" {
		return nil, ErrMissingEvent
	}
	raw, err := json.Marshal(Envelope{NameSpace: nameSpace, Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("protocol: encode envelope %s/%s: %w", nameSpace, event, err)
	}
	return raw, nil
}

// StampMessageID marshals a call payload and sets message_id on it. A nil
// payload becomes an empty object; any other non-object payload is rejected.
func StampMessageID(data any, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, ErrMissingMessageID
	}
	fields := map[string]json.RawMessage{}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("protocol: encode call payload: %w", err)
		}
		trimmed := bytes.TrimSpace(raw)
		if string(trimmed) != "null" {
			if len(trimmed) == 0 || trimmed[0] != '{' {
				return nil, ErrPayloadNotObject
			}
			if err := json.Unmarshal(trimmed, &fields); err != nil {
				return nil, fmt.Errorf("protocol: decode call payload: %w", err)
			}
		}
	}
	idRaw, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	fields[FieldMessageID] = idRaw
	return json.Marshal(fields)
}

// SuccessReply builds the body of a successful datareturned envelope.
func SuccessReply(id string, data any) (Reply, error) {
	reply := Reply{MessageID: id, Type: ReplyTypeResponse, Status: StatusSuccess}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Reply{}, fmt.Errorf("protocol: encode reply data: %w", err)
		}
		reply.Data = raw
	}
	return reply, nil
}

// FailureReply builds the body of a failed datareturned envelope. A nil
// errPayload produces a reply with no err field.
func FailureReply(id string, errPayload any) (Reply, error) {
	reply := Reply{MessageID: id, Type: ReplyTypeResponse, Status: StatusFailure}
	if errPayload != nil {
		raw, err := json.Marshal(errPayload)
		if err != nil {
			return Reply{}, fmt.Errorf("protocol: encode reply err: %w", err)
		}
		reply.Err = raw
	}
	return reply, nil
}
