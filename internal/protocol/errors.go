package protocol

import "errors"

var (
	ErrMissingNameSpace = errors.New("protocol: missing nameSpace")
	ErrMissingEvent     = errors.New("protocol: missing event")
	ErrPayloadNotObject = errors.New("protocol: call payload must encode to a json object")
	ErrMissingMessageID = errors.New("protocol: missing message_id")
)
