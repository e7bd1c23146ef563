package jsonrpc

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Standard JSON-RPC error codes. The API reuses them for protocol errors.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ErrorPayload is the "error" member of a reply. The API sends either a plain
// string or an object with code and message, so the payload is one of
// StringError or *StructuredError.
type ErrorPayload interface {
	// Text is the human-readable message carried by the payload.
	Text() string
	// ErrorCode is the numeric code, or 0 when the payload has none.
	ErrorCode() int
	isErrorPayload()
}

// StringError is an error payload sent as a bare string,
// e.g. "Insufficient rights.".
type StringError string

func (s StringError) Text() string   { return string(s) }
func (s StringError) ErrorCode() int { return 0 }
func (StringError) isErrorPayload()  {}

// StructuredError is an error payload sent as an object.
type StructuredError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Raw holds the undecoded object, including members not modelled above.
	Raw json.RawMessage `json:"-"`
}

func (e *StructuredError) Text() string {
	if e.Message == "" {
		return "Unknown API error"
	}
	return e.Message
}

func (e *StructuredError) ErrorCode() int { return e.Code }
func (*StructuredError) isErrorPayload()  {}

// ParseErrorPayload resolves a raw "error" member. It returns nil for an empty
// or null member.
func ParseErrorPayload(raw json.RawMessage) ErrorPayload {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return StringError(text)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		// Numbers, booleans and arrays are reported verbatim.
		return StringError(string(raw))
	}
	se := &StructuredError{Raw: append(json.RawMessage(nil), raw...)}
	if msg, ok := obj["message"]; ok {
		if err := json.Unmarshal(msg, &se.Message); err != nil {
			se.Message = string(msg)
		}
	}
	if code, ok := obj["code"]; ok {
		se.Code = parseCode(code)
	}
	if data, ok := obj["data"]; ok {
		se.Data = data
	}
	return se
}

// parseCode accepts integer codes sent as numbers or numeric strings.
func parseCode(raw json.RawMessage) int {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		n = json.Number(s)
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return int(f)
	}
	return 0
}
