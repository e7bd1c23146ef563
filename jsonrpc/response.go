package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Response is the decoded reply for one envelope. It is immutable.
type Response struct {
	raw     json.RawMessage
	members map[string]json.RawMessage
	pending bool
	id      int64
}

// listResult is the shape of a list call's result.
type listResult struct {
	Rows  []json.RawMessage `json:"rows"`
	Count json.RawMessage   `json:"count"`
	More  json.RawMessage   `json:"more_items_in_collection"`
	ID    json.RawMessage   `json:"id"`
}

// NewResponse wraps one decoded reply object. A reply that is not a JSON
// object yields a Response without result or error.
func NewResponse(raw json.RawMessage) *Response {
	r := &Response{raw: append(json.RawMessage(nil), raw...)}
	_ = json.Unmarshal(raw, &r.members)
	if id, ok := parseInt(r.members["id"]); ok {
		r.id = id
	}
	return r
}

func newPendingResponse(id int64) *Response {
	return &Response{pending: true, id: id}
}

// Pending reports whether the response is a placeholder for a call queued in
// a batch. A pending Response has no result until ExecuteBatch returns the
// real one.
func (r *Response) Pending() bool { return r.pending }

// ID returns the envelope id the reply belongs to, or 0 when absent.
func (r *Response) ID() int64 { return r.id }

// Raw returns a copy of the reply object as received.
func (r *Response) Raw() json.RawMessage {
	if r.raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), r.raw...)
}

// Result returns a copy of the raw "result" member, or nil when absent or
// null.
func (r *Response) Result() json.RawMessage {
	res := bytes.TrimSpace(r.members["result"])
	if len(res) == 0 || bytes.Equal(res, []byte("null")) {
		return nil
	}
	return append(json.RawMessage(nil), res...)
}

// DecodeResult unmarshals the result into v.
func (r *Response) DecodeResult(v any) error {
	if r.pending {
		return ErrPending
	}
	res := r.Result()
	if res == nil {
		return fmt.Errorf("jsonrpc: response %d has no result", r.id)
	}
	return json.Unmarshal(res, v)
}

func (r *Response) list() (listResult, bool) {
	var lr listResult
	res := r.Result()
	if res == nil || res[0] != '{' {
		return lr, false
	}
	if err := json.Unmarshal(res, &lr); err != nil {
		// Tolerate a malformed rows member; count and flags may still be usable.
		var loose map[string]json.RawMessage
		if json.Unmarshal(res, &loose) != nil {
			return listResult{}, false
		}
		lr = listResult{Count: loose["count"], More: loose["more_items_in_collection"], ID: loose["id"]}
	}
	return lr, true
}

// Rows returns the result's rows, or an empty slice when absent or malformed.
func (r *Response) Rows() []json.RawMessage {
	lr, ok := r.list()
	if !ok || lr.Rows == nil {
		return []json.RawMessage{}
	}
	return lr.Rows
}

// DecodeRows unmarshals the rows into v, which is typically a pointer to a
// slice of structs.
func (r *Response) DecodeRows(v any) error {
	if r.pending {
		return ErrPending
	}
	b, err := json.Marshal(r.Rows())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Count returns result.count, falling back to the number of rows.
func (r *Response) Count() int {
	if lr, ok := r.list(); ok {
		if n, ok := parseInt(lr.Count); ok {
			return int(n)
		}
	}
	return len(r.Rows())
}

// HasMoreItems reports result.more_items_in_collection, false when absent.
// Besides booleans, non-zero numbers and strings other than "", "0" and
// "false" count as true.
func (r *Response) HasMoreItems() bool {
	lr, ok := r.list()
	if !ok {
		return false
	}
	return truthy(lr.More)
}

func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch v := v.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		s := strings.TrimSpace(v)
		return s != "" && s != "0" && !strings.EqualFold(s, "false")
	}
	return false
}

// RecordID returns result.id, as returned by create calls.
func (r *Response) RecordID() (int64, bool) {
	lr, ok := r.list()
	if !ok {
		return 0, false
	}
	return parseInt(lr.ID)
}

// Error returns the embedded error payload, or nil.
func (r *Response) Error() ErrorPayload {
	return ParseErrorPayload(r.members["error"])
}

// HasError reports whether the reply carries a non-null "error" member.
func (r *Response) HasError() bool {
	return r.Error() != nil
}

// parseInt reads an integer sent as a JSON number or numeric string.
func parseInt(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(string(n), 64); err == nil {
		return int64(f), true
	}
	return 0, false
}
