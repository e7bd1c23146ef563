package jsonrpc

import (
	"encoding/json"
	"strings"
)

const (
	// APIPath is the path of the API endpoint, relative to the base URL.
	APIPath = "/public/api3.php"

	// ConnectorVersion is sent as "apiconnectorversion" in every envelope.
	ConnectorVersion = 3011
)

// Envelope is one logical remote call.
type Envelope struct {
	Method           string `json:"method"`
	Params           json.RawMessage `json:"params"`
	ID               int64           `json:"id"`
	ConnectorVersion int             `json:"apiconnectorversion"`
}

// build encodes params and assigns the next id. Params are encoded here so a
// queued envelope does not change when the caller reuses its slice. Ids are
// never reused, including for envelopes that are queued and later discarded
// by StartBatch.
func (c *Client) build(method string, params []any) (*Envelope, error) {
	if params == nil {
		params = []any{}
	}
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, &RequestError{Message: "encoding request params: " + err.Error(), Method: method, Cause: err}
	}
	c.nextID++
	return &Envelope{
		Method:           method,
		Params:           encoded,
		ID:               c.nextID,
		ConnectorVersion: ConnectorVersion,
	}, nil
}

// methodNames joins the methods of a batch for log and error context.
func methodNames(envs []*Envelope) string {
	names := make([]string, 0, len(envs))
	for _, env := range envs {
		names = append(names, env.Method)
	}
	return strings.Join(names, ",")
}

// methodForID returns the method of the envelope with the given id. A batch of
// one envelope always resolves to that envelope's method.
func methodForID(envs []*Envelope, id int64, ok bool) string {
	if len(envs) == 1 {
		return envs[0].Method
	}
	if !ok {
		return ""
	}
	for _, env := range envs {
		if env.ID == id {
			return env.Method
		}
	}
	return ""
}
