// Package jsonrpc provides the transport client for the Gripp API.
//
// The Gripp API exposes a single JSON-RPC-like HTTP endpoint. It is not
// JSON-RPC 2.0: envelopes carry no "jsonrpc" member, they carry an
// "apiconnectorversion" member instead, and the request body is always a JSON
// array of envelopes, even for a single call.
//
// # Basic Usage
//
// Create a client and invoke a remote procedure by name:
//
//	c, err := jsonrpc.New(token, "https://tenant.gripp.com")
//	if err != nil {
//	    return err
//	}
//	resp, err := c.Call(ctx, "company.get", []any{filters, options})
//	if err != nil {
//	    return err
//	}
//	for _, row := range resp.Rows() {
//	    // row is a json.RawMessage
//	}
//
// # Pagination
//
// Paginate repeats a list call with advancing offsets and merges every page:
//
//	resp, err := c.Paginate(ctx, "project.get", []any{[]any{}, map[string]any{}}, 0)
//
// The paging option is merged into the options object at params index 1.
// A page size of zero uses the client default (200).
//
// # Batching
//
// Between StartBatch and ExecuteBatch every Call is queued and answered with a
// pending Response. ExecuteBatch sends all queued envelopes in one HTTP request:
//
//	c.StartBatch()
//	c.Call(ctx, "company.getone", []any{filterA})
//	c.Call(ctx, "contact.getone", []any{filterB})
//	responses, err := c.ExecuteBatch(ctx)
//
// # Error Handling
//
// Failures are reported as one of four error types:
//   - *AuthenticationError (HTTP 401, 403)
//   - *RateLimitError (HTTP 429, never retried)
//   - *RequestError (other HTTP failures, exhausted retries, undecodable
//     bodies, and protocol-level errors embedded in a 2xx reply)
//   - *ConfigurationError (missing token or base URL)
//
// All of them implement Error, so they can be logged uniformly:
//
//	var apiErr jsonrpc.Error
//	if errors.As(err, &apiErr) {
//	    log.Error().EmbedObject(apiErr).Msg("gripp call failed")
//	}
//
// Connection failures and HTTP 5xx responses are retried up to three attempts
// in total. The delay between attempts is a backoff.BackOff policy, which
// defaults to no delay.
//
// A Client is not safe for concurrent use.
package jsonrpc
