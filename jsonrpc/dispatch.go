package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// send performs the physical exchange for a batch of envelopes, retrying
// connection failures and 5xx responses up to MaxAttempts. It returns the reply
// items; a flat object reply is returned as a single item.
func (c *Client) send(ctx context.Context, envs []*Envelope) ([]json.RawMessage, error) {
	body, err := json.Marshal(envs)
	if err != nil {
		return nil, &RequestError{Message: "encoding request: " + err.Error(), Method: methodForID(envs, 0, false), Cause: err}
	}

	policy := c.newBackOff()
	policy.Reset()
	for attempt := 1; ; attempt++ {
		items, retry, err := c.exchange(ctx, envs, body, attempt)
		if err == nil {
			return items, nil
		}
		if !retry || attempt >= MaxAttempts {
			c.metrics.observeError(err)
			c.log.Debug().EmbedObject(err).Int("attempt", attempt).Msg("Gripp request failed")
			return nil, err
		}
		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			c.metrics.observeError(err)
			return nil, err
		}
		c.log.Warn().EmbedObject(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Retrying Gripp request")
		if err := sleepContext(ctx, delay); err != nil {
			reqErr := cancelled(envs, err)
			c.metrics.observeError(reqErr)
			return nil, reqErr
		}
	}
}

// exchange performs one HTTP attempt. retry reports whether a failure is
// presumed transient.
func (c *Client) exchange(ctx context.Context, envs []*Envelope, body []byte, attempt int) (items []json.RawMessage, retry bool, err Error) {
	method := methodForID(envs, 0, false)
	if c.limiter != nil {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return nil, false, cancelled(envs, werr)
		}
	}

	req, rerr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+APIPath, bytes.NewReader(body))
	if rerr != nil {
		return nil, false, &RequestError{Message: "API request failed: " + rerr.Error(), Method: method, Cause: rerr}
	}
	tok, terr := c.tokens.Token()
	if terr != nil {
		return nil, false, &RequestError{Message: "API request failed: token: " + terr.Error(), Method: method, Cause: terr}
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	log := c.log.With().
		Str("request_id", requestID).
		Str("methods", methodNames(envs)).
		Int("envelopes", len(envs)).
		Int("attempt", attempt).
		Logger()

	start := time.Now()
	resp, derr := c.httpClient.Do(req)
	if derr != nil {
		c.metrics.observeAttempt("connection_error", time.Since(start))
		if ctx.Err() != nil {
			return nil, false, cancelled(envs, ctx.Err())
		}
		return nil, true, &RequestError{
			Message:    "Connection failed: " + derr.Error(),
			Connection: true,
			Method:     method,
			Cause:      derr,
		}
	}
	defer resp.Body.Close()

	raw, berr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	elapsed := time.Since(start)
	log.Debug().Int("status", resp.StatusCode).Dur("duration", elapsed).Msg("Gripp request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.observeAttempt(statusOutcome(resp.StatusCode), elapsed)
		cerr, retry := classifyStatus(resp, raw, method, c.now())
		return nil, retry, cerr
	}
	if berr != nil {
		// The status arrived but the body was cut off; treat like a dropped connection.
		c.metrics.observeAttempt("connection_error", elapsed)
		return nil, ctx.Err() == nil, &RequestError{
			Message:    "Connection failed: reading response body: " + berr.Error(),
			Connection: true,
			StatusCode: resp.StatusCode,
			Method:     method,
			Cause:      berr,
		}
	}

	c.requestCount++
	c.metrics.observeAttempt("ok", elapsed)
	c.metrics.observeExchange()

	items, perr := decodeReply(raw, envs)
	if perr != nil {
		return nil, false, perr
	}
	return items, false, nil
}

// decodeReply splits a 2xx body into reply items and surfaces a protocol
// error carried by the first item or by a flat object reply.
func decodeReply(raw []byte, envs []*Envelope) ([]json.RawMessage, Error) {
	trimmed := bytes.TrimSpace(raw)
	if !json.Valid(trimmed) {
		return nil, &RequestError{
			Message: "Invalid JSON response from API: " + truncate(raw, 200),
			Body:    truncate(raw, 200),
			Method:  methodForID(envs, 0, false),
		}
	}

	var items []json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, &RequestError{Message: "Invalid JSON response from API: " + truncate(raw, 200), Method: methodForID(envs, 0, false), Cause: err}
		}
	} else {
		items = []json.RawMessage{trimmed}
	}

	if len(items) > 0 {
		if perr := embeddedError(items[0], envs); perr != nil {
			return nil, perr
		}
	}
	return items, nil
}

// embeddedError returns the protocol error carried by a reply item, if any.
func embeddedError(item json.RawMessage, envs []*Envelope) *RequestError {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(item, &members); err != nil {
		return nil
	}
	payload := ParseErrorPayload(members["error"])
	if payload == nil {
		return nil
	}
	id, ok := parseInt(members["id"])
	return newProtocolError(payload, methodForID(envs, id, ok))
}

func cancelled(envs []*Envelope, err error) *RequestError {
	return &RequestError{
		Message: "API request cancelled: " + err.Error(),
		Method:  methodForID(envs, 0, false),
		Cause:   err,
	}
}

func statusOutcome(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "auth_error"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status >= http.StatusInternalServerError:
		return "server_error"
	}
	return fmt.Sprintf("http_%d", status)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
