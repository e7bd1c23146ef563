package jsonrpc

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Kind names an error class of the taxonomy.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindRateLimit      Kind = "rate_limit"
	KindRequest        Kind = "request"
	KindConfiguration  Kind = "configuration"
)

var (
	// ErrPending is returned when decoding a Response that was queued in a
	// batch and has not been sent yet.
	ErrPending = errors.New("jsonrpc: response is pending until ExecuteBatch")

	// ErrBatchActive is returned by Paginate while a batch is being collected.
	ErrBatchActive = errors.New("jsonrpc: cannot paginate while a batch is pending")
)

// Error is implemented by every error the client returns for a failed call.
type Error interface {
	error
	zerolog.LogObjectMarshaler
	Kind() Kind
	// Code is the numeric code: the HTTP status for transport failures, the
	// payload code for protocol errors.
	Code() int
	// RPCMethod is the remote method involved, when known.
	RPCMethod() string
	// Fields is a flat structured export suitable for logging.
	Fields() map[string]any
}

func exportFields(e Error) map[string]any {
	return map[string]any{
		"kind":       string(e.Kind()),
		"message":    e.Error(),
		"code":       e.Code(),
		"rpc_method": e.RPCMethod(),
	}
}

func marshalCommon(ev *zerolog.Event, e Error) {
	ev.Str("kind", string(e.Kind())).
		Str(zerolog.ErrorFieldName, e.Error()).
		Int("code", e.Code())
	if m := e.RPCMethod(); m != "" {
		ev.Str("rpc_method", m)
	}
}

// AuthenticationError reports HTTP 401 or 403.
type AuthenticationError struct {
	StatusCode int
	Method     string
	Cause      error
}

func (e *AuthenticationError) Error() string {
	reason := "Forbidden"
	if e.TokenInvalid() {
		reason = "Invalid token"
	}
	return "Authentication failed: " + reason
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

// TokenInvalid reports whether the server rejected the token (401).
func (e *AuthenticationError) TokenInvalid() bool { return e.StatusCode == http.StatusUnauthorized }

// Forbidden reports whether the token lacks permission (403).
func (e *AuthenticationError) Forbidden() bool { return e.StatusCode == http.StatusForbidden }

func (e *AuthenticationError) Kind() Kind         { return KindAuthentication }
func (e *AuthenticationError) Code() int          { return e.StatusCode }
func (e *AuthenticationError) RPCMethod() string  { return e.Method }
func (e *AuthenticationError) Fields() map[string]any {
	f := exportFields(e)
	f["status_code"] = e.StatusCode
	return f
}

func (e *AuthenticationError) MarshalZerologObject(ev *zerolog.Event) {
	marshalCommon(ev, e)
	ev.Int("status_code", e.StatusCode)
}

// RateLimitError reports HTTP 429. It is never retried by the client; callers
// decide whether to wait RetryAfter seconds.
type RateLimitError struct {
	// RetryAfter is the Retry-After header in seconds, nil when absent.
	RetryAfter *int
	// Remaining is the X-RateLimit-Remaining header, nil when absent.
	Remaining *int
	Method    string
	Cause     error
}

func (e *RateLimitError) Error() string       { return "Rate limit exceeded" }
func (e *RateLimitError) Unwrap() error       { return e.Cause }
func (e *RateLimitError) Kind() Kind          { return KindRateLimit }
func (e *RateLimitError) Code() int           { return http.StatusTooManyRequests }
func (e *RateLimitError) RPCMethod() string   { return e.Method }

// RetryAfterDuration returns RetryAfter as a duration, or 0 when absent.
func (e *RateLimitError) RetryAfterDuration() time.Duration {
	if e.RetryAfter == nil {
		return 0
	}
	return time.Duration(*e.RetryAfter) * time.Second
}

func (e *RateLimitError) Fields() map[string]any {
	f := exportFields(e)
	if e.RetryAfter != nil {
		f["retry_after"] = *e.RetryAfter
	}
	if e.Remaining != nil {
		f["remaining"] = *e.Remaining
	}
	return f
}

func (e *RateLimitError) MarshalZerologObject(ev *zerolog.Event) {
	marshalCommon(ev, e)
	if e.RetryAfter != nil {
		ev.Int("retry_after", *e.RetryAfter)
	}
	if e.Remaining != nil {
		ev.Int("remaining", *e.Remaining)
	}
}

// RequestError reports every other failure: non-retryable HTTP statuses,
// exhausted retries, undecodable bodies and protocol errors embedded in a 2xx
// reply.
type RequestError struct {
	Message string
	// ErrCode is the payload code of a protocol error, or the HTTP status of a
	// transport failure. Zero when neither is known.
	ErrCode int
	// StatusCode is the HTTP status of the last exchange, 0 if none completed.
	StatusCode int
	// Payload is the embedded error of a protocol-level failure.
	Payload ErrorPayload
	// Connection is set when no HTTP status was ever obtained.
	Connection bool
	// Body is a truncated prefix of the response body, when one was read.
	Body   string
	Method string
	Cause  error
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return "API request failed"
	}
	return e.Message
}

func (e *RequestError) Unwrap() error     { return e.Cause }
func (e *RequestError) Kind() Kind        { return KindRequest }
func (e *RequestError) Code() int         { return e.ErrCode }
func (e *RequestError) RPCMethod() string { return e.Method }

func (e *RequestError) Fields() map[string]any {
	f := exportFields(e)
	if e.StatusCode != 0 {
		f["status_code"] = e.StatusCode
	}
	if e.Connection {
		f["connection"] = true
	}
	if se, ok := e.Payload.(*StructuredError); ok && len(se.Raw) > 0 {
		f["response_data"] = string(se.Raw)
	}
	return f
}

func (e *RequestError) MarshalZerologObject(ev *zerolog.Event) {
	marshalCommon(ev, e)
	if e.StatusCode != 0 {
		ev.Int("status_code", e.StatusCode)
	}
	if e.Connection {
		ev.Bool("connection", true)
	}
	if se, ok := e.Payload.(*StructuredError); ok && len(se.Raw) > 0 {
		ev.RawJSON("response_data", se.Raw)
	}
}

// ConfigurationError reports a client used without a token or base URL.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message == "" {
		return "Gripp client is not configured: a token and base URL are required"
	}
	return e.Message
}

func (e *ConfigurationError) Kind() Kind             { return KindConfiguration }
func (e *ConfigurationError) Code() int              { return 0 }
func (e *ConfigurationError) RPCMethod() string      { return "" }
func (e *ConfigurationError) Fields() map[string]any { return exportFields(e) }
func (e *ConfigurationError) MarshalZerologObject(ev *zerolog.Event) {
	marshalCommon(ev, e)
}

// newProtocolError builds the RequestError for an embedded "error" member.
func newProtocolError(p ErrorPayload, method string) *RequestError {
	return &RequestError{
		Message: p.Text(),
		ErrCode: p.ErrorCode(),
		Payload: p,
		Method:  method,
	}
}

// classifyStatus maps a non-2xx response onto the taxonomy. retry reports
// whether the status is presumed transient.
func classifyStatus(resp *http.Response, body []byte, method string, now time.Time) (err Error, retry bool) {
	status := resp.StatusCode
	statusErr := fmt.Errorf("http %d: %s", status, truncate(body, 200))

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthenticationError{StatusCode: status, Method: method, Cause: statusErr}, false
	case status == http.StatusTooManyRequests:
		return &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), now),
			Remaining:  parseHeaderInt(resp.Header.Get("X-RateLimit-Remaining")),
			Method:     method,
			Cause:      statusErr,
		}, false
	}
	return &RequestError{
		Message:    fmt.Sprintf("API request failed: HTTP %d %s", status, http.StatusText(status)),
		ErrCode:    status,
		StatusCode: status,
		Body:       truncate(body, 200),
		Method:     method,
		Cause:      statusErr,
	}, status >= http.StatusInternalServerError
}

func parseHeaderInt(v string) *int {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	if n < 0 {
		n = 0
	}
	return &n
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) *int {
	if n := parseHeaderInt(v); n != nil {
		return n
	}
	t, err := http.ParseTime(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	secs := int(t.Sub(now).Round(time.Second) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &secs
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

var (
	_ Error = (*AuthenticationError)(nil)
	_ Error = (*RateLimitError)(nil)
	_ Error = (*RequestError)(nil)
	_ Error = (*ConfigurationError)(nil)
)
