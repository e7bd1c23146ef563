package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/mnehpets/gripp/jsonrpc/jsonrpctest"
)

const testToken = "test-token"

func newTestServer(t *testing.T) *jsonrpctest.Server {
	t.Helper()
	srv := jsonrpctest.NewServer(testToken)
	t.Cleanup(srv.Close)
	srv.Handle("task.get", func(ctx context.Context, params json.RawMessage) (any, error) {
		return jsonrpctest.Page([]any{map[string]any{"id": 1}}, false), nil
	})
	srv.Handle("company.get", func(ctx context.Context, params json.RawMessage) (any, error) {
		return jsonrpctest.Page(nil, false), nil
	})
	return srv
}

func newTestClient(t *testing.T, srv *jsonrpctest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := New(testToken, srv.URL, append([]Option{WithHTTPClient(srv.Client())}, opts...)...)
	require.NoError(t, err)
	return c
}

func decodeEnvelopes(t *testing.T, body []byte) []map[string]any {
	t.Helper()
	var envs []map[string]any
	require.NoError(t, json.Unmarshal(body, &envs), "request body must be a JSON array")
	return envs
}

func TestCallBuildsEnvelope(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)

	_, err := c.Call(context.Background(), "company.get", []any{[]any{}, []any{}})
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, APIPath, req.Path)
	assert.Equal(t, "Bearer "+testToken, req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.NotEmpty(t, req.Header.Get("X-Request-Id"))

	envs := decodeEnvelopes(t, req.Body)
	require.Len(t, envs, 1)
	env := envs[0]
	assert.NotContains(t, env, "jsonrpc")
	assert.Equal(t, "company.get", env["method"])
	assert.Equal(t, []any{[]any{}, []any{}}, env["params"])
	assert.Equal(t, float64(ConnectorVersion), env["apiconnectorversion"])
	assert.Equal(t, float64(1), env["id"])
}

func TestEmptyParamsEncodeAsArray(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)

	_, err := c.Call(context.Background(), "task.get", nil)
	require.NoError(t, err)

	envs := decodeEnvelopes(t, srv.Requests()[0].Body)
	assert.Equal(t, []any{}, envs[0]["params"])
}

func TestQueuedParamsAreSnapshotted(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	ctx := context.Background()

	opts := map[string]any{"paging": "first"}
	params := []any{"first", opts}
	c.StartBatch()
	_, err := c.Call(ctx, "task.get", params)
	require.NoError(t, err)
	params[0] = "second"
	opts["paging"] = "second"
	_, err = c.Call(ctx, "task.get", params)
	require.NoError(t, err)
	_, err = c.ExecuteBatch(ctx)
	require.NoError(t, err)

	envs := decodeEnvelopes(t, srv.Requests()[0].Body)
	require.Len(t, envs, 2)
	assert.Equal(t, []any{"first", map[string]any{"paging": "first"}}, envs[0]["params"])
	assert.Equal(t, []any{"second", map[string]any{"paging": "second"}}, envs[1]["params"])
}

func TestUnencodableParams(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)

	_, err := c.Call(context.Background(), "task.get", []any{make(chan int)})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "task.get", reqErr.RPCMethod())
	assert.Equal(t, 0, srv.RequestCount())

	resp, err := c.Call(context.Background(), "task.get", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.ID(), "a failed encode does not consume an id")
}

func TestSequentialCallsUseIncreasingIDs(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)

	const n = 5
	for i := 1; i <= n; i++ {
		resp, err := c.Call(context.Background(), "task.get", []any{})
		require.NoError(t, err)
		assert.Equal(t, int64(i), resp.ID())
	}

	reqs := srv.Requests()
	require.Len(t, reqs, n)
	for i, req := range reqs {
		envs := decodeEnvelopes(t, req.Body)
		require.Len(t, envs, 1, "each send carries exactly one envelope")
		assert.Equal(t, float64(i+1), envs[0]["id"])
	}
	assert.Equal(t, int64(n), c.RequestCount())
}

func TestCallUnwrapsSingleResult(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)

	resp, err := c.Call(context.Background(), "task.get", nil)
	require.NoError(t, err)
	assert.False(t, resp.Pending())
	assert.Len(t, resp.Rows(), 1)
	assert.Equal(t, 1, resp.Count())
}

func TestBatchSendsOneRequest(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	ctx := context.Background()

	c.StartBatch()
	require.True(t, c.Batching())
	methods := []string{"task.get", "company.get", "task.get"}
	for i, m := range methods {
		resp, err := c.Call(ctx, m, []any{i})
		require.NoError(t, err)
		assert.True(t, resp.Pending())
		assert.Equal(t, int64(i+1), resp.ID())
		assert.Nil(t, resp.Result())
		assert.ErrorIs(t, resp.DecodeResult(&struct{}{}), ErrPending)
	}
	assert.Equal(t, 0, srv.RequestCount(), "queued calls must not be sent")
	assert.Equal(t, int64(0), c.RequestCount())

	responses, err := c.ExecuteBatch(ctx)
	require.NoError(t, err)
	assert.False(t, c.Batching())
	require.Len(t, responses, len(methods))

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	envs := decodeEnvelopes(t, reqs[0].Body)
	require.Len(t, envs, len(methods))
	for i, env := range envs {
		assert.Equal(t, methods[i], env["method"])
		assert.Equal(t, float64(i+1), env["id"])
		assert.Equal(t, int64(i+1), responses[i].ID())
	}
	assert.Len(t, responses[0].Rows(), 1)
	assert.Empty(t, responses[1].Rows())
	assert.Equal(t, int64(1), c.RequestCount())
}

func TestExecuteEmptyBatch(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)

	c.StartBatch()
	responses, err := c.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, responses)
	assert.Empty(t, responses)
	assert.Equal(t, 0, srv.RequestCount())

	// Without StartBatch as well.
	responses, err = c.ExecuteBatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, responses)
	assert.Equal(t, 0, srv.RequestCount())
}

func TestStartBatchDiscardsQueue(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	ctx := context.Background()

	c.StartBatch()
	_, err := c.Call(ctx, "task.get", nil)
	require.NoError(t, err)
	c.StartBatch()
	_, err = c.Call(ctx, "company.get", nil)
	require.NoError(t, err)

	responses, err := c.ExecuteBatch(ctx)
	require.NoError(t, err)
	require.Len(t, responses, 1)

	envs := decodeEnvelopes(t, srv.Requests()[0].Body)
	require.Len(t, envs, 1)
	assert.Equal(t, "company.get", envs[0]["method"])
	assert.Equal(t, float64(2), envs[0]["id"], "ids are not reused after a discard")
}

func TestBatchFlatObjectReply(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	srv.Enqueue(jsonrpctest.Fault{Body: `{"id":1,"result":{"id":42}}`})

	c.StartBatch()
	_, _ = c.Call(context.Background(), "company.create", []any{map[string]any{"name": "Acme"}})
	_, _ = c.Call(context.Background(), "company.create", []any{map[string]any{"name": "Beta"}})
	responses, err := c.ExecuteBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, responses, 1)
	id, ok := responses[0].RecordID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestBatchLaterItemErrorIsKept(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	ctx := context.Background()

	c.StartBatch()
	_, _ = c.Call(ctx, "task.get", nil)
	_, _ = c.Call(ctx, "nope.get", nil)
	responses, err := c.ExecuteBatch(ctx)
	require.NoError(t, err, "only the first item's error fails the exchange")
	require.Len(t, responses, 2)
	assert.False(t, responses[0].HasError())
	assert.True(t, responses[1].HasError())
	assert.Equal(t, CodeMethodNotFound, responses[1].Error().ErrorCode())
}

func TestRetriesServerErrors(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	srv.Enqueue(
		jsonrpctest.Fault{Status: http.StatusInternalServerError, Body: "Server Error"},
		jsonrpctest.Fault{Status: http.StatusBadGateway, Body: "Bad Gateway"},
	)

	resp, err := c.Call(context.Background(), "task.get", nil)
	require.NoError(t, err)
	assert.Len(t, resp.Rows(), 1)
	assert.Equal(t, 3, srv.RequestCount())
	assert.Equal(t, int64(1), c.RequestCount(), "failed attempts are not counted")

	// Every attempt re-sends the same envelope.
	for _, req := range srv.Requests() {
		envs := decodeEnvelopes(t, req.Body)
		assert.Equal(t, float64(1), envs[0]["id"])
	}
}

func TestServerErrorsExhaustRetries(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	for i := 0; i < MaxAttempts; i++ {
		srv.Enqueue(jsonrpctest.Fault{Status: http.StatusInternalServerError, Body: "Server Error"})
	}

	_, err := c.Call(context.Background(), "task.get", nil)
	require.Error(t, err)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	assert.Equal(t, http.StatusInternalServerError, reqErr.Code())
	assert.Equal(t, "task.get", reqErr.RPCMethod())
	assert.Equal(t, "Server Error", reqErr.Body)
	assert.False(t, reqErr.Connection)
	assert.Equal(t, MaxAttempts, srv.RequestCount())
	assert.Equal(t, int64(0), c.RequestCount())
}

func TestAuthenticationErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		status    int
		invalid   bool
		forbidden bool
		message   string
	}{
		{http.StatusUnauthorized, true, false, "Authentication failed: Invalid token"},
		{http.StatusForbidden, false, true, "Authentication failed: Forbidden"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newTestServer(t)
			c := newTestClient(t, srv)
			srv.Enqueue(jsonrpctest.Fault{Status: tt.status, Body: `{"error":"Unauthorized"}`})

			_, err := c.Call(context.Background(), "task.get", nil)
			var authErr *AuthenticationError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.status, authErr.StatusCode)
			assert.Equal(t, tt.invalid, authErr.TokenInvalid())
			assert.Equal(t, tt.forbidden, authErr.Forbidden())
			assert.Equal(t, tt.message, authErr.Error())
			assert.Equal(t, KindAuthentication, authErr.Kind())
			assert.Equal(t, 1, srv.RequestCount())
		})
	}
}

func TestRateLimitIsNotRetried(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	srv.Enqueue(jsonrpctest.Fault{
		Status: http.StatusTooManyRequests,
		Header: map[string]string{"Retry-After": "30", "X-RateLimit-Remaining": "0"},
		Body:   `{"error":"Rate limited"}`,
	})

	_, err := c.Call(context.Background(), "task.get", nil)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	require.NotNil(t, rlErr.RetryAfter)
	require.NotNil(t, rlErr.Remaining)
	assert.Equal(t, 30, *rlErr.RetryAfter)
	assert.Equal(t, 0, *rlErr.Remaining)
	assert.Equal(t, 30*time.Second, rlErr.RetryAfterDuration())
	assert.Equal(t, http.StatusTooManyRequests, rlErr.Code())
	assert.Equal(t, 1, srv.RequestCount())
}

func TestRateLimitWithoutHeaders(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	srv.Enqueue(jsonrpctest.Fault{Status: http.StatusTooManyRequests})

	_, err := c.Call(context.Background(), "task.get", nil)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Nil(t, rlErr.RetryAfter)
	assert.Nil(t, rlErr.Remaining)
	assert.Zero(t, rlErr.RetryAfterDuration())
}

func TestRateLimitRetryAfterDate(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	srv.Enqueue(jsonrpctest.Fault{
		Status: http.StatusTooManyRequests,
		Header: map[string]string{"Retry-After": now.Add(45 * time.Second).Format(http.TimeFormat)},
	})

	_, err := c.Call(context.Background(), "task.get", nil)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	require.NotNil(t, rlErr.RetryAfter)
	assert.Equal(t, 45, *rlErr.RetryAfter)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	srv.Enqueue(jsonrpctest.Fault{Status: http.StatusNotFound, Body: "missing"})

	_, err := c.Call(context.Background(), "task.get", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
	assert.Contains(t, reqErr.Error(), "404")
	assert.Equal(t, 1, srv.RequestCount())
}

func TestConnectionFailuresAreRetried(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	srv.Enqueue(jsonrpctest.Fault{Drop: true}, jsonrpctest.Fault{Drop: true})

	resp, err := c.Call(context.Background(), "task.get", nil)
	require.NoError(t, err)
	assert.Len(t, resp.Rows(), 1)
	assert.Equal(t, 3, srv.RequestCount())
	assert.Equal(t, int64(1), c.RequestCount())
}

func TestConnectionFailuresExhaustRetries(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	srv.Enqueue(jsonrpctest.Fault{Drop: true}, jsonrpctest.Fault{Drop: true}, jsonrpctest.Fault{Drop: true})

	_, err := c.Call(context.Background(), "task.get", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.True(t, reqErr.Connection)
	assert.Contains(t, reqErr.Error(), "Connection failed")
	assert.Zero(t, reqErr.StatusCode)
	assert.Equal(t, MaxAttempts, srv.RequestCount())
	assert.Equal(t, int64(0), c.RequestCount())
}

func TestUnreachableServer(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL
	srv.Close()

	c, err := New(testToken, url)
	require.NoError(t, err)
	_, err = c.Call(context.Background(), "task.get", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.True(t, reqErr.Connection)
}

func TestInvalidJSONBody(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	srv.Enqueue(jsonrpctest.Fault{Body: "<html>maintenance</html>"})

	_, err := c.Call(context.Background(), "task.get", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Invalid JSON response from API: <html>maintenance</html>", reqErr.Error())
	assert.Equal(t, 1, srv.RequestCount())
	assert.Equal(t, int64(1), c.RequestCount(), "a completed exchange is counted even if undecodable")
}

func TestInvalidJSONBodyIsTruncated(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	srv.Enqueue(jsonrpctest.Fault{Body: string(long)})

	_, err := c.Call(context.Background(), "task.get", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Len(t, reqErr.Body, 200)
}

func TestEmbeddedProtocolErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		code    int
	}{
		{
			"Structured",
			`[{"id":1,"error":{"code":-32600,"message":"Invalid request"}}]`,
			"Invalid request",
			CodeInvalidRequest,
		},
		{
			"String",
			`[{"id":1,"error":"Insufficient rights."}]`,
			"Insufficient rights.",
			0,
		},
		{
			"FlatObject",
			`{"id":1,"error":{"code":7,"message":"Flat failure"}}`,
			"Flat failure",
			7,
		},
		{
			"StructuredWithoutMessage",
			`[{"id":1,"error":{"code":12}}]`,
			"Unknown API error",
			12,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t)
			c := newTestClient(t, srv)
			srv.Enqueue(jsonrpctest.Fault{Body: tt.body})

			_, err := c.Call(context.Background(), "bad.method", nil)
			require.Error(t, err)

			var authErr *AuthenticationError
			var rlErr *RateLimitError
			assert.False(t, errors.As(err, &authErr))
			assert.False(t, errors.As(err, &rlErr))

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.message, reqErr.Error())
			assert.Equal(t, tt.code, reqErr.Code())
			assert.Equal(t, "bad.method", reqErr.RPCMethod())
			assert.NotNil(t, reqErr.Payload)
			assert.Equal(t, 1, srv.RequestCount(), "protocol errors are not retried")
			assert.Equal(t, int64(1), c.RequestCount())
		})
	}
}

func TestEmbeddedErrorFromRegisteredMethod(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	srv.Handle("department.get", func(ctx context.Context, params json.RawMessage) (any, error) {
		return nil, errors.New("Insufficient rights.")
	})

	_, err := c.Call(context.Background(), "department.get", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, StringError("Insufficient rights."), reqErr.Payload)
}

func TestRequestCountIgnoresQueuedCalls(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv)
	ctx := context.Background()

	_, err := c.Call(ctx, "task.get", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.RequestCount())

	c.StartBatch()
	for i := 0; i < 4; i++ {
		_, err := c.Call(ctx, "task.get", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), c.RequestCount())

	_, err = c.ExecuteBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.RequestCount())
}

func TestRetryBackOffPolicy(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		srv := newTestServer(t)
		calls := 0
		c := newTestClient(t, srv, WithRetryBackOff(func() backoff.BackOff {
			calls++
			return backoff.NewConstantBackOff(time.Millisecond)
		}))
		srv.Enqueue(jsonrpctest.Fault{Status: http.StatusServiceUnavailable})

		_, err := c.Call(context.Background(), "task.get", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, calls, "one policy per logical send")
		assert.Equal(t, 2, srv.RequestCount())
	})

	t.Run("Stop", func(t *testing.T) {
		srv := newTestServer(t)
		c := newTestClient(t, srv, WithRetryBackOff(func() backoff.BackOff {
			return &backoff.StopBackOff{}
		}))
		srv.Enqueue(jsonrpctest.Fault{Status: http.StatusServiceUnavailable})

		_, err := c.Call(context.Background(), "task.get", nil)
		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, 1, srv.RequestCount())
	})
}

func TestCancelledContextIsNotRetried(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, WithRetryBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Hour)
	}))
	srv.Enqueue(jsonrpctest.Fault{Status: http.StatusInternalServerError})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := c.Call(ctx, "task.get", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, srv.RequestCount())
}

func TestRateLimiterBlocksSend(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(t, srv, WithRateLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))
	ctx := context.Background()

	_, err := c.Call(ctx, "task.get", nil)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = c.Call(short, "task.get", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, 1, srv.RequestCount())
}

func TestMetricsRecordExchanges(t *testing.T) {
	srv := newTestServer(t)
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	c := newTestClient(t, srv, WithMetrics(m))
	srv.Enqueue(
		jsonrpctest.Fault{Status: http.StatusInternalServerError},
		jsonrpctest.Fault{Status: http.StatusInternalServerError},
	)

	_, err := c.Call(context.Background(), "task.get", nil)
	require.NoError(t, err)
	srv.Enqueue(jsonrpctest.Fault{Status: http.StatusForbidden})
	_, err = c.Call(context.Background(), "task.get", nil)
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.exchanges))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.attempts.WithLabelValues("server_error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.attempts.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errors.WithLabelValues(string(KindAuthentication))))

	count, err := testutil.GatherAndCount(reg, "gripp_client_attempt_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWithTokenSource(t *testing.T) {
	srv := newTestServer(t)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: testToken})
	c, err := New("", srv.URL, WithTokenSource(ts), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "task.get", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+testToken, srv.Requests()[0].Header.Get("Authorization"))
}

func TestNewRequiresConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		baseURL string
	}{
		{"NoToken", "", "https://example.gripp.com"},
		{"NoURL", "tok", ""},
		{"Neither", "", ""},
		{"NoScheme", "tok", "tenant.gripp.com"},
		{"UnsupportedScheme", "tok", "ftp://tenant.gripp.com"},
		{"NoHost", "tok", "https://"},
		{"Unparsable", "tok", "http://[::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.token, tt.baseURL)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, KindConfiguration, cfgErr.Kind())
		})
	}
}

func TestZeroValueClientIsNotConfigured(t *testing.T) {
	var c Client
	ctx := context.Background()
	var cfgErr *ConfigurationError

	_, err := c.Call(ctx, "task.get", nil)
	assert.ErrorAs(t, err, &cfgErr)
	_, err = c.Paginate(ctx, "task.get", nil, 0)
	assert.ErrorAs(t, err, &cfgErr)
	_, err = c.ExecuteBatch(ctx)
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBaseURLTrailingSlash(t *testing.T) {
	srv := newTestServer(t)
	c, err := New(testToken, srv.URL+"/", WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "task.get", nil)
	require.NoError(t, err)
	assert.Equal(t, APIPath, srv.Requests()[0].Path)
}
