package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/mnehpets/gripp/config"
	"github.com/mnehpets/gripp/jsonrpc"
)

// callWithRateLimit retries a call once after the server's Retry-After delay.
func callWithRateLimit(ctx context.Context, c *jsonrpc.Client, method string, params []any) (*jsonrpc.Response, error) {
	resp, err := c.Call(ctx, method, params)
	var rl *jsonrpc.RateLimitError
	if !errors.As(err, &rl) {
		return resp, err
	}
	wait := rl.RetryAfterDuration()
	if wait == 0 {
		wait = 10 * time.Second
	}
	fmt.Printf("rate limited, waiting %s\n", wait)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}
	return c.Call(ctx, method, params)
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration")
	}
	client, err := cfg.NewClient(
		jsonrpc.WithLogger(log),
		// Wait between retries of connection failures and 5xx replies.
		jsonrpc.WithRetryBackOff(func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			return b
		}),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_, err = callWithRateLimit(ctx, client, "company.getone", []any{[]any{
		map[string]any{"field": "company.id", "operator": "equals", "value": 1},
	}})

	var (
		authErr *jsonrpc.AuthenticationError
		rlErr   *jsonrpc.RateLimitError
		reqErr  *jsonrpc.RequestError
		cfgErr  *jsonrpc.ConfigurationError
	)
	switch {
	case err == nil:
		fmt.Println("ok")
	case errors.As(err, &authErr) && authErr.TokenInvalid():
		fmt.Println("the API token was rejected; create a new one in Gripp")
	case errors.As(err, &authErr):
		fmt.Println("the API token may not call this method")
	case errors.As(err, &rlErr):
		fmt.Printf("still rate limited, retry after %s\n", rlErr.RetryAfterDuration())
	case errors.As(err, &reqErr) && reqErr.Payload != nil:
		fmt.Printf("the API rejected the call: %s (code %d)\n", reqErr.Payload.Text(), reqErr.Payload.ErrorCode())
	case errors.As(err, &reqErr) && reqErr.Connection:
		fmt.Printf("could not reach the API: %v\n", reqErr)
	case errors.As(err, &cfgErr):
		fmt.Printf("configuration problem: %v\n", cfgErr)
	default:
		fmt.Printf("request failed: %v\n", err)
	}

	var apiErr jsonrpc.Error
	if errors.As(err, &apiErr) {
		// Fields is a flat export for structured logs.
		log.Info().Fields(apiErr.Fields()).Msg("Error details")
	}
}
