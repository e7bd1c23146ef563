package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mnehpets/gripp/config"
	"github.com/mnehpets/gripp/jsonrpc"
	"github.com/mnehpets/gripp/resource"
)

// Polls open tasks every minute and exposes client metrics on :9090/metrics.
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration")
	}

	reg := prometheus.NewRegistry()
	client, err := cfg.NewClient(
		jsonrpc.WithLogger(log),
		jsonrpc.WithMetrics(jsonrpc.NewMetrics(reg)),
		jsonrpc.WithRateLimiter(rate.NewLimiter(rate.Every(time.Second), 5)),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating client")
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		log.Info().Str("addr", ":9090").Msg("Serving metrics")
		if err := http.ListenAndServe(":9090", mux); err != nil {
			log.Fatal().Err(err).Msg("Metrics server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tasks := resource.New(client, resource.Task)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		resp, err := tasks.Where(ctx, []resource.Filter{
			{Field: "task.completed", Operator: resource.Equals, Value: false},
		}, nil)
		if err != nil {
			log.Error().Err(err).Msg("Polling tasks")
		} else {
			log.Info().Int("open_tasks", resp.Count()).Int64("requests", client.RequestCount()).Msg("Polled tasks")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
