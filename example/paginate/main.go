package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/mnehpets/gripp/config"
	"github.com/mnehpets/gripp/jsonrpc"
	"github.com/mnehpets/gripp/resource"
)

type Project struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number"`
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration")
	}
	client, err := cfg.NewClient(jsonrpc.WithLogger(log.Level(zerolog.DebugLevel)), jsonrpc.WithPageSize(100))
	if err != nil {
		log.Fatal().Err(err).Msg("Creating client")
	}
	ctx := context.Background()

	// Every project, fetched 100 rows at a time.
	resp, err := resource.New(client, resource.Project).All(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Fetching projects")
	}
	var projects []Project
	if err := resp.DecodeRows(&projects); err != nil {
		log.Fatal().Err(err).Msg("Decoding projects")
	}
	fmt.Printf("%d projects in %d requests\n", len(projects), client.RequestCount())

	// Paginate keeps other options such as orderings.
	resp, err = client.Paginate(ctx, "hour.get", []any{
		[]resource.Filter{{Field: "hour.date", Operator: resource.GreaterThanOrEqual, Value: "2024-01-01"}},
		map[string]any{"orderings": []resource.Ordering{{Field: "hour.date", Direction: resource.Desc}}},
	}, 250)
	if err != nil {
		log.Fatal().Err(err).Msg("Fetching hours")
	}
	fmt.Printf("%d hour entries since 2024\n", resp.Count())
}
