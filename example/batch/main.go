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

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration")
	}
	client, err := cfg.NewClient(jsonrpc.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("Creating client")
	}

	ctx := context.Background()
	companies := resource.New(client, resource.Company)

	// Calls made between StartBatch and ExecuteBatch are sent in one request.
	client.StartBatch()
	for _, name := range []string{"Acme BV", "Globex BV", "Initech BV"} {
		pending, err := companies.Create(ctx, map[string]any{
			"companyname":  name,
			"relationtype": "COMPANY",
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Queueing create")
		}
		fmt.Printf("queued call %d\n", pending.ID())
	}

	responses, err := client.ExecuteBatch(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Executing batch")
	}
	for _, resp := range responses {
		if resp.HasError() {
			fmt.Printf("call %d failed: %s\n", resp.ID(), resp.Error().Text())
			continue
		}
		id, _ := resp.RecordID()
		fmt.Printf("call %d created company %d\n", resp.ID(), id)
	}
	fmt.Printf("HTTP requests made: %d\n", client.RequestCount())
}
