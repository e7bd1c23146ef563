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

// Company holds the fields this example reads from company rows.
type Company struct {
	ID          int64  `json:"id"`
	CompanyName string `json:"companyname"`
	Email       string `json:"email"`
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Reads GRIPP_API_TOKEN and GRIPP_API_URL from the environment or .env.
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Loading configuration")
	}
	client, err := cfg.NewClient(jsonrpc.WithLogger(log.Level(cfg.Level())))
	if err != nil {
		log.Fatal().Err(err).Msg("Creating client")
	}

	ctx := context.Background()

	// A raw call: filters and options are positional params.
	resp, err := client.Call(ctx, "company.get", []any{
		[]resource.Filter{{Field: "company.active", Operator: resource.Equals, Value: true}},
		resource.Options{
			Orderings: []resource.Ordering{{Field: "company.companyname", Direction: resource.Asc}},
			Paging:    &resource.Paging{FirstResult: 0, MaxResults: 10},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Listing companies")
	}

	var companies []Company
	if err := resp.DecodeRows(&companies); err != nil {
		log.Fatal().Err(err).Msg("Decoding rows")
	}
	fmt.Printf("%d of %d active companies (more: %v)\n", len(companies), resp.Count(), resp.HasMoreItems())
	for _, c := range companies {
		fmt.Printf("  %6d  %s <%s>\n", c.ID, c.CompanyName, c.Email)
	}

	// The same lookup through the resource layer.
	if len(companies) > 0 {
		row, err := resource.New(client, resource.Company).Find(ctx, companies[0].ID)
		if err != nil {
			log.Fatal().Err(err).Msg("Finding company")
		}
		fmt.Printf("First company: %s\n", row)
	}
}
