package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mnehpets/gripp/config"
	"github.com/mnehpets/gripp/jsonrpc"
)

type globalFlags struct {
	configPath string
	envFile    string
	token      string
	url        string
	logLevel   string
	verbose    bool
	compact    bool
}

// app carries state shared by subcommands.
type app struct {
	flags globalFlags
	log   zerolog.Logger
	out   io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "grippctl",
		Short:         "Command line client for the Gripp API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.out = cmd.OutOrStdout()
			level := zerolog.InfoLevel
			if lvl, err := zerolog.ParseLevel(a.flags.logLevel); err == nil && a.flags.logLevel != "" {
				level = lvl
			}
			if a.flags.verbose {
				level = zerolog.DebugLevel
			}
			a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(level).
				With().Timestamp().Logger()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&a.flags.envFile, "env-file", "", "env file to read instead of .env")
	pf.StringVar(&a.flags.token, "token", "", "API token (overrides GRIPP_API_TOKEN)")
	pf.StringVar(&a.flags.url, "url", "", "API base URL (overrides GRIPP_API_URL)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log every request")
	pf.BoolVar(&a.flags.compact, "compact", false, "print compact JSON")

	root.AddCommand(
		newCallCmd(a),
		newPaginateCmd(a),
		newBatchCmd(a),
		newGetCmd(a),
		newFindCmd(a),
		newEntitiesCmd(a),
	)
	return root
}

// client builds a client from configuration and flags.
func (a *app) client() (*jsonrpc.Client, error) {
	var envFiles []string
	if a.flags.envFile != "" {
		envFiles = append(envFiles, a.flags.envFile)
	}
	cfg, err := config.Load(a.flags.configPath, envFiles...)
	if err != nil {
		return nil, err
	}
	if a.flags.token != "" {
		cfg.Token = a.flags.token
	}
	if a.flags.url != "" {
		cfg.BaseURL = a.flags.url
	}
	if a.flags.logLevel == "" && !a.flags.verbose {
		a.log = a.log.Level(cfg.Level())
	}
	return cfg.NewClient(jsonrpc.WithLogger(a.log))
}

// print writes v as JSON.
func (a *app) print(v any) error {
	var (
		b   []byte
		err error
	)
	if a.flags.compact {
		b, err = json.Marshal(v)
	} else {
		b, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

// fail logs a classified error before returning it to cobra.
func (a *app) fail(err error) error {
	var apiErr jsonrpc.Error
	if errors.As(err, &apiErr) {
		a.log.Error().EmbedObject(apiErr).Msg("Request failed")
	}
	return err
}

// parseParams decodes an optional JSON array of positional params.
func parseParams(args []string) ([]any, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, nil
	}
	var params []any
	if err := json.Unmarshal([]byte(args[0]), &params); err != nil {
		return nil, fmt.Errorf("params must be a JSON array: %w", err)
	}
	return params, nil
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
