package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mnehpets/gripp/jsonrpc"
	"github.com/mnehpets/gripp/resource"
)

func newCallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> [params]",
		Short: "Invoke one method and print its reply",
		Long:  "Invoke one method with positional params given as a JSON array and print the reply object.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.Call(commandContext(cmd), args[0], params)
			if err != nil {
				return a.fail(err)
			}
			return a.print(resp.Raw())
		},
	}
}

func newPaginateCmd(a *app) *cobra.Command {
	var pageSize int
	cmd := &cobra.Command{
		Use:   "paginate <method> [params]",
		Short: "Fetch every page of a list method and print all rows",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			resp, err := c.Paginate(commandContext(cmd), args[0], params, pageSize)
			if err != nil {
				return a.fail(err)
			}
			a.log.Info().Int("rows", resp.Count()).Int64("requests", c.RequestCount()).Msg("Pagination complete")
			return a.print(resp.Rows())
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "rows per page (default from configuration)")
	return cmd
}

// batchCall is one entry of a batch input file.
type batchCall struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

func newBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file|->",
		Short: "Send several calls in one request",
		Long: `Send several calls in one request. The input is a JSON array of
{"method": "...", "params": [...]} objects; "-" reads it from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var calls []batchCall
			if err := json.Unmarshal(data, &calls); err != nil {
				return fmt.Errorf("batch input must be a JSON array of calls: %w", err)
			}
			for i, call := range calls {
				if call.Method == "" {
					return fmt.Errorf("batch entry %d has no method", i)
				}
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			c.StartBatch()
			for _, call := range calls {
				if _, err := c.Call(ctx, call.Method, call.Params); err != nil {
					return a.fail(err)
				}
			}
			responses, err := c.ExecuteBatch(ctx)
			if err != nil {
				return a.fail(err)
			}
			out := make([]json.RawMessage, 0, len(responses))
			for _, resp := range responses {
				out = append(out, resp.Raw())
			}
			return a.print(out)
		},
	}
}

func lookupEntity(name string) (resource.Entity, error) {
	e, ok := resource.Lookup(name)
	if !ok {
		return resource.Entity{}, fmt.Errorf("unknown entity %q", name)
	}
	return e, nil
}

// parseFilter reads "field=value" or "field:operator=value". Field names
// without a dot are qualified with the entity.
func parseFilter(entity resource.Entity, s string) (resource.Filter, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return resource.Filter{}, fmt.Errorf("filter %q: expected field=value", s)
	}
	field, op, hasOp := strings.Cut(key, ":")
	f := resource.Filter{Field: field, Operator: resource.Equals}
	if hasOp {
		f.Operator = resource.Operator(strings.ToLower(op))
		if !f.Operator.Valid() {
			return resource.Filter{}, fmt.Errorf("filter %q: unknown operator %q", s, op)
		}
	}
	if !strings.Contains(f.Field, ".") {
		f.Field = entity.Name + "." + f.Field
	}
	// Values that parse as JSON keep their type; anything else is a string.
	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		v = value
	}
	f.Value = v
	return f, nil
}

func newGetCmd(a *app) *cobra.Command {
	var (
		filters []string
		orderBy []string
		all     bool
	)
	cmd := &cobra.Command{
		Use:   "get <entity>",
		Short: "List rows of an entity",
		Example: `  grippctl get company --filter active=true --order companyname
  grippctl get project --filter "name:contains=website" --all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := lookupEntity(args[0])
			if err != nil {
				return err
			}
			var fs []resource.Filter
			for _, s := range filters {
				f, err := parseFilter(entity, s)
				if err != nil {
					return err
				}
				fs = append(fs, f)
			}
			var opts *resource.Options
			for _, s := range orderBy {
				if opts == nil {
					opts = &resource.Options{}
				}
				field, dir, _ := strings.Cut(s, ":")
				if !strings.Contains(field, ".") {
					field = entity.Name + "." + field
				}
				o := resource.Ordering{Field: field, Direction: resource.Asc}
				if strings.EqualFold(dir, "desc") {
					o.Direction = resource.Desc
				}
				opts.Orderings = append(opts.Orderings, o)
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			r := resource.New(c, entity)
			var resp *jsonrpc.Response
			if all {
				resp, err = r.Where(commandContext(cmd), fs, opts)
			} else {
				resp, err = r.Get(commandContext(cmd), fs, opts)
			}
			if err != nil {
				return a.fail(err)
			}
			return a.print(resp.Rows())
		},
	}
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "filter as field=value or field:operator=value")
	cmd.Flags().StringArrayVar(&orderBy, "order", nil, "order by field or field:desc")
	cmd.Flags().BoolVar(&all, "all", false, "follow pagination and fetch every row")
	return cmd
}

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <entity> <id>",
		Short: "Print one row by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, err := lookupEntity(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[1], err)
			}
			c, err := a.client()
			if err != nil {
				return err
			}
			row, err := resource.New(c, entity).Find(commandContext(cmd), id)
			if err != nil {
				return a.fail(err)
			}
			return a.print(row)
		},
	}
}

func newEntitiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List known entities and their supported operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENTITY\tOPERATIONS")
			for _, e := range resource.Entities {
				fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Caps)
			}
			return w.Flush()
		},
	}
}
