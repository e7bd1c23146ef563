package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
)

// Paginate fetches every page of a list call and returns one Response holding
// all rows. The paging option {firstresult, maxresults} is merged into the
// options object at params index 1; missing filter and options params are
// filled with empty values. A pageSize of zero or less uses the client default.
//
// The loop stops when a page reports no more items or returns no rows. An
// error on any page aborts the loop and no rows are returned.
func (c *Client) Paginate(ctx context.Context, method string, params []any, pageSize int) (*Response, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	if c.state == stateBatching {
		return nil, ErrBatchActive
	}
	if pageSize <= 0 {
		pageSize = c.pageSize
	}

	base, options, err := pagingParams(params)
	if err != nil {
		return nil, &RequestError{Message: err.Error(), Method: method, Cause: err}
	}

	rows := []json.RawMessage{}
	for offset := 0; ; offset += pageSize {
		opts := maps.Clone(options)
		opts["paging"] = map[string]int{
			"firstresult": offset,
			"maxresults":  pageSize,
		}
		pageParams := append([]any(nil), base...)
		pageParams[1] = opts

		resp, err := c.Call(ctx, method, pageParams)
		if err != nil {
			return nil, err
		}
		page := resp.Rows()
		rows = append(rows, page...)
		c.log.Debug().
			Str("method", method).
			Int("offset", offset).
			Int("page_rows", len(page)).
			Int("total_rows", len(rows)).
			Msg("Fetched page")

		if !resp.HasMoreItems() || len(page) == 0 {
			break
		}
	}

	// The merged response carries the id of the last page's envelope.
	return mergedResponse(c.nextID, rows)
}

// pagingParams copies params, pads it to at least two elements and returns
// the options at index 1 as a fresh map.
func pagingParams(params []any) ([]any, map[string]any, error) {
	base := append([]any(nil), params...)
	for len(base) < 2 {
		base = append(base, []any{})
	}
	options, err := toOptionsMap(base[1])
	if err != nil {
		return nil, nil, err
	}
	return base, options, nil
}

// toOptionsMap converts the caller's options value into a map without
// mutating it. An empty JSON array is accepted as empty options.
func toOptionsMap(v any) (map[string]any, error) {
	switch o := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return maps.Clone(o), nil
	case []any:
		if len(o) == 0 {
			return map[string]any{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonrpc: encoding options: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		var list []any
		if json.Unmarshal(b, &list) == nil && len(list) == 0 {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("jsonrpc: options at params index 1 must be an object, got %s", truncate(b, 64))
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func mergedResponse(id int64, rows []json.RawMessage) (*Response, error) {
	raw, err := json.Marshal(map[string]any{
		"id": id,
		"result": map[string]any{
			"rows":                     rows,
			"count":                    len(rows),
			"more_items_in_collection": false,
		},
	})
	if err != nil {
		return nil, err
	}
	return NewResponse(raw), nil
}
