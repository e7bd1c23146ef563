// Package resource provides entity-level operations on top of a jsonrpc
// client: list, lookup by id, create, update and delete.
//
//	companies := resource.New(client, resource.Company)
//	resp, err := companies.Get(ctx, []resource.Filter{
//		{Field: "company.active", Operator: resource.Equals, Value: true},
//	}, nil)
//
// Every operation goes through the client's Call or Paginate, so create,
// update, delete and Get calls made while the client is batching are queued
// and return pending responses. Find and First need the reply rows and fail
// with jsonrpc.ErrPending inside a batch.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mnehpets/gripp/jsonrpc"
)

var (
	// ErrNotFound is returned by Find and First when no row matches.
	ErrNotFound = errors.New("resource: not found")

	// ErrUnsupported is returned for operations the entity does not support.
	ErrUnsupported = errors.New("resource: operation not supported")
)

// Caller is the subset of *jsonrpc.Client used by a Resource.
type Caller interface {
	Call(ctx context.Context, method string, params []any) (*jsonrpc.Response, error)
	Paginate(ctx context.Context, method string, params []any, pageSize int) (*jsonrpc.Response, error)
}

// Resource performs operations on one entity.
type Resource struct {
	client Caller
	entity Entity
}

func New(client Caller, entity Entity) *Resource {
	return &Resource{client: client, entity: entity}
}

// Entity returns the entity the resource operates on.
func (r *Resource) Entity() Entity {
	return r.entity
}

func (r *Resource) require(op Capability, name string) error {
	if !r.entity.Caps.Has(op) {
		return fmt.Errorf("%w: %s.%s", ErrUnsupported, r.entity.Name, name)
	}
	return nil
}

// Call invokes an arbitrary action of the entity, e.g. "getCompanyByCOC".
func (r *Resource) Call(ctx context.Context, action string, params ...any) (*jsonrpc.Response, error) {
	if params == nil {
		params = []any{}
	}
	return r.client.Call(ctx, r.entity.Method(action), params)
}

// Get lists rows matching filters. A nil opts sends empty options.
func (r *Resource) Get(ctx context.Context, filters []Filter, opts *Options) (*jsonrpc.Response, error) {
	if err := r.require(CanRead, "get"); err != nil {
		return nil, err
	}
	return r.Call(ctx, "get", filterParam(filters), optionsParam(opts))
}

// Find returns the row with the given id.
func (r *Resource) Find(ctx context.Context, id int64) (json.RawMessage, error) {
	if err := r.require(CanRead, "getone"); err != nil {
		return nil, err
	}
	filters := []Filter{{Field: r.entity.Name + ".id", Operator: Equals, Value: id}}
	resp, err := r.Call(ctx, "getone", filters)
	if err != nil {
		return nil, err
	}
	return firstRow(resp)
}

// First returns the first row matching filters.
func (r *Resource) First(ctx context.Context, filters []Filter) (json.RawMessage, error) {
	if err := r.require(CanRead, "get"); err != nil {
		return nil, err
	}
	opts := &Options{Paging: &Paging{FirstResult: 0, MaxResults: 1}}
	resp, err := r.Call(ctx, "get", filterParam(filters), optionsParam(opts))
	if err != nil {
		return nil, err
	}
	return firstRow(resp)
}

// All fetches every row of the entity, following pagination. It is refused
// with jsonrpc.ErrBatchActive while the client is batching.
func (r *Resource) All(ctx context.Context) (*jsonrpc.Response, error) {
	return r.Where(ctx, nil, nil)
}

// Where fetches every row matching filters, following pagination. Orderings
// in opts are kept; its paging is replaced page by page.
func (r *Resource) Where(ctx context.Context, filters []Filter, opts *Options) (*jsonrpc.Response, error) {
	if err := r.require(CanRead, "get"); err != nil {
		return nil, err
	}
	pageSize := 0
	if opts != nil && opts.Paging != nil {
		pageSize = opts.Paging.MaxResults
		o := *opts
		o.Paging = nil
		opts = &o
	}
	return r.client.Paginate(ctx, r.entity.Method("get"), []any{filterParam(filters), optionsParam(opts)}, pageSize)
}

// Create creates a row from fields.
func (r *Resource) Create(ctx context.Context, fields map[string]any) (*jsonrpc.Response, error) {
	if err := r.require(CanCreate, "create"); err != nil {
		return nil, err
	}
	return r.Call(ctx, "create", fieldsParam(fields))
}

// Update changes fields of the row with the given id.
func (r *Resource) Update(ctx context.Context, id int64, fields map[string]any) (*jsonrpc.Response, error) {
	if err := r.require(CanUpdate, "update"); err != nil {
		return nil, err
	}
	return r.Call(ctx, "update", id, fieldsParam(fields))
}

// Delete removes the row with the given id.
func (r *Resource) Delete(ctx context.Context, id int64) (*jsonrpc.Response, error) {
	if err := r.require(CanDelete, "delete"); err != nil {
		return nil, err
	}
	return r.Call(ctx, "delete", id)
}

func firstRow(resp *jsonrpc.Response) (json.RawMessage, error) {
	if resp.Pending() {
		return nil, jsonrpc.ErrPending
	}
	rows := resp.Rows()
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// filterParam keeps an empty filter list encoded as [] rather than null.
func filterParam(filters []Filter) []Filter {
	if filters == nil {
		return []Filter{}
	}
	return filters
}

// optionsParam sends absent options as an empty array, the way the API
// expects them.
func optionsParam(opts *Options) any {
	if opts == nil {
		return []any{}
	}
	return opts
}

func fieldsParam(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return fields
}
