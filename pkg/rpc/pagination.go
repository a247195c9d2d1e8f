package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Query narrows a list request. Page defaults to 1; Limit is omitted when zero.
type Query struct {
	Filters url.Values
	Page    int
	Limit   int
}

// Pager walks the pages of one list resource. It is driven by the caller:
// every Next issues exactly one request, and nil is returned once next_page was null.
type Pager[T any] struct {
	client   Client
	resource Resource
	query    Query
	page     int
	done     bool
}

// NewPager prepares a pager; no request is made until Next is called.
func NewPager[T any](client Client, resource Resource, q Query) *Pager[T] {
	page := q.Page
	if page < 1 {
		page = 1
	}
	return &Pager[T]{client: client, resource: resource, query: q, page: page}
}

// Next fetches the next page, or returns nil, nil when the sequence is exhausted.
func (p *Pager[T]) Next(ctx context.Context) (*Page[T], error) {
	if p.done {
		return nil, nil
	}

	values := url.Values{}
	for k, vs := range p.query.Filters {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	values.Set(pageParam, strconv.Itoa(p.page))
	if p.query.Limit > 0 {
		values.Set(limitParam, strconv.Itoa(p.query.Limit))
	}

	body, err := p.client.Get(ctx, p.resource.Path(), values)
	if err != nil {
		return nil, err
	}

	page, err := decodePage[T](p.resource, body)
	if err != nil {
		p.done = true
		return nil, err
	}
	if page.Number == 0 {
		page.Number = p.page
	}

	next := page.Pagination.NextPage
	switch {
	case next == nil:
		p.done = true
	case *next <= page.Number:
		p.done = true
		return nil, fmt.Errorf("%s: next_page %d does not advance past page %d", p.resource, *next, page.Number)
	default:
		p.page = *next
	}
	return page, nil
}

// FetchAllPages drains a pager into one slice, keeping page order and in-page order.
func FetchAllPages[T any](ctx context.Context, client Client, resource Resource, q Query) ([]T, error) {
	pager := NewPager[T](client, resource, q)
	all := make([]T, 0)
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return all, nil
		}
		all = append(all, page.Data...)
	}
}

// FirstPage fetches only the first page. Used for resources that the portal serves unpaginated.
func FirstPage[T any](ctx context.Context, client Client, resource Resource, q Query) (*Page[T], error) {
	page, err := NewPager[T](client, resource, q).Next(ctx)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return &Page[T]{Number: 1, Data: []T{}}, nil
	}
	return page, nil
}

func decodePage[T any](resource Resource, body []byte) (*Page[T], error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode %s page: %w", resource, err)
	}

	rawData, ok := envelope[resource.Key()]
	if !ok {
		return nil, fmt.Errorf("decode %s page: missing %q in response", resource, resource.Key())
	}

	data := make([]T, 0)
	if string(rawData) != "null" {
		if err := json.Unmarshal(rawData, &data); err != nil {
			return nil, fmt.Errorf("decode %s page data: %w", resource, err)
		}
	}

	page := &Page[T]{Data: data, Body: body}
	if rawPagination, ok := envelope["pagination"]; ok && string(rawPagination) != "null" {
		if err := json.Unmarshal(rawPagination, &page.Pagination); err != nil {
			return nil, fmt.Errorf("decode %s pagination: %w", resource, err)
		}
	}
	page.Number = page.Pagination.CurrentPage
	return page, nil
}
