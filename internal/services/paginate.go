package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/desertthunder/stash/internal/shared"
)

// Page is one offset/limit window of a collection endpoint.
type Page[T any] struct {
	Items    []T     `json:"items"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Total    int     `json:"total"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Href     string  `json:"href"`
}

// validate checks the page against offset + len(items) <= total.
func (p *Page[T]) validate() error {
	if p.Total < 0 || p.Offset < 0 || p.Limit < 0 {
		return fmt.Errorf("%w: negative limit, offset or total", shared.ErrMalformedPageResponse)
	}
	if p.Offset+len(p.Items) > p.Total {
		return fmt.Errorf("%w: offset %d with %d items exceeds total %d",
			shared.ErrMalformedPageResponse, p.Offset, len(p.Items), p.Total)
	}
	return nil
}

// FetchPage requests one page of endpoint.
func FetchPage[T any](ctx context.Context, c *Client, endpoint string, offset, limit int) (*Page[T], error) {
	query := url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}

	body, err := c.GetJSON(ctx, shared.StageFetch, endpoint, query)
	if err != nil {
		return nil, err
	}

	var page Page[T]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", shared.StageFetch, shared.ErrMalformedPageResponse, err)
	}
	if err := page.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", shared.StageFetch, err)
	}
	return &page, nil
}

// FetchAll walks endpoint from offset 0 until total items are collected, keeping server order.
//
// The first response fixes total and the step size: a server that clamps limit below pageSize
// is followed at its own limit. At least one request is made, even for an empty collection.
// Any failed page aborts the walk and nothing is returned.
func FetchAll[T any](ctx context.Context, c *Client, endpoint string, pageSize int) ([]T, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%s: %w: page size must be positive, got %d", shared.StageFetch, shared.ErrInvalidArgument, pageSize)
	}

	first, err := FetchPage[T](ctx, c, endpoint, 0, pageSize)
	if err != nil {
		return nil, err
	}

	total, limit := first.Total, first.Limit
	if total > 0 && limit <= 0 {
		return nil, fmt.Errorf("%s: %w: limit %d cannot advance through %d items",
			shared.StageFetch, shared.ErrMalformedPageResponse, limit, total)
	}
	if limit != pageSize {
		c.logger.Debug("server adjusted page size", "endpoint", endpoint, "requested", pageSize, "limit", limit)
	}

	items := make([]T, 0, total)
	items = append(items, first.Items...)
	c.logger.Debug("fetched page", "endpoint", endpoint, "offset", 0, "limit", limit, "items", len(first.Items), "total", total)

	for offset := limit; offset < total; offset += limit {
		page, err := FetchPage[T](ctx, c, endpoint, offset, limit)
		if err != nil {
			return nil, fmt.Errorf("page at offset %d: %w", offset, err)
		}
		items = append(items, page.Items...)
		c.logger.Debug("fetched page", "endpoint", endpoint, "offset", offset, "limit", limit, "items", len(page.Items), "total", total)
	}

	return items, nil
}
