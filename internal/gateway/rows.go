package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Filter expresses the equality/membership predicates supported by the row
// API. Keys are column names.
type Filter struct {
	Eq map[string]string
	In map[string][]string
}

// Query describes a row select against a named table.
type Query struct {
	Table      string
	Columns    string // defaults to "*"
	Filter     Filter
	OrderBy    string
	Descending bool
	Limit      int
}

func (f Filter) encode(values url.Values) {
	for column, value := range f.Eq {
		values.Set(column, "eq."+value)
	}
	for column, members := range f.In {
		values.Set(column, "in.("+strings.Join(members, ",")+")")
	}
}

// SelectRows fetches rows matching q and decodes them into dest, which must
// be a pointer to a slice. An empty result decodes to an empty slice, never
// an error: "no rows" is a domain decision left to the caller.
func (c *Client) SelectRows(ctx context.Context, q Query, dest any) error {
	if q.Table == "" {
		return fmt.Errorf("select rows: table name is required")
	}

	values := url.Values{}
	columns := q.Columns
	if columns == "" {
		columns = "*"
	}
	values.Set("select", columns)
	q.Filter.encode(values)

	if q.OrderBy != "" {
		direction := "asc"
		if q.Descending {
			direction = "desc"
		}
		values.Set("order", q.OrderBy+"."+direction)
	}

	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}

	path := "/rest/v1/" + q.Table + "?" + values.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, nil, dest); err != nil {
		return fmt.Errorf("select %s: %w", q.Table, err)
	}

	return nil
}

// InsertRows inserts payload (a struct or slice) into table. When dest is
// non-nil the inserted representation is requested back and decoded into it;
// the gateway may legally answer with zero rows even on success, which
// callers must treat as "row not yet visible".
func (c *Client) InsertRows(ctx context.Context, table string, payload, dest any) error {
	if table == "" {
		return fmt.Errorf("insert rows: table name is required")
	}

	headers := map[string]string{}
	if dest != nil {
		headers["Prefer"] = "return=representation"
	}

	if err := c.do(ctx, http.MethodPost, "/rest/v1/"+table, headers, payload, dest); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}

	return nil
}

// UpdateRows applies a partial update to all rows matching filter and decodes
// the updated representation into dest when non-nil.
func (c *Client) UpdateRows(ctx context.Context, table string, filter Filter, payload, dest any) error {
	if table == "" {
		return fmt.Errorf("update rows: table name is required")
	}

	values := url.Values{}
	filter.encode(values)

	headers := map[string]string{}
	if dest != nil {
		headers["Prefer"] = "return=representation"
	}

	path := "/rest/v1/" + table + "?" + values.Encode()
	if err := c.do(ctx, http.MethodPatch, path, headers, payload, dest); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}

	return nil
}

// DeleteRows removes all rows matching filter.
func (c *Client) DeleteRows(ctx context.Context, table string, filter Filter) error {
	if table == "" {
		return fmt.Errorf("delete rows: table name is required")
	}

	values := url.Values{}
	filter.encode(values)

	path := "/rest/v1/" + table + "?" + values.Encode()
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}

	return nil
}
