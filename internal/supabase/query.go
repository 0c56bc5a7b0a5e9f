package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Query builds a PostgREST request against one table.
//
//	err := client.From("profiles").Select("id", "username").Eq("username", name).Limit(1).Execute(ctx, &rows)
type Query struct {
	client *Client
	table  string
	params url.Values
}

// From starts a query on table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, params: url.Values{}}
}

// Select restricts the returned columns. No columns selects all.
func (q *Query) Select(columns ...string) *Query {
	if len(columns) == 0 {
		q.params.Set("select", "*")
		return q
	}
	q.params.Set("select", strings.Join(columns, ","))
	return q
}

// Eq adds a column = value filter.
func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// Is adds a column IS value filter (null, true, false).
func (q *Query) Is(column, value string) *Query {
	q.params.Add(column, "is."+value)
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	if prev := q.params.Get("order"); prev != "" {
		q.params.Set("order", prev+","+column+"."+dir)
		return q
	}
	q.params.Set("order", column+"."+dir)
	return q
}

// Limit caps the number of rows.
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

func (q *Query) path() string {
	p := "/rest/v1/" + url.PathEscape(q.table)
	if enc := q.params.Encode(); enc != "" {
		p += "?" + enc
	}
	return p
}

// Execute runs a read and decodes the row array into dest.
func (q *Query) Execute(ctx context.Context, dest any) error {
	if !q.params.Has("select") {
		q.params.Set("select", "*")
	}
	return q.client.do(ctx, request{method: http.MethodGet, path: q.path()}, dest)
}

// Single runs a read expecting exactly one row and decodes it into dest.
// Zero rows returns an error matching ErrNotFound.
func (q *Query) Single(ctx context.Context, dest any) error {
	if !q.params.Has("select") {
		q.params.Set("select", "*")
	}
	return q.client.do(ctx, request{
		method:  http.MethodGet,
		path:    q.path(),
		headers: map[string]string{"Accept": "application/vnd.pgrst.object+json"},
	}, dest)
}

// Insert writes row (a struct, map or slice of them). When dest is non-nil the
// inserted rows are returned and decoded into it.
func (q *Query) Insert(ctx context.Context, row any, dest any) error {
	prefer := "return=minimal"
	if dest != nil {
		prefer = "return=representation"
	}
	return q.client.do(ctx, request{
		method:  http.MethodPost,
		path:    q.path(),
		body:    row,
		headers: map[string]string{"Prefer": prefer},
	}, dest)
}

// Update patches every row matching the filters. At least one filter is required.
func (q *Query) Update(ctx context.Context, patch any) error {
	filters := 0
	for k := range q.params {
		if k != "select" && k != "order" && k != "limit" {
			filters++
		}
	}
	if filters == 0 {
		return fmt.Errorf("supabase: update on %s without filter", q.table)
	}
	q.params.Del("select")
	return q.client.do(ctx, request{
		method:  http.MethodPatch,
		path:    q.path(),
		body:    patch,
		headers: map[string]string{"Prefer": "return=minimal"},
	}, nil)
}

// Health checks that the REST endpoint answers with the configured key.
func (c *Client) Health(ctx context.Context) error {
	if !c.configured {
		return ErrNotConfigured
	}
	return c.do(ctx, request{method: http.MethodGet, path: "/rest/v1/"}, nil)
}
