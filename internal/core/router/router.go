// Package router parses and serves the HTTP API: datasets, derived condo views and
// viewer sessions.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/bkk-condo-map/internal/density"
	"github.com/mohammed-shakir/bkk-condo-map/internal/table"
	"github.com/mohammed-shakir/bkk-condo-map/internal/view"
)

// filterPrefix marks column filter parameters, e.g. f.AMP_NAME_T=บางรัก.
const filterPrefix = "f."

const maxPageSize = 500

// ViewRequest is a validated /condos query.
type ViewRequest struct {
	Query view.Query
	Page  view.PageSpec
}

// ParseViewRequest reads region, sort, dir, page, size and f.<field> parameters. The
// sort field may be a column label. warn is set for ignored input.
func ParseViewRequest(r *http.Request, defaultSize int) (ViewRequest, string, error) {
	var warn string
	q := r.URL.Query()

	out := ViewRequest{
		Query: view.Query{
			Region:  strings.TrimSpace(q.Get("region")),
			Filters: view.ColumnFilter{},
		},
		Page: view.PageSpec{Size: defaultSize},
	}

	if s := strings.TrimSpace(q.Get("sort")); s != "" {
		if f, ok := table.FieldForLabel(s); ok {
			s = f
		}
		out.Query.Sort.Field = s
	}
	if d := strings.TrimSpace(q.Get("dir")); d != "" {
		dir, err := view.ParseDirection(d)
		if err != nil {
			return ViewRequest{}, warn, fmt.Errorf("invalid dir: %w", err)
		}
		if out.Query.Sort.Field == "" {
			warn = "dir given without sort; ignoring"
		} else {
			out.Query.Sort.Direction = dir
		}
	}

	if p := strings.TrimSpace(q.Get("page")); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return ViewRequest{}, warn, errors.New("page must be a non-negative integer")
		}
		out.Page.Index = n
	}
	if s := strings.TrimSpace(q.Get("size")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxPageSize {
			return ViewRequest{}, warn, fmt.Errorf("size must be in [1,%d]", maxPageSize)
		}
		out.Page.Size = n
	}

	for k, vals := range q {
		field, ok := strings.CutPrefix(k, filterPrefix)
		if !ok {
			continue
		}
		if field == "" {
			return ViewRequest{}, warn, errors.New("filter parameter needs a field name")
		}
		for _, v := range vals {
			if v != "" {
				out.Query.Filters[field] = append(out.Query.Filters[field], v)
			}
		}
	}
	return out, warn, nil
}

// ParseRes reads the H3 resolution parameter, falling back to def.
func ParseRes(r *http.Request, def int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get("res"))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid res: %w", err)
	}
	if err := density.ValidateRes(n); err != nil {
		return 0, fmt.Errorf("invalid res: %w", err)
	}
	return n, nil
}
