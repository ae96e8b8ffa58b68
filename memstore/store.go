// Package memstore is an in-memory implementation of the remote row
// provider. It executes FetchXML documents against fixture data, honoring
// filters, sorts, aggregation, top and paging, so plans run end to end
// without a live endpoint.
package memstore

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fetchql/fetchql/fetchxml"
	"github.com/fetchql/fetchql/plan"
	"github.com/fetchql/fetchql/types"
)

// Store holds entity collections keyed by lowercased entity name
type Store struct {
	mu       sync.RWMutex
	entities map[string][]*types.Row
}

// New creates an empty store
func New() *Store {
	return &Store{entities: map[string][]*types.Row{}}
}

// AddRow appends a row to the entity collection
func (s *Store) AddRow(entity string, row *types.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(entity)
	s.entities[key] = append(s.entities[key], row)
}

// AddRecord appends a row built from native Go scalars
func (s *Store) AddRecord(entity string, record map[string]interface{}) {
	row := types.NewRow()
	for name, v := range record {
		row.Set(name, types.FromNative(v))
	}

	s.AddRow(entity, row)
}

// LoadYAML loads fixture data. The document maps entity names to lists of
// attribute maps:
//
//	accounts:
//	  - accountid: 9b2620b1-ca0b-4561-9fdd-95a9f7a79f4a
//	    name: northwind
func (s *Store) LoadYAML(data []byte) error {
	var doc map[string][]map[string]interface{}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing fixture: %w", err)
	}

	for entity, records := range doc {
		for _, record := range records {
			s.AddRecord(entity, record)
		}
	}

	return nil
}

// Rows returns a copy of the entity's row slice
func (s *Store) Rows(entity string) []*types.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.entities[strings.ToLower(entity)]
	out := make([]*types.Row, len(rows))
	copy(out, rows)

	return out
}

// Retrieve executes one FetchXML document and returns the requested page
func (s *Store) Retrieve(ctx context.Context, fetchXML string) (*plan.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var fetch fetchxml.Fetch

	if err := xml.Unmarshal([]byte(fetchXML), &fetch); err != nil {
		return nil, fmt.Errorf("parsing fetchxml: %w", err)
	}

	rows := s.Rows(fetch.Entity.Name)

	if fetch.Entity.Filter != nil {
		filtered := rows[:0:0]

		for _, row := range rows {
			ok, err := filterMatches(fetch.Entity.Filter, row)
			if err != nil {
				return nil, err
			}

			if ok {
				filtered = append(filtered, row)
			}
		}

		rows = filtered
	}

	if fetch.Aggregate == "true" {
		aggregated, err := aggregateRows(rows, fetch.Entity.Attributes)
		if err != nil {
			return nil, err
		}

		rows = aggregated
	}

	sortRows(rows, fetch.Entity.Orders)

	if fetch.Aggregate != "true" {
		rows = projectRows(rows, &fetch.Entity)
	}

	if fetch.Top != "" {
		top, err := strconv.Atoi(fetch.Top)
		if err != nil {
			return nil, fmt.Errorf("parsing top attribute: %w", err)
		}

		if len(rows) > top {
			rows = rows[:top]
		}
	}

	return paginate(rows, &fetch)
}

// paginate slices the matching rows into the requested page. The paging
// cookie is the offset of the first row of the next page.
func paginate(rows []*types.Row, fetch *fetchxml.Fetch) (*plan.Page, error) {
	page := &plan.Page{}

	if fetch.ReturnTotal == "true" {
		page.TotalCount = int64(len(rows))
	}

	offset := 0

	if fetch.PagingCookie != "" {
		parsed, err := strconv.Atoi(fetch.PagingCookie)
		if err != nil {
			return nil, fmt.Errorf("parsing paging cookie: %w", err)
		}

		offset = parsed
	} else if fetch.Page != "" && fetch.Count != "" {
		pageNum, err := strconv.Atoi(fetch.Page)
		if err != nil {
			return nil, fmt.Errorf("parsing page attribute: %w", err)
		}

		count, err := strconv.Atoi(fetch.Count)
		if err != nil {
			return nil, fmt.Errorf("parsing count attribute: %w", err)
		}

		offset = (pageNum - 1) * count
	}

	if offset > len(rows) {
		offset = len(rows)
	}

	end := len(rows)

	if fetch.Count != "" {
		count, err := strconv.Atoi(fetch.Count)
		if err != nil {
			return nil, fmt.Errorf("parsing count attribute: %w", err)
		}

		if offset+count < end {
			end = offset + count
		}
	}

	page.Rows = rows[offset:end]
	page.MoreRecords = end < len(rows)

	if page.MoreRecords {
		page.PagingCookie = strconv.Itoa(end)
	}

	return page, nil
}
