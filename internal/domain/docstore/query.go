package docstore

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Operator is a comparison used in query filters
type Operator string

const (
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
)

// Direction is a sort direction
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Filter restricts a query to documents whose field compares true against Value
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// Where builds a filter
func Where(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Order sorts query results by a field
type Order struct {
	Field     string
	Direction Direction
}

// Query selects documents directly inside one collection
type Query struct {
	Collection Path
	Filters    []Filter
	OrderBy    []Order
	Limit      int
}

// Validate checks the query is well formed
func (q Query) Validate() error {
	if !q.Collection.IsCollection() {
		return fmt.Errorf("query target %q is not a collection", q.Collection)
	}
	for _, f := range q.Filters {
		switch f.Op {
		case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		default:
			return fmt.Errorf("unsupported operator %q", f.Op)
		}
	}
	return nil
}

// Matches reports whether a document satisfies every filter of the query.
// A document missing a filtered field never matches.
func (q Query) Matches(doc *Document) (bool, error) {
	if doc.Path.Collection() != q.Collection {
		return false, nil
	}
	for _, f := range q.Filters {
		actual, ok := doc.Field(f.Field)
		if !ok {
			return false, nil
		}
		want, err := normalizeValue(f.Value)
		if err != nil {
			return false, fmt.Errorf("filter %q: %w", f.Field, err)
		}
		c := Compare(actual, want)
		var pass bool
		switch f.Op {
		case OpEqual:
			pass = c == 0
		case OpNotEqual:
			pass = c != 0
		case OpLess:
			pass = c < 0
		case OpLessEqual:
			pass = c <= 0
		case OpGreater:
			pass = c > 0
		case OpGreaterEqual:
			pass = c >= 0
		}
		if !pass {
			return false, nil
		}
	}
	return true, nil
}

// Apply filters, sorts and limits docs according to the query.
// Ties on every order field are broken by path so results are deterministic.
func (q Query) Apply(docs []*Document) ([]*Document, error) {
	out := make([]*Document, 0, len(docs))
	for _, d := range docs {
		ok, err := q.Matches(d)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range q.OrderBy {
			a, _ := out[i].Field(o.Field)
			b, _ := out[j].Field(o.Field)
			c := Compare(a, b)
			if c == 0 {
				continue
			}
			if o.Direction == Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].Path < out[j].Path
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Compare orders two document values: nil < bool < number < timestamp/string.
// Numbers (including decimal strings) compare as decimals; RFC 3339 timestamps compare as instants.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		return 0
	case 1:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case 2:
		da, errA := NumericValue(a)
		db, errB := NumericValue(b)
		if errA != nil || errB != nil {
			return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
		}
		return da.Cmp(db)
	case 3:
		sa, sb := a.(string), b.(string)
		ta, errA := time.Parse(time.RFC3339Nano, sa)
		tb, errB := time.Parse(time.RFC3339Nano, sb)
		if errA == nil && errB == nil {
			return ta.Compare(tb)
		}
		return strings.Compare(sa, sb)
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case string:
		if _, err := NumericValue(v); err == nil {
			return 2
		}
		return 3
	default:
		if _, err := NumericValue(v); err == nil {
			return 2
		}
		return 4
	}
}
