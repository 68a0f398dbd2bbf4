package core

import (
	"fmt"
	"strings"
)

// FilterOp is the kind of predicate a Filter applies.
type FilterOp int

const (
	// OpEquals matches the column exactly.
	OpEquals FilterOp = iota
	// OpContains matches a case-insensitive substring (LIKE %v%).
	OpContains
	// OpDateFrom is an inclusive lower bound on a date/timestamp column.
	OpDateFrom
	// OpDateTo is an inclusive upper bound on a date/timestamp column.
	OpDateTo
)

// Filter is one predicate over a named column. A query's filters combine as
// a conjunction. Using a tagged variant instead of ad-hoc maps keeps the SQL
// construction in one exhaustive place.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

func Equals(field string, value any) Filter {
	return Filter{Field: field, Op: OpEquals, Value: value}
}

func Contains(field, substring string) Filter {
	return Filter{Field: field, Op: OpContains, Value: substring}
}

func DateFrom(field, date string) Filter {
	return Filter{Field: field, Op: OpDateFrom, Value: date}
}

func DateTo(field, date string) Filter {
	return Filter{Field: field, Op: OpDateTo, Value: date}
}

// BuildWhere renders filters into a WHERE clause and its arguments. Only
// fields listed in allowed are rendered; anything else is an error so typos
// fail loudly instead of silently widening the result set. Returns an empty
// clause when no filters are given.
func BuildWhere(filters []Filter, allowed map[string]bool) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))

	for _, f := range filters {
		if !allowed[f.Field] {
			return "", nil, fmt.Errorf("filter on unknown field %q", f.Field)
		}
		switch f.Op {
		case OpEquals:
			clauses = append(clauses, f.Field+" = ?")
			args = append(args, f.Value)
		case OpContains:
			clauses = append(clauses, f.Field+" LIKE ?")
			args = append(args, "%"+fmt.Sprint(f.Value)+"%")
		case OpDateFrom:
			clauses = append(clauses, f.Field+" >= ?")
			args = append(args, f.Value)
		case OpDateTo:
			clauses = append(clauses, f.Field+" <= ?")
			args = append(args, f.Value)
		default:
			return "", nil, fmt.Errorf("unknown filter op %d", f.Op)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
