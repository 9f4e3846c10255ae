package order

import (
	"fmt"
	"strings"
	"time"
)

type Op string

const (
	OpEq  Op = "="
	OpGTE Op = ">="
	OpLTE Op = "<="
)

// Clause is one filter condition expressed as plain data. The query
// layer translates clauses into its native syntax, so the builder stays
// free of any query-engine vocabulary.
type Clause struct {
	Field string
	Op    Op
	Value any
}

// SearchFilter carries the optional search conditions. All present
// conditions are combined as a conjunction; an empty filter matches
// every order. CreatedAt is accepted for wire compatibility but
// contributes no clause.
type SearchFilter struct {
	Status    *Status
	CreatedAt *time.Time
	FromDate  *time.Time
	ToDate    *time.Time
}

// BuildClauses maps the filter onto clauses over order rows. Date bounds
// are inclusive on both ends: fromDate widens to 00:00:00 and toDate to
// 23:59:59 of the given day, in UTC.
func BuildClauses(f SearchFilter) []Clause {
	var clauses []Clause

	if f.Status != nil {
		clauses = append(clauses, Clause{Field: "status", Op: OpEq, Value: string(*f.Status)})
	}
	if f.FromDate != nil {
		clauses = append(clauses, Clause{Field: "created_at", Op: OpGTE, Value: startOfDay(*f.FromDate)})
	}
	if f.ToDate != nil {
		clauses = append(clauses, Clause{Field: "created_at", Op: OpLTE, Value: endOfDay(*f.ToDate)})
	}

	return clauses
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}

// whereSQL renders a clause conjunction as a parameterized WHERE
// fragment plus its argument list. No clauses yields an empty fragment.
func whereSQL(clauses []Clause) (string, []any) {
	if len(clauses) == 0 {
		return "", nil
	}

	var b strings.Builder
	args := make([]any, 0, len(clauses))
	for i, c := range clauses {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, c.Value)
		fmt.Fprintf(&b, "%s %s $%d", c.Field, c.Op, len(args))
	}

	return b.String(), args
}
