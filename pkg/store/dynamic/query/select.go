// Package query renders the SELECT statements behind List and Count. Table
// and column names must already be checked against an entity descriptor;
// values are always bound.
package query

import (
	"strconv"
	"strings"
)

type condition struct {
	column string
	value  interface{}
}

type ordering struct {
	column string
	desc   bool
}

// Select is a single-table statement built up through chained calls.
type Select struct {
	table   string
	columns []string
	where   []condition
	order   []ordering
	limit   int
	offset  int
}

// From starts a statement over table. No columns selects every column.
func From(table string, columns ...string) *Select {
	return &Select{table: table, columns: columns}
}

// Eq adds an equality filter. A nil value matches NULL.
func (s *Select) Eq(column string, value interface{}) *Select {
	s.where = append(s.where, condition{column: column, value: value})
	return s
}

func (s *Select) OrderBy(column string, desc bool) *Select {
	s.order = append(s.order, ordering{column: column, desc: desc})
	return s
}

// Page limits the result. A non-positive limit returns every row and
// ignores offset.
func (s *Select) Page(limit, offset int) *Select {
	s.limit, s.offset = limit, offset
	return s
}

// SQL renders the statement and its bind arguments.
func (s *Select) SQL() (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString("SELECT ")
	if len(s.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(s.columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(s.table)

	for i, c := range s.where {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(c.column)
		if c.value == nil {
			sb.WriteString(" IS NULL")
			continue
		}
		sb.WriteString(" = ?")
		args = append(args, c.value)
	}

	for i, o := range s.order {
		if i == 0 {
			sb.WriteString(" ORDER BY ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(o.column)
		if o.desc {
			sb.WriteString(" DESC")
		} else {
			sb.WriteString(" ASC")
		}
	}

	if s.limit > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(s.limit))
		if s.offset > 0 {
			sb.WriteString(" OFFSET " + strconv.Itoa(s.offset))
		}
	}
	return sb.String(), args
}
