package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectSQL(t *testing.T) {
	tests := []struct {
		name     string
		stmt     *Select
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:    "every column",
			stmt:    From("roles"),
			wantSQL: "SELECT * FROM roles",
		},
		{
			name: "filtered, ordered and paged",
			stmt: From("tickets", "id_ticket", "status").
				Eq("status", "BOOKED").
				Eq("passenger_id", nil).
				OrderBy("price", true).
				OrderBy("id_ticket", false).
				Page(10, 20),
			wantSQL:  "SELECT id_ticket, status FROM tickets WHERE status = ? AND passenger_id IS NULL ORDER BY price DESC, id_ticket ASC LIMIT 10 OFFSET 20",
			wantArgs: []interface{}{"BOOKED"},
		},
		{
			name:    "limit without offset",
			stmt:    From("flights").Page(5, 0),
			wantSQL: "SELECT * FROM flights LIMIT 5",
		},
		{
			name:    "offset needs a limit",
			stmt:    From("flights").Page(0, 30),
			wantSQL: "SELECT * FROM flights",
		},
		{
			name:     "count",
			stmt:     From("payments", "COUNT(*)").Eq("user_id", int64(3)),
			wantSQL:  "SELECT COUNT(*) FROM payments WHERE user_id = ?",
			wantArgs: []interface{}{int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.stmt.SQL()
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)

			// Rendering twice yields the same arguments.
			_, again := tt.stmt.SQL()
			assert.Equal(t, tt.wantArgs, again)
		})
	}
}
