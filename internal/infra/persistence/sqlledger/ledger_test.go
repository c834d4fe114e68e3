package sqlledger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectSchemas(t *testing.T) {
	for _, d := range []Dialect{SQLite, Postgres} {
		stmts := d.Statements()
		require.Len(t, stmts, 3, d.Name)
		assert.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE IF NOT EXISTS runs"), d.Name)
		for _, s := range stmts {
			assert.NotContains(t, s, ";", d.Name)
		}
	}
	assert.Contains(t, SQLite.Schema, "payload BLOB")
	assert.Contains(t, Postgres.Schema, "payload JSONB")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", SQLite.Placeholder(3))
	assert.Equal(t, "$3", Postgres.Placeholder(3))
}
