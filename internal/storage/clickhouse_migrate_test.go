package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/portal-admin/internal/config"
)

func TestSplitSQLStatements(t *testing.T) {
	content := `
-- ledger
CREATE TABLE a (
    x UInt64
) ENGINE = MergeTree() ORDER BY x;

-- second
CREATE TABLE b (y String) ENGINE = Log;
SELECT 1`

	got := splitSQLStatements(content)
	assert.Len(t, got, 3)
	assert.Contains(t, got[0], "CREATE TABLE a (")
	assert.NotContains(t, got[0], ";")
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Log", got[1])
	assert.Equal(t, "SELECT 1", got[2])
	assert.Empty(t, splitSQLStatements("-- nothing\n\n"))
}

func TestClickHouseOptions(t *testing.T) {
	opts := clickhouseOptions(&config.ClickHouseConfig{
		Host:     "events",
		Port:     "9000",
		Database: "portal_admin",
		User:     "writer",
	})
	assert.Equal(t, []string{"events:9000"}, opts.Addr)
	assert.Equal(t, "portal_admin", opts.Auth.Database)
	assert.Equal(t, "writer", opts.Auth.Username)
	assert.Equal(t, 2, opts.MaxOpenConns)
}
