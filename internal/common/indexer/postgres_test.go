package indexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresQueriesQuoteTable(t *testing.T) {
	create := createTableQuery("indeed_jobs")
	assert.Contains(t, create, `CREATE TABLE IF NOT EXISTS "indeed_jobs"`)

	upsert := upsertQuery(`jobs"; DROP TABLE x; --`)
	assert.Contains(t, upsert, `INSERT INTO "jobs""; DROP TABLE x; --"`)
	assert.Contains(t, upsert, "ON CONFLICT (id) DO UPDATE")
	assert.Equal(t, 9, strings.Count(upsert, "$"))
}
