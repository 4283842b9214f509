package datasource

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dianpeng/awkframe/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prepareSQLite(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
CREATE TABLE people (id INTEGER NOT NULL, name TEXT, score REAL, active BOOLEAN);
INSERT INTO people VALUES (1, 'ann', 1.5, 1);
INSERT INTO people VALUES (2, NULL, 3, 0);
INSERT INTO people VALUES (3, 'bob', NULL, NULL);
`)
	require.NoError(t, err)
	return path
}

func TestSQLiteSchema(t *testing.T) {
	assert := assert.New(t)

	src, err := OpenSQLite(context.Background(), prepareSQLite(t), "people")
	require.NoError(t, err)
	defer src.Close()

	assert.Equal("[id:Int64, name:Utf8, score:Float64, active:Boolean]", src.Schema().String())
	assert.False(src.Schema().Field(0).Nullable)
	assert.True(src.Schema().Field(1).Nullable)
}

func TestSQLiteScan(t *testing.T) {
	assert := assert.New(t)

	src, err := OpenSQLite(context.Background(), prepareSQLite(t), "people")
	require.NoError(t, err)
	defer src.Close()

	rows, err := src.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{int64(1), "ann", 1.5, true},
		{int64(2), nil, 3.0, false},
		{int64(3), "bob", nil, nil},
	}, rows)

	req := &plan.ScanRequest{Projection: []int{1}}
	rows, err = src.Scan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal([]plan.Row{{"ann"}, {nil}, {"bob"}}, rows)

	text, err := src.ExplainScan(req)
	require.NoError(t, err)
	assert.Equal(`SELECT "name" FROM "people"`, text)

	rows, err = src.Scan(context.Background(), &plan.ScanRequest{Projection: []int{}})
	require.NoError(t, err)
	assert.Equal([]plan.Row{{}, {}, {}}, rows)
}

func TestSQLiteMissingTable(t *testing.T) {
	assert := assert.New(t)

	_, err := OpenSQLite(context.Background(), prepareSQLite(t), "nope")
	assert.True(errors.Is(err, plan.ErrTableNotFound))
}

func TestAffinity(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(plan.TypeInt64, affinity("BIGINT"))
	assert.Equal(plan.TypeUtf8, affinity("VARCHAR(10)"))
	assert.Equal(plan.TypeFloat64, affinity("double precision"))
	assert.Equal(plan.TypeBool, affinity("boolean"))
	assert.Equal(plan.TypeUtf8, affinity(""))
}

func TestCoerce(t *testing.T) {
	assert := assert.New(t)

	v, err := coerce(float64(2), plan.TypeInt64)
	assert.NoError(err)
	assert.Equal(int64(2), v)

	_, err = coerce(2.5, plan.TypeInt64)
	assert.Error(err)

	v, err = coerce(int64(7), plan.TypeUtf8)
	assert.NoError(err)
	assert.Equal("7", v)

	v, err = coerce([]byte("1.25"), plan.TypeFloat64)
	assert.NoError(err)
	assert.Equal(1.25, v)
}
