package datasource

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dianpeng/awkframe/logger"
	"github.com/dianpeng/awkframe/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testOptions() CSVOptions {
	opts := DefaultCSVOptions()
	opts.Logger = logger.Discard()
	return opts
}

const exampleCSV = `a,b,c,d,e
1,2.5,x,true,
2,,"y, z",false,
3,4,,TRUE,
`

func TestCSVInferSchema(t *testing.T) {
	assert := assert.New(t)

	src, err := NewCSVSource(writeFile(t, "example.csv", exampleCSV), testOptions())
	require.NoError(t, err)
	assert.Equal("[a:Int64, b:Float64, c:Utf8, d:Boolean, e:Utf8]", src.Schema().String())
	for _, f := range src.Schema().Fields {
		assert.True(f.Nullable)
		assert.Equal("", f.Qualifier)
	}
}

func TestCSVInferWidening(t *testing.T) {
	assert := assert.New(t)

	path := writeFile(t, "w.csv", "a,b\n1,1\n2.5,x\n")
	src, err := NewCSVSource(path, testOptions())
	require.NoError(t, err)
	assert.Equal([]plan.DataType{plan.TypeFloat64, plan.TypeUtf8}, src.Schema().Types())

	// only the first record is sampled, the later one fails the scan
	opts := testOptions()
	opts.SchemaInferMaxRecords = 1
	src, err = NewCSVSource(path, opts)
	require.NoError(t, err)
	assert.Equal([]plan.DataType{plan.TypeInt64, plan.TypeInt64}, src.Schema().Types())

	_, err = src.Scan(context.Background(), &plan.ScanRequest{Projection: []int{}})
	require.NoError(t, err)
	_, err = src.Scan(context.Background(), nil)
	assert.Error(err)
	assert.True(strings.Contains(err.Error(), "column a"))
}

func TestCSVNoHeader(t *testing.T) {
	assert := assert.New(t)

	opts := testOptions()
	opts.HasHeader = false
	src, err := NewCSVSource(writeFile(t, "nh.csv", "1,x\n2,y,extra\n"), opts)
	require.NoError(t, err)
	assert.Equal([]string{"column_1", "column_2", "column_3"}, src.Schema().Names())

	rows, err := src.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{int64(1), "x", nil},
		{int64(2), "y", "extra"},
	}, rows)
}

func TestCSVDelimiter(t *testing.T) {
	assert := assert.New(t)

	opts := testOptions()
	opts.Delimiter = '\t'
	src, err := NewCSVSource(writeFile(t, "t.tsv", "a\tb\n1\thello, world\n"), opts)
	require.NoError(t, err)

	rows, err := src.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal([]plan.Row{{int64(1), "hello, world"}}, rows)
}

func TestCSVHeaderNames(t *testing.T) {
	assert := assert.New(t)

	src, err := NewCSVSource(writeFile(t, "h.csv", "a,,a\n1,2,3\n"), testOptions())
	require.NoError(t, err)
	assert.Equal([]string{"a", "column_2", "a_2"}, src.Schema().Names())
}

func TestCSVInvalid(t *testing.T) {
	assert := assert.New(t)

	_, err := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"), testOptions())
	assert.Error(err)

	_, err = NewCSVSource(writeFile(t, "empty.csv", ""), testOptions())
	assert.Error(err)

	_, err = NewCSVSource(t.TempDir(), testOptions())
	assert.Error(err)
}

func TestCSVScan(t *testing.T) {
	assert := assert.New(t)

	src, err := NewCSVSource(writeFile(t, "example.csv", exampleCSV), testOptions())
	require.NoError(t, err)

	rows, err := src.Scan(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{int64(1), 2.5, "x", true, nil},
		{int64(2), nil, "y, z", false, nil},
		{int64(3), 4.0, nil, true, nil},
	}, rows)

	rows, err = src.Scan(context.Background(), &plan.ScanRequest{Projection: []int{2, 0}})
	require.NoError(t, err)
	assert.Equal([]plan.Row{
		{"x", int64(1)},
		{"y, z", int64(2)},
		{nil, int64(3)},
	}, rows)

	rows, err = src.Scan(context.Background(), &plan.ScanRequest{Projection: []int{}})
	require.NoError(t, err)
	assert.Equal([]plan.Row{{}, {}, {}}, rows)
}

func TestCSVScanFilter(t *testing.T) {
	assert := assert.New(t)

	src, err := NewCSVSource(writeFile(t, "example.csv", exampleCSV), testOptions())
	require.NoError(t, err)

	req := &plan.ScanRequest{
		Projection: []int{0},
		Filters: []plan.Expr{
			&plan.BinaryExpr{
				Left:  &plan.Column{Name: "a"},
				Op:    plan.OpGtEq,
				Right: &plan.Literal{Value: int64(2)},
			},
		},
	}
	rows, err := src.Scan(context.Background(), req)
	require.NoError(t, err)
	assert.Equal([]plan.Row{{int64(2)}, {int64(3)}}, rows)

	text, err := src.ExplainScan(req)
	require.NoError(t, err)
	assert.True(strings.Contains(text, `($1+0) >= 2`))
	assert.True(strings.Contains(text, "print $1;"))
}

func TestCSVScanCanceled(t *testing.T) {
	assert := assert.New(t)

	src, err := NewCSVSource(writeFile(t, "example.csv", exampleCSV), testOptions())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Scan(ctx, nil)
	assert.Error(err)
}

func TestCache(t *testing.T) {
	assert := assert.New(t)

	cache, err := NewCache(4)
	require.NoError(t, err)

	opts := testOptions()
	opts.Cache = cache
	path := writeFile(t, "example.csv", exampleCSV)

	first, err := NewCSVSource(path, opts)
	require.NoError(t, err)
	second, err := NewCSVSource(path, opts)
	require.NoError(t, err)
	assert.Same(first.Schema(), second.Schema())

	_, err = first.Scan(context.Background(), nil)
	require.NoError(t, err)
	_, err = second.Scan(context.Background(), nil)
	require.NoError(t, err)

	programs, schemas := cache.Stats()
	assert.Equal(2, programs) // the sample and the scan program
	assert.Equal(1, schemas)

	cache.Purge()
	programs, schemas = cache.Stats()
	assert.Equal(0, programs)
	assert.Equal(0, schemas)

	_, err = NewCache(0)
	assert.Error(err)

	var none *Cache
	programs, _ = none.Stats()
	assert.Equal(0, programs)
}

func TestParseCell(t *testing.T) {
	assert := assert.New(t)

	v, err := parseCell("", plan.TypeInt64)
	assert.NoError(err)
	assert.Nil(v)

	v, err = parseCell("False", plan.TypeBool)
	assert.NoError(err)
	assert.Equal(false, v)

	_, err = parseCell("x", plan.TypeFloat64)
	assert.Error(err)
}
