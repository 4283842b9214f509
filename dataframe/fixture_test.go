package dataframe

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dianpeng/awkframe/config"
	"github.com/dianpeng/awkframe/exec"
	"github.com/dianpeng/awkframe/logger"
	"github.com/dianpeng/awkframe/plan"
	"github.com/stretchr/testify/require"
)

const exampleCSV = `a,b,c
1,2,x
2,2,y
3,4,x
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestSession(t *testing.T) (*SessionContext, *bytes.Buffer) {
	cfg := config.Default()
	cfg.BatchSize = 2
	cfg.TargetPartitions = 2
	cfg.Color = false

	out := &bytes.Buffer{}
	s, err := NewSessionContext(
		WithConfig(cfg),
		WithLogger(logger.Discard()),
		WithOutput(out),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, out
}

// readExample returns a DataFrame over example.csv, columns a, b and c
func readExample(t *testing.T, s *SessionContext) *DataFrame {
	df, err := s.ReadCSV(context.Background(), writeFile(t, "example.csv", exampleCSV))
	require.NoError(t, err)
	return df
}

func collect(t *testing.T, df *DataFrame) []plan.Row {
	batches, err := df.Collect(context.Background())
	require.NoError(t, err)
	return exec.Rows(batches)
}

// poisoned runs fn and returns the *PoisonedError it panics with
func poisoned(fn func()) (out *PoisonedError) {
	defer func() {
		if r := recover(); r != nil {
			out, _ = r.(*PoisonedError)
		}
	}()
	fn()
	return nil
}
