package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dianpeng/awkframe/dataframe"
	"github.com/dianpeng/awkframe/logger"
	"github.com/spf13/cobra"
)

type QueryOptions struct {
	*RootOptions
	Output string
}

func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Run SQL statements and print the results",
		Long: `Run one or more SQL statements separated by ';'. Without argument the
statements are read from STDIN.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			return runQuery(cmd.Context(), opts, cmd, text)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the results to a file instead of STDOUT")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read sql: %w", err)
	}
	return string(data), nil
}

func runQuery(ctx context.Context, opts *QueryOptions, cmd *cobra.Command, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		cmd.SetOut(f)
	}

	s, err := openSession(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, stmt := range splitStatements(text) {
		if err := runStatement(ctx, s, stmt, cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	return nil
}

// runStatement executes one statement, queries are rendered as a table and
// DDL prints OK
func runStatement(ctx context.Context, s *dataframe.SessionContext, stmt string, w io.Writer) error {
	start := time.Now()
	df, err := s.SQL(ctx, stmt)
	if err != nil {
		return err
	}
	if df.Schema().Len() == 0 {
		_, err := fmt.Fprintln(w, "OK")
		return err
	}
	if err := df.Show(ctx); err != nil {
		return err
	}
	logger.Info("query finished", "elapsed", time.Since(start))
	return nil
}

// splitStatements splits text on the ';' found outside of quotes, empty
// statements are dropped
func splitStatements(text string) []string {
	out := []string{}
	buf := &strings.Builder{}
	var quote rune

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, s)
		}
		buf.Reset()
	}

	for _, c := range text {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			flush()
			continue
		}
		buf.WriteRune(c)
	}
	flush()
	return out
}
