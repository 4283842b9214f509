// Package cli implements the awkframe command line: one-shot queries, plan
// explanation and an interactive shell over CSV files and SQLite tables.
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dianpeng/awkframe/config"
	"github.com/dianpeng/awkframe/dataframe"
	"github.com/dianpeng/awkframe/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type RootOptions struct {
	Config  string
	Verbose bool

	// name=path
	CSV []string

	// name=table@dsn
	SQLite []string

	NoHeader  bool
	Delimiter string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "awkframe",
		Short: "SQL over CSV files, executed with awk",
		Long: `awkframe runs SQL queries over CSV files and SQLite tables.

CSV scans are compiled into awk programs which apply the projection and the
pushable part of the WHERE clause, the rest of the query runs in process.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringArrayVar(&opts.CSV, "csv", nil, "register a CSV file, name=path")
	cmd.PersistentFlags().StringArrayVar(&opts.SQLite, "sqlite", nil, "register a SQLite table, name=table@dsn")
	cmd.PersistentFlags().BoolVar(&opts.NoHeader, "no-header", false, "registered CSV files have no header row")
	cmd.PersistentFlags().StringVar(&opts.Delimiter, "delimiter", ",", "field delimiter of registered CSV files")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewReplCommand(opts))
	return cmd
}

func splitPair(v, sep string) (string, string, error) {
	pos := strings.Index(v, sep)
	if pos <= 0 || pos == len(v)-1 {
		return "", "", fmt.Errorf("invalid value %q, expect a%sb", v, sep)
	}
	return v[:pos], v[pos+1:], nil
}

// openSession builds the session of a command and registers the tables given
// on the command line
func openSession(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*dataframe.SessionContext, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "DEBUG"
	}
	logger.Init(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if !cfg.Color {
		color.NoColor = true
	}

	s, err := dataframe.NewSessionContext(
		dataframe.WithConfig(cfg),
		dataframe.WithLogger(logger.Get()),
		dataframe.WithOutput(cmd.OutOrStdout()),
	)
	if err != nil {
		return nil, err
	}

	if err := registerTables(ctx, s, opts); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func registerTables(ctx context.Context, s *dataframe.SessionContext, opts *RootOptions) error {
	csvOpts := s.DefaultCSVReadOptions()
	csvOpts.HasHeader = !opts.NoHeader
	if opts.Delimiter != "" {
		r := []rune(opts.Delimiter)
		if len(r) != 1 {
			return fmt.Errorf("delimiter must be a single character, got %q", opts.Delimiter)
		}
		csvOpts.Delimiter = r[0]
	}

	for _, v := range opts.CSV {
		name, path, err := splitPair(v, "=")
		if err != nil {
			return fmt.Errorf("--csv: %w", err)
		}
		if err := s.RegisterCSV(ctx, name, path, csvOpts); err != nil {
			return err
		}
	}

	for _, v := range opts.SQLite {
		name, rest, err := splitPair(v, "=")
		if err != nil {
			return fmt.Errorf("--sqlite: %w", err)
		}
		table, dsn, err := splitPair(rest, "@")
		if err != nil {
			return fmt.Errorf("--sqlite: %w", err)
		}
		if err := s.RegisterSQLite(ctx, name, dsn, table); err != nil {
			return err
		}
	}
	return nil
}
