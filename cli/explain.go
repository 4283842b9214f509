package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type ExplainOptions struct {
	*RootOptions
	Full bool
}

func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain [sql]",
		Short: "Print the plan of a query",
		Long: `Print the logical plan of a query. With --full the optimized plan and the
awk program generated for every CSV scan are printed as well.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			s, err := openSession(ctx, opts.RootOptions, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			df, err := s.SQL(ctx, text)
			if err != nil {
				return err
			}
			out, err := df.Explain(opts.Full)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().BoolVar(&opts.Full, "full", false, "print the optimized plan and the scan programs")
	return cmd
}
