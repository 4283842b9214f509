package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dianpeng/awkframe/dataframe"
	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const (
	prompt         = "awkframe> "
	continuePrompt = "      ...> "
)

// lineReader is the part of *liner.State the shell uses
type lineReader interface {
	Prompt(string) (string, error)
	AppendHistory(string)
}

type ReplOptions struct {
	*RootOptions
	History string
}

func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive SQL shell",
		Long: `Interactive SQL shell. Statements end with ';' and may span several
lines. Commands:

  \d            list the registered tables
  \d <table>    print the columns of a table
  \explain sql  print the optimized plan and scan programs of a query
  \q            quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := openSession(ctx, opts.RootOptions, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)
			line.SetMultiLineMode(true)

			if opts.History != "" {
				if f, err := os.Open(opts.History); err == nil {
					line.ReadHistory(f)
					f.Close()
				}
				defer func() {
					if f, err := os.Create(opts.History); err == nil {
						line.WriteHistory(f)
						f.Close()
					}
				}()
			}

			return newShell(s, line, cmd.OutOrStdout(), cmd.ErrOrStderr()).run(ctx)
		},
	}

	history := ""
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".awkframe_history")
	}
	cmd.Flags().StringVar(&opts.History, "history", history, "history file, empty to disable")
	return cmd
}

type shell struct {
	session *dataframe.SessionContext
	reader  lineReader
	out     io.Writer
	errOut  io.Writer
	errText func(a ...interface{}) string
}

func newShell(s *dataframe.SessionContext, r lineReader, out, errOut io.Writer) *shell {
	return &shell{
		session: s,
		reader:  r,
		out:     out,
		errOut:  errOut,
		errText: color.New(color.FgRed).SprintFunc(),
	}
}

func (self *shell) run(ctx context.Context) error {
	buf := &strings.Builder{}
	for {
		p := prompt
		if buf.Len() > 0 {
			p = continuePrompt
		}
		input, err := self.reader.Prompt(p)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			fmt.Fprintln(self.out)
			return nil
		case errors.Is(err, liner.ErrPromptAborted):
			buf.Reset()
			continue
		default:
			return err
		}

		line := strings.TrimSpace(input)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, `\`) {
			self.reader.AppendHistory(line)
			if quit := self.command(ctx, line); quit {
				return nil
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(input)
		if !strings.HasSuffix(line, ";") {
			continue
		}

		text := buf.String()
		buf.Reset()
		self.reader.AppendHistory(text)
		for _, stmt := range splitStatements(text) {
			if err := runStatement(ctx, self.session, stmt, self.out); err != nil {
				self.report(err)
				break
			}
		}
	}
}

func (self *shell) report(err error) {
	fmt.Fprintln(self.errOut, self.errText("ERROR: "+err.Error()))
}

// command runs a backslash command, it returns true to leave the shell
func (self *shell) command(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case `\q`, `\quit`:
		return true

	case `\d`:
		if arg == "" {
			for _, t := range self.session.TableNames() {
				fmt.Fprintln(self.out, t)
			}
			return false
		}
		df, err := self.session.Table(arg)
		if err != nil {
			self.report(err)
			return false
		}
		for _, f := range df.Schema().Fields {
			fmt.Fprintf(self.out, "%s\t%s\n", f.Name, f.Type)
		}

	case `\explain`:
		df, err := self.session.SQL(ctx, strings.TrimSuffix(arg, ";"))
		if err != nil {
			self.report(err)
			return false
		}
		text, err := df.Explain(true)
		if err != nil {
			self.report(err)
			return false
		}
		fmt.Fprint(self.out, text)

	default:
		self.report(fmt.Errorf("unknown command %s", name))
	}
	return false
}
