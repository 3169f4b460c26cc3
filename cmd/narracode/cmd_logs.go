package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/HerbHall/narracode/internal/audit"
)

func newLogsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect the generation log",
	}

	var n int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print the most recent generation log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.setup(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.sink.Tail(cmd.Context(), n)
			if err != nil {
				return err
			}

			shown := []string{
				audit.ColumnTimestamp, audit.ColumnUser, audit.ColumnService,
				audit.ColumnBaseModel, audit.ColumnCodingTask, audit.ColumnTask, audit.ColumnOutput,
			}
			idx := make([]int, len(shown))
			for i, col := range shown {
				idx[i] = slices.Index(audit.Columns, col)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, strings.ToUpper(strings.Join(shown, "\t")))
			for _, row := range rows {
				fields := make([]string, len(idx))
				for i, j := range idx {
					fields[i] = oneLine(row[j], 60)
				}
				fmt.Fprintln(w, strings.Join(fields, "\t"))
			}
			return w.Flush()
		},
	}
	tail.Flags().IntVarP(&n, "lines", "n", 10, "number of entries to show")
	cmd.AddCommand(tail)
	return cmd
}

// oneLine flattens s to a single line of at most limit runes.
func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
