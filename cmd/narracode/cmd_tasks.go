package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/HerbHall/narracode/internal/tasks"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect the registered coding tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List coding tasks and their legends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			reg := tasks.MustDefault()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TASK\tDEFAULT\tCODES\tLEGEND")
			for _, name := range reg.Names() {
				def, _ := reg.Get(name)
				marker := ""
				if name == reg.Default() {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, marker, len(def.Codes), def.Legend)
			}
			w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show NAME",
		Short: "Print a coding task definition as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := tasks.MustDefault().Get(tasks.Name(args[0]))
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(def); err != nil {
				return err
			}
			return enc.Close()
		},
	})
	return cmd
}
