package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/HerbHall/narracode/pkg/llm"
)

func newServicesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "Inspect the configured backend services",
	}

	var timeout time.Duration
	check := &cobra.Command{
		Use:   "check",
		Short: "Check that each service is reachable and serves its configured models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.setup(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			failed := 0
			for _, svc := range a.catalog.Services() {
				fmt.Fprintf(out, "%s (%s)\n", svc, svc.Description())

				backend, err := newBackend(svc, a.cfg, a.logger)
				if err != nil {
					fmt.Fprintf(out, "  unavailable: %v\n", err)
					failed++
					continue
				}
				hr, ok := backend.(llm.HealthReporter)
				if !ok {
					fmt.Fprintln(out, "  health reporting not supported")
					continue
				}

				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				served, err := checkService(ctx, hr)
				cancel()
				if err != nil {
					fmt.Fprintf(out, "  unreachable: %v\n", err)
					failed++
					continue
				}
				fmt.Fprintln(out, "  reachable")
				for _, m := range a.catalog.Models(svc) {
					status := "ok"
					if !slices.Contains(served, m) {
						status = "not listed by service"
					}
					fmt.Fprintf(out, "  %-50s %s\n", m, status)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d service(s) failed the check", failed)
			}
			return nil
		},
	}
	check.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "per-service timeout")
	cmd.AddCommand(check)
	return cmd
}

// checkService verifies the service answers with the configured credentials
// and returns the models it serves.
func checkService(ctx context.Context, hr llm.HealthReporter) ([]string, error) {
	if err := hr.Heartbeat(ctx); err != nil {
		return nil, err
	}
	return hr.ListModels(ctx)
}
