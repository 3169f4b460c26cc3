package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/narracode/internal/audit"
)

func newCodeCmd(opts *rootOptions) *cobra.Command {
	var stream bool

	cmd := &cobra.Command{
		Use:   "code [TEXT|-]",
		Short: "Code one memory narrative",
		Long: `Code one memory narrative with the selected coding task and print the
annotated text. The text is read from the argument, or from stdin when the
argument is "-" or missing. The exchange is appended to the generation log.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			a, err := opts.setup(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			var rec audit.Record
			if stream {
				res, err := a.dispatcher.CodeStream(ctx, a.session, text, nil, a.params, func(chunk string) error {
					_, err := io.WriteString(out, chunk)
					return err
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				rec = res.Log
			} else {
				res, err := a.dispatcher.CodeText(ctx, a.session, text, nil, a.params)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, res.Output)
				rec = res.Log
			}

			if err := a.sink.AppendLogs(ctx, &rec, nil); err != nil {
				return fmt.Errorf("write generation log: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stream, "stream", false, "print the output as it is generated")
	return cmd
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE",
		Short: "Code many memory narratives in parallel",
		Long: `Code every non-empty line of FILE ("-" for stdin) as an independent memory
narrative. Outputs are printed in input order, one per line, and all
exchanges are appended to the generation log as one batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			texts, err := readLines(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if len(texts) == 0 {
				return errors.New("no memory narratives to code")
			}

			a, err := opts.setup(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			results, err := a.dispatcher.CodeMany(ctx, a.session, texts, a.params)
			if err != nil {
				return err
			}

			logs := make([]audit.Record, len(results))
			out := cmd.OutOrStdout()
			for i, res := range results {
				fmt.Fprintln(out, res.Output)
				logs[i] = res.Log
			}

			if err := a.sink.AppendLogs(ctx, nil, logs); err != nil {
				return fmt.Errorf("write generation log: %w", err)
			}
			a.logger.Info("batch logged", zap.Int("records", len(logs)))
			return nil
		},
	}
}

func readText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", errors.New("no text to code")
	}
	return text, nil
}

func readLines(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}
