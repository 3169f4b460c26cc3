package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HerbHall/narracode/internal/generation"
	"github.com/HerbHall/narracode/pkg/llm"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk about a coding task with the model",
		Long: `Start an interactive conversation about the selected coding task. Each line
read from stdin is one user turn; replies are streamed as they arrive and
every turn is appended to the generation log.

Commands: /reset starts a new conversation, /exit quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.setup(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			if err := startChat(a); err != nil {
				return err
			}

			cfg := a.session.Resolve()
			fmt.Fprintf(errOut, "Chatting about %s with %s (%s). /reset to start over, /exit to quit.\n",
				cfg.CodingTask, cfg.BaseModel, cfg.Service.Description())

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(errOut, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(errOut)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "/exit", "/quit":
					return nil
				case "/reset":
					a.session.ResetChat()
					if err := startChat(a); err != nil {
						return err
					}
					fmt.Fprintln(errOut, "Conversation cleared.")
					continue
				}

				conv := a.session.Chat()
				n := conv.Len()
				conv.Append(llm.RoleUser, line)
				_, err := a.dispatcher.GenerateForChat(ctx, a.session, conv, a.params,
					generation.WithStream(func(chunk string) error {
						_, err := io.WriteString(out, chunk)
						return err
					}))
				fmt.Fprintln(out)
				if err != nil {
					// The failed turn is dropped so a retry is not sent twice.
					conv.Truncate(n)
					if ctx.Err() != nil {
						return err
					}
					fmt.Fprintf(errOut, "generation failed: %v\nPlease try again.\n", err)
				}
			}
		},
	}
}

// startChat seeds the session's conversation for its current coding task.
func startChat(a *app) error {
	conv, err := a.dispatcher.NewChat(a.session)
	if err != nil {
		return err
	}
	a.session.SetChat(conv)
	return nil
}
