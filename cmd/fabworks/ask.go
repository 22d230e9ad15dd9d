package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tmcgann/fabworks/internal/agent"
)

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Send one request and print the response",
	Long: `Routes a single natural-language request to an agent and prints
the response transcript.

Examples:
  fabworks ask "create a feature called Sales Dashboard"
  fabworks ask "move all tasks under Sales Dashboard to Closed"
  fabworks ask "generate the requirements document"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.Close()

		request := strings.Join(args, " ")
		resp, err := app.sup.Ask(context.Background(), request)
		if err != nil {
			return err
		}

		agentName := resp.Agent
		if agentName == "" {
			agentName = "supervisor"
		}
		fmt.Printf("%s %s\n\n", color.CyanString("agent:"), agentName)

		for _, rec := range resp.Records {
			switch rec.Kind {
			case agent.KindToolOutput:
				for _, line := range strings.Split(strings.TrimRight(rec.Content, "\n"), "\n") {
					fmt.Println(color.HiBlackString("  | " + line))
				}
			default:
				fmt.Println(rec.Content)
			}
		}
		return nil
	},
}
