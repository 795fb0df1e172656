package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "console",
		Short: "Resolve abnormal meter readings against the water billing API",
		Long: `console works through abnormal meter readings flagged by the billing system.

A reading is resolved either by correcting its current value, which lets billing
run automatically, or by billing the connection on its moving average and filing
a follow-up inspection task.

Configuration comes from the environment (API_BASE_URL is required) and an
optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newReadingCmd(),
		newResolveCmd(),
		newTasksCmd(),
		newUsersCmd(),
		newHistoryCmd(),
		newEventsCmd(),
	)
	return root
}

func parseReadingID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid reading id %q", raw)
	}
	return id, nil
}
