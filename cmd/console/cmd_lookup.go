package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/septivank/meter-resolution-console/internal/repository"
	"github.com/septivank/meter-resolution-console/internal/session"
	"github.com/septivank/meter-resolution-console/tools/timeparser"
	"github.com/spf13/cobra"
)

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task reference data",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "types",
		Short: "List task types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), runOptions{}, func(ctx context.Context, c *console) error {
				if _, err := session.Require(c.Session); err != nil {
					return err
				}
				types, err := c.Client.ListTaskTypes(ctx)
				if err != nil {
					return err
				}
				for _, t := range types {
					fmt.Fprintf(cmd.OutOrStdout(), "%-6d%s\n", t.ID, t.Name)
				}
				return nil
			})
		},
	})
	return cmd
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Assignable users",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users that tasks can be assigned to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), runOptions{}, func(ctx context.Context, c *console) error {
				if _, err := session.Require(c.Session); err != nil {
					return err
				}
				users, err := c.Client.ListUsers(ctx)
				if err != nil {
					return err
				}
				for _, u := range users {
					fmt.Fprintf(cmd.OutOrStdout(), "%-6d%-24s%s\n", u.ID, u.Name, u.Role)
				}
				return nil
			})
		},
	})
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <reading-id>",
		Short: "Show the journal of resolutions recorded for a reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReadingID(args[0])
			if err != nil {
				return err
			}
			return withConsole(cmd.Context(), runOptions{}, func(ctx context.Context, c *console) error {
				entries, err := c.Resolver.History(ctx, id, limit)
				if errors.Is(err, repository.ErrJournalDisabled) {
					return fmt.Errorf("%w: set DATABASE_URL to keep a resolution journal", err)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintf(out, "No resolutions recorded for reading #%d\n", id)
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s  %-26s %-18s %s\n",
						e.OccurredAt.Local().Format(timeparser.DisplayLayout), e.Kind, deref(e.Actor), entryDetail(e.TaskID, e.CurrentReading, e.Consumption))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries")
	return cmd
}

func entryDetail(taskID *int64, current, consumption *float64) string {
	switch {
	case taskID != nil:
		return "task #" + strconv.FormatInt(*taskID, 10)
	case current != nil:
		return "current " + strconv.FormatFloat(*current, 'f', -1, 64)
	case consumption != nil:
		return "consumption " + strconv.FormatFloat(*consumption, 'f', -1, 64)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
