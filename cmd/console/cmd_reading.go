package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/septivank/meter-resolution-console/internal/resolution"
	"github.com/septivank/meter-resolution-console/internal/service"
	"github.com/septivank/meter-resolution-console/internal/tui"
	"github.com/septivank/meter-resolution-console/tools/timeparser"
	"github.com/spf13/cobra"
)

func newReadingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reading",
		Short: "Inspect and resolve a single abnormal reading",
	}
	cmd.AddCommand(newReadingShowCmd(), newReadingCorrectCmd(), newReadingBillCmd())
	return cmd
}

func newReadingShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <reading-id>",
		Short: "Show an abnormal reading with its connection and customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReadingID(args[0])
			if err != nil {
				return err
			}
			return withConsole(cmd.Context(), runOptions{}, func(ctx context.Context, c *console) error {
				inspection, err := c.Resolver.Inspect(ctx, id)
				if err != nil {
					return err
				}
				printRows(cmd.OutOrStdout(), tui.DetailRows(inspection.Reading, c.Detector))
				return nil
			})
		},
	}
}

func newReadingCorrectCmd() *cobra.Command {
	var (
		current string
		notes   string
		yes     bool
	)
	cmd := &cobra.Command{
		Use:   "correct <reading-id>",
		Short: "Replace the current reading value",
		Long: `Replaces the current value of an abnormal reading. The previous reading is
resent unchanged. Billing for the connection runs automatically afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReadingID(args[0])
			if err != nil {
				return err
			}
			in := service.CorrectInput{ReadingID: id, Current: current}
			if cmd.Flags().Changed("notes") {
				in.Notes = &notes
			}
			if !yes {
				in.Confirm = func(s resolution.State) bool {
					return confirm(cmd, s)
				}
			}
			return withConsole(cmd.Context(), runOptions{}, func(ctx context.Context, c *console) error {
				state, err := c.Resolver.Correct(ctx, in)
				if state.Warning != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", state.Warning)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reading #%d corrected to %s. %s\n", id, formatReading(state.Correction.Parsed), resolution.AutoBillingNotice)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&current, "current", "", "corrected current reading")
	cmd.Flags().StringVar(&notes, "notes", "", "correction notes (default keeps the reading's notes)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("current")
	return cmd
}

func newReadingBillCmd() *cobra.Command {
	var (
		noTask      bool
		title       string
		description string
		typeID      int64
		assignee    int64
		priority    string
		due         string
	)
	cmd := &cobra.Command{
		Use:   "bill-average <reading-id>",
		Short: "Bill the connection on its moving average",
		Long: `Bills the reading's connection on the moving average consumption, then creates
a follow-up inspection task from the configured template. When the title mentions
the survey keyword and --type is not given, the matching task type is picked.
When the task still lacks a type or an assignee it is not submitted and the
available choices are listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReadingID(args[0])
			if err != nil {
				return err
			}
			in := service.BillInput{ReadingID: id}

			flags := cmd.Flags()
			if !noTask {
				task := &service.TaskInput{}
				if flags.Changed("title") {
					task.Title = &title
				}
				if flags.Changed("description") {
					task.Description = &description
				}
				if flags.Changed("type") {
					task.TypeID = &typeID
				}
				if flags.Changed("assignee") {
					task.AssignedTo = &assignee
				}
				if flags.Changed("priority") {
					p, ok := domain.ParsePriority(priority)
					if !ok {
						return fmt.Errorf("invalid priority %q: use LOW, MEDIUM, HIGH or CRITICAL", priority)
					}
					task.Priority = &p
				}
				if flags.Changed("due") {
					d, err := timeparser.ParseDueDate(due, time.Now())
					if err != nil {
						return err
					}
					task.DueDate = &d
				}
				in.Task = task
			}

			return withConsole(cmd.Context(), runOptions{}, func(ctx context.Context, c *console) error {
				state, err := c.Resolver.BillOnAverage(ctx, in)
				out := cmd.OutOrStdout()
				if state.Outcome == resolution.OutcomeBilledOnAverage || state.Outcome == resolution.OutcomeTaskCreated {
					fmt.Fprintf(out, "Reading #%d billed on average.\n", id)
				}
				if errors.Is(err, service.ErrTaskIncomplete) {
					printTaskChoices(out, state.Task)
					return err
				}
				if err != nil {
					return err
				}
				if t := state.CreatedTask; t != nil {
					fmt.Fprintf(out, "Follow-up task #%d %q created.\n", t.ID, t.Title)
				}
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&noTask, "no-task", false, "bill without creating the follow-up task")
	flags.StringVar(&title, "title", "", "task title")
	flags.StringVar(&description, "description", "", "task description")
	flags.Int64Var(&typeID, "type", 0, "task type id")
	flags.Int64Var(&assignee, "assignee", 0, "assignee user id")
	flags.StringVar(&priority, "priority", "", "task priority")
	flags.StringVar(&due, "due", "", "due date: YYYY-MM-DD, DD/MM/YYYY or +Nd")
	return cmd
}

// confirm asks the operator to approve the correction on stdin
func confirm(cmd *cobra.Command, s resolution.State) bool {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "Replace current reading with %s (previous %s)?\n", formatReading(s.Correction.Parsed), formatReading(s.Correction.Previous))
	fmt.Fprintln(w, resolution.AutoBillingNotice)
	fmt.Fprint(w, "Confirm [y/N]: ")
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func printTaskChoices(w io.Writer, form resolution.TaskForm) {
	if len(form.Types) > 0 {
		fmt.Fprintln(w, "Task types (--type):")
		for _, t := range form.Types {
			fmt.Fprintf(w, "  %-6d%s\n", t.ID, t.Name)
		}
	}
	if len(form.Users) > 0 {
		fmt.Fprintln(w, "Assignees (--assignee):")
		for _, u := range form.Users {
			fmt.Fprintf(w, "  %-6d%s\n", u.ID, u.Name)
		}
	}
}

func printRows(w io.Writer, rows []tui.Row) {
	for _, row := range rows {
		fmt.Fprintf(w, "%-18s%s\n", row.Label, row.Value)
	}
}
