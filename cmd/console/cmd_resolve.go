package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/septivank/meter-resolution-console/internal/resolution"
	"github.com/septivank/meter-resolution-console/internal/session"
	"github.com/septivank/meter-resolution-console/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <reading-id>",
		Short: "Open the interactive resolution wizard for a reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseReadingID(args[0])
			if err != nil {
				return err
			}
			return withConsole(cmd.Context(), runOptions{Interactive: true}, func(ctx context.Context, c *console) error {
				if _, err := session.Require(c.Session); err != nil {
					return err
				}

				correlationID := uuid.NewString()
				c.Logger.Info("opening resolution wizard",
					zap.Int64("reading_id", id),
					zap.String("correlation_id", correlationID))

				model := tui.New(tui.Config{
					Context:       ctx,
					ReadingID:     id,
					CorrelationID: correlationID,
					Reducer:       c.Reducer,
					Effects:       c.Executor,
					Detector:      c.Detector,
				})
				final, err := tea.NewProgram(model,
					tea.WithAltScreen(),
					tea.WithContext(ctx),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				).Run()
				if err != nil {
					return fmt.Errorf("wizard failed: %w", err)
				}

				fmt.Fprintln(cmd.OutOrStdout(), summarize(id, final.(tui.Model).State()))
				return nil
			})
		},
	}
}

func summarize(id int64, s resolution.State) string {
	switch s.Outcome {
	case resolution.OutcomeCorrected:
		return fmt.Sprintf("Reading #%d corrected. %s", id, resolution.AutoBillingNotice)
	case resolution.OutcomeBilledOnAverage:
		return fmt.Sprintf("Reading #%d billed on average; no follow-up task was created.", id)
	case resolution.OutcomeTaskCreated:
		if s.CreatedTask != nil {
			return fmt.Sprintf("Reading #%d billed on average; follow-up task #%d created.", id, s.CreatedTask.ID)
		}
		return fmt.Sprintf("Reading #%d billed on average; follow-up task created.", id)
	}
	return fmt.Sprintf("Reading #%d left unresolved.", id)
}
