package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/septivank/meter-resolution-console/internal/anomaly"
	"github.com/septivank/meter-resolution-console/internal/db"
	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/septivank/meter-resolution-console/internal/logging"
	"github.com/septivank/meter-resolution-console/internal/repository"
	"github.com/septivank/meter-resolution-console/internal/resolution"
	"github.com/septivank/meter-resolution-console/internal/session"
	"go.uber.org/zap"
)

// ErrCorrectionCancelled is returned when the confirmation callback declines
var ErrCorrectionCancelled = errors.New("correction cancelled")

// ErrTaskIncomplete is returned when billing succeeded but the follow-up task lacked a
// required field
var ErrTaskIncomplete = errors.New("billed on average but no task was created")

// ErrBillingUnavailable is returned when a reading has no moving average or no connection
var ErrBillingUnavailable = errors.New("bill on average is unavailable: the reading has no moving average or no active connection")

// Inspection is a loaded reading with its deviation hint
type Inspection struct {
	Reading   *domain.Reading
	Deviation anomaly.Deviation
}

// CorrectInput drives a non-interactive correction. Nil Notes keeps the reading's notes.
// Confirm is asked before the request is sent; nil confirms.
type CorrectInput struct {
	ReadingID int64
	Current   string
	Notes     *string
	Confirm   func(resolution.State) bool
}

// TaskInput overrides the pre-populated follow-up task. Nil fields keep the defaults.
type TaskInput struct {
	Title       *string
	Description *string
	TypeID      *int64
	AssignedTo  *int64
	Priority    *domain.Priority
	DueDate     *time.Time
}

// BillInput drives a non-interactive bill on average. Without Task no follow-up task
// is created.
type BillInput struct {
	ReadingID int64
	Task      *TaskInput
}

// ResolverService runs whole resolution cycles for the command line
type ResolverService struct {
	reducer  *resolution.Reducer
	effects  resolution.EffectRunner
	session  session.Session
	journal  repository.Journal
	detector *anomaly.Detector
	logger   *zap.Logger
}

// NewResolverService creates a new resolver service
func NewResolverService(
	reducer *resolution.Reducer,
	effects resolution.EffectRunner,
	sess session.Session,
	journal repository.Journal,
	detector *anomaly.Detector,
	logger *zap.Logger,
) *ResolverService {
	if journal == nil {
		journal = repository.NopJournal{}
	}
	return &ResolverService{
		reducer:  reducer,
		effects:  effects,
		session:  sess,
		journal:  journal,
		detector: detector,
		logger:   logger,
	}
}

// start opens a new cycle for readingID and fails when the reading cannot be loaded
func (s *ResolverService) start(ctx context.Context, readingID int64) (*resolution.Runner, *zap.Logger, error) {
	if _, err := session.Require(s.session); err != nil {
		return nil, nil, err
	}

	correlationID := uuid.NewString()
	logger := logging.WithCorrelationID(s.logger, correlationID).With(zap.Int64("reading_id", readingID))

	runner := resolution.NewRunner(s.reducer, s.effects)
	state := runner.Dispatch(ctx, resolution.Start{ReadingID: readingID, CorrelationID: correlationID})
	if state.Stage != resolution.StageViewing {
		return nil, nil, fmt.Errorf("reading %d: %s", readingID, state.Err)
	}
	return runner, logger, nil
}

// Inspect loads a reading for display
func (s *ResolverService) Inspect(ctx context.Context, readingID int64) (*Inspection, error) {
	runner, _, err := s.start(ctx, readingID)
	if err != nil {
		return nil, err
	}
	reading := runner.State().Reading
	return &Inspection{Reading: reading, Deviation: s.detector.Describe(reading)}, nil
}

// Correct replaces the current reading value and confirms in one go
func (s *ResolverService) Correct(ctx context.Context, in CorrectInput) (resolution.State, error) {
	runner, logger, err := s.start(ctx, in.ReadingID)
	if err != nil {
		return resolution.State{}, err
	}

	state := runner.Dispatch(ctx, resolution.BeginCorrection{})
	notes := state.Correction.Notes
	if in.Notes != nil {
		notes = *in.Notes
	}
	runner.Dispatch(ctx, resolution.EditCorrection{Current: in.Current, Notes: notes})

	state = runner.Dispatch(ctx, resolution.RequestConfirmation{})
	if state.Stage != resolution.StageConfirmingCorrection {
		return state, fmt.Errorf("invalid correction: %s", state.Err)
	}
	if state.Warning != "" {
		logger.Warn("correction lowers the reading", zap.String("warning", state.Warning))
	}
	if in.Confirm != nil && !in.Confirm(state) {
		runner.Dispatch(ctx, resolution.CancelConfirmation{})
		return runner.Dispatch(ctx, resolution.Back{}), ErrCorrectionCancelled
	}

	state = runner.Dispatch(ctx, resolution.Confirm{})
	if state.Outcome != resolution.OutcomeCorrected {
		logger.Error("correction failed", zap.String("error", state.Err))
		return state, errors.New(state.Err)
	}

	logger.Info("reading corrected", zap.String("current_reading", in.Current))
	return state, nil
}

// BillOnAverage bills the reading on its moving average and optionally files the
// follow-up inspection task
func (s *ResolverService) BillOnAverage(ctx context.Context, in BillInput) (resolution.State, error) {
	runner, logger, err := s.start(ctx, in.ReadingID)
	if err != nil {
		return resolution.State{}, err
	}
	if !runner.State().CanBillOnAverage() {
		return runner.State(), ErrBillingUnavailable
	}

	state := runner.Dispatch(ctx, resolution.BillOnAverage{})
	if state.Stage != resolution.StageCreatingFollowUpTask {
		logger.Error("bill on average failed", zap.String("error", state.Err))
		return state, errors.New(state.Err)
	}
	logger.Info("billed on average")

	if in.Task == nil {
		return runner.Dispatch(ctx, resolution.Dismiss{}), nil
	}

	t := in.Task
	state = runner.Dispatch(ctx, resolution.EditTask{
		Title:       t.Title,
		Description: t.Description,
		TypeID:      t.TypeID,
		AssignedTo:  t.AssignedTo,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
	})
	if check := state.Task.Check(); !check.IsValid {
		state = runner.Dispatch(ctx, resolution.Dismiss{})
		return state, fmt.Errorf("%w: %s", ErrTaskIncomplete, check.Message)
	}

	state = runner.Dispatch(ctx, resolution.SubmitTask{})
	if state.Outcome != resolution.OutcomeTaskCreated {
		msg := errMessage(state.Err, resolution.MsgTaskFailed)
		logger.Error("follow-up task failed", zap.String("error", msg))
		state = runner.Dispatch(ctx, resolution.Dismiss{})
		return state, fmt.Errorf("billed on average but task creation failed: %s", msg)
	}

	logger.Info("follow-up task created", zap.Int64("task_id", state.CreatedTask.ID))
	return state, nil
}

// History returns the journal entries recorded for a reading
func (s *ResolverService) History(ctx context.Context, readingID int64, limit int) ([]db.JournalEntry, error) {
	return s.journal.History(ctx, readingID, limit)
}

func errMessage(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
