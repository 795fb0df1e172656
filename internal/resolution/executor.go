package resolution

import (
	"context"
	"time"

	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/septivank/meter-resolution-console/internal/events"
	"github.com/septivank/meter-resolution-console/internal/logging"
	"github.com/septivank/meter-resolution-console/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// API is the part of the billing API the workflow talks to
type API interface {
	GetAbnormalReading(ctx context.Context, id int64) (*domain.Reading, error)
	UpdateMeterReading(ctx context.Context, id int64, req apiclient.CorrectionRequest) error
	BillOnAverage(ctx context.Context, req apiclient.AverageBillRequest) error
	ListTaskTypes(ctx context.Context) ([]domain.TaskType, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateTaskForConnection(ctx context.Context, req apiclient.CreateTaskRequest) (*domain.Task, error)
}

// Publisher receives resolution events
type Publisher interface {
	Publish(ctx context.Context, e events.Event)
}

// Executor performs effects against the API and turns the outcome into an action
type Executor struct {
	api       API
	publisher Publisher
	session   session.Session
	logger    *zap.Logger
	now       func() time.Time
}

// ExecutorConfig holds executor dependencies. Publisher and Session are optional.
type ExecutorConfig struct {
	API       API
	Publisher Publisher
	Session   session.Session
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewExecutor creates a new executor
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Executor{
		api:       cfg.API,
		publisher: cfg.Publisher,
		session:   cfg.Session,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

// Run performs eff and returns the resulting action. Events are published only
// after the request resolved successfully.
func (e *Executor) Run(ctx context.Context, eff Effect) Action {
	switch eff := eff.(type) {
	case FetchReading:
		logger := logging.WithCorrelationID(e.logger, eff.CorrelationID)
		reading, err := e.api.GetAbnormalReading(ctx, eff.ReadingID)
		if err != nil {
			logger.Warn("failed to load abnormal reading", zap.Int64("reading_id", eff.ReadingID), zap.Error(err))
			return ReadingFailed{Err: err}
		}
		logger.Debug("abnormal reading loaded", zap.Int64("reading_id", eff.ReadingID))
		return ReadingLoaded{Reading: reading}

	case CommitCorrection:
		logger := logging.WithCorrelationID(e.logger, eff.CorrelationID)
		readingID := eff.Reading.ID
		if err := e.api.UpdateMeterReading(ctx, readingID, eff.Request); err != nil {
			logger.Warn("failed to update meter reading", zap.Int64("reading_id", readingID), zap.Error(err))
			return CorrectionFailed{Err: err}
		}
		resolutionsTotal.WithLabelValues(string(events.KindReadingCorrected)).Inc()
		logger.Info("meter reading corrected",
			zap.Int64("reading_id", readingID),
			zap.Float64("previous_reading", eff.Request.PreviousReading),
			zap.Float64("current_reading", eff.Request.CurrentReading),
		)
		ev := e.newEvent(events.KindReadingCorrected, eff.Reading, eff.CorrelationID)
		ev.PreviousReading = &eff.Request.PreviousReading
		ev.CurrentReading = &eff.Request.CurrentReading
		ev.Notes = eff.Request.Notes
		e.publish(ctx, ev)
		return CorrectionCommitted{}

	case SubmitAverageBill:
		logger := logging.WithCorrelationID(e.logger, eff.CorrelationID)
		if err := e.api.BillOnAverage(ctx, eff.Request); err != nil {
			logger.Warn("failed to bill on average", zap.Int64("reading_id", eff.Request.MeterReadingID), zap.Error(err))
			return AverageBillFailed{Err: err}
		}
		at := e.now()
		resolutionsTotal.WithLabelValues(string(events.KindReadingBilledOnAverage)).Inc()
		logger.Info("reading billed on average",
			zap.Int64("reading_id", eff.Request.MeterReadingID),
			zap.Int64("connection_id", eff.Request.ConnectionID),
			zap.Float64("consumption", eff.Request.Consumption),
		)
		ev := e.newEvent(events.KindReadingBilledOnAverage, eff.Reading, eff.CorrelationID)
		ev.Consumption = &eff.Request.Consumption
		ev.OccurredAt = at.UTC()
		e.publish(ctx, ev)
		return AverageBilled{At: at}

	case LoadTaskOptions:
		var users []domain.User
		var types []domain.TaskType
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			users, err = e.api.ListUsers(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			types, err = e.api.ListTaskTypes(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			e.logger.Warn("failed to load task options", zap.Error(err))
			return TaskOptionsFailed{Err: err}
		}
		return TaskOptionsLoaded{Users: users, Types: types}

	case CreateTask:
		logger := logging.WithCorrelationID(e.logger, eff.CorrelationID)
		task, err := e.api.CreateTaskForConnection(ctx, eff.Request)
		if err != nil {
			logger.Warn("failed to create follow-up task", zap.Error(err))
			return TaskFailed{Err: err}
		}
		resolutionsTotal.WithLabelValues(string(events.KindTaskCreated)).Inc()
		ev := e.newEvent(events.KindTaskCreated, eff.Reading, eff.CorrelationID)
		if task != nil {
			taskID := task.ID
			ev.TaskID = &taskID
			logger.Info("follow-up task created", zap.Int64("task_id", taskID))
		}
		e.publish(ctx, ev)
		return TaskCreated{Task: task}
	}
	return nil
}

func (e *Executor) newEvent(kind events.Kind, reading *domain.Reading, correlationID string) events.Event {
	var readingID int64
	if reading != nil {
		readingID = reading.ID
	}
	ev := events.New(kind, readingID, e.now())
	ev.CorrelationID = correlationID
	if id, ok := reading.ConnectionID(); ok {
		ev.ConnectionID = &id
	}
	if id, ok := reading.MeterID(); ok {
		ev.MeterID = &id
	}
	if e.session != nil {
		if user, ok := e.session.CurrentUser(); ok {
			ev.Actor = user.Name
		}
	}
	return ev
}

func (e *Executor) publish(ctx context.Context, ev events.Event) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(ctx, ev)
}
