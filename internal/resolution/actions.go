package resolution

import (
	"time"

	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/domain"
)

// Action is an operator input or the result of an effect
type Action interface {
	isAction()
}

type (
	// Start opens the workflow for a reading
	Start struct {
		ReadingID     int64
		CorrelationID string
	}
	ReadingLoaded struct{ Reading *domain.Reading }
	ReadingFailed struct{ Err error }
	Retry         struct{}

	BeginCorrection struct{}
	// EditCorrection replaces the editable correction fields
	EditCorrection struct {
		Current string
		Notes   string
	}
	RequestConfirmation struct{}
	CancelConfirmation  struct{}
	Confirm             struct{}
	CorrectionCommitted struct{}
	CorrectionFailed    struct{ Err error }

	BillOnAverage struct{}
	// AverageBilled carries the time the bill was accepted; due dates derive from it.
	AverageBilled     struct{ At time.Time }
	AverageBillFailed struct{ Err error }

	TaskOptionsLoaded struct {
		Users []domain.User
		Types []domain.TaskType
	}
	TaskOptionsFailed struct{ Err error }
	// EditTask changes the non-nil fields
	EditTask struct {
		Title       *string
		Description *string
		TypeID      *int64
		AssignedTo  *int64
		Priority    *domain.Priority
		DueDate     *time.Time
	}
	SubmitTask  struct{}
	TaskCreated struct{ Task *domain.Task }
	TaskFailed  struct{ Err error }

	Back    struct{}
	Dismiss struct{}
)

func (Start) isAction()               {}
func (ReadingLoaded) isAction()       {}
func (ReadingFailed) isAction()       {}
func (Retry) isAction()               {}
func (BeginCorrection) isAction()     {}
func (EditCorrection) isAction()      {}
func (RequestConfirmation) isAction() {}
func (CancelConfirmation) isAction()  {}
func (Confirm) isAction()             {}
func (CorrectionCommitted) isAction() {}
func (CorrectionFailed) isAction()    {}
func (BillOnAverage) isAction()       {}
func (AverageBilled) isAction()       {}
func (AverageBillFailed) isAction()   {}
func (TaskOptionsLoaded) isAction()   {}
func (TaskOptionsFailed) isAction()   {}
func (EditTask) isAction()            {}
func (SubmitTask) isAction()          {}
func (TaskCreated) isAction()         {}
func (TaskFailed) isAction()          {}
func (Back) isAction()                {}
func (Dismiss) isAction()             {}

// Effect is a request the reducer wants performed. A nil Effect means nothing to do.
type Effect interface {
	isEffect()
}

type (
	FetchReading struct {
		ReadingID     int64
		CorrelationID string
	}
	CommitCorrection struct {
		Reading       *domain.Reading
		Request       apiclient.CorrectionRequest
		CorrelationID string
	}
	SubmitAverageBill struct {
		Reading       *domain.Reading
		Request       apiclient.AverageBillRequest
		CorrelationID string
	}
	LoadTaskOptions struct{}
	CreateTask      struct {
		Reading       *domain.Reading
		Request       apiclient.CreateTaskRequest
		CorrelationID string
	}
)

func (FetchReading) isEffect()      {}
func (CommitCorrection) isEffect()  {}
func (SubmitAverageBill) isEffect() {}
func (LoadTaskOptions) isEffect()   {}
func (CreateTask) isEffect()        {}

// Helpers for building EditTask
func StringField(v string) *string { return &v }

func IDField(v int64) *int64 { return &v }

func PriorityField(v domain.Priority) *domain.Priority { return &v }

func TimeField(v time.Time) *time.Time { return &v }
