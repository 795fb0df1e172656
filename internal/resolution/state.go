package resolution

import (
	"strconv"
	"time"

	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/septivank/meter-resolution-console/internal/validator"
)

// Stage is the single place the workflow is in. Exactly one panel is shown per stage.
type Stage int

const (
	StageLoading Stage = iota
	StageUnavailable
	StageViewing
	StageCorrecting
	StageConfirmingCorrection
	StageBillingOnAverage
	StageCreatingFollowUpTask
	StageClosed
)

func (s Stage) String() string {
	switch s {
	case StageLoading:
		return "loading"
	case StageUnavailable:
		return "unavailable"
	case StageViewing:
		return "viewing"
	case StageCorrecting:
		return "correcting"
	case StageConfirmingCorrection:
		return "confirming-correction"
	case StageBillingOnAverage:
		return "billing-on-average"
	case StageCreatingFollowUpTask:
		return "creating-follow-up-task"
	case StageClosed:
		return "closed"
	}
	return "stage(" + strconv.Itoa(int(s)) + ")"
}

// Outcome records which remedy the cycle committed
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCorrected
	OutcomeBilledOnAverage
	OutcomeTaskCreated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrected:
		return "corrected"
	case OutcomeBilledOnAverage:
		return "billed on average"
	case OutcomeTaskCreated:
		return "billed on average, follow-up task created"
	}
	return "unresolved"
}

// Fallback messages shown when the server gives none
const (
	MsgUnableToLoad      = "Unable to load reading details"
	MsgUpdateFailed      = "Failed to update reading"
	MsgBillFailed        = "Failed to bill on average"
	MsgTaskFailed        = "Failed to create task"
	MsgTaskOptionsFailed = "Failed to load users and task types"
)

// AutoBillingNotice is disclosed by the confirmation gate
const AutoBillingNotice = "Saving the corrected reading triggers automatic billing. This cannot be undone from the console."

// CorrectionForm is the correction path input. Current is kept as typed so a
// cancelled confirmation hands it back untouched. Parsed is the value the
// confirmation gate shows and is only set while confirming.
type CorrectionForm struct {
	Previous float64
	Current  string
	Parsed   float64
	Notes    string
}

// TaskForm is the follow-up task being prepared after billing on average
type TaskForm struct {
	Title       string
	Description string
	TypeID      int64
	Priority    domain.Priority
	DueDate     time.Time
	ScheduledAt time.Time
	AssignedTo  int64

	ConnectionID     *int64
	MeterID          *int64
	CustomerName     string
	CustomerAccount  string
	SchemeID         *int64
	ZoneID           *int64
	RouteID          *int64
	TariffCategoryID *int64

	Users          []domain.User
	Types          []domain.TaskType
	LoadingOptions bool
}

// CanSubmit reports whether title, task type and assignee are all set
func (f TaskForm) CanSubmit() bool {
	return f.Check().IsValid
}

// Check returns the first missing required field
func (f TaskForm) Check() validator.ValidationResult {
	return validator.ValidateTask(validator.TaskFields{
		Title:      f.Title,
		TypeID:     f.TypeID,
		AssignedTo: f.AssignedTo,
	})
}

// Request builds the task creation body
func (f TaskForm) Request() apiclient.CreateTaskRequest {
	return apiclient.CreateTaskRequest{
		TypeID:                  f.TypeID,
		Title:                   f.Title,
		Description:             f.Description,
		Priority:                f.Priority,
		DueDate:                 f.DueDate,
		ScheduledAt:             f.ScheduledAt,
		AssignedTo:              f.AssignedTo,
		RelatedConnectionID:     f.ConnectionID,
		RelatedSchemeID:         f.SchemeID,
		RelatedZoneID:           f.ZoneID,
		RelatedRouteID:          f.RouteID,
		RelatedTariffCategoryID: f.TariffCategoryID,
	}
}

// TypeName returns the selected type's name or ""
func (f TaskForm) TypeName() string {
	for _, t := range f.Types {
		if t.ID == f.TypeID {
			return t.Name
		}
	}
	return ""
}

// AssigneeName returns the selected user's name or ""
func (f TaskForm) AssigneeName() string {
	for _, u := range f.Users {
		if u.ID == f.AssignedTo {
			return u.Name
		}
	}
	return ""
}

// State is the whole workflow state. It is a value; transitions return a new one.
type State struct {
	Stage         Stage
	ReadingID     int64
	CorrelationID string
	Reading       *domain.Reading
	Correction    CorrectionForm
	Task          TaskForm
	// BillFrom is the stage billing on average was started from. A failed bill
	// returns there.
	BillFrom Stage
	// Busy is the loading flag shared by both remedies.
	Busy        bool
	Err         string
	Warning     string
	Outcome     Outcome
	CreatedTask *domain.Task
}

// CanBillOnAverage reports whether the billing remedy is available
func (s State) CanBillOnAverage() bool {
	if s.Busy || !s.Reading.HasAverage() {
		return false
	}
	_, ok := s.Reading.ConnectionID()
	return ok
}

// Terminal reports whether the cycle is over
func (s State) Terminal() bool {
	return s.Stage == StageClosed
}
