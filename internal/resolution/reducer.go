package resolution

import (
	"strconv"
	"strings"

	"github.com/septivank/meter-resolution-console/internal/anomaly"
	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/config"
	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/septivank/meter-resolution-console/internal/validator"
	"github.com/septivank/meter-resolution-console/tools/timeparser"
)

// Policy configures the reducer
type Policy struct {
	DecreasePolicy string
	FollowUp       config.FollowUpConfig
}

// Reducer holds the transition rules. Reduce has no side effects.
type Reducer struct {
	policy Policy
}

// NewReducer creates a reducer, filling unset template fields with the defaults
func NewReducer(p Policy) *Reducer {
	def := config.DefaultFollowUp()
	if p.FollowUp.Title == "" {
		p.FollowUp.Title = def.Title
	}
	if p.FollowUp.Description == "" {
		p.FollowUp.Description = def.Description
	}
	if p.FollowUp.Priority == "" {
		p.FollowUp.Priority = def.Priority
	}
	if p.FollowUp.DueInDays <= 0 {
		p.FollowUp.DueInDays = def.DueInDays
	}
	if p.FollowUp.SurveyKeyword == "" {
		p.FollowUp.SurveyKeyword = def.SurveyKeyword
	}
	if p.DecreasePolicy == "" {
		p.DecreasePolicy = anomaly.PolicyAllow
	}
	return &Reducer{policy: p}
}

// Reduce applies a to s. Actions that do not apply to the current stage leave
// the state unchanged and return no effect.
func (r *Reducer) Reduce(s State, a Action) (State, Effect) {
	switch a := a.(type) {
	case Start:
		next := State{
			Stage:         StageLoading,
			ReadingID:     a.ReadingID,
			CorrelationID: a.CorrelationID,
			Busy:          true,
		}
		return next, FetchReading{ReadingID: a.ReadingID, CorrelationID: a.CorrelationID}

	case Retry:
		if s.Stage != StageUnavailable {
			return s, nil
		}
		s.Stage = StageLoading
		s.Busy = true
		s.Err = ""
		return s, FetchReading{ReadingID: s.ReadingID, CorrelationID: s.CorrelationID}

	case ReadingLoaded:
		if s.Stage != StageLoading {
			return s, nil
		}
		s.Busy = false
		if a.Reading == nil {
			s.Stage = StageUnavailable
			s.Err = MsgUnableToLoad
			return s, nil
		}
		s.Stage = StageViewing
		s.Err = ""
		s.Reading = a.Reading
		s.Correction = CorrectionForm{
			Previous: a.Reading.PreviousReading,
			Current:  formatReading(a.Reading.CurrentReading),
			Notes:    a.Reading.Notes,
		}
		return s, nil

	case ReadingFailed:
		if s.Stage != StageLoading {
			return s, nil
		}
		s.Stage = StageUnavailable
		s.Busy = false
		s.Err = MsgUnableToLoad
		return s, nil

	case BeginCorrection:
		if s.Stage != StageViewing || s.Busy {
			return s, nil
		}
		s.Stage = StageCorrecting
		s.Err = ""
		return s, nil

	case EditCorrection:
		if s.Stage != StageCorrecting || s.Busy {
			return s, nil
		}
		s.Correction.Current = a.Current
		s.Correction.Notes = a.Notes
		s.Err = ""
		s.Warning = ""
		return s, nil

	case RequestConfirmation:
		if s.Stage != StageCorrecting || s.Busy {
			return s, nil
		}
		current, res := validator.ParseReading("current reading", s.Correction.Current)
		if !res.IsValid {
			s.Err = res.Message
			return s, nil
		}
		warning, err := anomaly.CheckDecrease(r.policy.DecreasePolicy, s.Correction.Previous, current)
		if err != nil {
			s.Err = err.Error()
			return s, nil
		}
		s.Correction.Parsed = current
		s.Warning = warning
		s.Err = ""
		s.Stage = StageConfirmingCorrection
		return s, nil

	case CancelConfirmation:
		if s.Stage != StageConfirmingCorrection {
			return s, nil
		}
		s.Stage = StageCorrecting
		return s, nil

	case Confirm:
		if s.Stage != StageConfirmingCorrection || s.Busy {
			return s, nil
		}
		current, res := validator.ParseReading("current reading", s.Correction.Current)
		if !res.IsValid {
			s.Stage = StageCorrecting
			s.Err = res.Message
			return s, nil
		}
		// The gate is closed before the request goes out.
		s.Stage = StageCorrecting
		s.Busy = true
		s.Err = ""
		return s, CommitCorrection{
			Reading: s.Reading,
			Request: apiclient.CorrectionRequest{
				PreviousReading: s.Correction.Previous,
				CurrentReading:  current,
				Notes:           s.Correction.Notes,
			},
			CorrelationID: s.CorrelationID,
		}

	case CorrectionCommitted:
		if s.Stage != StageCorrecting || !s.Busy {
			return s, nil
		}
		s.Busy = false
		s.Stage = StageClosed
		s.Outcome = OutcomeCorrected
		return s, nil

	case CorrectionFailed:
		if s.Stage != StageCorrecting || !s.Busy {
			return s, nil
		}
		s.Busy = false
		s.Err = apiclient.MessageOr(a.Err, MsgUpdateFailed)
		return s, nil

	case BillOnAverage:
		if (s.Stage != StageViewing && s.Stage != StageCorrecting) || !s.CanBillOnAverage() {
			return s, nil
		}
		connID, _ := s.Reading.ConnectionID()
		s.BillFrom = s.Stage
		s.Stage = StageBillingOnAverage
		s.Busy = true
		s.Err = ""
		return s, SubmitAverageBill{
			Reading: s.Reading,
			Request: apiclient.AverageBillRequest{
				ConnectionID:   connID,
				Consumption:    *s.Reading.Average,
				MeterReadingID: s.Reading.ID,
			},
			CorrelationID: s.CorrelationID,
		}

	case AverageBilled:
		if s.Stage != StageBillingOnAverage {
			return s, nil
		}
		s.Busy = false
		s.Stage = StageCreatingFollowUpTask
		s.Outcome = OutcomeBilledOnAverage
		s.Task = r.newTaskForm(s.Reading, a)
		return s, LoadTaskOptions{}

	case AverageBillFailed:
		if s.Stage != StageBillingOnAverage {
			return s, nil
		}
		s.Busy = false
		s.Stage = s.BillFrom
		s.Err = apiclient.MessageOr(a.Err, MsgBillFailed)
		return s, nil

	case TaskOptionsLoaded:
		if s.Stage != StageCreatingFollowUpTask {
			return s, nil
		}
		s.Task.LoadingOptions = false
		s.Task.Users = a.Users
		s.Task.Types = a.Types
		s.Task = r.autoSelectType(s.Task)
		return s, nil

	case TaskOptionsFailed:
		if s.Stage != StageCreatingFollowUpTask {
			return s, nil
		}
		s.Task.LoadingOptions = false
		s.Err = apiclient.MessageOr(a.Err, MsgTaskOptionsFailed)
		return s, nil

	case EditTask:
		if s.Stage != StageCreatingFollowUpTask || s.Busy {
			return s, nil
		}
		s.Task = applyTaskEdits(s.Task, a)
		if a.TypeID == nil {
			s.Task = r.autoSelectType(s.Task)
		}
		s.Err = ""
		return s, nil

	case SubmitTask:
		if s.Stage != StageCreatingFollowUpTask || s.Busy || !s.Task.CanSubmit() {
			return s, nil
		}
		s.Busy = true
		s.Err = ""
		return s, CreateTask{Reading: s.Reading, Request: s.Task.Request(), CorrelationID: s.CorrelationID}

	case TaskCreated:
		if s.Stage != StageCreatingFollowUpTask || !s.Busy {
			return s, nil
		}
		s.Busy = false
		s.Stage = StageClosed
		s.Outcome = OutcomeTaskCreated
		s.CreatedTask = a.Task
		return s, nil

	case TaskFailed:
		if s.Stage != StageCreatingFollowUpTask || !s.Busy {
			return s, nil
		}
		s.Busy = false
		s.Err = apiclient.MessageOr(a.Err, MsgTaskFailed)
		return s, nil

	case Back:
		if s.Busy {
			return s, nil
		}
		switch s.Stage {
		case StageCorrecting:
			s.Stage = StageViewing
			s.Err = ""
			s.Warning = ""
		case StageConfirmingCorrection:
			s.Stage = StageCorrecting
		}
		return s, nil

	case Dismiss:
		if s.Busy {
			return s, nil
		}
		s.Stage = StageClosed
		return s, nil
	}
	return s, nil
}

func (r *Reducer) newTaskForm(reading *domain.Reading, a AverageBilled) TaskForm {
	tpl := r.policy.FollowUp
	priority, ok := domain.ParsePriority(tpl.Priority)
	if !ok {
		priority = domain.PriorityMedium
	}
	form := TaskForm{
		Title:          tpl.Title,
		Description:    tpl.Description,
		Priority:       priority,
		DueDate:        timeparser.DueIn(a.At, tpl.DueInDays),
		ScheduledAt:    a.At,
		LoadingOptions: true,
	}
	if id, ok := reading.ConnectionID(); ok {
		form.ConnectionID = &id
	}
	if id, ok := reading.MeterID(); ok {
		form.MeterID = &id
	}
	if c := reading.Customer(); c != nil {
		form.CustomerName = c.Name
		form.CustomerAccount = c.AccountNumber
	}
	if conn := reading.Connection(); conn != nil {
		form.SchemeID = refID(conn.Scheme)
		form.ZoneID = refID(conn.Zone)
		form.RouteID = refID(conn.Route)
		form.TariffCategoryID = refID(conn.TariffCategory)
	}
	return form
}

// autoSelectType picks the first type matching the survey keyword when the title
// mentions it and no type was chosen yet.
func (r *Reducer) autoSelectType(f TaskForm) TaskForm {
	keyword := strings.ToLower(r.policy.FollowUp.SurveyKeyword)
	if f.TypeID != 0 || keyword == "" || !strings.Contains(strings.ToLower(f.Title), keyword) {
		return f
	}
	for _, t := range f.Types {
		if strings.Contains(strings.ToLower(t.Name), keyword) {
			f.TypeID = t.ID
			break
		}
	}
	return f
}

func applyTaskEdits(f TaskForm, e EditTask) TaskForm {
	if e.Title != nil {
		f.Title = *e.Title
	}
	if e.Description != nil {
		f.Description = *e.Description
	}
	if e.TypeID != nil {
		f.TypeID = *e.TypeID
	}
	if e.AssignedTo != nil {
		f.AssignedTo = *e.AssignedTo
	}
	if e.Priority != nil {
		f.Priority = *e.Priority
	}
	if e.DueDate != nil {
		f.DueDate = *e.DueDate
	}
	return f
}

func refID(ref *domain.NamedRef) *int64 {
	if ref == nil || ref.ID == 0 {
		return nil
	}
	id := ref.ID
	return &id
}

func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
