// Package tui is the interactive resolution wizard. It renders one panel per
// workflow stage and drives the resolution reducer asynchronously.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/septivank/meter-resolution-console/internal/anomaly"
	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/septivank/meter-resolution-console/internal/resolution"
	"github.com/septivank/meter-resolution-console/tools/timeparser"
)

// actionMsg carries the result of an effect back into Update
type actionMsg struct {
	action resolution.Action
}

type correctionField int

const (
	fieldCurrent correctionField = iota
	fieldNotes
)

type taskField int

const (
	fieldTitle taskField = iota
	fieldType
	fieldAssignee
	fieldPriority
	fieldDue
	taskFieldCount
)

// Config wires the wizard
type Config struct {
	Context       context.Context
	ReadingID     int64
	CorrelationID string
	Reducer       *resolution.Reducer
	Effects       resolution.EffectRunner
	Detector      *anomaly.Detector
	Now           func() time.Time
}

// Model is the bubbletea model of the wizard
type Model struct {
	ctx      context.Context
	reducer  *resolution.Reducer
	effects  resolution.EffectRunner
	detector *anomaly.Detector
	now      func() time.Time

	state   resolution.State
	pending resolution.Effect

	spinner spinner.Model
	current textinput.Model
	notes   textinput.Model
	title   textinput.Model
	due     textinput.Model

	correctionFocus correctionField
	taskFocus       taskField
	inputErr        string

	width    int
	quitting bool
}

// New creates the wizard already in the Loading stage
func New(cfg Config) Model {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentSecondary)

	m := Model{
		ctx:      cfg.Context,
		reducer:  cfg.Reducer,
		effects:  cfg.Effects,
		detector: cfg.Detector,
		now:      cfg.Now,
		spinner:  sp,
		current:  newInput("current reading", 32),
		notes:    newInput("optional", 256),
		title:    newInput("task title", 120),
		due:      newInput("YYYY-MM-DD, DD/MM/YYYY or +7d", 32),
	}
	m.state, m.pending = m.reducer.Reduce(resolution.State{}, resolution.Start{
		ReadingID:     cfg.ReadingID,
		CorrelationID: cfg.CorrelationID,
	})
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	return ti
}

// State returns the workflow state, used by the caller after the program exits
func (m Model) State() resolution.State {
	return m.state
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.pending != nil {
		cmds = append(cmds, m.run(m.pending))
	}
	return tea.Batch(cmds...)
}

func (m Model) run(eff resolution.Effect) tea.Cmd {
	ctx, effects := m.ctx, m.effects
	return func() tea.Msg {
		return actionMsg{action: effects.Run(ctx, eff)}
	}
}

// dispatch reduces a and returns the command for the resulting effect
func (m *Model) dispatch(a resolution.Action) tea.Cmd {
	prev := m.state.Stage
	next, eff := m.reducer.Reduce(m.state, a)
	m.state = next
	if next.Stage != prev {
		m.enterStage(prev, next.Stage)
	}
	if eff == nil {
		return nil
	}
	return m.run(eff)
}

func (m *Model) enterStage(from, to resolution.Stage) {
	m.inputErr = ""
	switch to {
	case resolution.StageCorrecting:
		if from == resolution.StageViewing {
			m.current.SetValue(m.state.Correction.Current)
			m.notes.SetValue(m.state.Correction.Notes)
			m.focusCorrection(fieldCurrent)
		}
	case resolution.StageCreatingFollowUpTask:
		m.title.SetValue(m.state.Task.Title)
		if !m.state.Task.DueDate.IsZero() {
			m.due.SetValue(m.state.Task.DueDate.Format("2006-01-02"))
		}
		m.focusTask(fieldTitle)
	}
}

func (m *Model) focusCorrection(f correctionField) {
	m.correctionFocus = f
	m.current.Blur()
	m.notes.Blur()
	if f == fieldCurrent {
		m.current.Focus()
	} else {
		m.notes.Focus()
	}
}

func (m *Model) focusTask(f taskField) {
	m.taskFocus = f
	m.title.Blur()
	m.due.Blur()
	switch f {
	case fieldTitle:
		m.title.Focus()
	case fieldDue:
		m.due.Focus()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case actionMsg:
		// Responses arriving after quit are dropped.
		if m.quitting {
			return m, nil
		}
		cmd := m.dispatch(msg.action)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.state.Stage {
	case resolution.StageLoading, resolution.StageBillingOnAverage:
		if key == "q" {
			m.quitting = true
			return m, tea.Quit
		}

	case resolution.StageUnavailable:
		switch key {
		case "r":
			return m, m.dispatch(resolution.Retry{})
		case "q", "esc":
			m.dispatch(resolution.Dismiss{})
			m.quitting = true
			return m, tea.Quit
		}

	case resolution.StageViewing:
		switch key {
		case "c":
			return m, m.dispatch(resolution.BeginCorrection{})
		case "b":
			return m, m.dispatch(resolution.BillOnAverage{})
		case "q", "esc":
			m.dispatch(resolution.Dismiss{})
			m.quitting = true
			return m, tea.Quit
		}

	case resolution.StageCorrecting:
		return m.updateCorrecting(msg)

	case resolution.StageConfirmingCorrection:
		switch key {
		case "enter", "y":
			return m, m.dispatch(resolution.Confirm{})
		case "esc", "n":
			return m, m.dispatch(resolution.CancelConfirmation{})
		}

	case resolution.StageCreatingFollowUpTask:
		return m.updateTask(msg)

	case resolution.StageClosed:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateCorrecting(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state.Busy {
		return m, nil
	}
	switch msg.String() {
	case "enter":
		return m, m.dispatch(resolution.RequestConfirmation{})
	case "esc":
		return m, m.dispatch(resolution.Back{})
	case "tab", "shift+tab":
		if m.correctionFocus == fieldCurrent {
			m.focusCorrection(fieldNotes)
		} else {
			m.focusCorrection(fieldCurrent)
		}
		return m, nil
	case "ctrl+b":
		return m, m.dispatch(resolution.BillOnAverage{})
	}

	var cmd tea.Cmd
	if m.correctionFocus == fieldCurrent {
		m.current, cmd = m.current.Update(msg)
	} else {
		m.notes, cmd = m.notes.Update(msg)
	}
	m.dispatch(resolution.EditCorrection{Current: m.current.Value(), Notes: m.notes.Value()})
	return m, cmd
}

func (m Model) updateTask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state.Busy {
		return m, nil
	}
	key := msg.String()
	switch key {
	case "esc":
		m.dispatch(resolution.Dismiss{})
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.focusTask((m.taskFocus + 1) % taskFieldCount)
		return m, nil
	case "shift+tab":
		m.focusTask((m.taskFocus + taskFieldCount - 1) % taskFieldCount)
		return m, nil
	case "enter":
		due, err := timeparser.ParseDueDate(m.due.Value(), m.now())
		if err != nil {
			m.inputErr = err.Error()
			return m, nil
		}
		m.inputErr = ""
		m.dispatch(resolution.EditTask{DueDate: resolution.TimeField(due)})
		return m, m.dispatch(resolution.SubmitTask{})
	}

	switch m.taskFocus {
	case fieldTitle:
		var cmd tea.Cmd
		m.title, cmd = m.title.Update(msg)
		m.dispatch(resolution.EditTask{Title: resolution.StringField(m.title.Value())})
		return m, cmd
	case fieldDue:
		var cmd tea.Cmd
		m.due, cmd = m.due.Update(msg)
		return m, cmd
	case fieldType, fieldAssignee, fieldPriority:
		step := 0
		switch key {
		case "right", "l", " ":
			step = 1
		case "left", "h":
			step = -1
		}
		if step != 0 {
			return m, m.dispatch(m.cycle(step))
		}
	}
	return m, nil
}

// cycle moves the focused selection field by step
func (m Model) cycle(step int) resolution.EditTask {
	form := m.state.Task
	switch m.taskFocus {
	case fieldType:
		ids := make([]int64, len(form.Types))
		for i, t := range form.Types {
			ids[i] = t.ID
		}
		if id, ok := nextID(ids, form.TypeID, step); ok {
			return resolution.EditTask{TypeID: resolution.IDField(id)}
		}
	case fieldAssignee:
		ids := make([]int64, len(form.Users))
		for i, u := range form.Users {
			ids[i] = u.ID
		}
		if id, ok := nextID(ids, form.AssignedTo, step); ok {
			return resolution.EditTask{AssignedTo: resolution.IDField(id)}
		}
	case fieldPriority:
		idx := 0
		for i, p := range domain.Priorities {
			if p == form.Priority {
				idx = i
			}
		}
		n := len(domain.Priorities)
		return resolution.EditTask{Priority: resolution.PriorityField(domain.Priorities[(idx+step+n)%n])}
	}
	return resolution.EditTask{}
}

func nextID(ids []int64, current int64, step int) (int64, bool) {
	if len(ids) == 0 {
		return 0, false
	}
	idx := -1
	for i, id := range ids {
		if id == current {
			idx = i
		}
	}
	if idx == -1 {
		if step > 0 {
			return ids[0], true
		}
		return ids[len(ids)-1], true
	}
	n := len(ids)
	return ids[(idx+step+n)%n], true
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Abnormal reading #%d", m.state.ReadingID)))
	b.WriteString(subHeaderStyle.Render(m.state.Stage.String()))
	b.WriteString("\n\n")

	var title, body, help string
	switch m.state.Stage {
	case resolution.StageLoading:
		title, body, help = "Loading", m.spinner.View()+" fetching reading details", "q quit"
	case resolution.StageUnavailable:
		title, body, help = "Unavailable", errorStyle.Render(m.state.Err), "r retry · q quit"
	case resolution.StageViewing:
		title, body, help = "Reading", m.viewDetails(), m.viewingHelp()
	case resolution.StageCorrecting:
		title, body, help = "Correct reading", m.viewCorrection(), "enter save · tab next field · ctrl+b bill on average · esc back"
	case resolution.StageConfirmingCorrection:
		title, body, help = "Confirm correction", m.viewConfirmation(), "enter/y confirm · esc/n cancel"
	case resolution.StageBillingOnAverage:
		title, body, help = "Bill on average", m.spinner.View()+" submitting average bill", ""
	case resolution.StageCreatingFollowUpTask:
		title, body, help = "Follow-up inspection task", m.viewTask(), "tab next field · ←/→ change selection · enter create · esc skip"
	case resolution.StageClosed:
		title, body, help = "Done", m.viewOutcome(), "any key to exit"
	}

	b.WriteString(renderPanel(title, body, m.width))
	b.WriteString("\n")
	if m.state.Stage != resolution.StageUnavailable && m.state.Err != "" {
		b.WriteString(errorStyle.Render(m.state.Err))
		b.WriteString("\n")
	}
	if m.inputErr != "" {
		b.WriteString(errorStyle.Render(m.inputErr))
		b.WriteString("\n")
	}
	if help != "" {
		b.WriteString(helpStyle.Render(help))
		b.WriteString("\n")
	}
	return b.String()
}

func renderPanel(title, body string, width int) string {
	style := panelStyle
	if width > 4 {
		style = style.Width(width - 4)
	}
	return style.Render(panelTitleStyle.Render(title) + "\n" + body)
}

func (m Model) viewDetails() string {
	var b strings.Builder
	for _, row := range DetailRows(m.state.Reading, m.detector) {
		b.WriteString(labelStyle.Render(row.Label))
		b.WriteString(row.Value)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewingHelp() string {
	bill := "b bill on average"
	if !m.state.CanBillOnAverage() {
		bill = disabledStyle.Render(bill)
	}
	return "c correct reading · " + bill + " · q close"
}

func (m Model) viewCorrection() string {
	label := func(text string, focused bool) string {
		if focused {
			return focusedLabelStyle.Render(text)
		}
		return labelStyle.Render(text)
	}
	lines := []string{
		labelStyle.Render("Previous reading") + formatNumber(m.state.Correction.Previous),
		label("Current reading", m.correctionFocus == fieldCurrent) + m.current.View(),
		label("Notes", m.correctionFocus == fieldNotes) + m.notes.View(),
	}
	if m.state.Busy {
		lines = append(lines, m.spinner.View()+" saving corrected reading")
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewConfirmation() string {
	lines := []string{
		fmt.Sprintf("Replace current reading with %s (previous %s)?",
			formatNumber(m.state.Correction.Parsed), formatNumber(m.state.Correction.Previous)),
		warningStyle.Render(resolution.AutoBillingNotice),
	}
	if m.state.Warning != "" {
		lines = append(lines, warningStyle.Render(m.state.Warning))
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewTask() string {
	form := m.state.Task
	label := func(text string, f taskField) string {
		if m.taskFocus == f {
			return focusedLabelStyle.Render(text)
		}
		return labelStyle.Render(text)
	}
	choice := func(name string) string {
		if name == "" {
			return subHeaderStyle.Render("<none>")
		}
		return name
	}
	if form.LoadingOptions {
		return m.spinner.View() + " loading users and task types"
	}

	lines := []string{
		successStyle.Render("Billed on average."),
		labelStyle.Render("Connection") + optionalID(form.ConnectionID),
		labelStyle.Render("Customer") + orDash(form.CustomerName),
		label("Title", fieldTitle) + m.title.View(),
		label("Type", fieldType) + choice(form.TypeName()),
		label("Assignee", fieldAssignee) + choice(form.AssigneeName()),
		label("Priority", fieldPriority) + string(form.Priority),
		label("Due", fieldDue) + m.due.View(),
	}
	if check := form.Check(); !check.IsValid {
		lines = append(lines, disabledStyle.Render("create task")+" "+subHeaderStyle.Render(check.Message))
	}
	if m.state.Busy {
		lines = append(lines, m.spinner.View()+" creating task")
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewOutcome() string {
	switch m.state.Outcome {
	case resolution.OutcomeCorrected:
		return successStyle.Render("Reading corrected. Billing runs automatically.")
	case resolution.OutcomeTaskCreated:
		msg := "Billed on average and follow-up task created."
		if t := m.state.CreatedTask; t != nil {
			msg = fmt.Sprintf("Billed on average and follow-up task #%d created.", t.ID)
		}
		return successStyle.Render(msg)
	case resolution.OutcomeBilledOnAverage:
		return successStyle.Render("Billed on average.") + " No follow-up task was created."
	}
	return "Closed without changes."
}

func optionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("#%d", *id)
}
