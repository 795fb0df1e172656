package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/septivank/meter-resolution-console/internal/apiclient"
	"github.com/septivank/meter-resolution-console/internal/domain"
	"github.com/septivank/meter-resolution-console/internal/fakeapi"
	"github.com/septivank/meter-resolution-console/internal/repository"
	"github.com/septivank/meter-resolution-console/internal/resolution"
	"github.com/septivank/meter-resolution-console/internal/service"
	"github.com/septivank/meter-resolution-console/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sandbox(t *testing.T) *fakeapi.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	api := fakeapi.New(fakeapi.Options{RequireAuth: true})
	ts := httptest.NewServer(api.Router())
	t.Cleanup(ts.Close)

	t.Setenv("API_BASE_URL", ts.URL)
	t.Setenv("SESSION_STORE_PATH", filepath.Join(t.TempDir(), "session.db"))
	t.Setenv("LOG_LEVEL", "error")
	for _, key := range []string{"DATABASE_URL", "RABBITMQ_URL", "METRICS_ADDR", "LOG_FILE", "CONSOLE_CONFIG_FILE", "CORRECTION_DECREASE_POLICY"} {
		t.Setenv(key, "")
	}
	return api
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func login(t *testing.T) {
	t.Helper()
	_, err := run(t, "", "login", "--email", fakeapi.SandboxEmail, "--password", fakeapi.SandboxPassword)
	require.NoError(t, err)
}

func TestLoginWhoamiLogout(t *testing.T) {
	sandbox(t)

	_, err := run(t, "", "whoami")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)

	out, err := run(t, fakeapi.SandboxPassword+"\n", "login", "--email", fakeapi.SandboxEmail)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Console Operator")

	out, err = run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Console Operator")

	_, err = run(t, "", "logout")
	require.NoError(t, err)
	_, err = run(t, "", "whoami")
	assert.ErrorIs(t, err, session.ErrNotLoggedIn)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	sandbox(t)

	_, err := run(t, "", "login", "--email", fakeapi.SandboxEmail, "--password", "nope")

	assert.EqualError(t, err, "login failed: Invalid credentials")
}

func TestReadingShow(t *testing.T) {
	sandbox(t)
	login(t)

	out, err := run(t, "", "reading", "show", "42")
	require.NoError(t, err)

	assert.Contains(t, out, "Amina Hassan")
	assert.Contains(t, out, "1250.50")
	assert.Contains(t, out, "Moving average    120")

	_, err = run(t, "", "reading", "show", "abc")
	assert.EqualError(t, err, `invalid reading id "abc"`)
}

func TestReadingCorrect(t *testing.T) {
	api := sandbox(t)
	login(t)

	out, err := run(t, "", "reading", "correct", "42", "--current", "160", "--notes", "", "--yes")
	require.NoError(t, err)

	assert.Contains(t, out, "Reading #42 corrected to 160.")
	assert.Contains(t, out, resolution.AutoBillingNotice)
	assert.Equal(t, []apiclient.CorrectionRequest{{PreviousReading: 100, CurrentReading: 160, Notes: ""}}, api.Corrections(42))

	_, err = run(t, "", "reading", "correct", "42", "--current", "170", "--yes")
	assert.EqualError(t, err, "Reading already resolved")
}

func TestReadingCorrect_Prompt(t *testing.T) {
	api := sandbox(t)
	login(t)

	out, err := run(t, "n\n", "reading", "correct", "42", "--current", "160")
	assert.ErrorIs(t, err, service.ErrCorrectionCancelled)
	assert.Contains(t, out, "Replace current reading with 160 (previous 100)?")
	assert.Empty(t, api.Corrections(42))

	_, err = run(t, "y\n", "reading", "correct", "42", "--current", "160")
	require.NoError(t, err)
	assert.Len(t, api.Corrections(42), 1)
}

func TestReadingCorrect_ThousandsSeparator(t *testing.T) {
	api := sandbox(t)
	login(t)

	_, err := run(t, "", "reading", "correct", "42", "--current", "150,75", "--yes")
	assert.ErrorContains(t, err, "current reading must be a number")
	assert.Empty(t, api.Corrections(42))

	out, err := run(t, "y\n", "reading", "correct", "42", "--current", "1,250")
	require.NoError(t, err)
	assert.Contains(t, out, "Replace current reading with 1250 (previous 100)?")
	assert.Contains(t, out, "Reading #42 corrected to 1250.")
	assert.Equal(t, []apiclient.CorrectionRequest{{PreviousReading: 100, CurrentReading: 1250, Notes: ""}}, api.Corrections(42))
}

func TestReadingBillAverage(t *testing.T) {
	api := sandbox(t)
	login(t)

	out, err := run(t, "", "reading", "bill-average", "42", "--assignee", "5", "--priority", "high", "--due", "+3d",
		"--title", "Meter survey required")
	require.NoError(t, err)

	assert.Contains(t, out, "Reading #42 billed on average.")
	assert.Contains(t, out, "Follow-up task #")
	assert.Equal(t, []apiclient.AverageBillRequest{{ConnectionID: 7, Consumption: 120, MeterReadingID: 42}}, api.Bills())
	tasks := api.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, int64(2), tasks[0].TypeID, "survey type follows the title")
}

func TestReadingBillAverage_ListsChoicesWhenIncomplete(t *testing.T) {
	api := sandbox(t)
	login(t)

	out, err := run(t, "", "reading", "bill-average", "42")

	assert.ErrorIs(t, err, service.ErrTaskIncomplete)
	assert.Contains(t, out, "Reading #42 billed on average.")
	assert.Contains(t, out, "Task types (--type):")
	assert.Contains(t, out, "Assignees (--assignee):")
	assert.Contains(t, out, "Otieno Field")
	assert.Len(t, api.Bills(), 1)
	assert.Empty(t, api.Tasks())
}

func TestReadingBillAverage_NoTask(t *testing.T) {
	api := sandbox(t)
	login(t)

	out, err := run(t, "", "reading", "bill-average", "42", "--no-task")
	require.NoError(t, err)

	assert.Contains(t, out, "billed on average")
	assert.Empty(t, api.Tasks())
}

func TestReadingBillAverage_Unavailable(t *testing.T) {
	api := sandbox(t)
	login(t)

	_, err := run(t, "", "reading", "bill-average", "43")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
	assert.Empty(t, api.Bills())
}

func TestLookups(t *testing.T) {
	sandbox(t)
	login(t)

	out, err := run(t, "", "tasks", "types")
	require.NoError(t, err)
	assert.Contains(t, out, "Meter Inspection")

	out, err = run(t, "", "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Otieno Field")
}

func TestHistory_RequiresJournal(t *testing.T) {
	sandbox(t)
	login(t)

	_, err := run(t, "", "history", "42")

	assert.ErrorIs(t, err, repository.ErrJournalDisabled)
}

func TestEventsWatch_RequiresBroker(t *testing.T) {
	sandbox(t)

	_, err := run(t, "", "events", "watch")

	assert.EqualError(t, err, "event fan-out is disabled: set RABBITMQ_URL")
}

func TestMissingBaseURL(t *testing.T) {
	sandbox(t)
	t.Setenv("API_BASE_URL", "")

	_, err := run(t, "", "whoami")

	assert.ErrorContains(t, err, "API_BASE_URL is required")
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "Reading #42 left unresolved.", summarize(42, resolution.State{}))
	assert.Equal(t, "Reading #42 billed on average; follow-up task #9 created.",
		summarize(42, resolution.State{Outcome: resolution.OutcomeTaskCreated, CreatedTask: &domain.Task{ID: 9}}))
}
