package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uv1406/harness/packages/artifact"
	"github.com/uv1406/harness/packages/core/runner"
)

type recorder struct {
	mu    sync.Mutex
	calls []*RunSummary
	err   error
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Notify(_ context.Context, s *RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
	return r.err
}

func results() []*runner.RunResult {
	return []*runner.RunResult{
		{Suite: "api", Passed: 2, Results: []*runner.TestResult{
			{Name: "register user", Outcome: runner.Pass},
			{Name: "fetch user by id", Outcome: runner.Pass},
		}},
		{Suite: "ui", Passed: 1, Failed: 1, Skipped: 1, Results: []*runner.TestResult{
			{Name: "check box home", Outcome: runner.Pass},
			{
				Name:      "text box form/Ada",
				Outcome:   runner.Fail,
				Error:     errors.New("target not found"),
				Artifacts: []*artifact.Artifact{{Location: "target/screenshots/ada.png"}},
			},
			{Name: "skipped", Outcome: runner.Skip},
		}},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize("qa", time.Second, results()...)

	assert.Equal(t, []string{"api", "ui"}, s.Suites)
	assert.Equal(t, 5, s.TotalTests)
	assert.Equal(t, 3, s.PassedTests)
	assert.Equal(t, 1, s.FailedTests)
	assert.Equal(t, 1, s.SkippedTests)
	require.Len(t, s.FailedResults, 1)
	assert.Equal(t, FailedTest{
		Name:       "text box form/Ada",
		Suite:      "ui",
		Error:      "target not found",
		Screenshot: "target/screenshots/ada.png",
	}, s.FailedResults[0])
}

func TestManager_Policies(t *testing.T) {
	pass := &RunSummary{TotalTests: 1, PassedTests: 1}
	fail := func() *RunSummary { return &RunSummary{TotalTests: 1, FailedTests: 1} }

	tests := []struct {
		on    NotifyOn
		runs  []*RunSummary
		calls int
	}{
		{NotifyAlways, []*RunSummary{pass, fail()}, 2},
		{NotifyFailure, []*RunSummary{pass, fail()}, 1},
		{NotifySuccess, []*RunSummary{pass, fail()}, 1},
		{NotifyRecovery, []*RunSummary{pass, fail(), {TotalTests: 1, PassedTests: 1}}, 2},
	}
	for _, tt := range tests {
		t.Run(string(tt.on), func(t *testing.T) {
			rec := &recorder{}
			m := NewManager(tt.on, rec)
			for _, s := range tt.runs {
				require.NoError(t, m.Notify(context.Background(), s))
			}
			assert.Len(t, rec.calls, tt.calls)
		})
	}
}

func TestManager_RecoveryFlag(t *testing.T) {
	rec := &recorder{}
	m := NewManager(NotifyRecovery, rec)

	require.NoError(t, m.Notify(context.Background(), &RunSummary{FailedTests: 1}))
	recovered := &RunSummary{PassedTests: 1}
	require.NoError(t, m.Notify(context.Background(), recovered))
	assert.True(t, recovered.IsRecovery)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Name() string { return m.Called().String(0) }

func (m *mockNotifier) Notify(ctx context.Context, s *RunSummary) error {
	return m.Called(ctx, s).Error(0)
}

func TestManager_JoinsErrors(t *testing.T) {
	summary := &RunSummary{}

	broken := &mockNotifier{}
	broken.On("Notify", mock.Anything, summary).Return(errors.New("webhook down")).Once()
	broken.On("Name").Return("slack")
	ok := &mockNotifier{}
	ok.On("Notify", mock.Anything, summary).Return(nil).Once()

	err := NewManager(NotifyAlways, broken, ok).Notify(context.Background(), summary)
	assert.EqualError(t, err, "slack: webhook down")
	broken.AssertExpectations(t)
	ok.AssertExpectations(t)
	ok.AssertNotCalled(t, "Name")
}

func TestParseNotifyOn(t *testing.T) {
	on, err := ParseNotifyOn("recovery")
	require.NoError(t, err)
	assert.Equal(t, NotifyRecovery, on)

	_, err = ParseNotifyOn("sometimes")
	assert.Error(t, err)
}

func TestSlackNotifier(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL, WithSlackChannel("#qa"))
	require.NoError(t, n.Notify(context.Background(), Summarize("qa", time.Second, results()...)))

	assert.Equal(t, "#qa", got["channel"])
	attachments := got["attachments"].([]any)
	require.Len(t, attachments, 1)
	first := attachments[0].(map[string]any)
	assert.Equal(t, "danger", first["color"])
	assert.Contains(t, first["title"], "1 test(s) failed")
	assert.Contains(t, first["text"], "text box form/Ada")
}

func TestSlackNotifier_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token"))
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Notify(context.Background(), &RunSummary{})
	assert.ErrorContains(t, err, "status 403: invalid_token")
}

func TestTeamsNotifier(t *testing.T) {
	var got teamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	err := NewTeamsNotifier(server.URL).Notify(context.Background(), &RunSummary{TotalTests: 2, PassedTests: 2, Environment: "qa"})
	require.NoError(t, err)

	require.Len(t, got.Attachments, 1)
	body := got.Attachments[0].Content.Body
	assert.Equal(t, "All tests passed!", body[0].Text)
	assert.Equal(t, "**Environment:** qa", body[2].Text)
}
