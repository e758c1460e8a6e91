package exam

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/cds-vanguard/internal/question"
)

type fakeTicker struct {
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// fire delivers one tick; it reports false when no timer goroutine is listening.
func (f *fakeTicker) fire() bool {
	select {
	case f.c <- time.Now():
		return true
	case <-time.After(50 * time.Millisecond):
		return false
	}
}

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{c: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) latest() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickers[len(c.tickers)-1]
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func testQuestions(n int) []question.Question {
	qs := make([]question.Question, n)
	for i := range qs {
		qs[i] = question.Question{
			ID:            fmt.Sprintf("b0-q%d", i),
			Text:          fmt.Sprintf("Question %d", i),
			Options:       []string{"a", "b", "c", "d"},
			CorrectAnswer: i % 4,
		}
	}
	return qs
}

var gkTopic = question.Topic{ID: "mod-gandhi", Name: "Gandhian Era", Section: question.SectionGK}

func newTestSession(t *testing.T, n int, budget int, reset bool) (*Session, *fakeClock, chan Event) {
	t.Helper()
	clock := &fakeClock{}
	s, err := NewSession("s-1", gkTopic, testQuestions(n), SessionOptions{
		TickInterval:        time.Second,
		ResetTimerOnRevisit: reset,
		Budgets:             Budgets{Standard: budget, Comprehension: budget, Quantitative: budget},
		Clock:               clock,
	})
	require.NoError(t, err)

	events := make(chan Event, 64)
	s.Start(func(ev Event) { events <- ev })
	t.Cleanup(s.Close)
	return s, clock, events
}

func waitFor(t *testing.T, events <-chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event", kind)
			return Event{}
		}
	}
}

func TestNewSessionRequiresQuestions(t *testing.T) {
	_, err := NewSession("s", gkTopic, nil, SessionOptions{})
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestSessionInitialState(t *testing.T) {
	s, clock, events := newTestSession(t, 5, 45, false)

	ev := waitFor(t, events, EventState)
	assert.Equal(t, StateInProgress, ev.Snapshot.State)
	assert.Equal(t, 0, ev.Snapshot.Index)
	assert.Equal(t, 45, ev.Snapshot.TimeLeft)
	assert.Equal(t, 5, ev.Snapshot.Total)
	assert.Equal(t, "Question 0", ev.Snapshot.Current.Text)
	assert.True(t, s.TimerActive())
	assert.Equal(t, 1, clock.count())
}

func TestTickAutoAdvancesAtZero(t *testing.T) {
	s, _, _ := newTestSession(t, 5, 3, false)

	require.NoError(t, s.Tick())
	require.NoError(t, s.Tick())
	assert.Equal(t, 1, s.Snapshot().TimeLeft)

	require.NoError(t, s.Tick())
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Index, "no manual Next needed")
	assert.Equal(t, 3, snap.TimeLeft, "fresh budget for the new question")
	assert.Equal(t, StateInProgress, snap.State)
}

func TestTimerGoroutineDrivesCountdown(t *testing.T) {
	_, clock, events := newTestSession(t, 5, 2, false)
	waitFor(t, events, EventState)

	ticker := clock.latest()
	require.True(t, ticker.fire())
	ev := waitFor(t, events, EventTick)
	assert.Equal(t, 1, ev.Snapshot.TimeLeft)

	require.True(t, ticker.fire())
	ev = waitFor(t, events, EventState)
	assert.Equal(t, 1, ev.Snapshot.Index)
	assert.Equal(t, 2, ev.Snapshot.TimeLeft)
}

func TestEliminationNeverBlocksSelection(t *testing.T) {
	s, _, _ := newTestSession(t, 5, 45, false)

	require.NoError(t, s.ToggleElimination(2))
	assert.Equal(t, []int{2}, s.Snapshot().Eliminated)

	require.NoError(t, s.Select(2))
	snap := s.Snapshot()
	require.NotNil(t, snap.Selected)
	assert.Equal(t, 2, *snap.Selected)
	assert.Equal(t, []int{2}, snap.Eliminated)

	require.NoError(t, s.ToggleElimination(2))
	assert.Empty(t, s.Snapshot().Eliminated)
}

func TestSelectOverwritesAndValidates(t *testing.T) {
	s, _, _ := newTestSession(t, 3, 45, false)

	require.NoError(t, s.Select(1))
	require.NoError(t, s.Select(3))
	assert.Equal(t, 3, *s.Snapshot().Selected)
	assert.Equal(t, 1, s.Snapshot().Answered)

	assert.ErrorIs(t, s.Select(4), ErrInvalidOption)
	assert.ErrorIs(t, s.Select(-1), ErrInvalidOption)
	assert.ErrorIs(t, s.ToggleElimination(9), ErrInvalidOption)
}

func TestNextOnLastQuestionOpensConfirmation(t *testing.T) {
	s, clock, events := newTestSession(t, 2, 45, false)
	ticker := clock.latest()

	require.NoError(t, s.Next())
	assert.Equal(t, 1, s.Snapshot().Index)

	require.NoError(t, s.Next())
	ev := waitFor(t, events, EventSubmitPrompt)
	assert.Equal(t, StateAwaitingConfirmation, ev.Snapshot.State)
	assert.Equal(t, 1, ev.Snapshot.Index, "never wraps to question 0")

	assert.False(t, s.TimerActive())
	assert.True(t, ticker.isStopped())
	assert.False(t, ticker.fire(), "cancelled timer must not deliver ticks")

	assert.ErrorIs(t, s.Next(), ErrNotInProgress)
	assert.ErrorIs(t, s.Tick(), ErrNotInProgress)
	assert.ErrorIs(t, s.Select(0), ErrNotInProgress)
}

func TestCountdownOnLastQuestionOpensConfirmation(t *testing.T) {
	s, _, _ := newTestSession(t, 1, 1, false)

	require.NoError(t, s.Tick())
	assert.Equal(t, StateAwaitingConfirmation, s.Snapshot().State)
	assert.Equal(t, 0, s.Snapshot().TimeLeft)
	assert.False(t, s.TimerActive())
}

func TestCancelSubmitResumesWithoutResettingTimer(t *testing.T) {
	s, clock, _ := newTestSession(t, 3, 10, false)

	require.NoError(t, s.Next())
	require.NoError(t, s.Tick())
	require.NoError(t, s.Tick())
	require.NoError(t, s.RequestSubmit())
	assert.False(t, s.TimerActive())

	require.NoError(t, s.CancelSubmit())
	snap := s.Snapshot()
	assert.Equal(t, StateInProgress, snap.State)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, 8, snap.TimeLeft)
	assert.True(t, s.TimerActive())
	assert.Equal(t, 2, clock.count(), "a new ticker is acquired on resume")

	assert.ErrorIs(t, s.CancelSubmit(), ErrNotAwaitingConfirmation)
}

func TestConfirmSubmitProducesResponses(t *testing.T) {
	s, clock, events := newTestSession(t, 3, 45, false)

	require.NoError(t, s.Select(0)) // q0 correct
	require.NoError(t, s.Next())
	require.NoError(t, s.Select(3)) // q1 wrong
	require.NoError(t, s.Next())
	require.NoError(t, s.Next())

	_, err := s.ConfirmSubmit()
	require.NoError(t, err)
	ev := waitFor(t, events, EventFinished)
	assert.Equal(t, StateFinished, ev.Snapshot.State)

	responses := s.Responses()
	require.Len(t, responses, 3)
	assert.True(t, responses[0].IsCorrect)
	assert.False(t, responses[1].IsCorrect)
	assert.Equal(t, 3, *responses[1].SelectedOption)
	assert.Nil(t, responses[2].SelectedOption)
	assert.False(t, responses[2].IsCorrect)
	assert.Equal(t, ev.Responses, responses)

	assert.False(t, s.TimerActive())
	for _, tk := range clock.tickers {
		assert.True(t, tk.isStopped())
	}

	_, err = s.ConfirmSubmit()
	assert.ErrorIs(t, err, ErrSessionFinished)
	assert.ErrorIs(t, s.Select(0), ErrSessionFinished)
}

func TestConfirmSubmitRequiresConfirmationState(t *testing.T) {
	s, _, _ := newTestSession(t, 3, 45, false)
	_, err := s.ConfirmSubmit()
	assert.ErrorIs(t, err, ErrNotAwaitingConfirmation)
}

func TestPreviousKeepsCountdownByDefault(t *testing.T) {
	s, _, _ := newTestSession(t, 3, 10, false)

	require.NoError(t, s.Previous())
	assert.Equal(t, 0, s.Snapshot().Index, "no-op on the first question")

	require.NoError(t, s.Next())
	require.NoError(t, s.Tick())
	require.NoError(t, s.Previous())
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, 9, snap.TimeLeft)
}

func TestPreviousResetsCountdownWhenConfigured(t *testing.T) {
	s, _, _ := newTestSession(t, 3, 10, true)

	require.NoError(t, s.Next())
	require.NoError(t, s.Tick())
	require.NoError(t, s.Previous())
	assert.Equal(t, 10, s.Snapshot().TimeLeft)
}

func TestCloseReleasesTimer(t *testing.T) {
	s, clock, _ := newTestSession(t, 3, 10, false)
	ticker := clock.latest()

	s.Close()
	assert.False(t, s.TimerActive())
	assert.True(t, ticker.isStopped())
	assert.False(t, ticker.fire())
	assert.ErrorIs(t, s.Tick(), ErrSessionFinished)
}

func TestBudgets(t *testing.T) {
	b := DefaultBudgets()
	assert.Equal(t, 90, b.For(question.Topic{ID: "reading-comprehension", Section: question.SectionEnglish}))
	assert.Equal(t, 120, b.For(question.Topic{ID: "algebra", Section: question.SectionMathematics}))
	assert.Equal(t, 45, b.For(question.Topic{ID: "mod-gandhi", Section: question.SectionGK}))
	assert.Equal(t, 45, b.For(question.Topic{ID: "spotting-errors", Section: question.SectionEnglish}))
}
