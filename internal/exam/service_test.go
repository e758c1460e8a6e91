package exam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/cds-vanguard/internal/auth"
	"github.com/gokatarajesh/cds-vanguard/internal/auth/jwt"
	"github.com/gokatarajesh/cds-vanguard/internal/db/queries"
	"github.com/gokatarajesh/cds-vanguard/internal/question"
	"github.com/gokatarajesh/cds-vanguard/internal/quota"
	"github.com/gokatarajesh/cds-vanguard/internal/standings"
)

type stubSupplier struct {
	SupplyFn func(ctx context.Context, topic question.Topic, target int) question.Pack
}

func (s *stubSupplier) Supply(ctx context.Context, topic question.Topic, target int) question.Pack {
	return s.SupplyFn(ctx, topic, target)
}

type stubEnricher struct {
	EnrichFn func(ctx context.Context, topic question.Topic, q question.Question) question.Enrichment
}

func (s *stubEnricher) Enrich(ctx context.Context, topic question.Topic, q question.Question) question.Enrichment {
	return s.EnrichFn(ctx, topic, q)
}

type stubQuota struct {
	ConsumeFn func(ctx context.Context, userID string, n int) (quota.Usage, error)
	GetFn     func(ctx context.Context, userID string) (quota.Usage, error)
}

func (s *stubQuota) Consume(ctx context.Context, userID string, n int) (quota.Usage, error) {
	return s.ConsumeFn(ctx, userID, n)
}

func (s *stubQuota) Get(ctx context.Context, userID string) (quota.Usage, error) {
	return s.GetFn(ctx, userID)
}

type memoryResults struct {
	mu      sync.Mutex
	results map[string]Result
	saveErr error
}

func newMemoryResults() *memoryResults {
	return &memoryResults{results: make(map[string]Result)}
}

func (m *memoryResults) SaveResult(_ context.Context, result Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.results[result.SessionID] = result
	return nil
}

func (m *memoryResults) GetResult(_ context.Context, sessionID string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[sessionID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

type stubRecorder struct {
	mu      sync.Mutex
	records []queries.InsertExamAttemptParams
	err     error
}

func (s *stubRecorder) Record(_ context.Context, params queries.InsertExamAttemptParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, params)
	return s.err
}

type stubStandings struct {
	mu       sync.Mutex
	requests []standings.RecordRequest
}

func (s *stubStandings) Record(_ context.Context, req standings.RecordRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	events   map[string][]Event
	released []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(map[string][]Event)}
}

func (n *recordingNotifier) Notify(sessionID string, ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[sessionID] = append(n.events[sessionID], ev)
}

func (n *recordingNotifier) Release(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.released = append(n.released, sessionID)
}

func (n *recordingNotifier) kinds(sessionID string) []EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var kinds []EventKind
	for _, ev := range n.events[sessionID] {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

type serviceFixture struct {
	svc       *Service
	results   *memoryResults
	attempts  *stubRecorder
	standings *stubStandings
	notifier  *recordingNotifier
	targets   []int
}

func newServiceFixture(t *testing.T, questions int) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		results:   newMemoryResults(),
		attempts:  &stubRecorder{},
		standings: &stubStandings{},
		notifier:  newRecordingNotifier(),
	}
	supply := &stubSupplier{SupplyFn: func(_ context.Context, topic question.Topic, target int) question.Pack {
		f.targets = append(f.targets, target)
		return question.Pack{Topic: topic, Questions: testQuestions(questions), Source: question.SourceLive, Requested: target}
	}}
	f.svc = NewService(Deps{
		Supply:    supply,
		Quota:     &stubQuota{ConsumeFn: func(context.Context, string, int) (quota.Usage, error) { return quota.Usage{}, nil }},
		Results:   f.results,
		Attempts:  f.attempts,
		Standings: f.standings,
		Notifier:  f.notifier,
	}, ServiceOptions{
		Session: SessionOptions{Clock: &fakeClock{}, Budgets: Budgets{Standard: 30, Comprehension: 30, Quantitative: 30}},
	}, zerolog.Nop())
	t.Cleanup(f.svc.Shutdown)
	return f
}

func TestStartSessionWithholdsAnswers(t *testing.T) {
	f := newServiceFixture(t, 3)
	user := uuid.NewString()

	started, err := f.svc.StartSession(context.Background(), user, gkTopic, 3)
	require.NoError(t, err)

	assert.Len(t, started.Questions, 3)
	assert.Equal(t, question.SourceLive, started.Source)
	assert.Equal(t, StateInProgress, started.Snapshot.State)
	assert.Equal(t, 30, started.Snapshot.TimeLeft)
	assert.Equal(t, 1, f.svc.Active())
	assert.True(t, f.svc.Owns(user, started.Snapshot.SessionID))
	assert.Contains(t, f.notifier.kinds(started.Snapshot.SessionID), EventState)
}

func TestStartSessionClampsTarget(t *testing.T) {
	f := newServiceFixture(t, 2)

	_, err := f.svc.StartSession(context.Background(), "u", gkTopic, 0)
	require.NoError(t, err)
	_, err = f.svc.StartSession(context.Background(), "u", gkTopic, 500)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 30}, f.targets)
}

func TestStartSessionQuotaExhausted(t *testing.T) {
	supplied := false
	svc := NewService(Deps{
		Supply: &stubSupplier{SupplyFn: func(context.Context, question.Topic, int) question.Pack {
			supplied = true
			return question.Pack{}
		}},
		Quota: &stubQuota{ConsumeFn: func(context.Context, string, int) (quota.Usage, error) {
			return quota.Usage{}, quota.ErrExhausted
		}},
	}, ServiceOptions{}, zerolog.Nop())

	_, err := svc.StartSession(context.Background(), "u", gkTopic, 5)
	assert.ErrorIs(t, err, quota.ErrExhausted)
	assert.False(t, supplied)
}

func TestStartSessionEmptyPack(t *testing.T) {
	svc := NewService(Deps{
		Supply: &stubSupplier{SupplyFn: func(context.Context, question.Topic, int) question.Pack { return question.Pack{} }},
	}, ServiceOptions{}, zerolog.Nop())

	_, err := svc.StartSession(context.Background(), "u", gkTopic, 5)
	assert.ErrorIs(t, err, ErrNoQuestions)
	assert.Zero(t, svc.Active())
}

func TestSubmitScoresAndPersists(t *testing.T) {
	f := newServiceFixture(t, 3)
	user := uuid.NewString()
	started, err := f.svc.StartSession(context.Background(), user, gkTopic, 3)
	require.NoError(t, err)
	id := started.Snapshot.SessionID

	_, err = f.svc.Select(user, id, 0) // correct
	require.NoError(t, err)
	_, err = f.svc.Next(user, id)
	require.NoError(t, err)
	_, err = f.svc.Select(user, id, 0) // wrong, answer is 1
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), user, id)
	assert.ErrorIs(t, err, ErrNotAwaitingConfirmation)

	snap, err := f.svc.RequestSubmit(user, id)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingConfirmation, snap.State)

	result, err := f.svc.Submit(context.Background(), user, id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score.Correct)
	assert.Equal(t, 1, result.Score.Wrong)
	assert.Equal(t, 1, result.Score.Skipped)
	assert.Equal(t, "0.67", result.Score.Display)
	assert.Len(t, result.Responses, 3)
	assert.Equal(t, question.SourceLive, result.Source)

	assert.Zero(t, f.svc.Active())
	assert.Contains(t, f.notifier.kinds(id), EventFinished)
	assert.Equal(t, []string{id}, f.notifier.released)

	stored, err := f.svc.Result(context.Background(), user, id)
	require.NoError(t, err)
	assert.Equal(t, result.Score, stored.Score)

	require.Len(t, f.attempts.records, 1)
	rec := f.attempts.records[0]
	assert.Equal(t, id, rec.SessionID)
	assert.Equal(t, int32(3), rec.QuestionCount)
	assert.Equal(t, int32(1), rec.CorrectCount)
	assert.InDelta(t, 2.0/3.0, rec.NumericScore, 0.001)

	_, err = f.svc.Select(user, id, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubmitRecordsStandings(t *testing.T) {
	f := newServiceFixture(t, 2)
	user := uuid.NewString()
	started, err := f.svc.StartSession(context.Background(), user, gkTopic, 2)
	require.NoError(t, err)
	id := started.Snapshot.SessionID

	_, err = f.svc.Select(user, id, 0)
	require.NoError(t, err)
	_, err = f.svc.RequestSubmit(user, id)
	require.NoError(t, err)

	ctx := auth.WithClaims(context.Background(), &jwt.Claims{UserID: uuid.MustParse(user), DisplayName: "Cadet"})
	result, err := f.svc.Submit(ctx, user, id)
	require.NoError(t, err)

	require.Len(t, f.standings.requests, 1)
	req := f.standings.requests[0]
	assert.Equal(t, user, req.UserID)
	assert.Equal(t, "Cadet", req.DisplayName)
	assert.Equal(t, gkTopic.ID, req.TopicID)
	assert.Equal(t, 1, req.Correct)
	assert.Equal(t, 1, req.Attempted)
	assert.InDelta(t, result.Score.Numeric, req.Score, 0.0001)
}

func TestSubmitSurvivesPersistenceFailures(t *testing.T) {
	f := newServiceFixture(t, 1)
	f.results.saveErr = errors.New("redis down")
	f.attempts.err = errors.New("pg down")

	started, err := f.svc.StartSession(context.Background(), uuid.NewString(), gkTopic, 1)
	require.NoError(t, err)
	id := started.Snapshot.SessionID
	user := f.userOf(id)

	_, err = f.svc.RequestSubmit(user, id)
	require.NoError(t, err)
	result, err := f.svc.Submit(context.Background(), user, id)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score.Skipped)

	_, err = f.svc.Result(context.Background(), user, id)
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func (f *serviceFixture) userOf(id string) string {
	f.svc.mu.RLock()
	defer f.svc.mu.RUnlock()
	return f.svc.sessions[id].userID
}

func TestNonUUIDUserSkipsAttemptRecord(t *testing.T) {
	f := newServiceFixture(t, 1)
	started, err := f.svc.StartSession(context.Background(), "cli", gkTopic, 1)
	require.NoError(t, err)
	id := started.Snapshot.SessionID

	_, err = f.svc.RequestSubmit("cli", id)
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), "cli", id)
	require.NoError(t, err)
	assert.Empty(t, f.attempts.records)
}

func TestSessionsAreIsolatedPerUser(t *testing.T) {
	f := newServiceFixture(t, 2)
	started, err := f.svc.StartSession(context.Background(), "alice", gkTopic, 2)
	require.NoError(t, err)
	id := started.Snapshot.SessionID

	_, err = f.svc.Snapshot("bob", id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.Discard("bob", id), ErrSessionNotFound)
	assert.False(t, f.svc.Owns("bob", id))
}

func TestResultWhileActive(t *testing.T) {
	f := newServiceFixture(t, 2)
	started, err := f.svc.StartSession(context.Background(), "u", gkTopic, 2)
	require.NoError(t, err)

	_, err = f.svc.Result(context.Background(), "u", started.Snapshot.SessionID)
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestResultOfOtherUserIsHidden(t *testing.T) {
	f := newServiceFixture(t, 1)
	f.results.results["s-x"] = Result{SessionID: "s-x", UserID: "alice"}

	_, err := f.svc.Result(context.Background(), "bob", "s-x")
	assert.ErrorIs(t, err, ErrResultNotFound)
	_, err = f.svc.Result(context.Background(), "alice", "missing")
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestBriefUsesEnricher(t *testing.T) {
	f := newServiceFixture(t, 2)
	var gotQuestion string
	f.svc.enricher = &stubEnricher{EnrichFn: func(_ context.Context, topic question.Topic, q question.Question) question.Enrichment {
		gotQuestion = q.ID
		return question.Enrichment{Explanation: "because", Brief: question.StrategicBrief{CorePrinciple: topic.Name}}
	}}
	f.results.results["s-1"] = Result{SessionID: "s-1", UserID: "u", Topic: gkTopic, Questions: testQuestions(2)}

	enrichment, err := f.svc.Brief(context.Background(), "u", "s-1", "b0-q1")
	require.NoError(t, err)
	assert.Equal(t, "b0-q1", gotQuestion)
	assert.Equal(t, "because", enrichment.Explanation)
	assert.Equal(t, gkTopic.Name, enrichment.Brief.CorePrinciple)

	_, err = f.svc.Brief(context.Background(), "u", "s-1", "nope")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestBriefWithoutEnricherIsGeneric(t *testing.T) {
	f := newServiceFixture(t, 1)
	f.results.results["s-1"] = Result{SessionID: "s-1", UserID: "u", Topic: gkTopic, Questions: testQuestions(1)}

	enrichment, err := f.svc.Brief(context.Background(), "u", "s-1", "b0-q0")
	require.NoError(t, err)
	assert.True(t, enrichment.Generic)
	assert.Equal(t, question.GenericBrief, enrichment.Brief)
}

func TestDiscardReleasesSession(t *testing.T) {
	f := newServiceFixture(t, 2)
	started, err := f.svc.StartSession(context.Background(), "u", gkTopic, 2)
	require.NoError(t, err)
	id := started.Snapshot.SessionID

	require.NoError(t, f.svc.Discard("u", id))
	assert.Zero(t, f.svc.Active())
	assert.Equal(t, []string{id}, f.notifier.released)
	assert.ErrorIs(t, f.svc.Discard("u", id), ErrSessionNotFound)
}

func TestShutdownClosesAllSessions(t *testing.T) {
	f := newServiceFixture(t, 2)
	for i := 0; i < 3; i++ {
		_, err := f.svc.StartSession(context.Background(), "u", gkTopic, 2)
		require.NoError(t, err)
	}
	f.svc.Shutdown()
	assert.Zero(t, f.svc.Active())
	assert.Len(t, f.notifier.released, 3)
}

func TestTimerEventsReachNotifier(t *testing.T) {
	clock := &fakeClock{}
	notifier := newRecordingNotifier()
	svc := NewService(Deps{
		Supply: &stubSupplier{SupplyFn: func(_ context.Context, topic question.Topic, target int) question.Pack {
			return question.Pack{Topic: topic, Questions: testQuestions(2), Source: question.SourceFallback}
		}},
		Notifier: notifier,
	}, ServiceOptions{Session: SessionOptions{Clock: clock, Budgets: Budgets{Standard: 5, Comprehension: 5, Quantitative: 5}}}, zerolog.Nop())
	defer svc.Shutdown()

	started, err := svc.StartSession(context.Background(), "u", gkTopic, 2)
	require.NoError(t, err)
	require.True(t, clock.latest().fire())

	assert.Eventually(t, func() bool {
		for _, k := range notifier.kinds(started.Snapshot.SessionID) {
			if k == EventTick {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestExpireIdleRemovesUntouchedSessions(t *testing.T) {
	f := newServiceFixture(t, 2)
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }

	idle, err := f.svc.StartSession(context.Background(), "u", gkTopic, 2)
	require.NoError(t, err)
	busy, err := f.svc.StartSession(context.Background(), "u", gkTopic, 2)
	require.NoError(t, err)

	now = now.Add(90 * time.Minute)
	_, err = f.svc.Select("u", busy.Snapshot.SessionID, 1)
	require.NoError(t, err)
	assert.Zero(t, f.svc.ExpireIdle())

	now = now.Add(time.Hour)
	assert.Equal(t, 1, f.svc.ExpireIdle())
	assert.Equal(t, 1, f.svc.Active())
	assert.Equal(t, []string{idle.Snapshot.SessionID}, f.notifier.released)

	_, err = f.svc.Snapshot("u", idle.Snapshot.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Snapshot("u", busy.Snapshot.SessionID)
	assert.NoError(t, err)
}

func TestRunIdleReaperStopsWithContext(t *testing.T) {
	f := newServiceFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.RunIdleReaper(ctx, 5*time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
