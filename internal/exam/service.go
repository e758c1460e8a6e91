package exam

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/cds-vanguard/internal/auth"
	"github.com/gokatarajesh/cds-vanguard/internal/db/queries"
	"github.com/gokatarajesh/cds-vanguard/internal/db/repository"
	"github.com/gokatarajesh/cds-vanguard/internal/exam/scoring"
	"github.com/gokatarajesh/cds-vanguard/internal/question"
	"github.com/gokatarajesh/cds-vanguard/internal/quota"
	"github.com/gokatarajesh/cds-vanguard/internal/standings"
)

type supplier interface {
	Supply(ctx context.Context, topic question.Topic, target int) question.Pack
}

type enricher interface {
	Enrich(ctx context.Context, topic question.Topic, q question.Question) question.Enrichment
}

type quotaConsumer interface {
	Consume(ctx context.Context, userID string, n int) (quota.Usage, error)
}

type resultStore interface {
	SaveResult(ctx context.Context, result Result) error
	GetResult(ctx context.Context, sessionID string) (*Result, error)
}

type standingsRecorder interface {
	Record(ctx context.Context, req standings.RecordRequest) error
}

type attemptRecorder interface {
	Record(ctx context.Context, params queries.InsertExamAttemptParams) error
}

// Notifier pushes session events to whoever is watching the session.
type Notifier interface {
	Notify(sessionID string, ev Event)
	// Release drops the watchers of a session that will emit no more events.
	Release(sessionID string)
}

// ServiceOptions configures the exam service.
type ServiceOptions struct {
	Session      SessionOptions
	Scoring      scoring.ScoringConfig
	DefaultCount int
	MaxCount     int

	// IdleTimeout bounds how long an untouched session stays in the registry.
	IdleTimeout time.Duration
}

// Service owns the live sessions and exposes the session boundary operations.
type Service struct {
	supply    supplier
	enricher  enricher
	quota     quotaConsumer
	results   resultStore
	attempts  attemptRecorder
	standings standingsRecorder
	notifier  Notifier
	scorer    *scoring.Engine
	opts      ServiceOptions
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

type liveSession struct {
	session   *Session
	userID    string
	source    string
	warning   string
	startedAt time.Time

	// lastActive is unix nanos of the last candidate action.
	lastActive atomic.Int64
}

// Deps groups the collaborators of the service. Quota, Results, Attempts and Notifier are optional.
type Deps struct {
	Supply    supplier
	Enricher  enricher
	Quota     quotaConsumer
	Results   resultStore
	Attempts  attemptRecorder
	Standings standingsRecorder
	Notifier  Notifier
}

// NewService wires the exam service.
func NewService(deps Deps, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = 10
	}
	if opts.MaxCount <= 0 {
		opts.MaxCount = 30
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 2 * time.Hour
	}
	if opts.Scoring == (scoring.ScoringConfig{}) {
		opts.Scoring = scoring.DefaultScoringConfig()
	}
	return &Service{
		supply:    deps.Supply,
		enricher:  deps.Enricher,
		quota:     deps.Quota,
		results:   deps.Results,
		attempts:  deps.Attempts,
		standings: deps.Standings,
		notifier:  deps.Notifier,
		scorer:    scoring.NewEngine(opts.Scoring),
		opts:      opts,
		logger:    logger.With().Str("component", "exam_service").Logger(),
		now:       time.Now,
		sessions:  make(map[string]*liveSession),
	}
}

// Started is returned to the candidate when a session begins. Answers are withheld.
type Started struct {
	Snapshot  Snapshot                  `json:"session"`
	Questions []question.PublicQuestion `json:"questions"`
	Source    string                    `json:"source"`
	Degraded  bool                      `json:"degraded"`
	Warning   string                    `json:"warning,omitempty"`
}

// StartSession supplies questions for the topic and starts the countdown.
func (s *Service) StartSession(ctx context.Context, userID string, topic question.Topic, target int) (*Started, error) {
	target = s.TargetCount(target)

	if s.quota != nil {
		if _, err := s.quota.Consume(ctx, userID, 1); err != nil {
			return nil, err
		}
	}

	pack := s.supply.Supply(ctx, topic, target)
	id := uuid.NewString()

	session, err := NewSession(id, topic, pack.Questions, s.opts.Session)
	if err != nil {
		return nil, err
	}

	live := &liveSession{
		session:   session,
		userID:    userID,
		source:    pack.Source,
		warning:   pack.Warning,
		startedAt: s.now(),
	}
	live.lastActive.Store(live.startedAt.UnixNano())
	s.mu.Lock()
	s.sessions[id] = live
	s.mu.Unlock()
	activeSessions.Inc()
	sessionsStarted.WithLabelValues(pack.Source).Inc()

	session.Start(s.listener(id))

	public := make([]question.PublicQuestion, len(pack.Questions))
	for i, q := range pack.Questions {
		public[i] = q.Public()
	}

	s.logger.Info().
		Str("session_id", id).
		Str("user_id", userID).
		Str("topic", topic.ID).
		Str("source", pack.Source).
		Int("questions", len(pack.Questions)).
		Msg("exam session started")

	return &Started{
		Snapshot:  session.Snapshot(),
		Questions: public,
		Source:    pack.Source,
		Degraded:  pack.Degraded,
		Warning:   pack.Warning,
	}, nil
}

func (s *Service) listener(id string) Listener {
	return func(ev Event) {
		if s.notifier != nil {
			s.notifier.Notify(id, ev)
		}
	}
}

// lookup returns the live session owned by userID. Sessions of other users look absent.
func (s *Service) lookup(userID, id string) (*liveSession, error) {
	s.mu.RLock()
	live, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || live.userID != userID {
		return nil, ErrSessionNotFound
	}
	live.lastActive.Store(s.now().UnixNano())
	return live, nil
}

// Owns reports whether userID currently holds the session.
func (s *Service) Owns(userID, id string) bool {
	_, err := s.lookup(userID, id)
	return err == nil
}

func (s *Service) act(userID, id string, fn func(*Session) error) (Snapshot, error) {
	live, err := s.lookup(userID, id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := fn(live.session); err != nil {
		return Snapshot{}, err
	}
	return live.session.Snapshot(), nil
}

func (s *Service) Snapshot(userID, id string) (Snapshot, error) {
	return s.act(userID, id, func(*Session) error { return nil })
}

func (s *Service) Select(userID, id string, option int) (Snapshot, error) {
	return s.act(userID, id, func(sess *Session) error { return sess.Select(option) })
}

func (s *Service) Eliminate(userID, id string, option int) (Snapshot, error) {
	return s.act(userID, id, func(sess *Session) error { return sess.ToggleElimination(option) })
}

func (s *Service) Next(userID, id string) (Snapshot, error) {
	return s.act(userID, id, (*Session).Next)
}

func (s *Service) Previous(userID, id string) (Snapshot, error) {
	return s.act(userID, id, (*Session).Previous)
}

func (s *Service) RequestSubmit(userID, id string) (Snapshot, error) {
	return s.act(userID, id, (*Session).RequestSubmit)
}

func (s *Service) CancelSubmit(userID, id string) (Snapshot, error) {
	return s.act(userID, id, (*Session).CancelSubmit)
}

// Submit confirms submission, scores the session and persists the result.
// The session leaves the registry; its result is served from the result store afterwards.
func (s *Service) Submit(ctx context.Context, userID, id string) (*Result, error) {
	live, err := s.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	responses, err := live.session.ConfirmSubmit()
	if err != nil {
		return nil, err
	}

	questions := live.session.Questions()
	result := Result{
		SessionID:  id,
		UserID:     userID,
		Topic:      live.session.Topic(),
		Source:     live.source,
		Warning:    live.warning,
		Questions:  questions,
		Responses:  responses,
		Score:      s.Score(questions, responses),
		StartedAt:  live.startedAt,
		FinishedAt: s.now(),
	}

	s.remove(id)
	sessionsFinished.Inc()
	s.persist(ctx, result)
	if s.notifier != nil {
		s.notifier.Release(id)
	}

	s.logger.Info().
		Str("session_id", id).
		Str("user_id", userID).
		Int("correct", result.Score.Correct).
		Int("wrong", result.Score.Wrong).
		Int("skipped", result.Score.Skipped).
		Str("score", result.Score.Display).
		Msg("exam session finished")

	return &result, nil
}

// TargetCount applies the default question count and bounds it to MaxCount.
func (s *Service) TargetCount(n int) int {
	if n <= 0 {
		return s.opts.DefaultCount
	}
	if n > s.opts.MaxCount {
		return s.opts.MaxCount
	}
	return n
}

// Score applies negative marking to the responses.
func (s *Service) Score(questions []question.Question, responses []UserResponse) scoring.Result {
	return s.scorer.Score(questions, responses)
}

// persist failures are logged; the candidate still receives the result.
func (s *Service) persist(ctx context.Context, result Result) {
	if s.results != nil {
		if err := s.results.SaveResult(ctx, result); err != nil {
			s.logger.Warn().Err(err).Str("session_id", result.SessionID).Msg("save result failed")
		}
	}
	if s.standings != nil {
		req := standings.RecordRequest{
			UserID:    result.UserID,
			TopicID:   result.Topic.ID,
			Score:     result.Score.Numeric,
			Correct:   result.Score.Correct,
			Attempted: result.Score.Attempted,
		}
		if claims, ok := auth.ClaimsFromContext(ctx); ok {
			req.DisplayName = claims.DisplayName
		}
		if err := s.standings.Record(ctx, req); err != nil {
			s.logger.Warn().Err(err).Str("session_id", result.SessionID).Msg("record standings failed")
		}
	}
	if s.attempts == nil {
		return
	}
	userID, err := uuid.Parse(result.UserID)
	if err != nil {
		s.logger.Debug().Str("user_id", result.UserID).Msg("skipping attempt record for non-uuid user")
		return
	}
	err = s.attempts.Record(ctx, queries.InsertExamAttemptParams{
		SessionID:     result.SessionID,
		UserID:        repository.PGUUID(userID),
		TopicID:       result.Topic.ID,
		TopicName:     result.Topic.Name,
		Source:        result.Source,
		QuestionCount: int32(len(result.Questions)),
		CorrectCount:  int32(result.Score.Correct),
		WrongCount:    int32(result.Score.Wrong),
		SkippedCount:  int32(result.Score.Skipped),
		NumericScore:  result.Score.Numeric,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", result.SessionID).Msg("record attempt failed")
	}
}

// Result returns a finished session's stored result.
func (s *Service) Result(ctx context.Context, userID, id string) (*Result, error) {
	if _, err := s.lookup(userID, id); err == nil {
		return nil, ErrSessionActive
	}
	if s.results == nil {
		return nil, ErrResultNotFound
	}
	result, err := s.results.GetResult(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	if result == nil || result.UserID != userID {
		return nil, ErrResultNotFound
	}
	return result, nil
}

// Brief returns the enrichment for a question of a finished session. Never fails once the
// result is found; a generic brief stands in when the generator is unavailable.
func (s *Service) Brief(ctx context.Context, userID, id, questionID string) (question.Enrichment, error) {
	result, err := s.Result(ctx, userID, id)
	if err != nil {
		return question.Enrichment{}, err
	}
	for _, q := range result.Questions {
		if q.ID != questionID {
			continue
		}
		if s.enricher == nil {
			return question.Enrichment{Explanation: q.Explanation, Brief: question.GenericBrief, Generic: true}, nil
		}
		return s.enricher.Enrich(ctx, result.Topic, q), nil
	}
	return question.Enrichment{}, ErrQuestionNotFound
}

// Discard abandons a live session without scoring it.
func (s *Service) Discard(userID, id string) error {
	live, err := s.lookup(userID, id)
	if err != nil {
		return err
	}
	live.session.Close()
	s.remove(id)
	if s.notifier != nil {
		s.notifier.Release(id)
	}
	s.logger.Info().Str("session_id", id).Str("user_id", userID).Msg("exam session discarded")
	return nil
}

func (s *Service) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		activeSessions.Dec()
	}
}

// Active returns the number of live sessions.
func (s *Service) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ExpireIdle closes sessions nobody has touched for IdleTimeout and returns how many went.
func (s *Service) ExpireIdle() int {
	cutoff := s.now().Add(-s.opts.IdleTimeout).UnixNano()

	s.mu.Lock()
	var expired []string
	var sessions []*Session
	for id, l := range s.sessions {
		if l.lastActive.Load() < cutoff {
			expired = append(expired, id)
			sessions = append(sessions, l.session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for i, id := range expired {
		sessions[i].Close()
		if s.notifier != nil {
			s.notifier.Release(id)
		}
	}
	if len(expired) > 0 {
		activeSessions.Sub(float64(len(expired)))
		s.logger.Info().Int("sessions", len(expired)).Dur("idle_timeout", s.opts.IdleTimeout).Msg("expired idle exam sessions")
	}
	return len(expired)
}

// RunIdleReaper expires idle sessions every interval until ctx is cancelled.
func (s *Service) RunIdleReaper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.ExpireIdle()
		}
	}
}

// Shutdown closes every live session and releases its timer.
func (s *Service) Shutdown() {
	s.mu.Lock()
	live := s.sessions
	s.sessions = make(map[string]*liveSession)
	s.mu.Unlock()

	for id, l := range live {
		l.session.Close()
		if s.notifier != nil {
			s.notifier.Release(id)
		}
	}
	activeSessions.Sub(float64(len(live)))
	if len(live) > 0 {
		s.logger.Info().Int("sessions", len(live)).Msg("closed live exam sessions")
	}
}
