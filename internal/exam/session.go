package exam

import (
	"sort"
	"sync"
	"time"

	"github.com/gokatarajesh/cds-vanguard/internal/exam/scoring"
	"github.com/gokatarajesh/cds-vanguard/internal/question"
)

// State of an exam session.
type State string

const (
	StateInProgress           State = "in_progress"
	StateAwaitingConfirmation State = "awaiting_submit_confirmation"
	StateFinished             State = "finished"
)

// UserResponse is the per-question outcome produced at submission.
type UserResponse = scoring.Response

// EventKind tells listeners what changed.
type EventKind string

const (
	EventState        EventKind = "state"
	EventTick         EventKind = "tick"
	EventSubmitPrompt EventKind = "submit_prompt"
	EventFinished     EventKind = "finished"
)

// Event is emitted after every transition, outside the session lock.
type Event struct {
	Kind      EventKind
	Snapshot  Snapshot
	Responses []UserResponse
}

// Listener receives session events. It must not block for long; the timer waits on it.
type Listener func(Event)

// SessionOptions controls timing behaviour.
type SessionOptions struct {
	TickInterval        time.Duration
	ResetTimerOnRevisit bool
	Budgets             Budgets
	Clock               Clock
}

// Snapshot is a read-only view of a session. The answer key is never included.
type Snapshot struct {
	SessionID  string                  `json:"sessionId"`
	Topic      question.Topic          `json:"topic"`
	State      State                   `json:"state"`
	Index      int                     `json:"currentIndex"`
	Total      int                     `json:"questionCount"`
	TimeLeft   int                     `json:"timeLeft"`
	Budget     int                     `json:"budget"`
	Current    question.PublicQuestion `json:"currentQuestion"`
	Selected   *int                    `json:"selectedOption"`
	Eliminated []int                   `json:"eliminatedOptions"`
	Answered   int                     `json:"answeredCount"`
}

// Session is the timed state machine for one candidate's exam.
//
// The countdown ticker is a capability the session acquires on entering InProgress and
// releases on leaving it. A tick that races with the release is discarded under the lock.
type Session struct {
	id        string
	topic     question.Topic
	questions []question.Question
	opts      SessionOptions

	mu           sync.Mutex
	state        State
	index        int
	timeLeft     int
	selections   map[string]int
	eliminations map[string]map[int]struct{}
	responses    []UserResponse
	listener     Listener
	ticker       Ticker
	stopC        chan struct{}
}

// NewSession builds a session positioned on the first question. The timer starts with Start.
func NewSession(id string, topic question.Topic, questions []question.Question, opts SessionOptions) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Budgets == (Budgets{}) {
		opts.Budgets = DefaultBudgets()
	}

	s := &Session{
		id:           id,
		topic:        topic,
		questions:    append([]question.Question(nil), questions...),
		opts:         opts,
		state:        StateInProgress,
		selections:   make(map[string]int),
		eliminations: make(map[string]map[int]struct{}),
	}
	s.timeLeft = s.budgetFor(0)
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Topic() question.Topic { return s.topic }

// Questions returns the full list including answers; callers must not leak it to a live candidate.
func (s *Session) Questions() []question.Question {
	return append([]question.Question(nil), s.questions...)
}

// budgetFor is recomputed whenever the active question changes.
func (s *Session) budgetFor(_ int) int {
	return s.opts.Budgets.For(s.topic)
}

// Start attaches the listener and begins the countdown.
func (s *Session) Start(listener Listener) {
	s.apply(func() ([]Event, error) {
		s.listener = listener
		if s.state != StateInProgress {
			return nil, nil
		}
		s.startTimerLocked()
		return []Event{s.eventLocked(EventState)}, nil
	})
}

// Tick advances the countdown by one step. At zero it behaves like Next.
func (s *Session) Tick() error {
	return s.apply(func() ([]Event, error) {
		if err := s.requireInProgressLocked(); err != nil {
			return nil, err
		}
		return s.tickLocked(), nil
	})
}

// Select records the option for the current question. Eliminated options can still be chosen.
func (s *Session) Select(option int) error {
	return s.apply(func() ([]Event, error) {
		if err := s.requireInProgressLocked(); err != nil {
			return nil, err
		}
		if err := s.checkOptionLocked(option); err != nil {
			return nil, err
		}
		s.selections[s.questions[s.index].ID] = option
		return []Event{s.eventLocked(EventState)}, nil
	})
}

// ToggleElimination flips an option in the current question's eliminated set. Display only.
func (s *Session) ToggleElimination(option int) error {
	return s.apply(func() ([]Event, error) {
		if err := s.requireInProgressLocked(); err != nil {
			return nil, err
		}
		if err := s.checkOptionLocked(option); err != nil {
			return nil, err
		}
		qid := s.questions[s.index].ID
		set, ok := s.eliminations[qid]
		if !ok {
			set = make(map[int]struct{})
			s.eliminations[qid] = set
		}
		if _, on := set[option]; on {
			delete(set, option)
		} else {
			set[option] = struct{}{}
		}
		if len(set) == 0 {
			delete(s.eliminations, qid)
		}
		return []Event{s.eventLocked(EventState)}, nil
	})
}

// Next moves forward, or opens the submit confirmation on the last question.
func (s *Session) Next() error {
	return s.apply(func() ([]Event, error) {
		if err := s.requireInProgressLocked(); err != nil {
			return nil, err
		}
		return s.advanceLocked(), nil
	})
}

// Previous moves back one question. Whether the countdown restarts is a policy option.
func (s *Session) Previous() error {
	return s.apply(func() ([]Event, error) {
		if err := s.requireInProgressLocked(); err != nil {
			return nil, err
		}
		if s.index == 0 {
			return nil, nil
		}
		s.index--
		if s.opts.ResetTimerOnRevisit {
			s.timeLeft = s.budgetFor(s.index)
		}
		return []Event{s.eventLocked(EventState)}, nil
	})
}

// RequestSubmit opens the confirmation from any question.
func (s *Session) RequestSubmit() error {
	return s.apply(func() ([]Event, error) {
		if err := s.requireInProgressLocked(); err != nil {
			return nil, err
		}
		s.state = StateAwaitingConfirmation
		s.stopTimerLocked()
		return []Event{s.eventLocked(EventSubmitPrompt)}, nil
	})
}

// ConfirmSubmit finishes the exam and returns one response per question.
func (s *Session) ConfirmSubmit() ([]UserResponse, error) {
	var responses []UserResponse
	err := s.apply(func() ([]Event, error) {
		if s.state == StateFinished {
			return nil, ErrSessionFinished
		}
		if s.state != StateAwaitingConfirmation {
			return nil, ErrNotAwaitingConfirmation
		}
		s.stopTimerLocked()
		s.state = StateFinished
		s.responses = scoring.Responses(s.questions, s.selections)
		responses = append([]UserResponse(nil), s.responses...)

		ev := s.eventLocked(EventFinished)
		ev.Responses = responses
		return []Event{ev}, nil
	})
	return responses, err
}

// CancelSubmit closes the confirmation and resumes on the same question with its remaining time.
func (s *Session) CancelSubmit() error {
	return s.apply(func() ([]Event, error) {
		if s.state == StateFinished {
			return nil, ErrSessionFinished
		}
		if s.state != StateAwaitingConfirmation {
			return nil, ErrNotAwaitingConfirmation
		}
		s.state = StateInProgress
		s.startTimerLocked()
		return []Event{s.eventLocked(EventState)}, nil
	})
}

// Close releases the timer and ends the session without producing responses.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.state = StateFinished
	s.listener = nil
}

// Snapshot returns the current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Responses is empty until the session has been submitted.
func (s *Session) Responses() []UserResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UserResponse(nil), s.responses...)
}

// TimerActive reports whether the session currently holds a ticker.
func (s *Session) TimerActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopC != nil
}

func (s *Session) apply(fn func() ([]Event, error)) error {
	s.mu.Lock()
	events, err := fn()
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		for _, ev := range events {
			listener(ev)
		}
	}
	return err
}

func (s *Session) requireInProgressLocked() error {
	switch s.state {
	case StateInProgress:
		return nil
	case StateFinished:
		return ErrSessionFinished
	default:
		return ErrNotInProgress
	}
}

func (s *Session) checkOptionLocked(option int) error {
	if option < 0 || option >= len(s.questions[s.index].Options) {
		return ErrInvalidOption
	}
	return nil
}

func (s *Session) tickLocked() []Event {
	s.timeLeft--
	if s.timeLeft <= 0 {
		s.timeLeft = 0
		return s.advanceLocked()
	}
	return []Event{s.eventLocked(EventTick)}
}

func (s *Session) advanceLocked() []Event {
	if s.index < len(s.questions)-1 {
		s.index++
		s.timeLeft = s.budgetFor(s.index)
		return []Event{s.eventLocked(EventState)}
	}
	s.state = StateAwaitingConfirmation
	s.stopTimerLocked()
	return []Event{s.eventLocked(EventSubmitPrompt)}
}

func (s *Session) startTimerLocked() {
	if s.stopC != nil {
		return
	}
	s.ticker = s.opts.Clock.NewTicker(s.opts.TickInterval)
	s.stopC = make(chan struct{})
	go s.runTimer(s.ticker, s.stopC)
}

func (s *Session) stopTimerLocked() {
	if s.stopC == nil {
		return
	}
	close(s.stopC)
	s.ticker.Stop()
	s.stopC = nil
	s.ticker = nil
}

func (s *Session) runTimer(t Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			s.mu.Lock()
			select {
			case <-stop:
				s.mu.Unlock()
				return
			default:
			}
			var events []Event
			if s.state == StateInProgress {
				events = s.tickLocked()
			}
			listener := s.listener
			s.mu.Unlock()

			if listener != nil {
				for _, ev := range events {
					listener(ev)
				}
			}
		}
	}
}

func (s *Session) eventLocked(kind EventKind) Event {
	return Event{Kind: kind, Snapshot: s.snapshotLocked()}
}

func (s *Session) snapshotLocked() Snapshot {
	q := s.questions[s.index]
	snap := Snapshot{
		SessionID: s.id,
		Topic:     s.topic,
		State:     s.state,
		Index:     s.index,
		Total:     len(s.questions),
		TimeLeft:  s.timeLeft,
		Budget:    s.budgetFor(s.index),
		Current:   q.Public(),
		Answered:  len(s.selections),
	}
	if sel, ok := s.selections[q.ID]; ok {
		snap.Selected = &sel
	}
	for opt := range s.eliminations[q.ID] {
		snap.Eliminated = append(snap.Eliminated, opt)
	}
	sort.Ints(snap.Eliminated)
	return snap
}
