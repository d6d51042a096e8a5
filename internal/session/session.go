package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"contest-service/internal/domain"
	"contest-service/internal/metrics"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusSelecting   Status = "selecting"
	StatusIntroducing Status = "introducing"
	StatusActive      Status = "active"
	StatusSubmitting  Status = "submitting"
	StatusCompleted   Status = "completed"
	StatusAborted     Status = "aborted"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// Exit is the session boundary state shown to the presentation layer.
type Exit string

const (
	ExitWaitingForAccess        Exit = "waiting-for-access"
	ExitIntroduction            Exit = "introduction"
	ExitInProgress              Exit = "in-progress"
	ExitAutoSubmitted           Exit = "auto-submitted"
	ExitCompleted               Exit = "completed"
	ExitBlockedAlreadyAttempted Exit = "blocked-already-attempted"
	ExitError                   Exit = "error"
)

type trigger int

const (
	triggerManual trigger = iota
	triggerExhausted
	triggerTimeout
	triggerRevoked
)

func (t trigger) auto() bool {
	return t == triggerTimeout || t == triggerRevoked
}

func (t trigger) String() string {
	switch t {
	case triggerTimeout:
		return "timeout"
	case triggerRevoked:
		return "revoked"
	case triggerExhausted:
		return "exhausted"
	default:
		return "manual"
	}
}

// Session is one participant's timed attempt at a round. All mutations are
// serialised by mu; backend calls are made without holding it, guarded by
// the status (a submission in flight blocks every other trigger).
type Session struct {
	id       string
	round    domain.Round
	settings RoundSettings
	variants []string
	backend  Backend
	cfg      Config
	autoTick bool

	life   context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	participant domain.Participant
	status      Status
	variant     string
	starting    bool
	accessOpen  bool
	waiting     bool
	questions   []domain.Question
	cursor      int
	answers     map[int]int
	accepted    map[string]string
	clock       Clock
	trigger     trigger
	blocked     bool
	reauth      bool
	notice      string
	result      *domain.ResultRecord
	subscribers map[chan Snapshot]struct{}
}

// New opens a session for participant at round. The participant must already
// have progressed to the round.
func New(backend Backend, participant domain.Participant, round domain.Round, cfg Config) (*Session, error) {
	if !round.Valid() {
		return nil, domain.ErrInvalidRound
	}
	if !participant.IsAdmin && participant.CurrentRound < round {
		return nil, domain.ErrRoundLocked
	}
	cfg = cfg.withDefaults()
	life, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:          uuid.NewString(),
		round:       round,
		settings:    cfg.settings(round),
		variants:    cfg.Variants[round],
		backend:     backend,
		cfg:         cfg,
		autoTick:    true,
		life:        life,
		cancel:      cancel,
		participant: participant,
		status:      StatusIntroducing,
		accessOpen:  true,
		answers:     make(map[int]int),
		accepted:    make(map[string]string),
		subscribers: make(map[chan Snapshot]struct{}),
	}
	switch {
	case len(s.variants) == 0:
	case round == domain.Round3 && participant.Round3Track != domain.TrackUnset:
		s.variant = string(participant.Round3Track)
	default:
		s.status = StatusSelecting
	}
	return s, nil
}

func (s *Session) ID() string          { return s.id }
func (s *Session) Round() domain.Round { return s.round }

// Done is closed once the session is terminal or closed.
func (s *Session) Done() <-chan struct{} { return s.life.Done() }

// Context lives as long as the session.
func (s *Session) Context() context.Context { return s.life }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant.IsAdmin
}

// Participant returns the latest authoritative participant snapshot.
func (s *Session) Participant() domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participant
}

// Select records the language or track choice. A Round 3 track is latched
// upstream before the session moves on.
func (s *Session) Select(ctx context.Context, variant string) error {
	s.mu.Lock()
	if s.status != StatusSelecting || s.starting {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	if !s.offers(variant) {
		s.mu.Unlock()
		return domain.ErrInvalidVariant
	}
	if s.round != domain.Round3 {
		s.variant = variant
		s.status = StatusIntroducing
		s.notice = ""
		s.broadcastLocked()
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	participantID := s.participant.ID
	s.mu.Unlock()

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	start := time.Now()
	updated, err := s.backend.SelectTrack(callCtx, participantID, domain.Track(variant))
	metrics.ObserveBackendCall("select_track", start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySelected) && updated.Round3Track != domain.TrackUnset {
			s.participant = updated
			s.notice = fmt.Sprintf("You have already selected the %s track. You cannot change your selection.", updated.Round3Track)
		} else {
			s.noteFailureLocked(err, "Failed to save your track selection. Please try again.")
		}
		s.broadcastLocked()
		return err
	}
	s.participant = updated
	s.variant = string(updated.Round3Track)
	s.status = StatusIntroducing
	s.notice = ""
	s.broadcastLocked()
	return nil
}

// Start moves an introduced session to active. Non-administrators pass the
// round gate first; a closed gate leaves the session waiting.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusIntroducing || s.starting {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	s.starting = true
	admin := s.participant.IsAdmin
	variant := s.variant
	s.mu.Unlock()

	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	if !admin {
		start := time.Now()
		access, err := s.backend.RoundAccess(callCtx, s.round)
		metrics.ObserveBackendCall("round_access", start)
		if err != nil {
			s.mu.Lock()
			s.starting = false
			s.noteFailureLocked(err, "Failed to check round access. Please try again.")
			s.broadcastLocked()
			s.mu.Unlock()
			return err
		}
		if !access.Enabled {
			s.mu.Lock()
			s.starting = false
			s.accessOpen = false
			s.waiting = true
			s.notice = fmt.Sprintf("Round %d has not been opened yet. Waiting for the administrator.", s.round)
			s.broadcastLocked()
			s.mu.Unlock()
			return domain.ErrAccessDenied
		}
	}

	blocked, err := s.refuseRetake(callCtx)
	if err != nil {
		s.mu.Lock()
		s.starting = false
		s.noteFailureLocked(err, "Failed to check your previous attempts. Please try again.")
		s.broadcastLocked()
		s.mu.Unlock()
		return err
	}
	if blocked {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		return domain.ErrAlreadyAttempted
	}

	start := time.Now()
	set, err := s.backend.Questions(callCtx, s.round, variant)
	metrics.ObserveBackendCall("questions", start)
	if err == nil && len(set.Questions) == 0 {
		err = domain.ErrQuestionsNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.starting = false
	if s.status != StatusIntroducing {
		// closed while the fetch was outstanding
		return domain.ErrInvalidTransition
	}
	if err != nil {
		s.returnToEntryLocked(err)
		return err
	}

	s.questions = set.Questions
	s.cursor = 0
	s.status = StatusActive
	s.accessOpen = true
	s.waiting = false
	s.notice = ""
	if s.settings.Mode == ModePerQuestion {
		s.clock.Restart(s.settings.QuestionSeconds)
	} else {
		s.clock.Restart(s.settings.BudgetSeconds)
	}
	metrics.SessionsStarted.WithLabelValues(strconv.Itoa(int(s.round))).Inc()
	log.Printf("session %s: participant %s started round %d (%s, %d questions)", s.id, s.participant.ID, s.round, s.settings.Mode, len(s.questions))
	s.broadcastLocked()
	if s.autoTick {
		go drive(s.life, s.cfg.TickInterval, s.tick)
	}
	return nil
}

// Answer records the selected option for a question. In per-question mode
// only the current question can be answered; earlier ones are closed.
func (s *Session) Answer(index, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.activeLocked(); err != nil {
		return err
	}
	switch s.settings.Mode {
	case ModeChallenge:
		return domain.ErrInvalidTransition
	case ModePerQuestion:
		if index != s.cursor {
			return domain.ErrInvalidTransition
		}
	}
	if index < 0 || index >= len(s.questions) {
		return domain.ErrQuestionOutOfRange
	}
	if option < 0 || option >= len(s.questions[index].Options) {
		return domain.ErrOptionOutOfRange
	}
	s.answers[index] = option
	s.broadcastLocked()
	return nil
}

// Next leaves the current question in per-question mode. Leaving the last
// question submits the session.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	if err := s.activeLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.settings.Mode != ModePerQuestion {
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	exhausted := s.advanceLocked()
	s.mu.Unlock()
	if exhausted {
		return s.submit(ctx, triggerExhausted)
	}
	return nil
}

// SubmitChallenge sends a Round 3 payload for one of the track's challenges.
func (s *Session) SubmitChallenge(ctx context.Context, challengeID, payload string) (bool, error) {
	s.mu.Lock()
	if err := s.activeLocked(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	if s.settings.Mode != ModeChallenge {
		s.mu.Unlock()
		return false, domain.ErrInvalidTransition
	}
	participantID := s.participant.ID
	s.mu.Unlock()

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	start := time.Now()
	sub, accepted, err := s.backend.SubmitChallenge(callCtx, participantID, challengeID, payload)
	metrics.ObserveBackendCall("submit_challenge", start)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if accepted {
		s.accepted[challengeID] = sub.ID
	}
	s.broadcastLocked()
	return accepted, nil
}

// Finish is the participant's explicit submit.
func (s *Session) Finish(ctx context.Context) error {
	return s.submit(ctx, triggerManual)
}

// Revoke auto-submits an active session after the gate closed under it.
// Before the session starts it only records that access is closed.
func (s *Session) Revoke(ctx context.Context) error {
	s.mu.Lock()
	s.accessOpen = false
	if s.status != StatusActive {
		if !s.status.Terminal() && s.status != StatusSubmitting {
			s.waiting = true
			s.broadcastLocked()
		}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.submit(ctx, triggerRevoked)
}

// SetAccess records the latest gate observation for a session that has not started.
func (s *Session) SetAccess(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accessOpen == open {
		return
	}
	s.accessOpen = open
	if s.status == StatusSelecting || s.status == StatusIntroducing {
		s.waiting = !open
		if open {
			s.notice = ""
		}
	}
	s.broadcastLocked()
}

// Close abandons the session without contacting the backend. A submission
// already in flight still completes.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.status.Terminal() && s.status != StatusSubmitting {
		s.status = StatusAborted
		s.clock.Stop()
		s.broadcastLocked()
		s.cancel()
	}
	s.mu.Unlock()
}

// tick advances the clock by one second and reports whether the driver
// should keep running.
func (s *Session) tick() bool {
	s.mu.Lock()
	if s.status != StatusActive {
		running := !s.status.Terminal()
		s.mu.Unlock()
		return running
	}
	_, expired := s.clock.Tick()
	if !expired {
		s.broadcastLocked()
		s.mu.Unlock()
		return true
	}

	t := triggerTimeout
	if s.settings.Mode == ModePerQuestion {
		if !s.advanceLocked() {
			s.mu.Unlock()
			return true
		}
		t = triggerExhausted
	}
	s.mu.Unlock()

	_ = s.submit(s.life, t)
	return false
}

// advanceLocked leaves the current question. It reports true when the cursor
// has passed the last question.
func (s *Session) advanceLocked() bool {
	s.cursor++
	if s.cursor >= len(s.questions) {
		s.clock.Stop()
		return true
	}
	s.clock.Restart(s.settings.QuestionSeconds)
	s.broadcastLocked()
	return false
}

// submit is the single path to persistence for every trigger. The status
// guard is set before the backend call, so racing triggers lose silently.
func (s *Session) submit(ctx context.Context, t trigger) error {
	s.mu.Lock()
	switch {
	case s.status == StatusSubmitting || s.status.Terminal():
		s.mu.Unlock()
		return domain.ErrSubmissionInProgress
	case s.status != StatusActive:
		s.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	s.status = StatusSubmitting
	s.trigger = t
	s.clock.Stop()
	if t == triggerRevoked {
		s.accessOpen = false
	}
	req := s.resultSubmissionLocked()
	s.broadcastLocked()
	s.mu.Unlock()

	if t.auto() {
		metrics.AutoSubmits.WithLabelValues(strconv.Itoa(int(s.round)), t.String()).Inc()
		log.Printf("session %s: auto-submitting round %d for participant %s (%s)", s.id, s.round, req.ParticipantID, t)
	}

	// A fired submission outlives navigation away from the session.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CallTimeout)
	defer cancel()
	start := time.Now()
	participant, rec, err := s.backend.SubmitResult(callCtx, req)
	metrics.ObserveBackendCall("submit_result", start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(participant, rec, err)
	return err
}

// resultSubmissionLocked scores every visited question. In per-question mode
// the visited range includes the question on screen when the session ends.
func (s *Session) resultSubmissionLocked() domain.ResultSubmission {
	req := domain.ResultSubmission{
		ParticipantID:  s.participant.ID,
		Round:          s.round,
		Variant:        s.variant,
		TotalQuestions: len(s.questions),
	}
	if s.settings.Mode == ModeChallenge {
		req.Score = len(s.accepted)
		return req
	}
	req.Score = s.scoreLocked()
	return req
}

func (s *Session) scoreLocked() int {
	visited := len(s.questions)
	if s.settings.Mode == ModePerQuestion && s.cursor < visited {
		visited = s.cursor + 1
	}
	score := 0
	for i := 0; i < visited; i++ {
		if selected, ok := s.answers[i]; ok && selected == s.questions[i].CorrectOption {
			score++
		}
	}
	return score
}

func (s *Session) finishLocked(participant domain.Participant, rec domain.ResultRecord, err error) {
	switch {
	case err == nil:
		s.status = StatusCompleted
		s.participant = participant
		s.result = &rec
		switch s.trigger {
		case triggerRevoked:
			s.notice = fmt.Sprintf("Round %d was closed by the administrator. Your answers were submitted: %d/%d.", s.round, rec.Score, rec.TotalQuestions)
		case triggerTimeout:
			s.notice = fmt.Sprintf("Time is up. Your answers were submitted: %d/%d.", rec.Score, rec.TotalQuestions)
		default:
			s.notice = fmt.Sprintf("Quiz completed! Your score: %d/%d.", rec.Score, rec.TotalQuestions)
		}
	case errors.Is(err, domain.ErrAlreadyAttempted):
		s.status = StatusAborted
		s.blocked = true
		s.notice = retakeNotice
	case errors.Is(err, domain.ErrParticipantNotFound):
		s.status = StatusAborted
		s.reauth = true
		s.notice = "User not found. Please log in again."
	default:
		s.status = StatusAborted
		s.notice = "Error submitting your results. Please try again."
		log.Printf("session %s: submit round %d failed: %v", s.id, s.round, err)
	}
	metrics.SessionsFinished.WithLabelValues(strconv.Itoa(int(s.round)), string(s.exitLocked())).Inc()
	s.broadcastLocked()
	s.cancel()
}

const retakeNotice = "You have already attempted this round and cannot retake it."

// refuseRetake ends the session as blocked when the participant already holds
// a record for the round, so no question is served for an attempt that can
// never be recorded.
func (s *Session) refuseRetake(ctx context.Context) (bool, error) {
	s.mu.Lock()
	participantID := s.participant.ID
	s.mu.Unlock()

	callCtx, cancel := s.callContext(ctx)
	defer cancel()
	start := time.Now()
	records, err := s.backend.Results(callCtx, participantID)
	metrics.ObserveBackendCall("results", start)
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.Round != s.round {
			continue
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.status.Terminal() {
			s.status = StatusAborted
			s.blocked = true
			s.clock.Stop()
			s.notice = retakeNotice
			metrics.SessionsFinished.WithLabelValues(strconv.Itoa(int(s.round)), string(s.exitLocked())).Inc()
			s.broadcastLocked()
			s.cancel()
		}
		return true, nil
	}
	return false, nil
}

// returnToEntryLocked handles a failed question fetch: back to the choice
// screen when there is one, otherwise the session ends without a record.
func (s *Session) returnToEntryLocked(err error) {
	s.notice = "Error loading questions. Please try again."
	log.Printf("session %s: load round %d questions failed: %v", s.id, s.round, err)
	if len(s.variants) > 0 && !(s.round == domain.Round3 && s.participant.Round3Track != domain.TrackUnset) {
		s.status = StatusSelecting
		s.variant = ""
		s.broadcastLocked()
		return
	}
	s.status = StatusAborted
	s.broadcastLocked()
	s.cancel()
}

func (s *Session) noteFailureLocked(err error, fallback string) {
	if errors.Is(err, domain.ErrParticipantNotFound) {
		s.reauth = true
		s.notice = "User not found. Please log in again."
		return
	}
	s.notice = fallback
}

func (s *Session) activeLocked() error {
	switch s.status {
	case StatusActive:
		return nil
	case StatusSubmitting:
		return domain.ErrSubmissionInProgress
	default:
		return domain.ErrInvalidTransition
	}
}

func (s *Session) offers(variant string) bool {
	for _, v := range s.variants {
		if v == variant {
			return true
		}
	}
	return false
}

func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}

func (s *Session) exitLocked() Exit {
	switch s.status {
	case StatusSelecting, StatusIntroducing:
		if s.waiting {
			return ExitWaitingForAccess
		}
		return ExitIntroduction
	case StatusActive, StatusSubmitting:
		return ExitInProgress
	case StatusCompleted:
		if s.trigger.auto() {
			return ExitAutoSubmitted
		}
		return ExitCompleted
	default:
		if s.blocked {
			return ExitBlockedAlreadyAttempted
		}
		return ExitError
	}
}

// Snapshot returns the presentation view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel that receives session snapshots.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// the channel is fresh, so the buffered send cannot block
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest snapshot so a slow reader never blocks the session
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:        s.id,
		Participant:      s.participant,
		Round:            s.round,
		Variant:          s.variant,
		Mode:             s.settings.Mode,
		Status:           s.status,
		Exit:             s.exitLocked(),
		Variants:         s.variants,
		Cursor:           s.cursor,
		TotalQuestions:   len(s.questions),
		RemainingSeconds: s.clock.Remaining(),
		AccessOpen:       s.accessOpen,
		Notice:           s.notice,
		Reauth:           s.reauth,
		Result:           s.result,
	}
	if len(s.answers) > 0 {
		snap.Answers = make(map[int]int, len(s.answers))
		for k, v := range s.answers {
			snap.Answers[k] = v
		}
	}
	for id := range s.accepted {
		snap.Accepted = append(snap.Accepted, id)
	}
	sort.Strings(snap.Accepted)

	if s.status != StatusActive {
		return snap
	}
	if s.settings.Mode == ModePerQuestion {
		if s.cursor < len(s.questions) {
			snap.Questions = []QuestionView{viewOf(s.cursor, s.questions[s.cursor])}
		}
		return snap
	}
	snap.Questions = make([]QuestionView, len(s.questions))
	for i, q := range s.questions {
		snap.Questions[i] = viewOf(i, q)
	}
	return snap
}
