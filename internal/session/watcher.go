package session

import (
	"context"
	"log"
	"time"

	"contest-service/internal/domain"
)

// AccessChecker reads the round gate.
type AccessChecker interface {
	RoundAccess(ctx context.Context, round domain.Round) (domain.RoundAccess, error)
}

// Target is what a Watcher observes and acts upon.
type Target interface {
	Round() domain.Round
	Status() Status
	IsAdmin() bool
	SetAccess(open bool)
	Revoke(ctx context.Context) error
	Done() <-chan struct{}
}

// Watcher polls the round gate for one participant. Before the session starts
// it keeps the waiting state current; once the session is active a closed gate
// triggers an auto-submit and ends the loop.
type Watcher struct {
	checker AccessChecker
	target  Target
	active  time.Duration
	idle    time.Duration
	timeout time.Duration
}

func NewWatcher(checker AccessChecker, target Target, cfg Config) *Watcher {
	cfg = cfg.withDefaults()
	return &Watcher{
		checker: checker,
		target:  target,
		active:  cfg.ActivePoll,
		idle:    cfg.IdlePoll,
		timeout: cfg.CallTimeout,
	}
}

// Poll performs one gate check and reports whether polling should continue.
func (w *Watcher) Poll(ctx context.Context) bool {
	status := w.target.Status()
	if status.Terminal() || status == StatusSubmitting {
		return false
	}

	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	access, err := w.checker.RoundAccess(callCtx, w.target.Round())
	if err != nil {
		// transient: the previous observation stands until the next poll
		log.Printf("access watcher: round %d check failed: %v", w.target.Round(), err)
		return true
	}
	if access.Enabled {
		w.target.SetAccess(true)
		return true
	}

	if w.target.Status() == StatusActive {
		log.Printf("access watcher: round %d closed during an active session", w.target.Round())
		_ = w.target.Revoke(ctx)
		return false
	}
	w.target.SetAccess(false)
	return true
}

// Run polls until the session ends, the gate is revoked mid-session, or ctx
// is cancelled. Administrators bypass the gate and are not watched.
func (w *Watcher) Run(ctx context.Context) {
	if w.target.IsAdmin() {
		return
	}
	timer := time.NewTimer(w.interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.target.Done():
			return
		case <-timer.C:
			if !w.Poll(ctx) {
				return
			}
			timer.Reset(w.interval())
		}
	}
}

func (w *Watcher) interval() time.Duration {
	if w.target.Status() == StatusActive {
		return w.active
	}
	return w.idle
}
