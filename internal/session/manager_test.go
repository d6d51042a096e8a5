package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"contest-service/internal/domain"
)

type mapRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func (r *mapRegistry) Put(key string, s *Session) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[key]; ok && !existing.Status().Terminal() {
		return existing, false
	}
	r.sessions[key] = s
	return s, true
}

func (r *mapRegistry) Get(key string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	return s, ok
}

func (r *mapRegistry) Delete(key string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[key] == s {
		delete(r.sessions, key)
	}
}

func newTestManager(b *fakeBackend) *Manager {
	cfg := testConfig()
	cfg.IdlePoll = time.Hour
	cfg.ActivePoll = time.Hour
	cfg.TickInterval = time.Hour
	return NewManager(b, &mapRegistry{sessions: make(map[string]*Session)}, cfg)
}

func TestManagerOpenReusesLiveSession(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(player(domain.Round1))
	m := newTestManager(b)

	first, err := m.Open(ctx, "p1", domain.Round1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer first.Close()
	second, err := m.Open(ctx, "p1", domain.Round1)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if first != second {
		t.Fatalf("expected the live session to be shared")
	}
	got, err := m.Get("p1", domain.Round1)
	if err != nil || got != first {
		t.Fatalf("get: %v", err)
	}
}

func TestManagerLastDetachStartsOver(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(player(domain.Round1))
	m := newTestManager(b)

	first, detachFirst, err := m.Attach(ctx, "p1", domain.Round1)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	same, detachSecond, err := m.Attach(ctx, "p1", domain.Round1)
	if err != nil {
		t.Fatalf("second attach: %v", err)
	}
	if same != first || m.Attached(first) != 2 {
		t.Fatalf("expected both connections on one session, attached=%d", m.Attached(first))
	}

	detachFirst()
	detachFirst()
	if first.Status().Terminal() {
		t.Fatalf("one tab closing must not end the shared session, got %s", first.Status())
	}
	if m.Attached(first) != 1 {
		t.Fatalf("expected one remaining connection, got %d", m.Attached(first))
	}

	detachSecond()
	if first.Status() != StatusAborted {
		t.Fatalf("last detach should abandon the session, got %s", first.Status())
	}

	second, detach, err := m.Attach(ctx, "p1", domain.Round1)
	if err != nil {
		t.Fatalf("reattach: %v", err)
	}
	defer detach()
	if second == first {
		t.Fatalf("expected a fresh session after the last detach")
	}
	if b.submitCalls.Load() != 0 {
		t.Fatalf("detaching must not submit")
	}
}

func TestManagerOpenBlocksCompletedRound(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(player(domain.Round2))
	b.addSet(mcqSet(domain.Round2, "", 2))
	b.results = []domain.ResultRecord{{ID: "rec-0", ParticipantID: "p1", Round: domain.Round1}, {ID: "rec-1", ParticipantID: "p1", Round: domain.Round2}}
	m := newTestManager(b)

	s, err := m.Open(ctx, "p1", domain.Round2)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	snap := s.Snapshot()
	if snap.Status != StatusAborted || snap.Exit != ExitBlockedAlreadyAttempted {
		t.Fatalf("expected blocked session, got %+v", snap)
	}
	if !strings.Contains(snap.Notice, "already attempted") {
		t.Fatalf("unexpected notice %q", snap.Notice)
	}
	if _, err := m.Get("p1", domain.Round2); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("a blocked session must not be registered, got %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected blocked session to refuse start, got %v", err)
	}
}

type remoteRegistry struct {
	*mapRegistry
	live    bool
	liveErr error
}

func (r *remoteRegistry) Live(context.Context, string) (bool, error) {
	return r.live, r.liveErr
}

func TestManagerOpenDefersToOtherInstance(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(player(domain.Round1))
	reg := &remoteRegistry{mapRegistry: &mapRegistry{sessions: make(map[string]*Session)}, live: true}
	m := NewManager(b, reg, newTestManager(b).cfg)

	if _, err := m.Open(ctx, "p1", domain.Round1); !errors.Is(err, domain.ErrSessionElsewhere) {
		t.Fatalf("expected session elsewhere, got %v", err)
	}

	reg.live = false
	reg.liveErr = errors.New("redis down")
	s, err := m.Open(ctx, "p1", domain.Round1)
	if err != nil {
		t.Fatalf("an unreachable marker store should not block opening: %v", err)
	}
	defer s.Close()

	reg.live = true
	reg.liveErr = nil
	again, err := m.Open(ctx, "p1", domain.Round1)
	if err != nil || again != s {
		t.Fatalf("a locally hosted session should be reused, err=%v", err)
	}
}

func TestManagerOpenErrors(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend(player(domain.Round1))
	m := newTestManager(b)

	if _, err := m.Open(ctx, "ghost", domain.Round1); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected unknown participant, got %v", err)
	}
	if _, err := m.Open(ctx, "p1", domain.Round2); !errors.Is(err, domain.ErrRoundLocked) {
		t.Fatalf("expected locked round, got %v", err)
	}
	if _, err := m.Get("p1", domain.Round3); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected no session, got %v", err)
	}
}

func TestKey(t *testing.T) {
	if got := Key("abc", domain.Round2); got != "abc:2" {
		t.Fatalf("unexpected key %q", got)
	}
}
