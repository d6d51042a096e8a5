package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contest-service/internal/app"
	"contest-service/internal/domain"
	"contest-service/internal/infra/memory"
	"contest-service/internal/session"
	"github.com/gin-gonic/gin"
)

type fixture struct {
	service *app.ContestService
	server  *httptest.Server
	admin   domain.Participant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	loader := memory.NewStaticQuestionLoader(pythonSet(), dsaSet())
	participants := memory.NewParticipantStore()
	service := app.NewContestService(app.Repositories{
		Participants: participants,
		Access:       memory.NewAccessStore(),
		Results:      memory.NewResultStore(participants),
		Submissions:  memory.NewSubmissionStore(),
		Questions:    memory.NewQuestionRepository(loader, time.Minute),
	})
	// keep the clock idle so tests control every transition
	manager := session.NewManager(service, memory.NewSessionStore(), session.Config{TickInterval: time.Hour})

	server := httptest.NewServer(NewRouter(service, manager, RouterOptions{Metrics: true}))
	t.Cleanup(server.Close)

	admin, err := service.RegisterParticipant(context.Background(), "admin", "", true)
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	return &fixture{service: service, server: server, admin: admin}
}

func (f *fixture) register(t *testing.T, username string) domain.Participant {
	t.Helper()
	p, err := f.service.RegisterParticipant(context.Background(), username, "EN-"+username, false)
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return p
}

func (f *fixture) openRound(t *testing.T, round domain.Round) {
	t.Helper()
	if _, err := f.service.SetRoundAccess(context.Background(), round, true, f.admin.ID); err != nil {
		t.Fatalf("open round %d: %v", round, err)
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func pythonSet() domain.QuestionSet {
	return domain.QuestionSet{
		Round:   domain.Round1,
		Variant: "python",
		Questions: []domain.Question{
			{ID: "py-1", Prompt: "len([1, 2])?", Options: []string{"1", "2", "3"}, CorrectOption: 1},
			{ID: "py-2", Prompt: "type(1.0)?", Options: []string{"int", "float"}, CorrectOption: 1},
			{ID: "py-3", Prompt: "bool([])?", Options: []string{"True", "False"}, CorrectOption: 1},
		},
	}
}

func dsaSet() domain.QuestionSet {
	return domain.QuestionSet{
		Round:   domain.Round3,
		Variant: string(domain.TrackDSA),
		Questions: []domain.Question{
			{ID: "dsa-1", Prompt: "Reverse a linked list"},
			{ID: "dsa-2", Prompt: "Detect a cycle in a graph"},
		},
	}
}
