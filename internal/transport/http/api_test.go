package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"contest-service/internal/domain"
)

func TestRegisterAndFetchParticipant(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(t, http.MethodPost, "/api/participants", map[string]any{"username": "alice", "enrollment_no": "EN001"})
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, body)
	}
	id, _ := body["id"].(string)
	if id == "" || body["currentRound"].(float64) != 1 || body["isAdmin"].(bool) {
		t.Fatalf("unexpected participant %v", body)
	}

	status, _ = f.do(t, http.MethodPost, "/api/participants", map[string]any{"username": "alice"})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", status)
	}

	status, body = f.do(t, http.MethodGet, "/api/participants/"+id, nil)
	if status != http.StatusOK || body["username"] != "alice" {
		t.Fatalf("unexpected fetch %d %v", status, body)
	}

	status, _ = f.do(t, http.MethodGet, "/api/participants/missing", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestSubmitResultAdvancesAndBlocksRetake(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")

	req := map[string]any{
		"participant_id":  alice.ID,
		"round":           1,
		"variant":         "python",
		"score":           12,
		"total_questions": 20,
	}
	status, body := f.do(t, http.MethodPost, "/api/results", req)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, body)
	}
	participant := body["participant"].(map[string]any)
	result := body["result"].(map[string]any)
	if participant["currentRound"].(float64) != 2 {
		t.Fatalf("expected round 2 unlocked, got %v", participant["currentRound"])
	}
	if !result["passed"].(bool) || result["score"].(float64) != 12 {
		t.Fatalf("unexpected result %v", result)
	}

	req["score"] = 20
	status, body = f.do(t, http.MethodPost, "/api/results", req)
	if status != http.StatusConflict || body["already_attempted"] != true {
		t.Fatalf("expected already_attempted conflict, got %d %v", status, body)
	}

	status, body = f.do(t, http.MethodGet, "/api/participants/"+alice.ID+"/results", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	results := body["results"].([]any)
	if len(results) != 1 || results[0].(map[string]any)["score"].(float64) != 12 {
		t.Fatalf("expected the first record untouched, got %v", results)
	}
}

func TestQuestionsOmitCorrectOption(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/api/rounds/1/questions?variant=python")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}
	if strings.Contains(string(raw), "correctOption") {
		t.Fatalf("correct answers leaked: %s", raw)
	}
	if !strings.Contains(string(raw), "py-3") {
		t.Fatalf("expected questions in body: %s", raw)
	}

	status, _ := f.do(t, http.MethodGet, "/api/rounds/1/questions?variant=java", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown language, got %d", status)
	}
}

func TestRoundAccessRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")

	status, _ := f.do(t, http.MethodPost, "/api/admin/rounds/2/access", map[string]any{"admin_id": alice.ID, "enabled": true})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}

	status, body := f.do(t, http.MethodPost, "/api/admin/rounds/2/access", map[string]any{"admin_id": f.admin.ID, "enabled": true})
	if status != http.StatusOK || body["enabled"] != true || body["enabledAt"] == nil {
		t.Fatalf("unexpected toggle %d %v", status, body)
	}

	status, body = f.do(t, http.MethodGet, "/api/rounds/2/access", nil)
	if status != http.StatusOK || body["enabled"] != true {
		t.Fatalf("unexpected access %d %v", status, body)
	}

	status, _ = f.do(t, http.MethodGet, "/api/rounds/4/access", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for round 4, got %d", status)
	}
}

func TestTrackLatchAndChallengeScoring(t *testing.T) {
	f := newFixture(t)
	f.openRound(t, domain.Round3)
	bob := f.register(t, "bob")
	if _, _, err := f.service.SubmitResult(context.Background(), domain.ResultSubmission{ParticipantID: bob.ID, Round: domain.Round1, Variant: "c", Score: 15, TotalQuestions: 20}); err != nil {
		t.Fatalf("round 1 result: %v", err)
	}
	if _, _, err := f.service.SubmitResult(context.Background(), domain.ResultSubmission{ParticipantID: bob.ID, Round: domain.Round2, Score: 14, TotalQuestions: 20}); err != nil {
		t.Fatalf("round 2 result: %v", err)
	}

	status, body := f.do(t, http.MethodPost, fmt.Sprintf("/api/participants/%s/track", bob.ID), map[string]any{"track": "dsa"})
	if status != http.StatusOK || body["round3Track"] != "dsa" {
		t.Fatalf("unexpected track select %d %v", status, body)
	}
	status, body = f.do(t, http.MethodPost, fmt.Sprintf("/api/participants/%s/track", bob.ID), map[string]any{"track": "web"})
	if status != http.StatusConflict || body["already_selected"] != true || body["track"] != "dsa" {
		t.Fatalf("expected latched dsa track, got %d %v", status, body)
	}

	status, body = f.do(t, http.MethodPost, "/api/round3/submissions", map[string]any{"participant_id": bob.ID, "challenge_id": "dsa-1", "payload": "func reverse() {}"})
	if status != http.StatusCreated || body["accepted"] != true {
		t.Fatalf("unexpected submission %d %v", status, body)
	}
	subID := body["submission"].(map[string]any)["id"].(string)

	status, body = f.do(t, http.MethodPost, "/api/round3/submissions", map[string]any{"participant_id": bob.ID, "challenge_id": "dsa-1", "payload": "again"})
	if status != http.StatusOK || body["accepted"] != false {
		t.Fatalf("expected duplicate to be refused, got %d %v", status, body)
	}

	status, _ = f.do(t, http.MethodPost, "/api/admin/submissions/"+subID+"/score", map[string]any{"admin_id": f.admin.ID, "score": 3})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for score 3, got %d", status)
	}
	status, body = f.do(t, http.MethodPost, "/api/admin/submissions/"+subID+"/score", map[string]any{"admin_id": f.admin.ID, "score": 4})
	if status != http.StatusOK || body["score"].(float64) != 4 {
		t.Fatalf("unexpected score %d %v", status, body)
	}
	status, _ = f.do(t, http.MethodPost, "/api/admin/submissions/"+subID+"/score", map[string]any{"admin_id": f.admin.ID, "score": -1})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on rescoring, got %d", status)
	}

	status, body = f.do(t, http.MethodGet, "/api/leaderboard?round=3", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	entries := body["entries"].([]any)
	if len(entries) != 1 || entries[0].(map[string]any)["score"].(float64) != 4 {
		t.Fatalf("unexpected round 3 leaderboard %v", entries)
	}
}

func TestPromoteReportsTotalUpdated(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		p := f.register(t, fmt.Sprintf("p%d", i))
		if _, _, err := f.service.SubmitResult(context.Background(), domain.ResultSubmission{ParticipantID: p.ID, Round: domain.Round1, Variant: "python", Score: 5 + i, TotalQuestions: 20}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	status, body := f.do(t, http.MethodPost, "/api/admin/leaderboard/promote", map[string]any{"admin_id": f.admin.ID, "round": 1, "n": 2})
	if status != http.StatusOK || body["total_updated"].(float64) != 2 {
		t.Fatalf("unexpected promote %d %v", status, body)
	}
	status, body = f.do(t, http.MethodPost, "/api/admin/leaderboard/promote", map[string]any{"admin_id": f.admin.ID, "round": 1, "n": 2})
	if status != http.StatusOK || body["total_updated"].(float64) != 0 {
		t.Fatalf("expected repeat promotion to change nothing, got %d %v", status, body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	status, body := f.do(t, http.MethodGet, "/healthz", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", status, body)
	}

	resp, err := http.Get(f.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "contest_http_requests_total") {
		t.Fatalf("expected request metrics to be exported")
	}
}
