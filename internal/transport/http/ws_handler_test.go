package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"skill-assessment-service/internal/app"
	"skill-assessment-service/internal/domain"
	"skill-assessment-service/internal/infra/memory"
	"skill-assessment-service/internal/interview"
	"skill-assessment-service/internal/llm"
)

func TestWebSocketAssessmentFlow(t *testing.T) {
	questions := memory.NewQuestionCache(memory.NewStaticQuestionLoader(map[string][]string{
		"Go": {"What is a goroutine?"},
	}), time.Minute)
	rater := interview.NewRater(llm.NewMockProvider(llm.MockResponse{
		Text: "Rating: 8/10 | Suggestion: Mention the scheduler.",
	}))
	summarizer := interview.NewSummarizer(llm.NewMockProvider(llm.MockResponse{
		Text: "Solid fundamentals.",
	}))
	skills := memory.NewSkillStore(domain.Skill{ID: "s1", Name: "Go"})

	service := app.NewAssessmentService(memory.NewSessionRegistry(), questions, rater, summarizer, skills)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?skill=Go&skillId=s1&capture=1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForState(conn, t, domain.StateInProgress)

	edit := map[string]any{
		"type":    "edit",
		"payload": map[string]any{"text": "A lightweight thread managed by the runtime."},
	}
	if err := conn.WriteJSON(edit); err != nil {
		t.Fatalf("write edit: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"type": "submit"}); err != nil {
		t.Fatalf("write submit: %v", err)
	}

	snap := waitForState(conn, t, domain.StateComplete)
	result, ok := snap["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result payload, got %v", snap)
	}
	if passed, _ := result["passed"].(bool); !passed {
		t.Fatalf("expected passing result, got %v", result)
	}
	if total, _ := result["totalScore"].(float64); total != 8 {
		t.Fatalf("expected total 8, got %v", result["totalScore"])
	}

	skill, err := skills.GetSkill(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get skill: %v", err)
	}
	if !skill.Verified {
		t.Fatalf("expected skill verified after passing assessment")
	}
}

func TestWebSocketCaptureFragments(t *testing.T) {
	questions := memory.NewQuestionCache(memory.NewStaticQuestionLoader(map[string][]string{
		"SQL": {"What is an index?"},
	}), time.Minute)
	rater := interview.NewRater(llm.NewMockProvider(llm.MockResponse{
		Text: "Rating: 3/10 | Suggestion: Describe B-trees.",
	}))
	summarizer := interview.NewSummarizer(llm.NewMockProvider(llm.MockResponse{
		Text: "Needs work.",
	}))
	skills := memory.NewSkillStore(domain.Skill{ID: "s2", Name: "SQL"})

	service := app.NewAssessmentService(memory.NewSessionRegistry(), questions, rater, summarizer, skills)
	wsHandler := NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?skill=SQL&skillId=s2&capture=1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForState(conn, t, domain.StateInProgress)

	messages := []map[string]any{
		{"type": "startCapture"},
		{"type": "fragment", "payload": map[string]any{"text": "a data structure", "final": true}},
		{"type": "fragment", "payload": map[string]any{"text": "for fast lookup", "final": false}},
		{"type": "submit"},
	}
	for _, msg := range messages {
		if err := conn.WriteJSON(msg); err != nil {
			t.Fatalf("write %v: %v", msg["type"], err)
		}
	}

	snap := waitForState(conn, t, domain.StateComplete)
	result, _ := snap["result"].(map[string]any)
	if passed, _ := result["passed"].(bool); passed {
		t.Fatalf("expected failing result with score 3")
	}

	review, _ := result["review"].([]any)
	if len(review) != 1 {
		t.Fatalf("expected one review entry, got %v", result["review"])
	}
	entry, _ := review[0].(map[string]any)
	if entry["answer"] != "a data structure for fast lookup" {
		t.Fatalf("expected fragments in submitted answer, got %v", entry["answer"])
	}

	skill, _ := skills.GetSkill(context.Background(), "s2")
	if skill.Verified {
		t.Fatalf("failed assessment must not verify the skill")
	}
}

func waitForState(conn *websocket.Conn, t *testing.T, want domain.State) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if msg.Type != "session" {
			continue
		}
		var snap map[string]any
		if err := json.Unmarshal(msg.Payload, &snap); err != nil {
			t.Fatalf("unmarshal snapshot: %v", err)
		}
		if state, _ := snap["state"].(string); state == string(want) {
			return snap
		}
	}
	t.Fatalf("timed out waiting for state %s", want)
	return nil
}
