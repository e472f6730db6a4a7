package hive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hive/internal/model"
)

// gateway fakes the chat-completions endpoint. reply is the assistant
// message; the last decoded request is stored in *got.
func gateway(t *testing.T, status int, reply string, got *completionRequest) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if got != nil {
			if err := json.Unmarshal(body, got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return NewClient(Config{URL: srv.URL, Model: "test-model", APIKey: "test-key", Timeout: 5 * time.Second})
}

func toolReply(args string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{
			"message": map[string]any{
				"role":    "assistant",
				"content": "fallback content",
				"tool_calls": []any{map[string]any{
					"type":     "function",
					"function": map[string]any{"name": recommendTool, "arguments": args},
				}},
			},
		}},
	})
	return string(b)
}

func contentReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func sampleEvents() []model.Event {
	pizza := "Pizza"
	return []model.Event{{
		ID:         "mock-2",
		Title:      "Pizza & Code Workshop",
		Location:   "Building 32",
		Category:   model.CategoryWorkshop,
		StartsAt:   time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC),
		EndsAt:     time.Date(2024, 6, 10, 17, 0, 0, 0, time.UTC),
		FoodDetail: &pizza,
		Society:    &model.SocietySummary{ID: "soc-cs", Name: "Computer Science Society"},
	}, {
		ID:       "mock-9",
		Title:    "Morning Run Club",
		Category: model.CategorySports,
		StartsAt: time.Date(2024, 6, 12, 7, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC),
	}}
}

func TestAsk(t *testing.T) {
	var req completionRequest
	c := gateway(t, http.StatusOK, toolReply(`{"answer":"Grab pizza at 2pm!","relevant_event_ids":["mock-2"]}`), &req)

	ans, err := c.Ask(context.Background(), "free food today?", sampleEvents())
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if ans.Answer != "Grab pizza at 2pm!" || len(ans.RelevantEventIDs) != 1 || ans.RelevantEventIDs[0] != "mock-2" {
		t.Errorf("answer = %+v", ans)
	}

	if req.Model != "test-model" || req.Temperature != 0.7 {
		t.Errorf("model/temperature = %q/%v", req.Model, req.Temperature)
	}
	if req.ToolChoice == nil || req.ToolChoice.Function.Name != recommendTool {
		t.Errorf("tool choice not forced: %+v", req.ToolChoice)
	}
	if len(req.Messages) != 2 || req.Messages[1].Content != "free food today?" {
		t.Fatalf("messages = %+v", req.Messages)
	}
	system := req.Messages[0].Content
	for _, want := range []string{`"id": "mock-2"`, `"society": "Computer Science Society"`, `"society": "Unknown"`, `"food_detail": "Pizza"`, `"tags": []`} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt missing %s", want)
		}
	}
}

func TestAskFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"malformed arguments use content", toolReply(`{not json`), "fallback content"},
		{"no tool call", contentReply("just text"), DefaultAnswer},
		{"no choices", `{"choices":[]}`, DefaultAnswer},
		{"empty answer", toolReply(`{"answer":"","relevant_event_ids":null}`), DefaultAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := gateway(t, http.StatusOK, tt.reply, nil)
			ans, err := c.Ask(context.Background(), "anything on?", nil)
			if err != nil {
				t.Fatalf("Ask: %v", err)
			}
			if ans.Answer != tt.want {
				t.Errorf("answer = %q, want %q", ans.Answer, tt.want)
			}
			if ans.RelevantEventIDs == nil || len(ans.RelevantEventIDs) != 0 {
				t.Errorf("ids = %#v, want empty non-nil", ans.RelevantEventIDs)
			}
		})
	}
}

func TestGatewayErrors(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusTooManyRequests, func(err error) bool { return errors.Is(err, ErrRateLimited) }},
		{http.StatusPaymentRequired, func(err error) bool { return errors.Is(err, ErrCreditsExhausted) }},
		{http.StatusInternalServerError, func(err error) bool {
			var ge *GatewayError
			return errors.As(err, &ge) && ge.Status == http.StatusInternalServerError && ge.Body == "upstream broke"
		}},
	}
	for _, tt := range tests {
		c := gateway(t, tt.status, "upstream broke", nil)
		if _, err := c.Ask(context.Background(), "hi", nil); !tt.check(err) {
			t.Errorf("status %d: unexpected error %v", tt.status, err)
		}
		if _, err := c.Extract(context.Background(), "caption", time.Now()); !tt.check(err) {
			t.Errorf("status %d extract: unexpected error %v", tt.status, err)
		}
	}
}

func TestRequestValidation(t *testing.T) {
	c := NewClient(Config{URL: "http://127.0.0.1:0"})
	if _, err := c.Ask(context.Background(), "hi", nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing key: err = %v", err)
	}
	if _, err := c.Ask(context.Background(), "   ", nil); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("blank question: err = %v", err)
	}
	if _, err := c.Extract(context.Background(), "", time.Now()); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("blank caption: err = %v", err)
	}
}

func TestExtract(t *testing.T) {
	content := "```json\n" + `{
  "title": "Poker Night",
  "description": null,
  "date": "2024-06-14",
  "startTime": "19:00",
  "endTime": "23:00",
  "location": "SUSU Building",
  "category": "social",
  "foodDetail": "Pizza",
  "latitude": 50.9341,
  "longitude": -1.3966
}` + "\n```"
	var req completionRequest
	c := gateway(t, http.StatusOK, contentReply(content), &req)
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	in, err := c.Extract(context.Background(), "POKER NIGHT fri 7pm SUSU free pizza!!", now)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if in.Title != "Poker Night" || in.Date != "2024-06-14" || in.StartTime != "19:00" || in.FoodDetail != "Pizza" {
		t.Errorf("extracted = %+v", in)
	}
	if in.Latitude == nil || *in.Latitude != 50.9341 {
		t.Errorf("latitude = %v", in.Latitude)
	}
	if req.Temperature != 0.1 || req.Tools != nil {
		t.Errorf("extract request = %+v", req)
	}
	if !strings.Contains(req.Messages[0].Content, "Current date for reference: 2024-06-10") ||
		!strings.Contains(req.Messages[0].Content, "assume 2024.") ||
		!strings.Contains(req.Messages[0].Content, "- Hartley Library: 50.9358, -1.3978") {
		t.Errorf("system prompt not filled in:\n%s", req.Messages[0].Content)
	}
}

func TestExtractDropsUnknownCategory(t *testing.T) {
	c := gateway(t, http.StatusOK, contentReply(`{"title":"Rave","category":"party"}`), nil)
	in, err := c.Extract(context.Background(), "rave tonight", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if in.Category != "" {
		t.Errorf("category = %q, want dropped", in.Category)
	}
}

func TestExtractUnparseable(t *testing.T) {
	for name, reply := range map[string]string{
		"prose":   contentReply("I could not find an event here."),
		"empty":   contentReply(""),
		"garbage": `<html>`,
	} {
		c := gateway(t, http.StatusOK, reply, nil)
		_, err := c.Extract(context.Background(), "hello", time.Now())
		var ge *GatewayError
		if !errors.As(err, &ge) {
			t.Errorf("%s: err = %v, want *GatewayError", name, err)
		}
	}
}

func TestStripFences(t *testing.T) {
	for in, want := range map[string]string{
		"```json\n{}\n```": "{}",
		"```\n{}```":       "{}",
		"  {}  ":           "{}",
	} {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
