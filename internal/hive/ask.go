package hive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	appLog "hive/internal/log"
	"hive/internal/model"
)

// DefaultAnswer is returned when the model's reply cannot be used.
const DefaultAnswer = "Sorry, I couldn't process that request."

const recommendTool = "recommend_events"

// Answer is the Ask Hive result. RelevantEventIDs is never nil.
type Answer struct {
	Answer           string   `json:"answer"`
	RelevantEventIDs []string `json:"relevant_event_ids"`
}

// eventContext is the per-event view embedded in the system prompt.
type eventContext struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description"`
	Location    string         `json:"location"`
	Category    model.Category `json:"category"`
	StartsAt    time.Time      `json:"starts_at"`
	EndsAt      time.Time      `json:"ends_at"`
	Tags        []string       `json:"tags"`
	FoodDetail  *string        `json:"food_detail"`
	Society     string         `json:"society"`
}

var recommendParameters = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"answer": map[string]any{
			"type":        "string",
			"description": "A friendly, conversational response (2-4 sentences max) mentioning specific event names and times.",
		},
		"relevant_event_ids": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Array of event IDs that match the user's query. Empty array if no matches.",
		},
	},
	"required":             []string{"answer", "relevant_event_ids"},
	"additionalProperties": false,
}

// Ask sends question together with the current events and returns a
// conversational answer plus the ids of the events worth showing.
func (c *Client) Ask(ctx context.Context, question string, events []model.Event) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("%w: missing question", ErrInvalidRequest)
	}

	prompt, err := askPrompt(events)
	if err != nil {
		return Answer{}, err
	}
	fn := toolFunction{Name: recommendTool}
	msg, err := c.complete(ctx, "ask", completionRequest{
		Messages: []message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: question},
		},
		Tools: []tool{{Type: "function", Function: toolFunction{
			Name:        recommendTool,
			Description: "Return a conversational answer and the IDs of relevant events to show the user.",
			Parameters:  recommendParameters,
		}}},
		ToolChoice:  &toolChoice{Type: "function", Function: fn},
		Temperature: 0.7,
	})
	if err != nil {
		return Answer{}, err
	}
	return parseAnswer(msg), nil
}

// parseAnswer reads the first tool call. Malformed arguments fall back to
// the plain message content; a missing call falls back to DefaultAnswer.
func parseAnswer(msg message) Answer {
	ans := Answer{Answer: DefaultAnswer, RelevantEventIDs: []string{}}
	if len(msg.Calls) == 0 || msg.Calls[0].Function.Arguments == "" {
		return ans
	}

	var args struct {
		Answer           string   `json:"answer"`
		RelevantEventIDs []string `json:"relevant_event_ids"`
	}
	if err := json.Unmarshal([]byte(msg.Calls[0].Function.Arguments), &args); err != nil {
		appLog.Warn("ask: unparseable tool arguments", "err", err)
		if msg.Content != "" {
			ans.Answer = msg.Content
		}
		return ans
	}
	if args.Answer != "" {
		ans.Answer = args.Answer
	}
	if args.RelevantEventIDs != nil {
		ans.RelevantEventIDs = args.RelevantEventIDs
	}
	return ans
}

func askPrompt(events []model.Event) (string, error) {
	ctxEvents := make([]eventContext, 0, len(events))
	for _, e := range events {
		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		ctxEvents = append(ctxEvents, eventContext{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Location:    e.Location,
			Category:    e.Category,
			StartsAt:    e.StartsAt,
			EndsAt:      e.EndsAt,
			Tags:        tags,
			FoodDetail:  e.FoodDetail,
			Society:     e.SocietyName("Unknown"),
		})
	}
	data, err := json.MarshalIndent(ctxEvents, "", "  ")
	if err != nil {
		return "", fmt.Errorf("hive ask: encode events: %w", err)
	}
	return askSystemPrompt + string(data), nil
}

const askSystemPrompt = `You are Hive, a friendly and helpful AI assistant for university students looking for events and activities.

Your personality:
- Warm, encouraging, and student-focused
- Use casual language with occasional emoji (but not too many)
- Be concise and direct - students are busy!
- Sound like a helpful friend, not a corporate bot

Your task:
- Analyze the user's question about events
- Look through the available events and recommend the most relevant ones
- IMPORTANT: Search through BOTH the title/description AND the tags array for matches
- Tags contain keywords like "pizza", "free food", "party", "study", etc.
- If asking about "free food", check both tags and food_detail fields
- If asking about "chill" activities, look for tags like "study", "coffee", "sober"
- If no events match, be honest but encouraging

Available events (note: each event has a 'tags' array - search these for keywords!):
`
