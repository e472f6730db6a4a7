package hive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hive/internal/model"
)

// Extract turns a social media caption into a prefilled admin form. Dates
// without a year are resolved against now. Fields the model could not
// extract are left empty; an unknown category is dropped.
func (c *Client) Extract(ctx context.Context, caption string, now time.Time) (model.EventInput, error) {
	if strings.TrimSpace(caption) == "" {
		return model.EventInput{}, fmt.Errorf("%w: caption text is required", ErrInvalidRequest)
	}

	msg, err := c.complete(ctx, "extract", completionRequest{
		Messages: []message{
			{Role: "system", Content: extractPrompt(now)},
			{Role: "user", Content: "Extract event details from this Instagram caption:\n\n" + caption},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return model.EventInput{}, err
	}
	if msg.Content == "" {
		return model.EventInput{}, &GatewayError{Feature: "extract", Body: "no response from AI"}
	}
	return parseExtraction(msg.Content)
}

func parseExtraction(content string) (model.EventInput, error) {
	var in model.EventInput
	if err := json.Unmarshal([]byte(stripFences(content)), &in); err != nil {
		return model.EventInput{}, &GatewayError{Feature: "extract", Body: "failed to parse extracted data: " + err.Error()}
	}
	if _, err := model.ParseCategory(in.Category); err != nil {
		in.Category = ""
	}
	return in, nil
}

// stripFences removes markdown code fences around a JSON reply.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json\n", "")
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```\n", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// campusCoordinates are offered to the model so locations come back with
// usable map pins.
var campusCoordinates = []struct {
	Name     string
	Lat, Lng float64
}{
	{"SUSU Building", 50.9341, -1.3966},
	{"Building 32 (ECS)", 50.9370, -1.3976},
	{"Building 58", 50.9362, -1.3985},
	{"Hartley Library", 50.9358, -1.3978},
	{"Jubilee Sports Centre", 50.9355, -1.3950},
	{"Highfield Campus (general)", 50.9359, -1.3964},
}

func extractPrompt(now time.Time) string {
	var coords strings.Builder
	for _, c := range campusCoordinates {
		fmt.Fprintf(&coords, "- %s: %.4f, %.4f\n", c.Name, c.Lat, c.Lng)
	}
	return fmt.Sprintf(extractSystemPrompt, now.Format("2006-01-02"), coords.String(), now.Year())
}

const extractSystemPrompt = `You are an expert at extracting event details from messy social media captions, especially Instagram posts from university societies.

Your job is to extract structured event information and return it as JSON. Be smart about:
- Inferring dates from context like "this Friday", "next week", "tomorrow"
- Recognizing common abbreviations and slang
- Guessing the category based on keywords
- Detecting free food mentions and extracting the specific food item

Current date for reference: %s

Categories to choose from:
- "social" - parties, hangouts, mixers, pub events, socials
- "workshop" - learning sessions, tutorials, skill-building
- "sports" - games, matches, training, fitness activities
- "meeting" - AGMs, committee meetings, general meetings

Southampton University Building Coordinates (use these for accurate location):
%s
Return ONLY valid JSON with this structure:
{
  "title": "Event Title (cleaned up)",
  "description": "Brief description if available",
  "date": "YYYY-MM-DD",
  "startTime": "HH:MM (24hr format)",
  "endTime": "HH:MM (24hr format, estimate if not given, usually 2 hours after start)",
  "location": "Venue or location",
  "category": "social|workshop|sports|meeting",
  "foodDetail": "Specific food item if free food is mentioned (Pizza, Donuts, Coffee, etc.) or null if no free food",
  "latitude": latitude as number or null,
  "longitude": longitude as number or null
}

IMPORTANT: If you detect ANY mention of free food, snacks, refreshments, pizza, drinks, donuts, cookies, etc., extract the specific item into foodDetail. Common phrases: "free pizza", "snacks provided", "refreshments available", "free food".

If you cannot extract a field with confidence, use null for that field. For dates without a year, assume %d.`
