package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior automotive diagnostic technician. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use lowercase urgency values: high, medium, low, unknown.
- Never change the damage_type you were given; explain it.
- observations is an array of objects with title and detail. Keep items concise.
- Base observations only on the numeric features provided; do not invent measurements.

Schema (example with empty values):
{
  "analysis_id": "<string>",
  "damage_type": "<string>",
  "urgency": "<high|medium|low|unknown>",
  "safe_to_drive": true,
  "observations": [
    {"title": "<string>", "detail": "<string>"}
  ],
  "advice": "<string>"
}`
}

// GetUserPrompt renders the stored diagnosis as compact JSON context.
func GetUserPrompt(d *diagnosis.Diagnosis) string {
	ctx := struct {
		ID          string                     `json:"analysis_id"`
		DamageType  diagnosis.Category         `json:"damage_type"`
		Confidence  float64                    `json:"confidence"`
		Features    diagnosis.FeatureVector    `json:"features"`
		Suggestions diagnosis.SuggestionBundle `json:"repair_suggestions"`
	}{string(d.ID), d.DamageType, d.Confidence, d.Features, d.Suggestions}
	b, err := json.Marshal(ctx)
	if err != nil {
		return fmt.Sprintf("Explain the diagnosis %s (%s) and respond with the JSON per schema.", d.ID, d.DamageType)
	}
	return "Explain this engine sound diagnosis and respond with the JSON per schema. Diagnosis: " + string(b)
}

// Observation is one line of the advisory narrative.
type Observation struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Advice matches the schema used by the system prompt.
type Advice struct {
	AnalysisID   string             `json:"analysis_id"`
	DamageType   diagnosis.Category `json:"damage_type"`
	Urgency      string             `json:"urgency"`
	SafeToDrive  bool               `json:"safe_to_drive"`
	Observations []Observation      `json:"observations"`
	Advice       string             `json:"advice"`
}

// ParseAdvice validates a model response against the schema.
func ParseAdvice(raw string) (Advice, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var a Advice
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Advice{}, fmt.Errorf("advice is not valid json: %w", err)
	}
	switch a.Urgency {
	case "high", "medium", "low", "unknown":
	default:
		return Advice{}, fmt.Errorf("advice has invalid urgency %q", a.Urgency)
	}
	return a, nil
}
