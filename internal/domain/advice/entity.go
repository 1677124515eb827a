package advice

import "time"

// NoteID identifier type
type NoteID string

// Source tells where the narrative came from.
type Source string

const (
	SourceOpenAI Source = "openai"
	SourceLocal  Source = "local"
)

// Note is a narrative explanation of a stored diagnosis. It never feeds back into
// classification.
type Note struct {
	ID         NoteID    `json:"id" bson:"id"`
	AnalysisID string    `json:"analysis_id" bson:"analysis_id"`
	Source     Source    `json:"source" bson:"source"`
	Model      string    `json:"model,omitempty" bson:"model"`
	Body       string    `json:"body" bson:"body"` // JSON object
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
