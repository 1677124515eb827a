package failures

import "time"

// Stage names the pipeline step that could not complete.
type Stage string

const (
	StageDecode  Stage = "decode"
	StageExtract Stage = "extract"
)

// Failure is a persisted record of an analysis that ended as analysis_failed.
type Failure struct {
	ID         int64     `json:"id" bson:"id"`
	AnalysisID string    `json:"analysis_id" bson:"analysis_id"`
	Stage      Stage     `json:"stage" bson:"stage"`
	Message    string    `json:"message" bson:"message"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
