package diagnosis

import (
	"encoding/json"
	"time"
)

// DiagnosisID tipe untuk Diagnosis
type DiagnosisID string

// Category enum
type Category string

const (
	CategoryEngineKnock          Category = "engine_knock"
	CategoryBrakeSqueal          Category = "brake_squeal"
	CategoryTransmissionGrinding Category = "transmission_grinding"
	CategoryExhaustLeak          Category = "exhaust_leak"
	CategoryBeltSqueal           Category = "belt_squeal"
	CategoryNormalOperation      Category = "normal_operation"
	CategoryUnknown              Category = "unknown"

	// CategoryAnalysisFailed is only produced by the pipeline, never by Classify.
	CategoryAnalysisFailed Category = "analysis_failed"
)

// KnownCategories are the categories with a dedicated suggestion bundle.
var KnownCategories = []Category{
	CategoryEngineKnock,
	CategoryBrakeSqueal,
	CategoryTransmissionGrinding,
	CategoryExhaustLeak,
	CategoryBeltSqueal,
	CategoryNormalOperation,
}

// ClassifierCategories is the closed output set of Classify.
var ClassifierCategories = append(append([]Category{}, KnownCategories...), CategoryUnknown)

// ParseCategory accepts any classifier category plus analysis_failed.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if c == CategoryAnalysisFailed {
		return c, true
	}
	for _, k := range ClassifierCategories {
		if k == c {
			return c, true
		}
	}
	return "", false
}

// FeatureVector value object. A vector without MFCC statistics is absent.
type FeatureVector struct {
	MFCCMean             []float64 `json:"mfcc_mean" bson:"mfcc_mean"`
	MFCCStd              []float64 `json:"mfcc_std" bson:"mfcc_std"`
	SpectralCentroidMean float64   `json:"spectral_centroid_mean" bson:"spectral_centroid_mean"`
	SpectralRolloffMean  float64   `json:"spectral_rolloff_mean" bson:"spectral_rolloff_mean"`
	ZeroCrossingRateMean float64   `json:"zero_crossing_rate_mean" bson:"zero_crossing_rate_mean"`
	Duration             float64   `json:"duration" bson:"duration"`
	SampleRate           int       `json:"sample_rate" bson:"sample_rate"`
}

// Empty reports whether extraction produced nothing.
func (f FeatureVector) Empty() bool {
	return len(f.MFCCMean) == 0
}

type featureVectorJSON FeatureVector

// MarshalJSON writes an absent vector as {}.
func (f FeatureVector) MarshalJSON() ([]byte, error) {
	if f.Empty() {
		return []byte("{}"), nil
	}
	return json.Marshal(featureVectorJSON(f))
}

func (f *FeatureVector) UnmarshalJSON(b []byte) error {
	var v featureVectorJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FeatureVector(v)
	return nil
}

// DamageVerdict value object
type DamageVerdict struct {
	Category   Category `json:"damage_type" bson:"damage_type"`
	Confidence float64  `json:"confidence" bson:"confidence"`
}

// SuggestionBundle value object
type SuggestionBundle struct {
	Temporary []string `json:"temporary" yaml:"temporary" bson:"temporary"`
	Permanent []string `json:"permanent" yaml:"permanent" bson:"permanent"`
}

func (b SuggestionBundle) clone() SuggestionBundle {
	return SuggestionBundle{
		Temporary: append([]string(nil), b.Temporary...),
		Permanent: append([]string(nil), b.Permanent...),
	}
}

// AnalysisResult is what the pipeline hands to its callers.
type AnalysisResult struct {
	Features    FeatureVector    `json:"features"`
	Verdict     DamageVerdict    `json:"verdict"`
	Suggestions SuggestionBundle `json:"repair_suggestions"`
	FileName    string           `json:"file_name,omitempty"`
	FileSize    int64            `json:"file_size"`
}

// Failed reports whether the pipeline could not analyze the recording.
func (r AnalysisResult) Failed() bool {
	return r.Verdict.Category == CategoryAnalysisFailed
}

// Aggregate Root: Diagnosis
type Diagnosis struct {
	ID          DiagnosisID      `json:"id" bson:"id"`
	Timestamp   time.Time        `json:"timestamp" bson:"timestamp"`
	FileName    string           `json:"file_name" bson:"file_name"`
	FileSize    int64            `json:"file_size" bson:"file_size"`
	ContentType string           `json:"content_type,omitempty" bson:"content_type"`
	DamageType  Category         `json:"damage_type" bson:"damage_type"`
	Confidence  float64          `json:"confidence" bson:"confidence"`
	Features    FeatureVector    `json:"features" bson:"features"`
	Suggestions SuggestionBundle `json:"repair_suggestions" bson:"repair_suggestions"`
	AudioURL    string           `json:"audio_url,omitempty" bson:"audio_url"`
	AudioKey    string           `json:"-" bson:"audio_key"`
	DurationMS  int64            `json:"duration_ms" bson:"duration_ms"`
	Metadata    string           `json:"metadata,omitempty" bson:"metadata"`
}

// Summary is the per-category count over a time window.
type Summary struct {
	SinceDays int              `json:"since_days"`
	Total     int              `json:"total_analyses"`
	Counts    map[Category]int `json:"counts"`
}
