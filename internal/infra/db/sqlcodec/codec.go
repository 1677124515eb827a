// Package sqlcodec maps diagnosis records to flat SQL rows. Feature vectors and
// suggestion bundles are stored as JSON text so every SQL backend shares one layout.
package sqlcodec

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

// DiagnosisColumns is the column order used by Row.Args and Row.Dest.
const DiagnosisColumns = `id, created_at, file_name, file_size, content_type, damage_type, confidence,
       features_json, suggestions_json, audio_url, audio_key, duration_ms, metadata`

// Row is the flat form of a diagnosis record.
type Row struct {
	ID          string
	FileName    string
	FileSize    int64
	ContentType string
	DamageType  string
	Confidence  float64
	Features    string
	Suggestions string
	AudioURL    string
	AudioKey    string
	DurationMS  int64
	Metadata    string
}

// FromDiagnosis encodes d. Empty strings become "-" for the NOT NULL name column.
func FromDiagnosis(d *diagnosis.Diagnosis) (Row, error) {
	fj, err := json.Marshal(d.Features)
	if err != nil {
		return Row{}, fmt.Errorf("encode features: %w", err)
	}
	sj, err := json.Marshal(d.Suggestions)
	if err != nil {
		return Row{}, fmt.Errorf("encode suggestions: %w", err)
	}
	return Row{
		ID:          string(d.ID),
		FileName:    StringOrDash(d.FileName),
		FileSize:    d.FileSize,
		ContentType: d.ContentType,
		DamageType:  string(d.DamageType),
		Confidence:  d.Confidence,
		Features:    string(fj),
		Suggestions: string(sj),
		AudioURL:    d.AudioURL,
		AudioKey:    d.AudioKey,
		DurationMS:  d.DurationMS,
		Metadata:    d.Metadata,
	}, nil
}

// Args returns insert arguments in DiagnosisColumns order.
func (r Row) Args(created any) []any {
	return []any{
		r.ID, created, r.FileName, r.FileSize, r.ContentType, r.DamageType, r.Confidence,
		r.Features, r.Suggestions, r.AudioURL, r.AudioKey, r.DurationMS, r.Metadata,
	}
}

// Dest returns scan targets in DiagnosisColumns order.
func (r *Row) Dest(created any) []any {
	return []any{
		&r.ID, created, &r.FileName, &r.FileSize, &r.ContentType, &r.DamageType, &r.Confidence,
		&r.Features, &r.Suggestions, &r.AudioURL, &r.AudioKey, &r.DurationMS, &r.Metadata,
	}
}

// Diagnosis decodes the row back into the aggregate.
func (r Row) Diagnosis(created time.Time) (*diagnosis.Diagnosis, error) {
	d := &diagnosis.Diagnosis{
		ID:          diagnosis.DiagnosisID(r.ID),
		Timestamp:   created.UTC(),
		FileName:    r.FileName,
		FileSize:    r.FileSize,
		ContentType: r.ContentType,
		DamageType:  diagnosis.Category(r.DamageType),
		Confidence:  r.Confidence,
		AudioURL:    r.AudioURL,
		AudioKey:    r.AudioKey,
		DurationMS:  r.DurationMS,
		Metadata:    r.Metadata,
	}
	if strings.TrimSpace(r.Features) != "" {
		if err := json.Unmarshal([]byte(r.Features), &d.Features); err != nil {
			return nil, fmt.Errorf("decode features of %s: %w", r.ID, err)
		}
	}
	if strings.TrimSpace(r.Suggestions) != "" {
		if err := json.Unmarshal([]byte(r.Suggestions), &d.Suggestions); err != nil {
			return nil, fmt.Errorf("decode suggestions of %s: %w", r.ID, err)
		}
	}
	return d, nil
}

// StringOrDash returns "-" when the input is empty/whitespace
func StringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// JSONOrEmpty keeps valid JSON and wraps anything else as {"raw": ...}.
func JSONOrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(s), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": s})
		return string(b)
	}
	return s
}

// TotalPages rounds up; zero rows still yields zero pages.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

// Statements splits a schema file on semicolons for drivers that reject multi-statement Exec.
func Statements(schema string) []string {
	var out []string
	for _, s := range strings.Split(schema, ";") {
		if strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// SummaryFrom turns grouped counts into a Summary.
func SummaryFrom(counts map[diagnosis.Category]int, sinceDays int) diagnosis.Summary {
	sum := diagnosis.Summary{SinceDays: sinceDays, Counts: counts}
	for _, n := range counts {
		sum.Total += n
	}
	return sum
}
