package diagnosis

import (
	"context"
	"fmt"
	"time"

	"github.com/bryanwahyu/enginesound/internal/acoustic"
	domain "github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
	"github.com/bryanwahyu/enginesound/internal/domain/failures"
)

// Decoder turns raw recording bytes into a mono waveform.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (acoustic.Waveform, error)
}

// Outcome is a pipeline run with the failure details callers may want to log.
type Outcome struct {
	Result  domain.AnalysisResult
	Stage   failures.Stage // empty on success
	Err     error
	Elapsed time.Duration
}

// Pipeline turns recording bytes into a diagnostic result. It holds no mutable
// state and can be shared by concurrent callers.
type Pipeline struct {
	decoder       Decoder
	extractor     *acoustic.Extractor
	suggestions   *domain.SuggestionTable
	decodeTimeout time.Duration
}

// NewPipeline wires the stages. A nil extractor or table falls back to the defaults.
func NewPipeline(dec Decoder, ex *acoustic.Extractor, table *domain.SuggestionTable, decodeTimeout time.Duration) *Pipeline {
	if ex == nil {
		ex = acoustic.MustNewExtractor(acoustic.DefaultConfig())
	}
	if table == nil {
		table = domain.MustDefaultSuggestionTable()
	}
	return &Pipeline{decoder: dec, extractor: ex, suggestions: table, decodeTimeout: decodeTimeout}
}

// Analyze never fails: any error becomes an analysis_failed result.
func (p *Pipeline) Analyze(ctx context.Context, data []byte) domain.AnalysisResult {
	return p.Run(ctx, data).Result
}

// Run executes decode -> extract -> classify -> resolve.
func (p *Pipeline) Run(ctx context.Context, data []byte) (out Outcome) {
	start := time.Now()
	stage := failures.StageDecode
	defer func() {
		if r := recover(); r != nil {
			out = failed(stage, fmt.Errorf("panic: %v", r), len(data))
		}
		out.Elapsed = time.Since(start)
	}()

	w, err := p.decode(ctx, data)
	if err != nil {
		return failed(failures.StageDecode, err, len(data))
	}

	stage = failures.StageExtract
	features, err := p.extractor.Compute(w)
	if err != nil {
		return failed(failures.StageExtract, err, len(data))
	}

	verdict := domain.Classify(features)
	return Outcome{Result: domain.AnalysisResult{
		Features:    features,
		Verdict:     verdict,
		Suggestions: p.suggestions.Resolve(verdict.Category),
		FileSize:    int64(len(data)),
	}}
}

func (p *Pipeline) decode(ctx context.Context, data []byte) (acoustic.Waveform, error) {
	if p.decoder == nil {
		return acoustic.Waveform{}, fmt.Errorf("no decoder configured")
	}
	if p.decodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.decodeTimeout)
		defer cancel()
	}
	w, err := p.decoder.Decode(ctx, data)
	if err != nil {
		return acoustic.Waveform{}, err
	}
	if err := ctx.Err(); err != nil {
		return acoustic.Waveform{}, err
	}
	return w, nil
}

func failed(stage failures.Stage, err error, size int) Outcome {
	return Outcome{
		Result: domain.AnalysisResult{
			Verdict:     domain.DamageVerdict{Category: domain.CategoryAnalysisFailed, Confidence: 0},
			Suggestions: domain.FallbackSuggestions(),
			FileSize:    int64(size),
		},
		Stage: stage,
		Err:   err,
	}
}
