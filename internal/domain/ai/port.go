package ai

import (
	"context"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

// Advisor writes a narrative for a finished diagnosis. The returned string is a JSON object.
type Advisor interface {
	Advise(ctx context.Context, d *diagnosis.Diagnosis) (string, error)
	Name() string
}
