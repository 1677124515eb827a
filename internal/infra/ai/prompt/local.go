package prompt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

// LocalAdvisor writes advice without calling any provider. Used when OpenAI is
// disabled and as the fallback when the provider is out of quota.
type LocalAdvisor struct{}

func (LocalAdvisor) Name() string { return "local" }

type categoryProfile struct {
	urgency string
	drive   bool
	advice  string
}

var profiles = map[diagnosis.Category]categoryProfile{
	diagnosis.CategoryEngineKnock:          {"high", false, "Stop hard acceleration and have the ignition timing and fuel quality checked before longer trips."},
	diagnosis.CategoryBrakeSqueal:          {"high", false, "Inspect pads and rotors before driving further; braking performance may be reduced."},
	diagnosis.CategoryTransmissionGrinding: {"high", false, "Avoid aggressive shifting and book a transmission inspection soon."},
	diagnosis.CategoryBeltSqueal:           {"medium", true, "Check belt tension and condition at the next stop; a snapped belt disables charging and cooling."},
	diagnosis.CategoryExhaustLeak:          {"medium", true, "Drive with windows open and have the exhaust sealed; leaks can let fumes into the cabin."},
	diagnosis.CategoryNormalOperation:      {"low", true, "No damage pattern detected. Keep up with regular maintenance."},
	diagnosis.CategoryUnknown:              {"unknown", true, "The sound did not match a known pattern. Record again closer to the source or consult a mechanic."},
	diagnosis.CategoryAnalysisFailed:       {"unknown", true, "The recording could not be analyzed. Upload a clearer recording of at least a few seconds."},
}

// Advise builds advice from the category and the stored features.
func (LocalAdvisor) Advise(_ context.Context, d *diagnosis.Diagnosis) (string, error) {
	return LocalAdvice(d), nil
}

// LocalAdvice returns a JSON string matching the advisory schema. It never fails.
func LocalAdvice(d *diagnosis.Diagnosis) string {
	p, ok := profiles[d.DamageType]
	if !ok {
		p = profiles[diagnosis.CategoryUnknown]
	}
	out := Advice{
		AnalysisID:   string(d.ID),
		DamageType:   d.DamageType,
		Urgency:      p.urgency,
		SafeToDrive:  p.drive,
		Observations: observations(d),
		Advice:       p.advice,
	}
	b, err := json.Marshal(out)
	if err != nil {
		return `{"urgency":"unknown","observations":[],"advice":"Advice unavailable."}`
	}
	return string(b)
}

func observations(d *diagnosis.Diagnosis) []Observation {
	f := d.Features
	obs := make([]Observation, 0, 4)
	if f.Empty() {
		return append(obs, Observation{Title: "No features", Detail: "Feature extraction did not complete for this recording."})
	}
	obs = append(obs, Observation{
		Title:  "Dominant pitch",
		Detail: fmt.Sprintf("Spectral centroid averaged %.0f Hz with 85%% of energy below %.0f Hz.", f.SpectralCentroidMean, f.SpectralRolloffMean),
	})
	obs = append(obs, Observation{
		Title:  "Noisiness",
		Detail: fmt.Sprintf("Zero-crossing rate averaged %.3f.", f.ZeroCrossingRateMean),
	})
	if f.Duration < 2 {
		obs = append(obs, Observation{
			Title:  "Short recording",
			Detail: fmt.Sprintf("Only %.1f s of audio was analyzed; longer recordings give steadier features.", f.Duration),
		})
	}
	if d.Confidence > 0 {
		obs = append(obs, Observation{
			Title:  "Classifier confidence",
			Detail: fmt.Sprintf("The verdict %s carries a fixed confidence of %.2f.", d.DamageType, d.Confidence),
		})
	}
	return obs
}
