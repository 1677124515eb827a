package diagnosis

// Spectral centroid thresholds in Hz. Each range is open on the lower bound.
const (
	squealCentroidHz   = 2000.0
	mechanicCentroidHz = 1000.0
	exhaustCentroidHz  = 500.0

	knockZeroCrossingRate = 0.1
)

// Fixed confidence per matched branch.
const (
	confidenceBrakeSqueal          = 0.85
	confidenceBeltSqueal           = 0.78
	confidenceEngineKnock          = 0.82
	confidenceTransmissionGrinding = 0.75
	confidenceExhaustLeak          = 0.72
	confidenceNormalOperation      = 0.90
)

// Classify maps a feature vector to a verdict. The first matching branch wins.
func Classify(f FeatureVector) DamageVerdict {
	if f.Empty() {
		return DamageVerdict{Category: CategoryUnknown, Confidence: 0}
	}

	c := f.SpectralCentroidMean
	switch {
	case c > squealCentroidHz:
		if lowOrderMFCCMean(f.MFCCMean) > 0 {
			return DamageVerdict{Category: CategoryBrakeSqueal, Confidence: confidenceBrakeSqueal}
		}
		return DamageVerdict{Category: CategoryBeltSqueal, Confidence: confidenceBeltSqueal}
	case c > mechanicCentroidHz:
		if f.ZeroCrossingRateMean > knockZeroCrossingRate {
			return DamageVerdict{Category: CategoryEngineKnock, Confidence: confidenceEngineKnock}
		}
		return DamageVerdict{Category: CategoryTransmissionGrinding, Confidence: confidenceTransmissionGrinding}
	case c > exhaustCentroidHz:
		return DamageVerdict{Category: CategoryExhaustLeak, Confidence: confidenceExhaustLeak}
	default:
		return DamageVerdict{Category: CategoryNormalOperation, Confidence: confidenceNormalOperation}
	}
}

// lowOrderMFCCMean averages the first three MFCC means (fewer if the vector is short).
func lowOrderMFCCMean(means []float64) float64 {
	n := len(means)
	if n > 3 {
		n = 3
	}
	if n == 0 {
		return 0
	}
	var s float64
	for _, v := range means[:n] {
		s += v
	}
	return s / float64(n)
}
