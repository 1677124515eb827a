package acoustic

import "math"

// Slaney-style mel scale: linear below 1 kHz, logarithmic above.
const (
	melLinearStepHz = 200.0 / 3
	melLogMinHz     = 1000.0
	melLogMin       = melLogMinHz / melLinearStepHz
)

var melLogStep = math.Log(6.4) / 27.0

func hzToMel(hz float64) float64 {
	if hz < melLogMinHz {
		return hz / melLinearStepHz
	}
	return melLogMin + math.Log(hz/melLogMinHz)/melLogStep
}

func melToHz(mel float64) float64 {
	if mel < melLogMin {
		return mel * melLinearStepHz
	}
	return melLogMinHz * math.Exp(melLogStep*(mel-melLogMin))
}

// melFilterBank builds nMels triangular filters over the nFFT/2+1 positive
// frequency bins between 0 Hz and Nyquist, area-normalized.
func melFilterBank(sampleRate, nFFT, nMels int) [][]float64 {
	bins := nFFT/2 + 1
	fftFreqs := binFrequencies(sampleRate, nFFT)

	lo, hi := hzToMel(0), hzToMel(float64(sampleRate)/2)
	melF := make([]float64, nMels+2)
	for i := range melF {
		melF[i] = melToHz(lo + (hi-lo)*float64(i)/float64(nMels+1))
	}

	bank := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		row := make([]float64, bins)
		left, center, right := melF[m], melF[m+1], melF[m+2]
		lowerWidth, upperWidth := center-left, right-center
		enorm := 2.0 / (right - left)
		for k, f := range fftFreqs {
			lower := (f - left) / lowerWidth
			upper := (right - f) / upperWidth
			w := math.Min(lower, upper)
			if w > 0 {
				row[k] = w * enorm
			}
		}
		bank[m] = row
	}
	return bank
}

// dctMatrix returns the first nCoeff rows of an orthonormal DCT-II of size n.
func dctMatrix(nCoeff, n int) [][]float64 {
	out := make([][]float64, nCoeff)
	for k := 0; k < nCoeff; k++ {
		scale := math.Sqrt(2.0 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(n))
		}
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = scale * math.Cos(math.Pi*float64(k)*(2*float64(j)+1)/(2*float64(n)))
		}
		out[k] = row
	}
	return out
}

func binFrequencies(sampleRate, nFFT int) []float64 {
	bins := nFFT/2 + 1
	out := make([]float64, bins)
	for k := range out {
		out[k] = float64(k) * float64(sampleRate) / float64(nFFT)
	}
	return out
}

// periodicHann matches the DFT-even window used for short-time analysis.
func periodicHann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}
