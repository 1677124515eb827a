// Package acoustic computes the frame-based acoustic features used to diagnose
// an engine recording: MFCC statistics, spectral centroid, spectral roll-off and
// zero-crossing rate.
//
// Extraction is a pure function of the waveform. Degenerate input (no samples,
// non-finite values, numeric failure) yields an absent feature vector instead of
// an error so that callers can branch on it.
package acoustic
