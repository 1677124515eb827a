package diagnosis

import "errors"

var (
	// ErrNotFound is returned by repositories when no record matches.
	ErrNotFound = errors.New("diagnosis not found")
	// ErrNotAudio rejects uploads that are not audio-typed.
	ErrNotAudio = errors.New("file must be an audio file")
)
