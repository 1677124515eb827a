package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrUnavailable means the ffmpeg binary could not be found.
var ErrUnavailable = errors.New("ffmpeg not available")

// Runner decodes arbitrary containers by piping them through ffmpeg.
type Runner struct {
	bin     string
	tempDir string
}

// NewRunner uses bin (default "ffmpeg") and writes call-scoped temp files to tempDir
// (default os.TempDir()).
func NewRunner(bin, tempDir string) *Runner {
	if strings.TrimSpace(bin) == "" {
		bin = "ffmpeg"
	}
	return &Runner{bin: bin, tempDir: tempDir}
}

// Available reports whether the binary resolves on PATH.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.bin)
	return err == nil
}

// DecodeMono converts data to mono float samples at sampleRate. Output stops one
// second past maxSeconds so the caller can still tell an over-long recording
// apart from one that fits. The temp file is removed on every return path.
func (r *Runner) DecodeMono(ctx context.Context, data []byte, ext string, sampleRate int, maxSeconds float64) ([]float64, error) {
	if !r.Available() {
		return nil, ErrUnavailable
	}
	if ext == "" {
		ext = "bin"
	}

	f, err := os.CreateTemp(r.tempDir, "recording-*."+ext)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("ffmpeg temp write: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("ffmpeg temp close: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.bin, decodeArgs(path, sampleRate, maxSeconds)...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("ffmpeg decode: %w", ctxErr)
		}
		return nil, fmt.Errorf("ffmpeg decode: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseF32LE(out.Bytes())
}

func decodeArgs(path string, sampleRate int, maxSeconds float64) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-v", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
	}
	if maxSeconds > 0 {
		args = append(args, "-t", strconv.FormatFloat(maxSeconds+1, 'f', -1, 64))
	}
	return append(args, "-f", "f32le", "pipe:1")
}

func parseF32LE(raw []byte) ([]float64, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("ffmpeg decode: unexpected byte length %d", len(raw))
	}
	samples := make([]float64, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return samples, nil
}
