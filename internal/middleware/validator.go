package middleware

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

// Input validation and sanitization utilities

// ValidateAnalysisID accepts canonical UUIDs only.
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid analysis ID format")
	}
	return nil
}

// ValidateCategory accepts any verdict category, including analysis_failed.
func ValidateCategory(s string) (diagnosis.Category, error) {
	if s == "" {
		return "", nil
	}
	c, ok := diagnosis.ParseCategory(s)
	if !ok {
		return "", fmt.Errorf("invalid damage type: %s", s)
	}
	return c, nil
}

// ValidateAudioUpload checks the declared content type and, when that is generic or
// missing, sniffs the first bytes. It returns the content type to store.
func ValidateAudioUpload(contentType string, head []byte) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && strings.HasPrefix(mediaType, "audio/") {
		return mediaType, nil
	}
	if err == nil && mediaType != "application/octet-stream" {
		return "", diagnosis.ErrNotAudio
	}
	if len(head) > 0 && filetype.IsAudio(head) {
		kind, _ := filetype.Match(head)
		return kind.MIME.Value, nil
	}
	return "", diagnosis.ErrNotAudio
}

const maxFileNameBytes = 255

// SanitizeFileName keeps the base name only.
func SanitizeFileName(name string) string {
	name = SanitizeString(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == "/" {
		return ""
	}
	if len(name) > maxFileNameBytes {
		// cut on a rune boundary so the stored name stays valid UTF-8
		cut := maxFileNameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	return name
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates history limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 100 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
