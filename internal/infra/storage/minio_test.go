package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "audio/wav", ContentTypeFor("recordings/2024/01/01/a.WAV"))
	assert.Equal(t, "audio/mpeg", ContentTypeFor("a.mp3"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("a.bin"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("noext"))
}
