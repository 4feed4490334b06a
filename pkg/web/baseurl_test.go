package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrigin_FallbackBeforeAnyRequest(t *testing.T) {
	o := NewOrigin("", 3000)
	assert.Equal(t, "http://localhost:3000", o.BaseURL())
}

func TestOrigin_ObserveHosts(t *testing.T) {
	o := NewOrigin("", 3000)

	o.Observe("files.example.com")
	assert.Equal(t, "https://files.example.com", o.BaseURL())

	o.Observe("localhost:3000")
	assert.Equal(t, "http://localhost:3000", o.BaseURL())

	o.Observe("127.0.0.1:8080")
	assert.Equal(t, "http://127.0.0.1:8080", o.BaseURL())

	// Empty hosts are ignored.
	o.Observe("")
	assert.Equal(t, "http://127.0.0.1:8080", o.BaseURL())
}

func TestOrigin_PinnedWins(t *testing.T) {
	o := NewOrigin("https://share.example.com/", 3000)
	o.Observe("evil.example.net")
	assert.Equal(t, "https://share.example.com", o.BaseURL())
}
