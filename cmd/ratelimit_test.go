//go:build !integration

package main

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientLimiter_PerClientBuckets(t *testing.T) {
	lim := newClientLimiter(1, 1)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lim.now = func() time.Time { return now }

	assert.True(t, lim.allow("10.0.0.1"))
	assert.False(t, lim.allow("10.0.0.1"))
	// Another client has its own bucket.
	assert.True(t, lim.allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, lim.allow("10.0.0.1"))
}

func TestClientLimiter_SweepDropsIdleClients(t *testing.T) {
	lim := newClientLimiter(5, 5)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	lim.now = func() time.Time { return now }

	lim.allow("old")
	now = now.Add(2 * time.Hour)
	lim.allow("fresh")

	assert.Equal(t, 1, lim.sweep(time.Hour))
	assert.Len(t, lim.clients, 1)
	assert.Contains(t, lim.clients, "fresh")
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:54321"
	assert.Equal(t, "203.0.113.7", clientKey(req))

	req.RemoteAddr = "203.0.113.7"
	assert.Equal(t, "203.0.113.7", clientKey(req))
}
