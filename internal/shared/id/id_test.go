package id

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionIDShape(t *testing.T) {
	for i := 0; i < 200; i++ {
		sid := NewSessionID()
		assert.True(t, IsSessionID(sid.String()), "bad session id %q", sid)
	}
}

func TestIsSessionID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"test-0a1b2c3d", true},
		{"test-abcdefgh", true},
		{"test-ABCDEFGH", false},
		{"test-0a1b2c3", false},
		{"sess-0a1b2c3d", false},
		{"test-0a1b2c3d9", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsSessionID(tt.in), tt.in)
	}
}

func TestNewSessionIDConcurrentUnique(t *testing.T) {
	const n = 500
	var (
		mu   sync.Mutex
		seen = make(map[SessionID]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sid := NewSessionID()
			mu.Lock()
			seen[sid] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	// 32 bits of randomness; collisions across 500 draws are vanishingly rare.
	assert.Len(t, seen, n)
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	rid := gen.GenerateWithPrefix(RequestPrefix)
	require.True(t, strings.HasPrefix(rid, "req_"))

	parts := strings.Split(rid, "_")
	require.Len(t, parts, 2)
	assert.True(t, IsValid(parts[1]))
}

func TestNewRequestIDTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	rid := NewRequestID()

	ts, err := Timestamp(rid.String())
	require.NoError(t, err)
	assert.True(t, ts.After(before))

	_, err = Timestamp("req_not-a-ulid")
	assert.Error(t, err)
}
