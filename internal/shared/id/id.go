// Package id provides centralized ID generation for the backend.
//
// Two families of identifiers exist:
//   - Session IDs: short, human-typeable "test-xxxxxxxx" labels derived from a
//     random UUID. They are pasted into prompt files and read back by people.
//   - Request IDs: prefixed ULIDs ("req_01H...") that sort by time and make
//     log correlation easy.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies a supervised extension session
type SessionID string

// RequestID identifies an API request
type RequestID string

const (
	SessionPrefix = "test"
	RequestPrefix = "req"

	sessionSuffixLen = 8
)

var sessionPattern = regexp.MustCompile(`^test-[a-z0-9]{8}$`)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: rand.Reader,
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewSessionID generates a new session ID of the form test-[a-z0-9]{8}.
// Uniqueness within a registry is enforced by the caller.
func NewSessionID() SessionID {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return SessionID(SessionPrefix + "-" + hex[:sessionSuffixLen])
}

func (id SessionID) String() string { return string(id) }
func (id RequestID) String() string { return string(id) }

// IsSessionID reports whether s has the session ID shape
func IsSessionID(s string) bool {
	return sessionPattern.MatchString(s)
}

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the timestamp from a bare or prefixed ULID
func Timestamp(id string) (time.Time, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
