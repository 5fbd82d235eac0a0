// Package ident allocates the 24 character lowercase hex identifiers used by
// every document record.
package ident

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	mrand "math/rand"
	"regexp"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Size is the length of an identifier in hex characters.
const Size = 24

var validID = regexp.MustCompile(`^[0-9a-f]{24}$`)

// Generator allocates identifiers.
type Generator interface {
	NewID() string
}

// Random draws every identifier independently from a random source.
type Random struct {
	mu  sync.Mutex
	src io.Reader
}

// NewRandom returns a generator reading from src. A nil src uses crypto/rand.
func NewRandom(src io.Reader) *Random {
	if src == nil {
		src = rand.Reader
	}
	return &Random{src: src}
}

// NewSeeded returns a deterministic generator for tests.
func NewSeeded(seed int64) *Random {
	return NewRandom(mrand.New(mrand.NewSource(seed)))
}

// NewID returns 12 random bytes as hex.
func (r *Random) NewID() string {
	var b [Size / 2]byte
	r.mu.Lock()
	_, err := io.ReadFull(r.src, b[:])
	r.mu.Unlock()
	if err != nil {
		// A broken source must not yield a constant id.
		_, _ = rand.Read(b[:])
	}
	return hex.EncodeToString(b[:])
}

// ObjectID allocates MongoDB ObjectIDs, which share the 24 hex format.
type ObjectID struct{}

// NewID returns a fresh ObjectID in hex.
func (ObjectID) NewID() string {
	return bson.NewObjectID().Hex()
}

// Func adapts a function to Generator.
type Func func() string

// NewID calls f.
func (f Func) NewID() string {
	return f()
}

// Valid reports whether id has the identifier format.
func Valid(id string) bool {
	return validID.MatchString(id)
}

// ForFormat returns the generator configured by name: "objectid" or
// "random" (the default).
func ForFormat(format string) Generator {
	if format == "objectid" {
		return ObjectID{}
	}
	return NewRandom(nil)
}

var defaultGen Generator = NewRandom(nil)

// New allocates an identifier from the process default generator.
func New() string {
	return defaultGen.NewID()
}
