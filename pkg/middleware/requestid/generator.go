package requestid

import (
	"crypto/rand"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Generator produces a new request ID. Implementations must be safe for concurrent use.
type Generator func() ID

// Named generators.
const (
	GeneratorUUID         = "uuid"
	GeneratorUUIDv7       = "uuidv7"
	GeneratorAlphanumeric = "alphanumeric"
)

// AlphanumericLength is the length of IDs produced by NewAlphanumeric.
const AlphanumericLength = 10

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var generators = map[string]Generator{
	GeneratorUUID:         NewUUID,
	GeneratorUUIDv7:       NewUUIDv7,
	GeneratorAlphanumeric: NewAlphanumeric,
}

// LookupGenerator returns the generator registered under name.
func LookupGenerator(name string) (Generator, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = GeneratorUUID
	}
	gen, ok := generators[key]
	if !ok {
		return nil, fmt.Errorf("unknown generator %q (supported: %s)", name, strings.Join(GeneratorNames(), ", "))
	}
	return gen, nil
}

// GeneratorNames returns the registered generator names in sorted order.
func GeneratorNames() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewUUID returns a random (version 4) UUID.
func NewUUID() ID {
	return ID(uuid.New().String())
}

// NewUUIDv7 returns a time-ordered (version 7) UUID.
func NewUUIDv7() ID {
	u, err := uuid.NewV7()
	if err != nil {
		return NewUUID()
	}
	return ID(u.String())
}

// NewAlphanumeric returns AlphanumericLength characters drawn uniformly from [A-Za-z0-9].
func NewAlphanumeric() ID {
	// 248 is the largest multiple of 62 below 256; bytes above it are rejected to keep the draw uniform.
	const limit = 248

	out := make([]byte, 0, AlphanumericLength)
	buf := make([]byte, AlphanumericLength*2)
	for len(out) < AlphanumericLength {
		if _, err := rand.Read(buf); err != nil {
			return NewUUID()
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == AlphanumericLength {
				break
			}
		}
	}
	return ID(out)
}
