// Package roster derives the photographer roster from appointment data.
// Identity is a stable hash of the display name computed once at the
// data boundary, and colors are derived from that id rather than drawn
// at random, so the SPA never flickers between renders.
package roster

import (
	"fmt"
	"hash/fnv"
	"strings"
)

type Photographer struct {
	ID    string
	Name  string
	Color string
}

// StableID hashes a photographer display name into a stable identifier.
// It is an interim key until team records carry real ids end to end;
// it at least never changes between renders or process restarts.
func StableID(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.TrimSpace(name)))
	return fmt.Sprintf("ph-%08x", h.Sum32())
}

// ColorFor maps a name deterministically onto the hue wheel.
func ColorFor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.TrimSpace(name)))
	hue := h.Sum32() % 360
	return fmt.Sprintf("hsl(%d, 70%%, 45%%)", hue)
}

// Derive builds the distinct roster from appointment photographer names,
// in first-appearance order. Names with no matching team record still get
// an entry; an appointment is never dropped for lacking one.
func Derive(names []string) []Photographer {
	seen := make(map[string]struct{}, len(names))
	var out []Photographer
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, Photographer{
			ID:    StableID(name),
			Name:  name,
			Color: ColorFor(name),
		})
	}
	return out
}
