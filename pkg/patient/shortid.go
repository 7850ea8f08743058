package patient

import (
	"errors"
	"math/rand"
	"strings"
)

// idAlphabet excludes visually confusing glyphs (0, 1, I, O).
const idAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const (
	idLength      = 4
	maxIDAttempts = 1000
)

// ErrIDSpaceExhausted indicates fact ID generation kept colliding until the
// attempt budget ran out.
var ErrIDSpaceExhausted = errors.New("fact id generation exhausted retry budget")

// newFactID generates a short identifier unique within the given set.
func newFactID(existing map[string]bool) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		var sb strings.Builder
		for i := 0; i < idLength; i++ {
			sb.WriteByte(idAlphabet[rand.Intn(len(idAlphabet))])
		}
		id := sb.String()
		if !existing[id] {
			return id, nil
		}
	}
	return "", ErrIDSpaceExhausted
}
