// Package random provides the deterministic stream that drives case
// generation as well as crypto-backed helpers for tokens and seeds.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/big"
	"time"

	"github.com/mjuvonen/truthseeker/internal/errors"
)

var allowedLetters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Letters returns n crypto-random ASCII letters, suitable for opaque IDs.
func Letters(n uint) (string, error) {
	letters := make([]rune, n)
	for i := range letters {
		letterIndex, err := crand.Int(crand.Reader, big.NewInt(int64(len(allowedLetters))))
		if err != nil {
			return "", errors.Wrap(err, "read random letter")
		}
		letters[i] = allowedLetters[letterIndex.Int64()]
	}
	return string(letters), nil
}

const (
	// seedJitterRange spreads seeds derived in the same millisecond.
	seedJitterRange = 1_000_000

	modulus    = 2147483647 // 2^31 - 1, the Mersenne prime of the Lehmer generator
	multiplier = 16807
)

// NewSeed derives a seed from the wall clock plus a crypto-random jitter
// component so that rapid successive generations still diverge. It never
// fails closed: if the random source errors, the clock alone is used.
func NewSeed() int64 {
	seed := time.Now().UnixMilli()
	var b [8]byte
	if _, err := crand.Read(b[:]); err == nil {
		seed += int64(binary.LittleEndian.Uint64(b[:]) % seedJitterRange)
	}
	return seed
}

// Stream is a Lehmer multiplicative congruential generator. Two streams
// instantiated with the same seed produce identical draw sequences, which is
// what makes generated cases reproducible.
type Stream struct {
	state int64
}

// NewStream seeds a deterministic stream. Any integer is accepted; the state
// is folded into the generator's valid range.
func NewStream(seed int64) *Stream {
	state := seed % modulus
	if state <= 0 {
		state += modulus - 1
	}
	return &Stream{state: state}
}

// Float64 returns the next draw in [0, 1).
func (s *Stream) Float64() float64 {
	s.state = s.state * multiplier % modulus
	return float64(s.state-1) / float64(modulus-1)
}

// IntN returns the next draw in [0, n). n must be positive.
func (s *Stream) IntN(n int) int {
	return int(s.Float64() * float64(n))
}

// Shuffle returns a Fisher–Yates shuffled copy of items, consuming
// len(items)-1 draws from the stream. The input is never mutated.
func Shuffle[T any](s *Stream, items []T) []T {
	shuffled := make([]T, len(items))
	copy(shuffled, items)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := s.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}
