package dice

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

const float53 = 1 << 53

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics if n <= 0 or crypto/rand fails.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Float64 returns a uniformly distributed float in [0, 1) with 53 bits of precision.
func (c cryptoSource) Float64() float64 {
	return float64(c.Intn(float53)) / float53
}

// seededSource is a deterministic Source for tests and replays.
type seededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource returns a deterministic Source seeded with seed.
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
