package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger. Every roll is logged at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs to logger.
//
// Precondition: src must be non-nil; a nil logger discards output.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Roll evaluates e and logs the result.
func (r *Roller) Roll(e Expression) RollResult {
	result := Roll(e, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// Chance reports whether an event with probability p happens.
// p <= 0 never happens and p >= 1 always does.
func (r *Roller) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	roll := r.src.Float64()
	hit := roll < p
	r.logger.Debug("chance roll", zap.Float64("chance", p), zap.Float64("roll", roll), zap.Bool("hit", hit))
	return hit
}

// Between returns a uniform int in [lo, hi]. hi <= lo returns lo.
func (r *Roller) Between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.src.Intn(hi-lo+1)
}
