package backoff

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPolicy = errors.New("invalid backoff policy")

// Capped is an exponential interval policy without jitter.
//
// The n-th interval is min(Initial * Factor^n, Max).
type Capped struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
}

// Default policy: 2s, x1.5, up to 10s.
func Default() Capped {
	return Capped{
		Initial: 2 * time.Second,
		Factor:  1.5,
		Max:     10 * time.Second,
	}
}

// Validate reports whether the policy yields a non-decreasing, bounded sequence.
func (c Capped) Validate() error {
	if c.Initial <= 0 {
		return fmt.Errorf("%w: initial interval should be positive: %s", ErrInvalidPolicy, c.Initial)
	}
	if c.Factor < 1 {
		return fmt.Errorf("%w: backoff factor should be >= 1: %g", ErrInvalidPolicy, c.Factor)
	}
	if c.Max < c.Initial {
		return fmt.Errorf(
			"%w: max interval (%s) should not be less than initial interval (%s)",
			ErrInvalidPolicy, c.Max, c.Initial,
		)
	}
	return nil
}

// Next returns the interval following current.
//
// Non-positive current restarts the sequence from Initial.
func (c Capped) Next(current time.Duration) time.Duration {
	if current <= 0 {
		return c.First()
	}
	next := time.Duration(float64(current) * c.Factor)
	if next < current {
		// overflow, or factor < 1.
		next = current
	}
	if c.Max < next {
		return c.Max
	}
	return next
}

// First interval, capped by Max.
func (c Capped) First() time.Duration {
	if 0 < c.Max && c.Max < c.Initial {
		return c.Max
	}
	return c.Initial
}

// Sequence returns first n intervals.
func (c Capped) Sequence(n int) []time.Duration {
	if n <= 0 {
		return []time.Duration{}
	}
	ret := make([]time.Duration, 0, n)
	i := c.First()
	for range n {
		ret = append(ret, i)
		i = c.Next(i)
	}
	return ret
}

func (c Capped) String() string {
	return fmt.Sprintf("%s x%g (max %s)", c.Initial, c.Factor, c.Max)
}
