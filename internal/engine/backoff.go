package engine

import (
	"math"
	"time"
)

// Backoff returns the delay before retry attempt n (1-indexed): attempt 1
// is the first retry after the initial failure and waits base * 2^0.
// Strictly increasing in the attempt number.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
}
