package application

import "time"

// Cadence defaults.
const (
	// DefaultBaseDelay is the inter-cycle wait when the server sends no hint.
	DefaultBaseDelay = 3 * time.Second
	// DefaultReferencePollInterval is the hint value that maps to DefaultBaseDelay.
	DefaultReferencePollInterval = 60 * time.Second
	// DefaultCleanupInterval gates the sweep of tracked reviews.
	DefaultCleanupInterval = time.Hour
)

// rescaleDelay stretches or shrinks the base delay proportionally to the
// server's advertised poll interval: hint * base / reference. The product is
// computed in milliseconds to stay clear of int64 overflow.
func rescaleDelay(hint, base, reference time.Duration) time.Duration {
	if hint <= 0 || reference <= 0 {
		return base
	}

	ms := hint.Milliseconds() * base.Milliseconds() / reference.Milliseconds()
	return time.Duration(ms) * time.Millisecond
}
