package fetch

import "time"

// IsStale reports whether data last refreshed at lastUpdated is due for a
// refresh at now. Data that was never loaded (nil) is always stale, and an
// age equal to the interval already counts as stale.
func IsStale(lastUpdated *time.Time, refreshInterval time.Duration, now time.Time) bool {
	if lastUpdated == nil {
		return true
	}
	return now.Sub(*lastUpdated) >= refreshInterval
}
