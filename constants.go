package mapport

import "time"

// Default timing for the dispatcher. The retry period must stay strictly
// shorter than the reannounce period: a failing protocol set is probed more
// often than a held mapping is refreshed.
const (
	// DefaultReannouncePeriod is how often a held mapping is reissued to
	// refresh its gateway-side lease.
	DefaultReannouncePeriod = 20 * time.Minute

	// DefaultRetryPeriod is the backoff after a round in which every
	// enabled protocol failed.
	DefaultRetryPeriod = 5 * time.Minute

	// DefaultDiscoverTimeout bounds a single gateway discovery attempt.
	DefaultDiscoverTimeout = 2 * time.Second

	// DefaultDescription labels mappings on the gateway.
	DefaultDescription = "go-mapport"
)
