package mapport

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/benbjohnson/clock"
)

// Config controls a Dispatcher. The zero value plus a Port is usable; New
// fills in defaults for everything else.
type Config struct {
	// Port is the node's listening TCP port to advertise on the gateway.
	// The external port always matches the internal one.
	Port uint16

	// Description labels mappings on the gateway so users can recognize
	// them in the router UI. Defaults to DefaultDescription.
	Description string

	// ReannouncePeriod is how often a held mapping is refreshed.
	// Defaults to DefaultReannouncePeriod.
	ReannouncePeriod time.Duration

	// RetryPeriod is the backoff after a fully failed protocol round.
	// It must be strictly shorter than ReannouncePeriod.
	// Defaults to DefaultRetryPeriod.
	RetryPeriod time.Duration

	// DiscoverTimeout bounds each gateway discovery attempt.
	// Defaults to DefaultDiscoverTimeout.
	DiscoverTimeout time.Duration

	// OnExternalIP, when set, is invoked each time a discovered gateway
	// reports its external address. Called from the worker goroutine.
	OnExternalIP func(net.IP)

	// Clock substitutes a fake clock in tests. Defaults to the real clock.
	Clock clock.Clock

	// Logger receives mapping events. Defaults to slog.Default().
	Logger *slog.Logger
}

// withDefaults returns a copy with defaults applied, validating the timing
// ordering the failover design depends on.
func (c Config) withDefaults() (Config, error) {
	if c.Port == 0 {
		return c, fmt.Errorf("port to advertise must be set")
	}
	if c.Description == "" {
		c.Description = DefaultDescription
	}
	if c.ReannouncePeriod == 0 {
		c.ReannouncePeriod = DefaultReannouncePeriod
	}
	if c.RetryPeriod == 0 {
		c.RetryPeriod = DefaultRetryPeriod
	}
	if c.DiscoverTimeout == 0 {
		c.DiscoverTimeout = DefaultDiscoverTimeout
	}
	if c.RetryPeriod >= c.ReannouncePeriod {
		return c, fmt.Errorf("retry period %v must be shorter than reannounce period %v",
			c.RetryPeriod, c.ReannouncePeriod)
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c, nil
}

// leaseDuration is the gateway-side lease requested for each mapping.
// Double the reannounce period, so a single missed reannounce does not
// drop the mapping.
func (c Config) leaseDuration() time.Duration {
	return 2 * c.ReannouncePeriod
}
