package poller

import "time"

type Config struct {
	Enabled bool
	// ResyncInterval is how often the repository list is reloaded.
	ResyncInterval time.Duration
	// Jitter is the fraction of the poll interval added at random to each
	// wait, so repositories registered together do not poll in lockstep.
	Jitter float64
}
