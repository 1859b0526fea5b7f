package repos

import "time"

type Config struct {
	DefaultPollInterval time.Duration
}

const (
	defaultPollInterval = 30 * time.Second
	minPollInterval     = time.Second
)
