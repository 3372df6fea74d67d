// internal/crawler/config.go
package crawler

import "time"

// Config holds the crawler defaults. Per-request options override these.
type Config struct {
	Timeout     time.Duration
	CacheTTL    time.Duration
	Concurrency int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:     3000 * time.Millisecond,
		CacheTTL:    60 * time.Second,
		Concurrency: 5,
	}
}
