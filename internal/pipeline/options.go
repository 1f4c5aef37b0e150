package pipeline

import "time"

type Option func(*Collector)

// WithWorkers bounds how many documents are extracted concurrently.
func WithWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithDocumentTimeout caps the time spent on one document (text + fields).
func WithDocumentTimeout(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics records per-document outcomes.
func WithMetrics(m *Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}
