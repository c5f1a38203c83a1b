// Package netwait blocks startup until the chat API is reachable, so
// the bot survives booting before the network is up.
package netwait

import (
	"context"
	"net/http"
	"time"

	"github.com/alarmbot/alarmbot/internal/logger"
)

const (
	defaultProbeTimeout = 1 * time.Second
	defaultInterval     = 1 * time.Second
)

// Config represents connectivity wait configuration.
type Config struct {
	URL          string        // Endpoint to probe
	ProbeTimeout time.Duration // Per-probe timeout (default: 1s)
	Interval     time.Duration // Delay between probes (default: 1s)
}

// Waiter polls an HTTP endpoint until it answers.
type Waiter struct {
	cfg    Config
	client *http.Client
	logger *logger.Logger
}

// New creates a Waiter for the given probe endpoint.
func New(cfg Config, log *logger.Logger) *Waiter {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}

	return &Waiter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.ProbeTimeout},
		logger: log,
	}
}

// Check reports whether the endpoint currently answers.
func (w *Waiter) Check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.URL, nil)
	if err != nil {
		return false
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// Wait blocks until the endpoint answers or the context is cancelled.
// It returns false only on cancellation.
func (w *Waiter) Wait(ctx context.Context) bool {
	for {
		if w.Check(ctx) {
			return true
		}

		w.logger.Info("waiting for internet",
			logger.Field{Key: "probe", Value: w.cfg.URL})

		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.cfg.Interval):
		}
	}
}
