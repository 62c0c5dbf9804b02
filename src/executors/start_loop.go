// Package executors runs the periodic mark-to-market pass over every account with open exposure.
package executors

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
)

var ErrTooManyFailures = errors.New("mark loop stopped after consecutive failures")

// Marker refreshes current_price of every open position.
type Marker interface {
	MarkAll(ctx context.Context) (int, error)
}

// StartLoop marks once immediately and then on every tick until ctx is done.
func StartLoop(ctx context.Context, config Config, marker Marker) error {
	if config.MarkInterval <= 0 {
		return fmt.Errorf("invalid MARK_INTERVAL %s", config.MarkInterval)
	}

	ticker := time.NewTicker(config.MarkInterval)
	defer ticker.Stop()

	failures := 0
	pass := func() error {
		started := time.Now()
		marked, err := marker.MarkAll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			failures++
			logger.WithError(err).
				WithField("failures", failures).
				Error("mark pass failed")
			if config.MaxFailures > 0 && failures >= config.MaxFailures {
				return fmt.Errorf("%w: %v", ErrTooManyFailures, err)
			}
			return nil
		}
		failures = 0
		logger.WithFields(map[string]interface{}{
			"positions": marked,
			"elapsed":   time.Since(started).String(),
		}).Debug("mark pass done")
		return nil
	}

	if err := pass(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("mark loop stopped")
			return nil

		case <-ticker.C:
			if err := pass(); err != nil {
				return err
			}
		}
	}
}
