package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"gttbot/internal/models"
)

// withRetry runs fn up to attempts times with a fixed delay between tries.
// Shared by price capture, historical fetches and cancellation.
func withRetry[T any](ctx context.Context, log *logrus.Entry, attempts int, delay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		val, err := fn()
		if err == nil {
			return val, nil
		}
		lastErr = err
		log.WithError(lastErr).Warn("Ошибка, повторяем запрос.")
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}

func (e *Engine) logEntry() *logrus.Entry {
	entry := e.log.WithComponent("engine")
	if e.cfg != nil && e.cfg.Strategy.UnderlyingKey != "" {
		entry = entry.WithField("underlying", e.cfg.Strategy.UnderlyingKey)
	}
	return entry
}

func (e *Engine) legEntry(leg *models.OptionLeg) *logrus.Entry {
	return e.logEntry().WithFields(map[string]interface{}{
		"side":           leg.Side,
		"instrument_key": leg.InstrumentKey,
	})
}
