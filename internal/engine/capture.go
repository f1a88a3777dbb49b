package engine

import (
	"context"
	"time"

	"gttbot/internal/exchange"
	"gttbot/internal/models"
)

const livePriceAttempts = 10

// prefetchChain loads the weekly option chain in the background while the
// engine waits for the capture instant. resolveContracts blocks on chainReady.
func (e *Engine) prefetchChain(ctx context.Context) {
	go func() {
		defer close(e.chainReady)

		expiry := NextThursday(e.now())
		contracts, err := withRetry(ctx, e.logEntry(), 3, 2*time.Second, func() ([]models.OptionContract, error) {
			return e.client.GetOptionChain(ctx, e.cfg.Strategy.UnderlyingKey, expiry.Format("2006-01-02"))
		})
		if err != nil {
			e.logEntry().WithError(err).Error("Не удалось загрузить цепочку опционов.")
			return
		}

		e.chainMu.Lock()
		e.chain = contracts
		e.chainMu.Unlock()

		e.logEntry().WithFields(map[string]interface{}{
			"expiry":    expiry.Format("2006-01-02"),
			"contracts": len(contracts),
		}).Info("Цепочка опционов загружена.")
	}()
}

// captureUnderlying fixes the underlying index price at the configured
// instant. Before the instant it waits and reads from the live feed; after
// the instant it falls back to the historical one-minute candle.
func (e *Engine) captureUnderlying(ctx context.Context) (models.UnderlyingSnapshot, error) {
	if e.strictlyPast(e.atmTime) {
		e.logEntry().Info("Момент фиксации уже прошёл, берём цену из исторических свечей.")
		return e.captureHistorical(ctx)
	}

	if err := e.client.SubscribeFeed(ctx, "ltpc", []string{e.cfg.Strategy.UnderlyingKey}); err != nil {
		return models.UnderlyingSnapshot{}, err
	}

	if err := e.waitUntil(ctx, e.atmTime); err != nil {
		return models.UnderlyingSnapshot{}, err
	}

	return e.captureLive(ctx)
}

func (e *Engine) captureLive(ctx context.Context) (models.UnderlyingSnapshot, error) {
	for attempt := 1; attempt <= livePriceAttempts; attempt++ {
		deadline := time.After(e.tickWait)
		for {
			select {
			case <-ctx.Done():
				return models.UnderlyingSnapshot{}, ctx.Err()
			case <-deadline:
			case ev, ok := <-e.feed:
				if !ok {
					return models.UnderlyingSnapshot{}, models.ErrPriceCaptureTimeout
				}
				if ev.Type != exchange.EventTypeTick || ev.Tick == nil {
					continue
				}
				if ev.Tick.InstrumentKey != e.cfg.Strategy.UnderlyingKey || ev.Tick.LTP <= 0 {
					continue
				}
				return models.UnderlyingSnapshot{Price: ev.Tick.LTP, CapturedAt: e.now()}, nil
			}
			break
		}
		e.logEntry().WithField("attempt", attempt).Warn("Нет тика по индексу, ждём дальше.")
	}
	return models.UnderlyingSnapshot{}, models.ErrPriceCaptureTimeout
}

// captureHistorical takes the open of the one-minute candle whose timestamp
// matches the capture instant. The candle may lag publication, so one retry
// after a grace period covers the gap.
func (e *Engine) captureHistorical(ctx context.Context) (models.UnderlyingSnapshot, error) {
	instant := e.atmTime.On(e.now())

	price, err := e.priceAtInstant(ctx, instant)
	if err == nil {
		return models.UnderlyingSnapshot{Price: price, CapturedAt: e.now()}, nil
	}

	e.logEntry().WithError(err).Warn("Свеча фиксации ещё не опубликована, ждём.")
	select {
	case <-ctx.Done():
		return models.UnderlyingSnapshot{}, ctx.Err()
	case <-time.After(e.captureGrace):
	}

	price, err = e.priceAtInstant(ctx, instant)
	if err != nil {
		return models.UnderlyingSnapshot{}, models.ErrPriceCaptureTimeout
	}
	return models.UnderlyingSnapshot{Price: price, CapturedAt: e.now()}, nil
}

func (e *Engine) priceAtInstant(ctx context.Context, instant time.Time) (float64, error) {
	candles, err := e.client.GetIntradayCandles(ctx, e.cfg.Strategy.UnderlyingKey)
	if err != nil {
		return 0, err
	}
	for _, candle := range candles {
		if candle.Timestamp.In(ist).Equal(instant) {
			return candle.Open, nil
		}
	}
	return 0, models.ErrPriceCaptureTimeout
}
