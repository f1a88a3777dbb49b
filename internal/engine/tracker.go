package engine

import (
	"context"
	"fmt"
	"time"

	"gttbot/internal/exchange"
	"gttbot/internal/models"
)

// trackHighPrices observes both option legs over the breakout window and
// records each leg's highest traded price. Live ticks drive the fold; the
// one-minute OHLC highs carried on the full feed patch over tick gaps, and a
// candle replay recovers anything missed before the engine joined the window.
func (e *Engine) trackHighPrices(ctx context.Context) error {
	if e.strictlyPast(e.windowEnd) {
		e.logEntry().Info("Окно уже закрыто, восстанавливаем максимумы из свечей.")
		return e.replayWindow(ctx)
	}

	keys := []string{e.state.CE.InstrumentKey, e.state.PE.InstrumentKey}
	if err := e.client.SubscribeFeed(ctx, "full", keys); err != nil {
		return err
	}

	if err := e.waitUntil(ctx, e.windowStart); err != nil {
		return err
	}

	// The first one-minute bar completes a minute into the window. If we
	// joined later than that, completed bars hold highs no tick will repeat.
	if e.hasPassed(e.windowStart.AddMinutes(1)) {
		if err := e.replayWindow(ctx); err != nil {
			e.logEntry().WithError(err).Warn("Не удалось восстановить максимумы из свечей.")
		}
	}

	e.logEntry().Info("Отслеживаем максимумы окна.")

	lastCatchup := map[models.OptionSide]time.Time{}
	for !e.hasPassed(e.windowEnd) {
		// Exit time before the window closed: stop tracking, the run
		// ends without orders.
		if e.hasPassed(e.exitTime) {
			e.logEntry().Warn("Время выхода наступило до закрытия окна, отслеживание остановлено.")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.pollInterval):
		case ev, ok := <-e.feed:
			if !ok {
				return fmt.Errorf("Фид закрыт во время отслеживания окна.")
			}
			if ev.Type != exchange.EventTypeTick || ev.Tick == nil {
				continue
			}
			leg := e.legByKey(ev.Tick.InstrumentKey)
			if leg == nil {
				continue
			}
			if ev.Tick.LTP > 0 {
				leg.HighPrice = HighWatermark(leg.HighPrice, ev.Tick.LTP)
			}
			// The interval high arrives on every full-feed tick; folding it
			// once per interval is enough.
			if ev.Tick.OHLCHigh > 0 && e.now().Sub(lastCatchup[leg.Side]) >= e.catchupInterval {
				leg.HighPrice = HighWatermark(leg.HighPrice, ev.Tick.OHLCHigh)
				lastCatchup[leg.Side] = e.now()
			}
		}
	}

	e.logEntry().WithFields(map[string]interface{}{
		"ce_high": e.state.CE.HighPrice,
		"pe_high": e.state.PE.HighPrice,
	}).Info("Окно закрыто.")
	return nil
}

// replayWindow folds the one-minute candle highs of the breakout window into
// both legs' high-water marks.
func (e *Engine) replayWindow(ctx context.Context) error {
	start := e.windowStart.On(e.now())
	end := e.windowEnd.On(e.now())

	for _, leg := range []*models.OptionLeg{e.state.CE, e.state.PE} {
		candles, err := withRetry(ctx, e.legEntry(leg), 3, 2*time.Second, func() ([]models.Candle, error) {
			return e.client.GetIntradayCandles(ctx, leg.InstrumentKey)
		})
		if err != nil {
			return err
		}
		for _, candle := range candles {
			ts := candle.Timestamp.In(ist)
			if ts.Before(start) || !ts.Before(end) {
				continue
			}
			leg.HighPrice = HighWatermark(leg.HighPrice, candle.High)
		}
		e.legEntry(leg).WithField("high", leg.HighPrice).Info("Максимум окна восстановлен из свечей.")
	}
	return nil
}

func (e *Engine) legByKey(key string) *models.OptionLeg {
	switch key {
	case e.state.CE.InstrumentKey:
		return e.state.CE
	case e.state.PE.InstrumentKey:
		return e.state.PE
	}
	return nil
}
