package ws

import (
	"strconv"
	"time"

	"gttbot/internal/exchange"
	"gttbot/internal/models"
)

func (w *Client) handleFeeds(msg feedMessage) {
	for instrumentKey, entry := range msg.Feeds {
		tick := models.Tick{InstrumentKey: instrumentKey}

		quote := entry.LTPC
		if quote == nil && entry.FullFeed != nil && entry.FullFeed.MarketFF != nil {
			quote = entry.FullFeed.MarketFF.LTPC
		}
		if quote != nil {
			tick.LTP = quote.LTP
			tick.ClosePrice = quote.CP
			tick.LastTradeTime = parseMillis(quote.LTT, msg.CurrentTs)
		}

		if entry.FullFeed != nil && entry.FullFeed.MarketFF != nil && entry.FullFeed.MarketFF.MarketOHLC != nil {
			for _, ohlc := range entry.FullFeed.MarketFF.MarketOHLC.OHLC {
				if ohlc.Interval == "I1" {
					tick.OHLCHigh = ohlc.High
					break
				}
			}
		}

		if tick.LTP == 0 && tick.OHLCHigh == 0 {
			continue
		}

		w.logEntry().WithFields(map[string]interface{}{
			"instrument_key": instrumentKey,
			"ltp":            tick.LTP,
			"cp":             tick.ClosePrice,
			"ohlc_high":      tick.OHLCHigh,
		}).Debug("tick")

		// The consumer may have stopped reading (window closed). Never
		// park the read loop on a full buffer: drop the tick instead.
		select {
		case w.events <- exchange.Event{Type: exchange.EventTypeTick, Tick: &tick}:
		case <-w.stopCh:
			return
		default:
			w.logEntry().WithField("instrument_key", instrumentKey).Debug("Буфер событий переполнен, тик отброшен.")
		}
	}
}

func parseMillis(primary, fallback string) time.Time {
	raw := primary
	if raw == "" {
		raw = fallback
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
