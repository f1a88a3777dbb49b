package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gttbot/internal/exchange"
	"gttbot/internal/models"
)

func istCandle(t *testing.T, day time.Time, hour, minute int, high float64) models.Candle {
	t.Helper()
	return models.Candle{
		Timestamp: time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, ist),
		High:      high,
	}
}

func TestReplayWindow(t *testing.T) {
	day := time.Date(2025, 9, 4, 10, 0, 0, 0, ist)

	fake := &fakeClient{candles: map[string][]models.Candle{
		"BSE_FO|CE": {
			istCandle(t, day, 9, 16, 300), // before the window
			istCandle(t, day, 9, 17, 250),
			istCandle(t, day, 9, 29, 255),
			istCandle(t, day, 9, 30, 400), // after the window
		},
		"BSE_FO|PE": {
			istCandle(t, day, 9, 20, 180),
			istCandle(t, day, 9, 25, 175),
		},
	}}

	e := newTestEngine(t, fake)
	e.now = func() time.Time { return day }
	e.state.CE.HighPrice = 0
	e.state.PE.HighPrice = 0

	require.NoError(t, e.replayWindow(context.Background()))
	require.Equal(t, 255.0, e.state.CE.HighPrice)
	require.Equal(t, 180.0, e.state.PE.HighPrice)
}

func TestReplayWindowKeepsHigherLiveHigh(t *testing.T) {
	day := time.Date(2025, 9, 4, 9, 25, 0, 0, ist)

	fake := &fakeClient{candles: map[string][]models.Candle{
		"BSE_FO|CE": {istCandle(t, day, 9, 18, 250)},
		"BSE_FO|PE": {istCandle(t, day, 9, 18, 170)},
	}}

	e := newTestEngine(t, fake)
	e.now = func() time.Time { return day }
	e.state.CE.HighPrice = 260 // live tick already above the replayed bars
	e.state.PE.HighPrice = 0

	require.NoError(t, e.replayWindow(context.Background()))
	require.Equal(t, 260.0, e.state.CE.HighPrice)
	require.Equal(t, 170.0, e.state.PE.HighPrice)
}

func TestTrackHighPricesLive(t *testing.T) {
	fake := &fakeClient{}
	e := newTestEngine(t, fake)
	e.pollInterval = 10 * time.Millisecond

	mid := time.Date(2025, 9, 4, 9, 20, 0, 0, ist)
	after := time.Date(2025, 9, 4, 9, 30, 0, 0, ist)
	var windowOver atomic.Bool
	e.now = func() time.Time {
		if windowOver.Load() {
			return after
		}
		return mid
	}

	feed := make(chan exchange.Event)
	e.feed = feed
	e.state.CE.HighPrice = 0
	e.state.PE.HighPrice = 0

	errCh := make(chan error, 1)
	go func() { errCh <- e.trackHighPrices(context.Background()) }()

	send := func(tick models.Tick) {
		feed <- exchange.Event{Type: exchange.EventTypeTick, Tick: &tick}
	}

	send(models.Tick{InstrumentKey: "BSE_FO|CE", LTP: 100, OHLCHigh: 120})
	// The interval high repeats on every frame; within the catch-up gate it
	// must not be folded again.
	send(models.Tick{InstrumentKey: "BSE_FO|CE", LTP: 95, OHLCHigh: 130})
	send(models.Tick{InstrumentKey: "BSE_FO|PE", LTP: 50})
	send(models.Tick{InstrumentKey: "BSE_FO|CE", LTP: 125})

	windowOver.Store(true)
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("трекер не завершился после закрытия окна")
	}

	require.Equal(t, 125.0, e.state.CE.HighPrice)
	require.Equal(t, 50.0, e.state.PE.HighPrice)
}

func TestTrackHighPricesStopsAtExitTime(t *testing.T) {
	fake := &fakeClient{}
	e := newTestEngine(t, fake)
	e.pollInterval = 10 * time.Millisecond
	e.exitTime = TimeOfDay{Hour: 9, Minute: 20}
	e.now = func() time.Time {
		return time.Date(2025, 9, 4, 9, 25, 0, 0, ist)
	}
	e.feed = make(chan exchange.Event)
	e.state.CE.HighPrice = 0
	e.state.PE.HighPrice = 0

	// Exit time mid-window ends tracking without orders, not with a failure.
	require.NoError(t, e.trackHighPrices(context.Background()))
	require.Zero(t, e.state.CE.HighPrice)
	require.Zero(t, e.state.PE.HighPrice)
}

func TestLegByKey(t *testing.T) {
	e := newTestEngine(t, &fakeClient{})

	require.Equal(t, e.state.CE, e.legByKey("BSE_FO|CE"))
	require.Equal(t, e.state.PE, e.legByKey("BSE_FO|PE"))
	require.Nil(t, e.legByKey("BSE_INDEX|SENSEX"))
}
