package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"gttbot/internal/config"
	"gttbot/internal/exchange"
	"gttbot/internal/logger"
	"gttbot/internal/models"
)

// fakeClient records order calls and serves canned data.
type fakeClient struct {
	placed    []exchange.GttOrderRequest
	cancelled []string

	placeErr       error
	cancelFailures int
	cancelAttempts int

	candles map[string][]models.Candle
	chain   []models.OptionContract
	updates chan models.PortfolioUpdate
}

func (f *fakeClient) VerifyToken(ctx context.Context) error { return nil }

func (f *fakeClient) ConnectFeed(ctx context.Context) (<-chan exchange.Event, error) {
	return nil, nil
}

func (f *fakeClient) SubscribeFeed(ctx context.Context, mode string, instrumentKeys []string) error {
	return nil
}

func (f *fakeClient) ConnectPortfolio(ctx context.Context) (<-chan models.PortfolioUpdate, error) {
	return f.updates, nil
}

func (f *fakeClient) PlaceGttOrder(ctx context.Context, req exchange.GttOrderRequest) (string, error) {
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.placed = append(f.placed, req)
	return fmt.Sprintf("gtt-%d", len(f.placed)), nil
}

func (f *fakeClient) CancelGttOrder(ctx context.Context, gttOrderID string) (exchange.CancelResult, error) {
	f.cancelAttempts++
	if f.cancelFailures > 0 {
		f.cancelFailures--
		return exchange.CancelResult{}, fmt.Errorf("cancel rejected")
	}
	f.cancelled = append(f.cancelled, gttOrderID)
	return exchange.CancelResult{Status: "success"}, nil
}

func (f *fakeClient) GetGttOrderDetails(ctx context.Context, gttOrderID string) ([]models.GttRuleState, error) {
	return nil, nil
}

func (f *fakeClient) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (string, error) {
	return "", nil
}

func (f *fakeClient) GetOptionChain(ctx context.Context, instrumentKey, expiryDate string) ([]models.OptionContract, error) {
	return f.chain, nil
}

func (f *fakeClient) GetIntradayCandles(ctx context.Context, instrumentKey string) ([]models.Candle, error) {
	return f.candles[instrumentKey], nil
}

func newTestEngine(t *testing.T, client exchange.Client) *Engine {
	t.Helper()
	cfg := &config.Config{
		Strategy: config.StrategyConfig{
			UnderlyingKey:   "BSE_INDEX|SENSEX",
			Quantity:        20,
			AtmTime:         "09:17",
			WindowStart:     "09:17",
			WindowEnd:       "09:30",
			ExitTime:        "15:30",
			BuyPercent:      1.5,
			StopPercent:     1.25,
			TargetPercent:   2.5,
			StrikeStep:      100,
			TickSize:        0.05,
			TickSizeEnabled: true,
		},
	}
	e, err := New(cfg, client, logger.New(logger.Config{Level: "panic"}))
	require.NoError(t, err)

	e.state.CE = &models.OptionLeg{Side: models.OptionSideCE, InstrumentKey: "BSE_FO|CE", HighPrice: 250, OrderID: "g-ce"}
	e.state.PE = &models.OptionLeg{Side: models.OptionSidePE, InstrumentKey: "BSE_FO|PE", HighPrice: 240, OrderID: "g-pe"}
	return e
}

func TestStoplossReentryThenTermination(t *testing.T) {
	fake := &fakeClient{}
	e := newTestEngine(t, fake)
	ctx := context.Background()

	// First stop-loss consumes the shared re-entry and replaces the order.
	done := e.applyTransition(ctx, e.state.CE, TransitionStoplossPath)
	require.False(t, done)
	require.Equal(t, 0, e.state.ReentryBudget)
	require.Equal(t, 1, e.state.CE.StoplossHits)
	require.False(t, e.state.CE.Terminal)
	require.Equal(t, "gtt-1", e.state.CE.OrderID)
	require.Len(t, fake.placed, 1)
	require.Equal(t, "BSE_FO|CE", fake.placed[0].InstrumentKey)

	// The same leg stopping out again contributes no second hit: the leg
	// retires and the sibling stays live.
	done = e.applyTransition(ctx, e.state.CE, TransitionStoplossPath)
	require.False(t, done)
	require.True(t, e.state.CE.Terminal)
	require.Equal(t, 1, e.state.CE.StoplossHits)
	require.False(t, e.state.PE.Terminal)
	require.Empty(t, fake.cancelled)
	require.Len(t, fake.placed, 1)

	// The sibling stopping out afterwards makes it two hits: day over.
	done = e.applyTransition(ctx, e.state.PE, TransitionStoplossPath)
	require.True(t, done)
	require.True(t, e.state.PE.Terminal)
	require.Empty(t, fake.cancelled) // the CE order is already resolved
}

func TestStoplossAcrossLegsSharesBudget(t *testing.T) {
	fake := &fakeClient{}
	e := newTestEngine(t, fake)
	ctx := context.Background()

	require.False(t, e.applyTransition(ctx, e.state.PE, TransitionStoplossPath))
	require.Equal(t, "gtt-1", e.state.PE.OrderID)

	// The other leg stops out next: budget is spent, total is two, day over.
	done := e.applyTransition(ctx, e.state.CE, TransitionStoplossPath)
	require.True(t, done)
	require.Equal(t, []string{"gtt-1"}, fake.cancelled)
}

func TestTargetPathCancelsSibling(t *testing.T) {
	fake := &fakeClient{}
	e := newTestEngine(t, fake)
	ctx := context.Background()

	done := e.applyTransition(ctx, e.state.PE, TransitionTargetPath)
	require.True(t, done)
	require.True(t, e.state.PE.Terminal)
	require.True(t, e.state.CE.Terminal)
	require.Equal(t, 0, e.state.ReentryBudget)
	require.Equal(t, []string{"g-ce"}, fake.cancelled)

	// Repeated updates for a terminal leg change nothing.
	done = e.applyTransition(ctx, e.state.PE, TransitionTargetPath)
	require.True(t, done)
	require.Len(t, fake.cancelled, 1)
}

func TestDoubleStoplossCancelIsBestEffort(t *testing.T) {
	fake := &fakeClient{cancelFailures: 2}
	e := newTestEngine(t, fake)
	ctx := context.Background()

	require.False(t, e.applyTransition(ctx, e.state.CE, TransitionStoplossPath))
	fake.cancelAttempts = 0

	// The termination branch tries the sibling cancel exactly once and does
	// not escalate a failure to a manual action.
	done := e.applyTransition(ctx, e.state.PE, TransitionStoplossPath)
	require.True(t, done)
	require.Equal(t, 1, fake.cancelAttempts)
	require.Empty(t, e.state.ManualCancelNeeded)
	require.True(t, e.state.CE.Terminal)
	require.True(t, e.state.PE.Terminal)
}

func TestCancelFailureNeedsManualAction(t *testing.T) {
	fake := &fakeClient{cancelFailures: 2}
	e := newTestEngine(t, fake)
	ctx := context.Background()

	done := e.applyTransition(ctx, e.state.CE, TransitionTargetPath)
	require.True(t, done)
	require.True(t, e.state.PE.Terminal)
	require.Empty(t, fake.cancelled)
	require.Equal(t, "BSE_FO|PE", e.state.ManualCancelNeeded)
}

func TestCancelRetriesOnce(t *testing.T) {
	fake := &fakeClient{cancelFailures: 1}
	e := newTestEngine(t, fake)
	ctx := context.Background()

	e.applyTransition(ctx, e.state.CE, TransitionTargetPath)
	require.Equal(t, []string{"g-pe"}, fake.cancelled)
	require.Empty(t, e.state.ManualCancelNeeded)
}

func TestEntryFailedCountsAsStoploss(t *testing.T) {
	fake := &fakeClient{}
	e := newTestEngine(t, fake)
	ctx := context.Background()

	// A rejected entry uses the same bookkeeping as a stop-out: the shared
	// re-entry goes to the rejected leg.
	done := e.applyTransition(ctx, e.state.CE, TransitionEntryFailed)
	require.False(t, done)
	require.False(t, e.state.CE.Terminal)
	require.Equal(t, 1, e.state.CE.StoplossHits)
	require.Equal(t, 0, e.state.ReentryBudget)
	require.Equal(t, "gtt-1", e.state.CE.OrderID)

	// The sibling stopping out afterwards is the second hit.
	done = e.applyTransition(ctx, e.state.PE, TransitionStoplossPath)
	require.True(t, done)
	require.Equal(t, []string{"gtt-1"}, fake.cancelled)
}

func TestReentryPlacementFailureRetiresLeg(t *testing.T) {
	fake := &fakeClient{placeErr: fmt.Errorf("rate limited")}
	e := newTestEngine(t, fake)
	ctx := context.Background()

	done := e.applyTransition(ctx, e.state.CE, TransitionStoplossPath)
	require.False(t, done)
	require.True(t, e.state.CE.Terminal)
	require.Equal(t, 0, e.state.ReentryBudget)
}
