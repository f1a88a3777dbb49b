package engine

import (
	"context"
	"sync"
	"time"

	"gttbot/internal/config"
	"gttbot/internal/exchange"
	"gttbot/internal/logger"
	"gttbot/internal/models"
)

type Engine struct {
	cfg    *config.Config
	client exchange.Client
	log    *logger.Logger

	atmTime     TimeOfDay
	windowStart TimeOfDay
	windowEnd   TimeOfDay
	exitTime    TimeOfDay

	feed    <-chan exchange.Event
	updates <-chan models.PortfolioUpdate

	state RunState

	chainMu    sync.Mutex
	chain      []models.OptionContract
	chainReady chan struct{}

	// Overridable in tests.
	now             func() time.Time
	pollInterval    time.Duration
	tickWait        time.Duration
	captureGrace    time.Duration
	catchupInterval time.Duration
}

func New(cfg *config.Config, client exchange.Client, log *logger.Logger) (*Engine, error) {
	e := &Engine{
		cfg:             cfg,
		client:          client,
		log:             log,
		chainReady:      make(chan struct{}),
		now:             func() time.Time { return time.Now().In(ist) },
		pollInterval:    1 * time.Second,
		tickWait:        5 * time.Second,
		captureGrace:    30 * time.Second,
		catchupInterval: 30 * time.Second,
	}
	e.state.ReentryBudget = 1

	var err error
	if e.atmTime, err = ParseTimeOfDay(cfg.Strategy.AtmTime); err != nil {
		return nil, err
	}
	if e.windowStart, err = ParseTimeOfDay(cfg.Strategy.WindowStart); err != nil {
		return nil, err
	}
	if e.windowEnd, err = ParseTimeOfDay(cfg.Strategy.WindowEnd); err != nil {
		return nil, err
	}
	if e.exitTime, err = ParseTimeOfDay(cfg.Strategy.ExitTime); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Engine) Start(ctx context.Context) error {
	e.state.StartedAt = e.now()
	e.logEntry().WithFields(map[string]interface{}{
		"atm_time":     e.atmTime.String(),
		"window_start": e.windowStart.String(),
		"window_end":   e.windowEnd.String(),
		"exit_time":    e.exitTime.String(),
		"quantity":     e.cfg.Strategy.Quantity,
	}).Info("Запуск стратегии.")

	if err := e.client.VerifyToken(ctx); err != nil {
		return err
	}

	updates, err := e.client.ConnectPortfolio(ctx)
	if err != nil {
		return err
	}
	e.updates = updates

	feed, err := e.client.ConnectFeed(ctx)
	if err != nil {
		return err
	}
	e.feed = feed

	e.prefetchChain(ctx)

	snapshot, err := e.captureUnderlying(ctx)
	if err != nil {
		return err
	}
	e.state.Underlying = snapshot
	e.logEntry().WithFields(map[string]interface{}{
		"price":       snapshot.Price,
		"captured_at": snapshot.CapturedAt.Format("15:04:05"),
	}).Info("Цена базового индекса зафиксирована.")

	ceKey, peKey, err := e.resolveContracts(ctx, snapshot)
	if err != nil {
		return err
	}
	e.state.CE = &models.OptionLeg{Side: models.OptionSideCE, InstrumentKey: ceKey}
	e.state.PE = &models.OptionLeg{Side: models.OptionSidePE, InstrumentKey: peKey}

	if err := e.trackHighPrices(ctx); err != nil {
		return err
	}

	// No usable highs means the day degraded before the window closed
	// (exit time reached, feed silent). End without placing orders.
	if e.state.CE.HighPrice <= 0 || e.state.PE.HighPrice <= 0 {
		e.state.CE.Terminal = true
		e.state.PE.Terminal = true
		e.logEntry().WithFields(map[string]interface{}{
			"ce_high": e.state.CE.HighPrice,
			"pe_high": e.state.PE.HighPrice,
		}).Warn("Максимумы окна недоступны, день завершается без ордеров.")
		now := e.now()
		e.state.FinishedAt = &now
		return nil
	}

	for _, leg := range []*models.OptionLeg{e.state.CE, e.state.PE} {
		if err := e.submitLeg(ctx, leg); err != nil {
			return err
		}
	}

	if err := e.runDispatcher(ctx); err != nil {
		return err
	}

	e.logFinalRules(ctx)

	now := e.now()
	e.state.FinishedAt = &now
	e.logEntry().Info("Стратегия завершена.")
	return nil
}

// logFinalRules fetches and logs the closing rule states of both legs, so the
// operator sees how each bracket resolved even if the last update was missed.
func (e *Engine) logFinalRules(ctx context.Context) {
	for _, leg := range []*models.OptionLeg{e.state.CE, e.state.PE} {
		if leg == nil || leg.OrderID == "" {
			continue
		}
		rules, err := e.client.GetGttOrderDetails(ctx, leg.OrderID)
		if err != nil {
			e.legEntry(leg).WithError(err).Warn("Не удалось получить итоговое состояние GTT ордера.")
			continue
		}
		fields := map[string]interface{}{"gtt_order_id": leg.OrderID}
		for _, rule := range rules {
			fields[string(rule.Strategy)] = string(rule.Status)
		}
		e.legEntry(leg).WithFields(fields).Info("Итоговое состояние ордера.")
	}
	if e.state.ManualCancelNeeded != "" {
		e.logEntry().WithField("instrument_key", e.state.ManualCancelNeeded).
			Error("Требуется ручная отмена ордера.")
	}
}
