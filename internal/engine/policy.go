package engine

import (
	"context"
	"time"

	"gttbot/internal/exchange"
	"gttbot/internal/models"
)

// applyTransition mutates the run state for one classified update. Returns
// true when both legs are terminal and the run is over.
func (e *Engine) applyTransition(ctx context.Context, leg *models.OptionLeg, transition Transition) bool {
	if leg.Terminal {
		return e.state.BothTerminal()
	}

	switch transition {
	case TransitionEntryFailed:
		e.legEntry(leg).WithField("gtt_order_id", leg.OrderID).Error("Вход не исполнился.")
		e.onStoplossPath(ctx, leg)
	case TransitionStoplossPath:
		e.onStoplossPath(ctx, leg)
	case TransitionTargetPath:
		e.onTargetPath(ctx, leg)
	}

	return e.state.BothTerminal()
}

// onStoplossPath handles a bracket resolved via its stop leg. A failed entry
// lands here too: for re-entry and termination bookkeeping a rejection counts
// the same as a stop-out. Each leg contributes at most one hit to the run
// total regardless of how many of its orders stop out.
func (e *Engine) onStoplossPath(ctx context.Context, leg *models.OptionLeg) {
	if leg.StoplossHits == 0 {
		leg.StoplossHits = 1
	}
	e.legEntry(leg).WithFields(map[string]interface{}{
		"gtt_order_id":  leg.OrderID,
		"stoploss_hits": e.state.StoplossHitTotal(),
	}).Warn("Нога закрылась через стоп.")

	if e.state.StoplossHitTotal() >= 2 {
		leg.Terminal = true
		e.state.ReentryBudget = 0
		e.logEntry().Warn("Обе ноги закрылись через стоп, завершаем день.")
		e.cancelLegOnce(ctx, e.state.Sibling(leg))
		return
	}

	if e.state.ReentryBudget <= 0 {
		leg.Terminal = true
		e.legEntry(leg).Info("Повторный вход уже израсходован, нога выбывает.")
		return
	}

	e.state.ReentryBudget--
	e.legEntry(leg).Info("Повторный вход по той же ноге.")
	if err := e.submitLeg(ctx, leg); err != nil {
		leg.Terminal = true
		e.legEntry(leg).WithError(err).Error("Повторный вход не удался, нога выбывает.")
	}
}

// onTargetPath retires the winning leg and cancels its sibling: once one side
// runs toward the target, the day's direction is decided.
func (e *Engine) onTargetPath(ctx context.Context, leg *models.OptionLeg) {
	leg.Terminal = true
	e.state.ReentryBudget = 0
	e.legEntry(leg).WithField("gtt_order_id", leg.OrderID).Info("Цель в работе, снимаем вторую ногу.")
	e.cancelLeg(ctx, e.state.Sibling(leg))
}

// cancelLegOnce is the best-effort variant used when the run terminates via a
// second stop-loss: one attempt, failure only logged.
func (e *Engine) cancelLegOnce(ctx context.Context, leg *models.OptionLeg) {
	if leg == nil || leg.Terminal {
		return
	}
	leg.Terminal = true
	if leg.OrderID == "" {
		return
	}

	result, err := e.client.CancelGttOrder(ctx, leg.OrderID)
	if err != nil {
		e.legEntry(leg).WithError(err).WithField("gtt_order_id", leg.OrderID).
			Warn("Не удалось снять ордер второй ноги.")
		return
	}
	e.legEntry(leg).WithFields(map[string]interface{}{
		"gtt_order_id": leg.OrderID,
		"status":       result.Status,
	}).Info("Ордер второй ноги отменён.")
}

// cancelLeg cancels the leg's open GTT order with a single retry. A persistent
// failure is surfaced as a manual action rather than retried forever.
func (e *Engine) cancelLeg(ctx context.Context, leg *models.OptionLeg) {
	if leg == nil || leg.Terminal {
		return
	}
	leg.Terminal = true
	if leg.OrderID == "" {
		return
	}

	result, err := withRetry(ctx, e.legEntry(leg), 2, 2*time.Second, func() (exchange.CancelResult, error) {
		return e.client.CancelGttOrder(ctx, leg.OrderID)
	})
	if err != nil {
		e.state.ManualCancelNeeded = leg.InstrumentKey
		e.legEntry(leg).WithError(err).WithField("gtt_order_id", leg.OrderID).
			Error("Не удалось отменить ордер, требуется ручная отмена.")
		return
	}
	e.legEntry(leg).WithFields(map[string]interface{}{
		"gtt_order_id": leg.OrderID,
		"status":       result.Status,
	}).Info("Ордер второй ноги отменён.")
}
