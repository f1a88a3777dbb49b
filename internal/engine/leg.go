package engine

import (
	"context"
	"fmt"

	"gttbot/internal/exchange"
	"gttbot/internal/models"
)

// Transition is what one portfolio update means for a leg's lifecycle.
type Transition int

const (
	TransitionNoOp Transition = iota
	TransitionEntryFailed
	TransitionStoplossPath
	TransitionTargetPath
)

func (t Transition) String() string {
	switch t {
	case TransitionEntryFailed:
		return "entry_failed"
	case TransitionStoplossPath:
		return "stoploss_path"
	case TransitionTargetPath:
		return "target_path"
	}
	return "noop"
}

// Classify maps the rule statuses of one GTT update onto a leg transition.
// The stop-loss check precedes the target check: once the stop-loss arms, the
// exchange cancels the target rule, so a cancelled target alongside an armed
// stop-loss reads as the stop-loss path, not the target path.
func Classify(rules []models.GttRuleState) (Transition, error) {
	byKind := map[models.RuleKind]models.RuleStatus{}
	for _, rule := range rules {
		byKind[rule.Strategy] = rule.Status
	}
	for _, kind := range []models.RuleKind{models.RuleKindEntry, models.RuleKindStoploss, models.RuleKindTarget} {
		if _, ok := byKind[kind]; !ok {
			return TransitionNoOp, fmt.Errorf("в обновлении нет правила %s", kind)
		}
	}

	if byKind[models.RuleKindEntry] == models.RuleStatusFailed {
		return TransitionEntryFailed, nil
	}

	stoploss := byKind[models.RuleKindStoploss]
	target := byKind[models.RuleKindTarget]

	stoplossEngaged := stoploss == models.RuleStatusActive ||
		stoploss == models.RuleStatusTriggered ||
		stoploss == models.RuleStatusCancelled ||
		stoploss == models.RuleStatusCompleted
	if stoplossEngaged && target == models.RuleStatusCancelled {
		return TransitionStoplossPath, nil
	}

	if target == models.RuleStatusActive ||
		target == models.RuleStatusTriggered ||
		target == models.RuleStatusCompleted {
		return TransitionTargetPath, nil
	}

	return TransitionNoOp, nil
}

// submitLeg derives the bracket prices from the leg's window high and places
// the three-rule GTT order. Placement is not retried: a second attempt after
// an ambiguous failure risks a duplicate position.
func (e *Engine) submitLeg(ctx context.Context, leg *models.OptionLeg) error {
	prices := DerivePrices(
		leg.HighPrice,
		e.cfg.Strategy.BuyPercent,
		e.cfg.Strategy.StopPercent,
		e.cfg.Strategy.TargetPercent,
		e.cfg.Strategy.TickSizeEnabled,
		e.cfg.Strategy.TickSize,
	)

	req := exchange.GttOrderRequest{
		InstrumentKey:   leg.InstrumentKey,
		Quantity:        e.cfg.Strategy.Quantity,
		TransactionType: "BUY",
		Product:         "I",
		Rules: []models.GttRule{
			{Strategy: models.RuleKindEntry, TriggerType: models.TriggerTypeAbove, TriggerPrice: prices.Buy},
			{Strategy: models.RuleKindStoploss, TriggerType: models.TriggerTypeImmediate, TriggerPrice: prices.Stoploss},
			{Strategy: models.RuleKindTarget, TriggerType: models.TriggerTypeImmediate, TriggerPrice: prices.Target},
		},
	}

	orderID, err := e.client.PlaceGttOrder(ctx, req)
	if err != nil {
		return fmt.Errorf("Не удалось выставить GTT ордер %s: %w", leg.InstrumentKey, err)
	}
	leg.OrderID = orderID

	e.legEntry(leg).WithFields(map[string]interface{}{
		"gtt_order_id": orderID,
		"buy":          prices.Buy,
		"stoploss":     prices.Stoploss,
		"target":       prices.Target,
	}).Info("GTT ордер выставлен.")
	return nil
}
