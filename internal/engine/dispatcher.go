package engine

import (
	"context"
	"fmt"
	"time"

	"gttbot/internal/models"
)

// runDispatcher consumes portfolio updates until both legs resolve or the
// exit deadline passes. The channel read is bounded so the deadline check
// runs at least once a second even on a silent stream.
func (e *Engine) runDispatcher(ctx context.Context) error {
	e.logEntry().Info("Ждём обновлений по ордерам.")

	for {
		if e.state.BothTerminal() {
			return nil
		}
		// At the deadline open orders stay with the broker: GTT orders
		// expire on their own, no forced liquidation here.
		if e.hasPassed(e.exitTime) {
			e.logEntry().Info("Время выхода, оставшиеся ордера остаются у брокера.")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.pollInterval):
		case update, ok := <-e.updates:
			if !ok {
				return fmt.Errorf("Поток портфеля закрыт.")
			}
			e.handleUpdate(ctx, update)
		}
	}
}

func (e *Engine) handleUpdate(ctx context.Context, update models.PortfolioUpdate) {
	if update.Kind != models.UpdateKindGtt {
		return
	}

	leg := e.legByOrderID(update.GttOrderID)
	if leg == nil {
		e.logEntry().WithField("gtt_order_id", update.GttOrderID).
			Debug("Обновление по чужому ордеру, пропускаем.")
		return
	}

	transition, err := Classify(update.Rules)
	if err != nil {
		e.legEntry(leg).WithError(err).Warn("Некорректное обновление, пропускаем.")
		return
	}

	e.legEntry(leg).WithFields(map[string]interface{}{
		"gtt_order_id": update.GttOrderID,
		"transition":   transition.String(),
	}).Debug("Обновление по ордеру.")

	e.applyTransition(ctx, leg, transition)
}

func (e *Engine) legByOrderID(gttOrderID string) *models.OptionLeg {
	if gttOrderID == "" {
		return nil
	}
	switch gttOrderID {
	case e.state.CE.OrderID:
		return e.state.CE
	case e.state.PE.OrderID:
		return e.state.PE
	}
	return nil
}
