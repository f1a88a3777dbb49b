package engine

import (
	"context"
	"fmt"
	"time"

	"gttbot/internal/models"
)

// NextThursday returns the nearest Thursday on or after ref, in IST. SENSEX
// weekly options expire on Thursday; on expiry day itself the same-day series
// is traded.
func NextThursday(ref time.Time) time.Time {
	ref = ref.In(ist)
	days := (int(time.Thursday) - int(ref.Weekday()) + 7) % 7
	day := ref.AddDate(0, 0, days)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, ist)
}

// resolveContracts picks the CE and PE instruments at the strike nearest to
// the captured underlying price.
func (e *Engine) resolveContracts(ctx context.Context, snapshot models.UnderlyingSnapshot) (ceKey, peKey string, err error) {
	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case <-e.chainReady:
	}

	e.chainMu.Lock()
	chain := e.chain
	e.chainMu.Unlock()

	// Pre-fetch failed: fetch inline before giving up.
	if len(chain) == 0 {
		expiry := NextThursday(e.now()).Format("2006-01-02")
		contracts, err := e.client.GetOptionChain(ctx, e.cfg.Strategy.UnderlyingKey, expiry)
		if err != nil {
			return "", "", err
		}
		chain = contracts
	}

	if len(chain) == 0 {
		return "", "", fmt.Errorf("Цепочка опционов пуста: %w", models.ErrContractNotFound)
	}

	strike := RoundStrike(snapshot.Price, e.cfg.Strategy.StrikeStep)

	ceKey, err = findContract(chain, strike, models.OptionSideCE)
	if err != nil {
		return "", "", err
	}
	peKey, err = findContract(chain, strike, models.OptionSidePE)
	if err != nil {
		return "", "", err
	}

	e.logEntry().WithFields(map[string]interface{}{
		"strike": strike,
		"ce_key": ceKey,
		"pe_key": peKey,
	}).Info("Контракты выбраны.")
	return ceKey, peKey, nil
}

func findContract(chain []models.OptionContract, strike float64, side models.OptionSide) (string, error) {
	for _, contract := range chain {
		if contract.StrikePrice == strike && contract.InstrumentType == string(side) {
			return contract.InstrumentKey, nil
		}
	}
	return "", fmt.Errorf("%s %.0f: %w", side, strike, models.ErrContractNotFound)
}
