package engine

import "math"

// HighWatermark folds a price candidate into a monotone high. A current value
// of 0 means no floor has been observed yet.
func HighWatermark(current, candidate float64) float64 {
	if candidate > current {
		return candidate
	}
	return current
}

func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Round(price/tick) * tick
}

func RoundStrike(price, step float64) float64 {
	if step <= 0 {
		return price
	}
	return math.Round(price/step) * step
}

type PriceSet struct {
	Buy      float64
	Stoploss float64
	Target   float64
}

// DerivePrices builds the three rule prices of one bracket order. The buy
// price is derived from the base first; stop-loss and target are derived from
// the buy price, each rounded to the tick independently.
func DerivePrices(base, buyPct, stopPct, targetPct float64, tickEnabled bool, tick float64) PriceSet {
	buy := base + (base*buyPct)/100
	if tickEnabled {
		buy = RoundToTick(buy, tick)
	}

	stoploss := buy + (buy*-stopPct)/100
	if tickEnabled {
		stoploss = RoundToTick(stoploss, tick)
	}

	target := buy + (buy*targetPct)/100
	if tickEnabled {
		target = RoundToTick(target, tick)
	}

	return PriceSet{Buy: buy, Stoploss: stoploss, Target: target}
}
