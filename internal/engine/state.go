package engine

import (
	"time"

	"gttbot/internal/models"
)

// RunState is the single run's mutable state. All mutation happens on the
// engine's consuming flow; the producers only feed channels.
type RunState struct {
	Underlying models.UnderlyingSnapshot
	CE         *models.OptionLeg
	PE         *models.OptionLeg

	// Shared across both legs: at most one re-entry per run, consumed by
	// whichever leg stops out first.
	ReentryBudget int

	ManualCancelNeeded string // instrument key of a leg whose order must be cancelled by hand

	StartedAt  time.Time
	FinishedAt *time.Time
}

func (s *RunState) StoplossHitTotal() int {
	total := 0
	if s.CE != nil {
		total += s.CE.StoplossHits
	}
	if s.PE != nil {
		total += s.PE.StoplossHits
	}
	return total
}

func (s *RunState) BothTerminal() bool {
	return s.CE != nil && s.PE != nil && s.CE.Terminal && s.PE.Terminal
}

// Sibling returns the other leg of the pair.
func (s *RunState) Sibling(leg *models.OptionLeg) *models.OptionLeg {
	if leg == s.CE {
		return s.PE
	}
	return s.CE
}
