package engine

import (
	"context"
	"fmt"
	"time"
)

// All schedule decisions are made in exchange time (IST).
var ist = loadIST()

func loadIST() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("Некорректное время %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) AddMinutes(n int) TimeOfDay {
	total := (t.Hour*60 + t.Minute + n) % (24 * 60)
	if total < 0 {
		total += 24 * 60
	}
	return TimeOfDay{Hour: total / 60, Minute: total % 60}
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// On returns today's instant of t in the day of ref.
func (t TimeOfDay) On(ref time.Time) time.Time {
	ref = ref.In(ist)
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, ist)
}

func (e *Engine) hasPassed(t TimeOfDay) bool {
	now := e.now().In(ist)
	return now.Hour()*60+now.Minute() >= t.minutes()
}

func (e *Engine) strictlyPast(t TimeOfDay) bool {
	now := e.now().In(ist)
	return now.Hour()*60+now.Minute() > t.minutes()
}

// waitUntil suspends the calling flow until wall-clock time reaches target,
// polling roughly once a second. Returns immediately if target already passed.
func (e *Engine) waitUntil(ctx context.Context, target TimeOfDay) error {
	for {
		if e.hasPassed(target) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.pollInterval):
		}
	}
}
