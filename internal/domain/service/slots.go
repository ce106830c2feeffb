package service

import (
	"time"

	"postqueue/internal/domain/entity"
)

// Slot allocation is the single source of truth for which hours are
// legally publishable. Every scheduling path (overdue cascade, batch
// assignment, recurrence advance) goes through these functions instead of
// doing its own window math.

// TruncateToHour zeroes minutes, seconds and sub-seconds, keeping the
// instant's location.
func TruncateToHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// atHour returns t's calendar day at the given hour.
func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// NextValidSlot returns the first valid slot at or after candidate.
// The candidate is truncated to hour granularity first. The result's hour
// always lies in [StartHour, EndHour) and on a StartHour + k*IntervalHours
// boundary.
func NextValidSlot(candidate time.Time, cfg entity.WindowConfig) time.Time {
	t := TruncateToHour(candidate)
	h := t.Hour()

	switch {
	case h < cfg.StartHour:
		return atHour(t, cfg.StartHour)
	case h >= cfg.EndHour:
		return atHour(t.AddDate(0, 0, 1), cfg.StartHour)
	default:
		// Round up to the next interval boundary within the window.
		k := (h - cfg.StartHour + cfg.IntervalHours - 1) / cfg.IntervalHours
		boundary := cfg.StartHour + k*cfg.IntervalHours
		if boundary >= cfg.EndHour {
			return atHour(t.AddDate(0, 0, 1), cfg.StartHour)
		}
		return atHour(t, boundary)
	}
}

// AdvanceSlot returns the slot IntervalHours after prev, rolling to the
// next day's StartHour when the addition leaves the window. Repeated
// application yields consecutive valid slots with exact spacing, modulo
// day rollovers.
func AdvanceSlot(prev time.Time, cfg entity.WindowConfig) time.Time {
	next := prev.Add(time.Duration(cfg.IntervalHours) * time.Hour)
	h := next.Hour()
	if h >= cfg.StartHour && h < cfg.EndHour {
		return next
	}

	next = atHour(next, cfg.StartHour)
	if !next.After(prev) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// shiftIntoWindow re-validates an instant produced by a bulk forward
// shift. An instant whose hour left the window moves to StartHour on the
// following calendar day.
func shiftIntoWindow(t time.Time, cfg entity.WindowConfig) time.Time {
	h := t.Hour()
	if h >= cfg.StartHour && h < cfg.EndHour {
		return t
	}
	return atHour(t.AddDate(0, 0, 1), cfg.StartHour)
}

// SlotSequence generates n consecutive valid slots, the first at or after
// seed.
func SlotSequence(seed time.Time, cfg entity.WindowConfig, n int) []time.Time {
	if n <= 0 {
		return nil
	}

	slots := make([]time.Time, 0, n)
	slot := NextValidSlot(seed, cfg)
	for i := 0; i < n; i++ {
		slots = append(slots, slot)
		slot = AdvanceSlot(slot, cfg)
	}
	return slots
}
