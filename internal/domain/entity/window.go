package entity

import "fmt"

// WindowConfig is the per-owner daily publishing window. A slot is valid
// iff its local hour lies in [StartHour, EndHour).
type WindowConfig struct {
	StartHour     int
	EndHour       int
	IntervalHours int
}

// Validate rejects windows that could never produce a valid slot.
// Invalid windows are refused at write time so the slot allocator can
// assume a well-formed config.
func (w WindowConfig) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 {
		return fmt.Errorf("start hour must be between 0 and 23, got %d", w.StartHour)
	}
	if w.EndHour < 1 || w.EndHour > 24 {
		return fmt.Errorf("end hour must be between 1 and 24, got %d", w.EndHour)
	}
	if w.StartHour >= w.EndHour {
		return fmt.Errorf("start hour %d must be before end hour %d", w.StartHour, w.EndHour)
	}
	if w.IntervalHours < 1 {
		return fmt.Errorf("interval must be at least 1 hour, got %d", w.IntervalHours)
	}
	if w.IntervalHours > w.EndHour-w.StartHour {
		return fmt.Errorf("interval %dh exceeds the %dh daily window", w.IntervalHours, w.EndHour-w.StartHour)
	}
	return nil
}
