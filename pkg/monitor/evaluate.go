package monitor

import (
	"math"
	"time"
)

// transition is a committed classification change produced by one evaluation
// tick, to be dispatched after the sweep releases the registry lock.
type transition struct {
	signalID string
	state    State
	value    float64
	notify   NotifyFunc
}

// evaluate runs one tick for a single signal record. It mutates the record's
// runtime state and returns the committed transition, if any. The caller
// holds the registry lock.
//
// Classification is two-threshold with fault dominating: a deviation at or
// above the fault threshold is FAULT even when it also clears the warning
// threshold. Entry into a band is debounced by the confirmation window;
// recovery to NORMAL commits immediately.
func evaluate(rec *record, now time.Time) (*transition, error) {
	value, err := rec.cfg.Value(rec.id)
	if err != nil {
		return nil, err
	}

	// Still arming: no classification until the arm delay has passed.
	if now.Sub(rec.registeredAt) < rec.cfg.ArmDelay {
		return nil, nil
	}

	deviation := math.Abs(value - rec.cfg.Target)

	switch {
	case deviation >= rec.cfg.FaultThreshold:
		// Entering the fault band cancels the warning timer; re-entry after
		// leaving the band restarts the fault timer, staying in the band
		// keeps its original start time.
		rec.warningActive = false
		if !rec.faultActive {
			rec.faultActive = true
			rec.faultSince = now
		}
		if now.Sub(rec.faultSince) >= rec.cfg.ConfirmWindow {
			rec.faultActive = false
			return commit(rec, StateFault, value, rec.cfg.OnFault), nil
		}

	case deviation >= rec.cfg.WarningThreshold:
		rec.faultActive = false
		if !rec.warningActive {
			rec.warningActive = true
			rec.warningSince = now
		}
		if now.Sub(rec.warningSince) >= rec.cfg.ConfirmWindow {
			rec.warningActive = false
			return commit(rec, StateWarning, value, rec.cfg.OnWarning), nil
		}

	default:
		// A return to tolerance is never a false positive worth debouncing:
		// NORMAL commits on the same tick and clears both timers. There is
		// no recovery callback, so the transition carries no notify.
		rec.warningActive = false
		rec.faultActive = false
		return commit(rec, StateNormal, value, nil), nil
	}

	return nil, nil
}

// commit sets the classification and, when it genuinely changed, returns the
// transition carrying the callback to fire. Re-confirming the level the
// signal is already committed to produces no transition.
func commit(rec *record, state State, value float64, notify NotifyFunc) *transition {
	if rec.state == state {
		return nil
	}
	rec.state = state

	return &transition{
		signalID: rec.id,
		state:    state,
		value:    value,
		notify:   notify,
	}
}
