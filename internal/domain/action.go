package domain

import "fmt"

// ActionOutcome tags the result of a toggle dispatch.
type ActionOutcome int

const (
	// OutcomeSkipped: the desired state was already in effect, no mutation
	// was sent.
	OutcomeSkipped ActionOutcome = iota
	// OutcomeApplied: exactly one mutation was sent; State reflects the
	// server-confirmed result, never the locally assumed one.
	OutcomeApplied
)

// ActionResult is created and consumed within a single dispatch call.
type ActionResult struct {
	Outcome ActionOutcome
	// Subject names what was acted on, e.g. "Light 1 in the Machine Room"
	// or "The Furnace".
	Subject string
	// State is the on/off word describing the current state.
	State string
}

// Sentence renders the outcome for the user.
func (r ActionResult) Sentence() string {
	switch r.Outcome {
	case OutcomeSkipped:
		return fmt.Sprintf("%s is already %s.", r.Subject, r.State)
	default:
		return fmt.Sprintf("%s is now %s.", r.Subject, r.State)
	}
}

// OnOff renders a power flag the way it is spoken.
func OnOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
