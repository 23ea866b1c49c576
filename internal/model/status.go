package model

// transitions lists the status changes an admin may request through a
// generic status edit.  Cancellation is listed for completeness but is
// carried out through the dedicated cancel operation so that its metadata
// is recorded.
var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusOnHold, StatusCancelled},
	StatusAccepted: {StatusAccepted, StatusOnHold, StatusOngoing, StatusCompleted, StatusCancelled},
	StatusOnHold:   {StatusAccepted, StatusCancelled},
	StatusOngoing:  {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a reservation in from may move to to.
// Terminal statuses have no outgoing transitions.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from from.
func AllowedTransitions(from Status) []Status {
	out := make([]Status, len(transitions[from]))
	copy(out, transitions[from])
	return out
}
