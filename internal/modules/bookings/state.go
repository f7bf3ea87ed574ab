package bookings

// transitions is the full booking lifecycle. Anything not listed here is
// rejected with ErrInvalidStateTransition; terminal states have no exits.
var transitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusDeclined, StatusExpired},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}
