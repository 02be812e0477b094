package domain

// TransitionPolicy decides which status changes are accepted.
type TransitionPolicy interface {
	Allows(current, next TicketStatus) bool
}

// PermissivePolicy accepts a change between any two valid statuses,
// including a change to the current status.
type PermissivePolicy struct{}

func (PermissivePolicy) Allows(current, next TicketStatus) bool {
	return current.Valid() && next.Valid()
}

// StrictPolicy follows the support workflow graph. Re-applying the current
// status is accepted so the timeline can record an explicit confirmation.
type StrictPolicy struct{}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:           {TicketStatusInProgress, TicketStatusWaitingForUser, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress:     {TicketStatusWaitingForUser, TicketStatusResolved, TicketStatusClosed},
	TicketStatusWaitingForUser: {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:       {TicketStatusClosed, TicketStatusInProgress},
	TicketStatusClosed:         {TicketStatusOpen, TicketStatusInProgress},
}

func (StrictPolicy) Allows(current, next TicketStatus) bool {
	if !current.Valid() || !next.Valid() {
		return false
	}
	if current == next {
		return true
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PolicyFor returns the strict policy when strict is set, otherwise the permissive one.
func PolicyFor(strict bool) TransitionPolicy {
	if strict {
		return StrictPolicy{}
	}
	return PermissivePolicy{}
}
