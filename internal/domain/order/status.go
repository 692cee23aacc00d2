package order

// Status is the lifecycle state of an order.
//
// The happy path is pending → submitted → processed. Cancellation is
// possible until the order is processed, refunds once payment was taken.
// No state ever transitions back into pending.
type Status string

const (
	// StatusPending is a created order awaiting payment confirmation.
	StatusPending Status = "pending"
	// StatusSubmitted is an order whose payment the gateway verified.
	StatusSubmitted Status = "submitted"
	// StatusProcessed is a shipped order, set by operator tooling.
	StatusProcessed Status = "processed"
	// StatusCancelled is an abandoned or operator-cancelled order.
	StatusCancelled Status = "cancelled"
	// StatusRefunded is a paid order whose payment was returned.
	StatusRefunded Status = "refunded"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusSubmitted, StatusCancelled},
	StatusSubmitted: {StatusProcessed, StatusCancelled, StatusRefunded},
	StatusProcessed: {StatusRefunded},
	StatusCancelled: {},
	StatusRefunded:  {},
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) String() string {
	return string(s)
}
