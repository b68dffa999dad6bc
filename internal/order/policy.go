package order

import "fmt"

// TransitionPolicy decides whether an order may move from one status to another.
type TransitionPolicy interface {
	Allow(from, to Status) error
}

// Permissive allows any status to be set from any other, the behavior admins
// rely on to correct mistakes by hand.
type Permissive struct{}

func (Permissive) Allow(Status, Status) error { return nil }

// Strict enforces the forward-only lifecycle. Cancellation is possible until
// the order ships.
type Strict struct{}

var strictTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

func (Strict) Allow(from, to Status) error {
	for _, next := range strictTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
