package state

import (
	"dispatcher/bizerror"
	"dispatcher/domain"
)

var (
	Pending    = State{Name: domain.StatusPending, Category: InBacklog}
	Confirmed  = State{Name: domain.StatusConfirmed, Category: InBacklog}
	Scheduled  = State{Name: domain.StatusScheduled, Category: InBacklog}
	OnHold     = State{Name: domain.StatusOnHold, Category: InProcess}
	Processing = State{Name: domain.StatusProcessing, Category: InProcess}
	Shipped    = State{Name: domain.StatusShipped, Category: InProcess}
	Completed  = State{Name: domain.StatusCompleted, Category: InProcess}
	Delivered  = State{Name: domain.StatusDelivered, Category: Done}
	Cancelled  = State{Name: domain.StatusCancelled, Category: Done}
	Refunded   = State{Name: domain.StatusRefunded, Category: Done}
	Returned   = State{Name: domain.StatusReturned, Category: Done}

	// InitialState of every order.
	InitialState = Pending

	OrderLifecycle = NewStateMachine(
		[]State{Pending, Confirmed, Scheduled, OnHold, Processing, Shipped, Completed, Delivered, Cancelled, Refunded, Returned},
		[]Transition{
			{Name: "confirm", From: Pending, To: Confirmed},
			{Name: "process", From: Pending, To: Processing},
			{Name: "schedule", From: Pending, To: Scheduled},
			{Name: "hold", From: Pending, To: OnHold},
			{Name: "cancel", From: Pending, To: Cancelled},

			{Name: "process", From: Confirmed, To: Processing},
			{Name: "schedule", From: Confirmed, To: Scheduled},
			{Name: "hold", From: Confirmed, To: OnHold},
			{Name: "cancel", From: Confirmed, To: Cancelled},

			{Name: "process", From: Scheduled, To: Processing},
			{Name: "cancel", From: Scheduled, To: Cancelled},

			{Name: "resume", From: OnHold, To: Processing},
			{Name: "cancel", From: OnHold, To: Cancelled},

			{Name: "ship", From: Processing, To: Shipped},
			{Name: "complete", From: Processing, To: Completed},
			{Name: "deliver", From: Processing, To: Delivered},
			{Name: "hold", From: Processing, To: OnHold},
			{Name: "cancel", From: Processing, To: Cancelled},

			{Name: "deliver", From: Shipped, To: Delivered},
			{Name: "return", From: Shipped, To: Returned},
			{Name: "cancel", From: Shipped, To: Cancelled},

			{Name: "deliver", From: Completed, To: Delivered},
			{Name: "refund", From: Completed, To: Refunded},

			{Name: "refund", From: Delivered, To: Refunded},
			{Name: "return", From: Delivered, To: Returned},
		})
)

// IsTerminal reports whether the order left processing for good.
// Statuses outside the lifecycle are reported as not terminal, callers validate with Valid first.
func IsTerminal(s domain.OrderStatus) bool {
	switch s {
	case domain.StatusDelivered, domain.StatusCancelled, domain.StatusRefunded, domain.StatusReturned:
		return true
	case domain.StatusPending, domain.StatusConfirmed, domain.StatusScheduled, domain.StatusProcessing,
		domain.StatusOnHold, domain.StatusShipped, domain.StatusCompleted:
	}
	return false
}

// Effects are the side effects a transition requires besides the status write.
type Effects struct {
	// set completedAt and freeze estimatedCompletionTime from the processing timer
	Complete bool
	// give the assigned worker's capacity back
	ReleaseWorker bool
	// drop assignee and assignment timestamps
	ClearAssignment bool
}

// EffectsOf validates the transition of order to toState and derives its side effects.
func EffectsOf(order domain.Order, toState domain.OrderStatus) (Effects, error) {
	if err := OrderLifecycle.CheckTransition(order.Status, toState); err != nil {
		return Effects{}, err
	}

	effects := Effects{}
	switch toState {
	case domain.StatusDelivered:
		if order.StartedAt == nil {
			return Effects{}, bizerror.ErrNotStarted
		}
		effects.Complete = true
		effects.ReleaseWorker = order.IsAssigned()
	case domain.StatusCancelled, domain.StatusRefunded, domain.StatusReturned:
		effects.ReleaseWorker = order.IsAssigned()
		effects.ClearAssignment = order.IsAssigned() || order.StartedAt != nil
	case domain.StatusPending, domain.StatusConfirmed, domain.StatusScheduled, domain.StatusProcessing,
		domain.StatusOnHold, domain.StatusShipped, domain.StatusCompleted:
	}

	// a terminal order no longer counts against its worker
	if IsTerminal(order.Status) {
		effects.ReleaseWorker = false
	}
	return effects, nil
}
