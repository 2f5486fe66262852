// Package dispatch moves orders between workers and through their lifecycle on behalf of an acting session.
package dispatch

import (
	"context"
	"dispatcher/authority"
	"dispatcher/bizerror"
	"dispatcher/capacity"
	"dispatcher/domain"
	"dispatcher/domain/state"
	"dispatcher/event"
	"dispatcher/remote"
	"dispatcher/session"
	"dispatcher/timing"
	"dispatcher/view"
	"errors"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

const compensationTimeout = 10 * time.Second

// Coordinator serializes dispatch operations: the capacity check, the reservation, the remote writes
// and the local update of one operation never interleave with another operation.
type Coordinator struct {
	mu      sync.Mutex
	remote  remote.OrderService
	tracker *capacity.Tracker
	view    *view.View
	clock   clock.Clock
}

func NewCoordinator(svc remote.OrderService, tracker *capacity.Tracker, v *view.View, c clock.Clock) *Coordinator {
	if c == nil {
		c = clock.New()
	}
	return &Coordinator{remote: svc, tracker: tracker, view: v, clock: c}
}

// Assign gives the order to a worker. Orders in pending move to processing, other statuses are kept.
func (c *Coordinator) Assign(ctx context.Context, order domain.Order, workerID types.ID, s *session.Session) (*domain.Order, error) {
	return c.assign(ctx, bizerror.OperationAssign, order, workerID, s)
}

// AssignToSelf assigns the order to the worker behind the session.
func (c *Coordinator) AssignToSelf(ctx context.Context, order domain.Order, s *session.Session) (*domain.Order, error) {
	if !s.IsAuthenticated() {
		return nil, reject(bizerror.OperationAssignToSelf, order, bizerror.ErrUnauthenticated)
	}
	return c.assign(ctx, bizerror.OperationAssignToSelf, order, s.Identity.ID, s)
}

func (c *Coordinator) assign(ctx context.Context, opName string, order domain.Order, workerID types.ID, s *session.Session) (*domain.Order, error) {
	if !s.IsPermitted(authority.PermOrderAssign) {
		return nil, reject(opName, order, bizerror.ErrForbidden)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	order = c.current(order)
	if state.IsTerminal(order.Status) {
		return nil, reject(opName, order, bizerror.ErrAlreadyTerminal)
	}
	if order.AssignedUserID == workerID {
		return &order, nil
	}

	op := c.begin(opName, order)
	before, reserved, err := c.tracker.Reserve(workerID)
	if err != nil {
		return nil, reject(opName, order, err)
	}
	op.record(before, reserved)
	if order.IsAssigned() {
		op.release(order.AssignedUserID)
	}

	now := c.clock.Now()
	updated := order.Clone()
	if updated.Status == domain.StatusPending {
		updated.Status = domain.StatusProcessing
	}
	updated.AssignedUserID = reserved.ID
	updated.AssignedUserName = reserved.Name
	updated.AssignedAt = &now
	updated.StartedAt = &now
	updated.CompletedAt = nil
	updated.ProcessingTime = 0
	updated.EstimatedCompletionTime = 0
	updated.UpdatedAt = &now
	op.applyLocal(updated)

	if err := op.writeOrder(ctx, updated); err != nil {
		return nil, op.rollback(ctx, err)
	}
	if err := op.writeWorkers(ctx); err != nil {
		return nil, op.rollback(ctx, err)
	}

	op.emit(event.EventCategoryAssigned, s, now, []event.UpdatedProperty{
		{PropertyName: "assignee", PropertyDesc: "Assignee",
			OldValue: idString(order.AssignedUserID), OldValueDesc: order.AssignedUserName,
			NewValue: updated.AssignedUserID.String(), NewValueDesc: updated.AssignedUserName},
		{PropertyName: "status", PropertyDesc: "Status", OldValue: string(order.Status), NewValue: string(updated.Status)},
	})
	return &updated, nil
}

// Unassign returns the order to the pool. Orders without assignee are returned unchanged.
func (c *Coordinator) Unassign(ctx context.Context, order domain.Order, s *session.Session) (*domain.Order, error) {
	opName := bizerror.OperationUnassign
	if !s.IsPermitted(authority.PermOrderUnassign) {
		return nil, reject(opName, order, bizerror.ErrForbidden)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	order = c.current(order)
	if !order.IsAssigned() {
		return &order, nil
	}
	if order.Status == domain.StatusDelivered {
		return nil, reject(opName, order, bizerror.ErrAlreadyTerminal)
	}

	op := c.begin(opName, order)
	if !state.IsTerminal(order.Status) {
		op.release(order.AssignedUserID)
	}

	now := c.clock.Now()
	updated := order.Clone()
	updated.ClearAssignment()
	updated.UpdatedAt = &now
	op.applyLocal(updated)

	if err := op.writeOrder(ctx, updated); err != nil {
		return nil, op.rollback(ctx, err)
	}
	if err := op.writeWorkers(ctx); err != nil {
		return nil, op.rollback(ctx, err)
	}

	op.emit(event.EventCategoryUnassigned, s, now, []event.UpdatedProperty{
		{PropertyName: "assignee", PropertyDesc: "Assignee",
			OldValue: order.AssignedUserID.String(), OldValueDesc: order.AssignedUserName},
	})
	return &updated, nil
}

// UpdateStatus moves the order to newStatus. Requesting the current status changes nothing.
func (c *Coordinator) UpdateStatus(ctx context.Context, order domain.Order, newStatus domain.OrderStatus, s *session.Session) (*domain.Order, error) {
	opName := bizerror.OperationStatusUpdate
	if !newStatus.Valid() {
		return nil, reject(opName, order, &bizerror.ErrBadParam{Cause: bizerror.ErrUnknownStatus})
	}
	required := []string{authority.PermOrderProcess}
	if newStatus == domain.StatusCancelled {
		required = append(required, authority.PermOrderCancel)
	}
	if !s.IsPermitted(required...) {
		return nil, reject(opName, order, bizerror.ErrForbidden)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	order = c.current(order)
	effects, err := state.EffectsOf(order, newStatus)
	if errors.Is(err, bizerror.ErrRedundantTransition) {
		return &order, nil
	}
	if err != nil {
		return nil, reject(opName, order, err)
	}

	op := c.begin(opName, order)
	if effects.ReleaseWorker {
		op.release(order.AssignedUserID)
	}

	now := c.clock.Now()
	updated := order.Clone()
	updated.Status = newStatus
	updated.UpdatedAt = &now
	if effects.Complete {
		elapsed := timing.Elapsed(updated.StartedAt, &now, now)
		updated.CompletedAt = &now
		updated.EstimatedCompletionTime = elapsed
		updated.ProcessingTime = elapsed
	}
	if effects.ClearAssignment {
		updated.ClearAssignment()
	}
	op.applyLocal(updated)

	// completion and assignment fields travel with the full record, ahead of the status write
	if effects.Complete || effects.ClearAssignment {
		if err := op.writeOrder(ctx, updated); err != nil {
			return nil, op.rollback(ctx, err)
		}
	}
	if err := op.writeStatus(ctx, newStatus); err != nil {
		return nil, op.rollback(ctx, err)
	}
	if err := op.writeWorkers(ctx); err != nil {
		return nil, op.rollback(ctx, err)
	}

	op.emit(event.EventCategoryStatusUpdated, s, now, []event.UpdatedProperty{
		{PropertyName: "status", PropertyDesc: "Status", OldValue: string(order.Status), NewValue: string(newStatus)},
	})
	return &updated, nil
}

// current prefers the local record of the order, which carries every operation finished so far,
// over the copy the caller read before waiting for the lock.
func (c *Coordinator) current(order domain.Order) domain.Order {
	if known, found := c.view.Order(order.ID); found {
		return known
	}
	return order
}

func reject(opName string, order domain.Order, cause error) error {
	logrus.WithFields(logrus.Fields{"operation": opName, "orderId": idString(order.ID)}).Warnf("dispatch rejected: %v", cause)
	return bizerror.NewDispatchError(opName, idString(order.ID), cause)
}

func idString(id types.ID) string {
	if id == 0 {
		return ""
	}
	return id.String()
}
