package dispatch

import (
	"context"
	"dispatcher/bizerror"
	"dispatcher/domain"
	"dispatcher/event"
	"dispatcher/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

// operation records what one dispatch operation changed so it can be undone locally and compensated remotely.
type operation struct {
	c        *Coordinator
	name     string
	original domain.Order

	// tracker state before the operation, in mutation order
	workersBefore []domain.Worker
	workersAfter  []domain.Worker
	workersSaved  []domain.Worker

	undoView     func()
	orderWritten bool
}

func (c *Coordinator) begin(name string, order domain.Order) *operation {
	return &operation{c: c, name: name, original: order.Clone()}
}

func (op *operation) record(before, after domain.Worker) {
	op.workersBefore = append(op.workersBefore, before)
	op.workersAfter = append(op.workersAfter, after)
	logrus.WithFields(logrus.Fields{"operation": op.name, "orderId": op.original.ID.String(), "workerId": after.ID.String(),
		"activeOrderCount": after.ActiveOrderCount}).Debug("worker capacity changed")
}

// release gives back the capacity of a worker. Workers missing from the roster are skipped.
func (op *operation) release(workerID types.ID) {
	before, after, err := op.c.tracker.Release(workerID)
	if err != nil {
		logrus.WithFields(logrus.Fields{"operation": op.name, "workerId": workerID.String()}).
			Warnf("worker capacity not released: %v", err)
		return
	}
	op.record(before, after)
}

func (op *operation) applyLocal(order domain.Order) {
	op.undoView = op.c.view.ApplyOptimistic(order)
}

func (op *operation) writeOrder(ctx context.Context, order domain.Order) error {
	if _, err := op.c.remote.UpdateOrder(ctx, order); err != nil {
		return err
	}
	op.orderWritten = true
	return nil
}

func (op *operation) writeStatus(ctx context.Context, status domain.OrderStatus) error {
	if err := op.c.remote.UpdateOrderStatus(ctx, domain.OrderStatusUpdate{OrderID: op.original.ID, Status: status}); err != nil {
		return err
	}
	op.orderWritten = true
	return nil
}

func (op *operation) writeWorkers(ctx context.Context) error {
	for i, w := range op.workersAfter {
		saved, err := op.c.remote.UpdateUser(ctx, w)
		if err != nil {
			return err
		}
		op.workersSaved = append(op.workersSaved, op.workersBefore[i])
		if saved != nil {
			op.c.tracker.Upsert(*saved)
		}
	}
	return nil
}

// rollback restores the pre-operation snapshot locally and, on a best effort basis, remotely.
func (op *operation) rollback(ctx context.Context, cause error) error {
	fields := logrus.Fields{"operation": op.name, "orderId": op.original.ID.String()}
	logrus.WithFields(fields).Errorf("remote write failed: %v", cause)

	if op.orderWritten || len(op.workersSaved) > 0 {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
		defer cancel()
		if op.orderWritten {
			if _, err := op.c.remote.UpdateOrder(cctx, op.original); err != nil {
				logrus.WithFields(fields).Errorf("order compensation failed: %v", err)
			}
		}
		for _, w := range op.workersSaved {
			if _, err := op.c.remote.UpdateUser(cctx, w); err != nil {
				logrus.WithFields(fields).WithField("workerId", w.ID.String()).Errorf("worker compensation failed: %v", err)
			}
		}
	}

	for i := len(op.workersBefore) - 1; i >= 0; i-- {
		op.c.tracker.Restore(op.workersBefore[i])
	}
	if op.undoView != nil {
		op.undoView()
	}
	return bizerror.NewDispatchError(op.name, idString(op.original.ID), bizerror.RemoteWriteFailed(cause))
}

func (op *operation) emit(category event.EventCategory, s *session.Session, now time.Time, props []event.UpdatedProperty) {
	var identity *session.Identity
	if s != nil {
		identity = &s.Identity
	}
	event.CreateEvent(event.SourceTypeOrder, op.original.ID, op.original.OrderNumber, category, props, identity, now)
}
