// Package remote is the contract of the order service that owns the authoritative order and worker records.
package remote

import (
	"context"
	"dispatcher/domain"

	"github.com/fundwit/go-commons/types"
)

type OrderService interface {
	GetOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error)
	GetAssignedOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error)
	// workerID 0 asks for the statistics of all assigned users
	GetOrderStatsPerAssignedUser(ctx context.Context, workerID types.ID) (*domain.OrderStats, error)

	// UpdateOrder is a full record upsert
	UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, update domain.OrderStatusUpdate) error
	UpdateUser(ctx context.Context, worker domain.Worker) (*domain.Worker, error)

	GetWorkers(ctx context.Context) ([]domain.Worker, error)
}
