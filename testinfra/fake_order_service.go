package testinfra

import (
	"context"
	"dispatcher/bizerror"
	"dispatcher/domain"
	"sort"
	"strings"
	"sync"

	"github.com/fundwit/go-commons/types"
)

const FakePageSize = 20

// FakeOrderService is an in-memory order service that counts writes and injects failures.
type FakeOrderService struct {
	mu      sync.Mutex
	orders  map[types.ID]domain.Order
	workers map[types.ID]domain.Worker

	UpdateOrderCalls       int
	UpdateOrderStatusCalls int
	UpdateUserCalls        int
	GetOrdersCalls         int
	StatsCalls             int

	// failure injection, checked on each call
	UpdateOrderErr       func(order domain.Order) error
	UpdateOrderStatusErr error
	UpdateUserErr        error
	GetOrdersErr         error
	StatsErr             error
	GetWorkersErr        error

	// BeforeGetOrders runs before a read is served, outside the lock
	BeforeGetOrders func(ctx context.Context, filter domain.OrderFilter)
	// StoreUser stands in for fields the service sets on a user write
	StoreUser func(worker domain.Worker) domain.Worker
}

func NewFakeOrderService() *FakeOrderService {
	return &FakeOrderService{orders: map[types.ID]domain.Order{}, workers: map[types.ID]domain.Worker{}}
}

func (f *FakeOrderService) PutOrder(orders ...domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range orders {
		f.orders[o.ID] = o.Clone()
	}
}

func (f *FakeOrderService) PutWorker(workers ...domain.Worker) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range workers {
		f.workers[w.ID] = w.Clone()
	}
}

func (f *FakeOrderService) Order(id types.ID) (domain.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	return o.Clone(), ok
}

func (f *FakeOrderService) Worker(id types.ID) (domain.Worker, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.workers[id]
	return w.Clone(), ok
}

func (f *FakeOrderService) WriteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.UpdateOrderCalls + f.UpdateOrderStatusCalls + f.UpdateUserCalls
}

// ReadCalls counts order list reads, assigned or not.
func (f *FakeOrderService) ReadCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GetOrdersCalls
}

func (f *FakeOrderService) SetGetOrdersErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetOrdersErr = err
}

func (f *FakeOrderService) GetOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error) {
	if f.BeforeGetOrders != nil {
		f.BeforeGetOrders(ctx, filter)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetOrdersCalls++
	if f.GetOrdersErr != nil {
		return nil, f.GetOrdersErr
	}
	return f.page(filter, false), nil
}

func (f *FakeOrderService) GetAssignedOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error) {
	if f.BeforeGetOrders != nil {
		f.BeforeGetOrders(ctx, filter)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetOrdersCalls++
	if f.GetOrdersErr != nil {
		return nil, f.GetOrdersErr
	}
	return f.page(filter, true), nil
}

func (f *FakeOrderService) page(filter domain.OrderFilter, assignedOnly bool) *domain.OrderPage {
	var matched []domain.Order
	for _, o := range f.orders {
		if assignedOnly && !o.IsAssigned() {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.AssignedUserID != 0 && o.AssignedUserID != filter.AssignedUserID {
			continue
		}
		if filter.SearchTerm != "" && !strings.Contains(strings.ToLower(o.OrderNumber), strings.ToLower(filter.SearchTerm)) {
			continue
		}
		matched = append(matched, o.Clone())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	total := len(matched)
	start := (page - 1) * FakePageSize
	if start > total {
		start = total
	}
	end := start + FakePageSize
	if end > total {
		end = total
	}
	return &domain.OrderPage{
		Data: append([]domain.Order{}, matched[start:end]...),
		Pagination: domain.Pagination{Page: page, PageSize: FakePageSize, Total: total,
			TotalPages: (total + FakePageSize - 1) / FakePageSize},
	}
}

func (f *FakeOrderService) GetOrderStatsPerAssignedUser(ctx context.Context, workerID types.ID) (*domain.OrderStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StatsCalls++
	if f.StatsErr != nil {
		return nil, f.StatsErr
	}

	counts := map[domain.OrderStatus]int{}
	for _, o := range f.orders {
		if !o.IsAssigned() || (workerID != 0 && o.AssignedUserID != workerID) {
			continue
		}
		counts[o.Status]++
	}
	stats := &domain.OrderStats{StatusCounts: []domain.StatusCount{}}
	for _, s := range domain.OrderStatuses {
		if c, ok := counts[s]; ok {
			stats.StatusCounts = append(stats.StatusCounts, domain.StatusCount{Status: s, Count: c})
		}
	}
	return stats, nil
}

func (f *FakeOrderService) UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateOrderCalls++
	if f.UpdateOrderErr != nil {
		if err := f.UpdateOrderErr(order); err != nil {
			return nil, err
		}
	}
	f.orders[order.ID] = order.Clone()
	saved := order.Clone()
	return &saved, nil
}

func (f *FakeOrderService) UpdateOrderStatus(ctx context.Context, update domain.OrderStatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateOrderStatusCalls++
	if f.UpdateOrderStatusErr != nil {
		return f.UpdateOrderStatusErr
	}
	o, ok := f.orders[update.OrderID]
	if !ok {
		return bizerror.ErrNotFound
	}
	o.Status = update.Status
	f.orders[update.OrderID] = o
	return nil
}

func (f *FakeOrderService) UpdateUser(ctx context.Context, worker domain.Worker) (*domain.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateUserCalls++
	if f.UpdateUserErr != nil {
		return nil, f.UpdateUserErr
	}
	saved := worker.Clone()
	if f.StoreUser != nil {
		saved = f.StoreUser(saved)
	}
	f.workers[worker.ID] = saved.Clone()
	return &saved, nil
}

func (f *FakeOrderService) GetWorkers(ctx context.Context) ([]domain.Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetWorkersErr != nil {
		return nil, f.GetWorkersErr
	}
	workers := make([]domain.Worker, 0, len(f.workers))
	for _, w := range f.workers {
		workers = append(workers, w.Clone())
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers, nil
}
