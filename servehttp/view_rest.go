package servehttp

import (
	"dispatcher/authority"
	"dispatcher/bizerror"
	"dispatcher/domain"
	"dispatcher/domain/state"
	"dispatcher/poller"
	"dispatcher/session"
	"io"
	"net/http"
	"strconv"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

type OrderList struct {
	Data       []domain.Order    `json:"data"`
	Pagination domain.Pagination `json:"pagination"`
	Generation uint64            `json:"generation"`
}

type ElapsedTime struct {
	OrderID string `json:"orderId"`
	Elapsed int64  `json:"elapsed"`
	Frozen  bool   `json:"frozen"`
}

type PollFilter struct {
	WorkerID   string `json:"workerId"`
	Status     string `json:"status"`
	Page       int    `json:"page" validate:"gte=0"`
	SearchTerm string `json:"searchTerm"`
}

func requireView(c *gin.Context) *session.Session {
	s := session.ExtractSessionFromGinContext(c)
	if !s.IsPermitted(authority.PermOrderView) {
		panic(bizerror.ErrForbidden)
	}
	return s
}

func (h *dispatchHandler) handleQueryOrders(c *gin.Context) {
	requireView(c)
	c.JSON(http.StatusOK, &OrderList{
		Data:       h.api.View.Orders(),
		Pagination: h.api.View.Pagination(),
		Generation: h.api.View.Generation(),
	})
}

func (h *dispatchHandler) handleDetailOrder(c *gin.Context) {
	requireView(c)
	order, found := h.api.View.Order(h.bindOrderID(c))
	if !found {
		panic(bizerror.ErrNotFound)
	}
	c.JSON(http.StatusOK, order)
}

// handleTransitions lists the lifecycle transitions leaving the order's current status.
func (h *dispatchHandler) handleTransitions(c *gin.Context) {
	requireView(c)
	order, found := h.api.View.Order(h.bindOrderID(c))
	if !found {
		panic(bizerror.ErrNotFound)
	}
	c.JSON(http.StatusOK, state.OrderLifecycle.AvailableTransitions(order.Status, ""))
}

// handleElapsed answers once, or streams server sent events with ?watch=true until the order is delivered.
func (h *dispatchHandler) handleElapsed(c *gin.Context) {
	requireView(c)
	id := h.bindOrderID(c)
	order, found := h.api.View.Order(id)
	if !found {
		panic(bizerror.ErrNotFound)
	}

	watch, _ := strconv.ParseBool(c.Query("watch"))
	if !watch {
		elapsed, _ := h.api.View.Elapsed(id)
		c.JSON(http.StatusOK, &ElapsedTime{OrderID: id.String(), Elapsed: elapsed, Frozen: order.CompletedAt != nil})
		return
	}

	ticks := h.api.View.WatchElapsed(c.Request.Context(), id)
	c.Stream(func(w io.Writer) bool {
		elapsed, ok := <-ticks
		if !ok {
			return false
		}
		current, _ := h.api.View.Order(id)
		c.SSEvent("elapsed", &ElapsedTime{OrderID: id.String(), Elapsed: elapsed, Frozen: current.CompletedAt != nil})
		return true
	})
}

func (h *dispatchHandler) handleSetPollFilter(c *gin.Context) {
	requireView(c)
	filter := PollFilter{}
	h.bindBody(c, &filter)

	q := poller.Query{Page: filter.Page, SearchTerm: filter.SearchTerm}
	if filter.WorkerID != "" {
		id, err := types.ParseID(filter.WorkerID)
		if err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
		q.WorkerID = id
	}
	if filter.Status != "" {
		status, err := domain.ParseOrderStatus(filter.Status)
		if err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
		q.Status = &status
	}

	h.api.Poller.SetQuery(q)
	c.JSON(http.StatusOK, q)
}

func (h *dispatchHandler) handleSyncRequest(c *gin.Context) {
	s := requireView(c)
	if h.api.SyncLimiter != nil && !h.api.SyncLimiter.Allow() {
		panic(bizerror.ErrTooManyRequests)
	}
	if err := h.api.Poller.SyncNow(s.Ctx()); err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &OrderList{
		Data:       h.api.View.Orders(),
		Pagination: h.api.View.Pagination(),
		Generation: h.api.View.Generation(),
	})
}

func (h *dispatchHandler) handleQueryWorkers(c *gin.Context) {
	requireView(c)
	c.JSON(http.StatusOK, gin.H{"data": h.api.Tracker.Workers()})
}

func (h *dispatchHandler) handleStats(c *gin.Context) {
	requireView(c)
	c.JSON(http.StatusOK, h.api.View.Stats())
}

