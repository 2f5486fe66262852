package servehttp

import (
	"dispatcher/bizerror"
	"dispatcher/capacity"
	"dispatcher/dispatch"
	"dispatcher/domain"
	"dispatcher/poller"
	"dispatcher/session"
	"dispatcher/view"
	"net/http"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
)

var (
	PathOrders      = "/v1/orders"
	PathPollFilter  = "/v1/poll-filter"
	PathSyncRequest = "/v1/sync-requests"
	PathWorkers     = "/v1/workers"
	PathStats       = "/v1/stats"
)

// DispatchAPI bundles the components behind the REST surface.
type DispatchAPI struct {
	Coordinator *dispatch.Coordinator
	View        *view.View
	Poller      *poller.Poller
	Tracker     *capacity.Tracker
	// throttles on demand syncs, nil means unlimited
	SyncLimiter *rate.Limiter
}

type OrderURI struct {
	ID types.ID `uri:"id" validate:"required"`
}

type AssignmentRequest struct {
	WorkerID types.ID `json:"workerId" validate:"required"`
}

type StatusUpdateRequest struct {
	Status domain.OrderStatus `json:"status" validate:"required"`
}

func RegisterDispatchRestAPI(r *gin.Engine, api *DispatchAPI, middleWares ...gin.HandlerFunc) {
	h := &dispatchHandler{api: api, validator: validator.New()}

	g := r.Group(PathOrders, middleWares...)
	g.GET("", h.handleQueryOrders)
	g.GET(":id", h.handleDetailOrder)
	g.GET(":id/elapsed", h.handleElapsed)
	g.GET(":id/transitions", h.handleTransitions)
	g.POST(":id/assignment", h.handleAssign)
	g.POST(":id/assignment/self", h.handleAssignToSelf)
	g.DELETE(":id/assignment", h.handleUnassign)
	g.PUT(":id/status", h.handleUpdateStatus)

	root := r.Group("", middleWares...)
	root.PUT(PathPollFilter, h.handleSetPollFilter)
	root.POST(PathSyncRequest, h.handleSyncRequest)
	root.GET(PathWorkers, h.handleQueryWorkers)
	root.GET(PathStats, h.handleStats)
}

type dispatchHandler struct {
	api       *DispatchAPI
	validator *validator.Validate
}

func (h *dispatchHandler) bindOrderID(c *gin.Context) types.ID {
	uri := OrderURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(uri); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	return uri.ID
}

func (h *dispatchHandler) bindBody(c *gin.Context, body interface{}) {
	if err := c.ShouldBindBodyWith(body, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(body); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
}

// visibleOrder resolves the order the intent refers to, failures name the operation.
func (h *dispatchHandler) visibleOrder(c *gin.Context, operation string) domain.Order {
	id := h.bindOrderID(c)
	order, found := h.api.View.Order(id)
	if !found {
		panic(bizerror.NewDispatchError(operation, id.String(), bizerror.ErrNotFound))
	}
	return order
}

func (h *dispatchHandler) handleAssign(c *gin.Context) {
	order := h.visibleOrder(c, bizerror.OperationAssign)
	req := AssignmentRequest{}
	h.bindBody(c, &req)

	s := session.ExtractSessionFromGinContext(c)
	updated, err := h.api.Coordinator.Assign(s.Ctx(), order, req.WorkerID, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, updated)
}

func (h *dispatchHandler) handleAssignToSelf(c *gin.Context) {
	order := h.visibleOrder(c, bizerror.OperationAssignToSelf)

	s := session.ExtractSessionFromGinContext(c)
	updated, err := h.api.Coordinator.AssignToSelf(s.Ctx(), order, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, updated)
}

func (h *dispatchHandler) handleUnassign(c *gin.Context) {
	order := h.visibleOrder(c, bizerror.OperationUnassign)

	s := session.ExtractSessionFromGinContext(c)
	updated, err := h.api.Coordinator.Unassign(s.Ctx(), order, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, updated)
}

func (h *dispatchHandler) handleUpdateStatus(c *gin.Context) {
	order := h.visibleOrder(c, bizerror.OperationStatusUpdate)
	req := StatusUpdateRequest{}
	h.bindBody(c, &req)

	s := session.ExtractSessionFromGinContext(c)
	updated, err := h.api.Coordinator.UpdateStatus(s.Ctx(), order, req.Status, s)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, updated)
}
