package remote

import (
	"context"
	"dispatcher/bizerror"
	"dispatcher/common"
	"dispatcher/domain"
	"dispatcher/infra/tracing"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	PathOrders          = "/v1/orders"
	PathAssignedOrders  = "/v1/orders/assigned"
	PathOrderStats      = "/v1/orders/stats-per-assigned-user"
	PathOrderStatus     = "/v1/orders/%s/status"
	PathUsers           = "/v1/users"
	HeaderRequestID     = "X-Request-Id"
	HeaderAuthorization = "Authorization"
)

type ClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// requests per second, <= 0 disables throttling
	RateLimit float64
	Burst     int
}

// Client talks JSON over HTTP to the order service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ OrderService = (*Client)(nil)

func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		token:   config.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &tracing.TracingTransport{Transport: http.DefaultTransport},
		},
	}
	if config.RateLimit > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return c
}

func (c *Client) GetOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error) {
	page := domain.OrderPage{}
	if err := c.invoke(ctx, http.MethodGet, PathOrders+"?"+filterQuery(filter).Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetAssignedOrders(ctx context.Context, filter domain.OrderFilter) (*domain.OrderPage, error) {
	page := domain.OrderPage{}
	if err := c.invoke(ctx, http.MethodGet, PathAssignedOrders+"?"+filterQuery(filter).Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetOrderStatsPerAssignedUser(ctx context.Context, workerID types.ID) (*domain.OrderStats, error) {
	path := PathOrderStats
	if workerID != 0 {
		path += "?userId=" + url.QueryEscape(workerID.String())
	}
	stats := domain.OrderStats{}
	if err := c.invoke(ctx, http.MethodGet, path, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	resp := struct {
		Data domain.Order `json:"data"`
	}{}
	if err := c.invoke(ctx, http.MethodPut, PathOrders+"/"+order.ID.String(), order, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, update domain.OrderStatusUpdate) error {
	path := strings.Replace(PathOrderStatus, "%s", update.OrderID.String(), 1)
	return c.invoke(ctx, http.MethodPut, path, update, nil)
}

func (c *Client) UpdateUser(ctx context.Context, worker domain.Worker) (*domain.Worker, error) {
	resp := struct {
		Data domain.Worker `json:"data"`
	}{}
	if err := c.invoke(ctx, http.MethodPut, PathUsers+"/"+worker.ID.String(), worker, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *Client) GetWorkers(ctx context.Context) ([]domain.Worker, error) {
	resp := struct {
		Data []domain.Worker `json:"data"`
	}{}
	if err := c.invoke(ctx, http.MethodGet, PathUsers, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) invoke(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body := ""
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = string(b)
	}

	headers := http.Header{}
	headers.Set(HeaderRequestID, uuid.New().String())
	if c.token != "" {
		headers.Set(HeaderAuthorization, "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := common.HttpInvokeJson(ctx, c.httpClient, method, c.baseURL+path, headers, body)
	entry := logrus.WithFields(logrus.Fields{"method": method, "path": path, "requestId": headers.Get(HeaderRequestID),
		"took": time.Since(started).String()})
	if err != nil {
		entry.Debugf("remote call failed: %v", err)
		return translateError(err)
	}
	entry.Debug("remote call done")

	if respBody == nil || strings.TrimSpace(resp) == "" {
		return nil
	}
	return json.Unmarshal([]byte(resp), respBody)
}

func translateError(err error) error {
	var invokeErr *common.ErrHttpInvoke
	if errors.As(err, &invokeErr) && invokeErr.StatusCode == http.StatusNotFound {
		return &notFoundError{cause: err}
	}
	return err
}

type notFoundError struct {
	cause error
}

func (e *notFoundError) Error() string        { return bizerror.ErrNotFound.Error() + ": " + e.cause.Error() }
func (e *notFoundError) Is(target error) bool { return target == bizerror.ErrNotFound }
func (e *notFoundError) Unwrap() error        { return e.cause }

func filterQuery(filter domain.OrderFilter) url.Values {
	q := url.Values{}
	if filter.Status != nil {
		q.Set("status", string(*filter.Status))
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.SearchTerm != "" {
		q.Set("searchTerm", filter.SearchTerm)
	}
	if filter.AssignedUserID != 0 {
		q.Set("assignedUserId", filter.AssignedUserID.String())
	}
	return q
}
