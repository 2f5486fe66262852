package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/fundwit/go-commons/types"
)

type OrderStatus string

const (
	StatusPending    = OrderStatus("pending")
	StatusConfirmed  = OrderStatus("confirmed")
	StatusScheduled  = OrderStatus("scheduled")
	StatusProcessing = OrderStatus("processing")
	StatusOnHold     = OrderStatus("on_hold")
	StatusShipped    = OrderStatus("shipped")
	StatusCompleted  = OrderStatus("completed")
	StatusDelivered  = OrderStatus("delivered")
	StatusCancelled  = OrderStatus("cancelled")
	StatusRefunded   = OrderStatus("refunded")
	StatusReturned   = OrderStatus("returned")
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusScheduled, StatusProcessing, StatusOnHold,
	StatusShipped, StatusCompleted, StatusDelivered, StatusCancelled, StatusRefunded, StatusReturned,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid order status '%s'", s)
	}
	return status, nil
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusScheduled, StatusProcessing, StatusOnHold,
		StatusShipped, StatusCompleted, StatusDelivered, StatusCancelled, StatusRefunded, StatusReturned:
		return true
	default:
		return false
	}
}

func (s *OrderStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Priority string

const (
	PriorityLow    = Priority("low")
	PriorityMedium = Priority("medium")
	PriorityHigh   = Priority("high")
	PriorityUrgent = Priority("urgent")
)

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	default:
		return "", fmt.Errorf("invalid priority '%s'", s)
	}
}

func (p *Priority) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = ""
		return nil
	}
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Order is a customer work item. AssignedUserID is set if and only if AssignedAt and StartedAt are set.
type Order struct {
	ID          types.ID    `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	Status      OrderStatus `json:"status"`
	Priority    Priority    `json:"priority,omitempty"`

	AssignedUserID   types.ID   `json:"assignedUserId,omitempty"`
	AssignedUserName string     `json:"assignedUserName,omitempty"`
	AssignedAt       *time.Time `json:"assignedAt,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`

	// seconds
	EstimatedCompletionTime int64 `json:"estimatedCompletionTime,omitempty"`
	ProcessingTime          int64 `json:"processingTime,omitempty"`

	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (o *Order) IsAssigned() bool {
	return o.AssignedUserID != 0
}

// Clone returns a deep copy, time pointers included.
func (o Order) Clone() Order {
	c := o
	c.AssignedAt = cloneTime(o.AssignedAt)
	c.StartedAt = cloneTime(o.StartedAt)
	c.CompletedAt = cloneTime(o.CompletedAt)
	c.UpdatedAt = cloneTime(o.UpdatedAt)
	return c
}

// ClearAssignment drops the assignee and every timing field derived from the assignment.
func (o *Order) ClearAssignment() {
	o.AssignedUserID = 0
	o.AssignedUserName = ""
	o.AssignedAt = nil
	o.StartedAt = nil
	o.ProcessingTime = 0
	o.EstimatedCompletionTime = 0
}

// SameState reports whether two records agree on every field the dispatch engine writes.
func (o Order) SameState(other Order) bool {
	return o.ID == other.ID &&
		o.Status == other.Status &&
		o.AssignedUserID == other.AssignedUserID &&
		timeEqual(o.AssignedAt, other.AssignedAt) &&
		timeEqual(o.StartedAt, other.StartedAt) &&
		timeEqual(o.CompletedAt, other.CompletedAt) &&
		o.EstimatedCompletionTime == other.EstimatedCompletionTime
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
