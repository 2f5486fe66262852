package domain

import "github.com/fundwit/go-commons/types"

type OrderFilter struct {
	Status         *OrderStatus `json:"status,omitempty" form:"status"`
	Page           int          `json:"page,omitempty" form:"page"`
	SearchTerm     string       `json:"searchTerm,omitempty" form:"searchTerm"`
	AssignedUserID types.ID     `json:"assignedUserId,omitempty" form:"assignedUserId"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type OrderPage struct {
	Data       []Order    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int         `json:"count"`
}

type OrderStats struct {
	StatusCounts []StatusCount `json:"statusCounts"`
}

type OrderStatusUpdate struct {
	OrderID types.ID    `json:"orderId"`
	Status  OrderStatus `json:"status"`
}
