package domain

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

// Worker is a staff identity that orders are dispatched to.
type Worker struct {
	ID                  types.ID   `json:"id"`
	Name                string     `json:"name"`
	IsActive            bool       `json:"isActive"`
	MaxConcurrentOrders int        `json:"maxConcurrentOrders"`
	ActiveOrderCount    int        `json:"activeOrderCount"`
	LastActive          *time.Time `json:"lastActive,omitempty"`
}

func (w Worker) Clone() Worker {
	c := w
	c.LastActive = cloneTime(w.LastActive)
	return c
}
