package event

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

const (
	EventCategoryAssigned      = EventCategory("ASSIGNED")
	EventCategoryUnassigned    = EventCategory("UNASSIGNED")
	EventCategoryStatusUpdated = EventCategory("STATUS_UPDATED")

	SourceTypeOrder = "ORDER"
)

type EventCategory string

type Event struct {
	SourceId   types.ID `json:"sourceId"`
	SourceType string   `json:"sourceType"`
	SourceDesc string   `json:"sourceDesc"`

	CreatorId   types.ID `json:"creatorId"`
	CreatorName string   `json:"creatorName"`

	EventCategory     EventCategory     `json:"eventCategory"`
	UpdatedProperties UpdatedProperties `json:"updatedProperties"`
}

type EventRecord struct {
	ID types.ID `json:"id"`
	Event

	Timestamp time.Time `json:"timestamp"`
}

type UpdatedProperty struct {
	PropertyName string `json:"propertyName"`
	PropertyDesc string `json:"propertyDesc"`

	OldValue     string `json:"oldValue"`
	OldValueDesc string `json:"oldValueDesc"`
	NewValue     string `json:"newValue"`
	NewValueDesc string `json:"newValueDesc"`
}

type UpdatedProperties []UpdatedProperty
