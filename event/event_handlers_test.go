package event_test

import (
	"dispatcher/event"
	"dispatcher/session"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInvokeHandlers(t *testing.T) {
	t.Run("should invoke all registered event handlers", func(t *testing.T) {
		defer func() { event.EventHandlers = nil }()

		event.RegisterHandler(func(e *event.EventRecord) *event.EventHandleResult {
			return nil
		})
		event.RegisterHandler(func(e *event.EventRecord) *event.EventHandleResult {
			return &event.EventHandleResult{Success: true, Message: "success", HandlerIdentifier: "all-success-handler"}
		})
		event.RegisterHandler(func(e *event.EventRecord) *event.EventHandleResult {
			return &event.EventHandleResult{Success: false, Message: "failure", HandlerIdentifier: "all-failure-handler"}
		})

		ev := event.EventRecord{
			ID: 100,
			Event: event.Event{
				SourceType: event.SourceTypeOrder,
				SourceId:   1234,
				SourceDesc: "ORD-1234",

				EventCategory: event.EventCategoryStatusUpdated,
				UpdatedProperties: event.UpdatedProperties{{PropertyName: "status", PropertyDesc: "Status",
					OldValue: "processing", NewValue: "shipped"}},

				CreatorId:   333,
				CreatorName: "user333",
			},
			Timestamp: time.Date(2021, 1, 1, 12, 12, 12, 0, time.Local),
		}

		ret := event.InvokeHandlersFunc(&ev)
		assert.Equal(t, []event.EventHandleResult{
			{Success: true, Message: "success", HandlerIdentifier: "all-success-handler"},
			{Success: false, Message: "failure", HandlerIdentifier: "all-failure-handler"},
		}, ret)
	})

	t.Run("log handler reports success", func(t *testing.T) {
		r := event.LogHandler(&event.EventRecord{Event: event.Event{EventCategory: event.EventCategoryAssigned,
			UpdatedProperties: event.UpdatedProperties{{PropertyName: "assignee", OldValue: "", NewValue: "7"}}}})
		assert.NotNil(t, r)
		assert.True(t, r.Success)
		assert.Equal(t, "log", r.HandlerIdentifier)
		assert.Equal(t, "ASSIGNED", r.Message)
	})
}

func TestCreateEvent(t *testing.T) {
	t.Run("should stamp identity and invoke handlers", func(t *testing.T) {
		defer func() { event.EventHandlers = nil }()

		var seen *event.EventRecord
		event.RegisterHandler(func(e *event.EventRecord) *event.EventHandleResult {
			seen = e
			return &event.EventHandleResult{Success: true, HandlerIdentifier: "capture"}
		})

		now := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)
		record, results := event.CreateEvent(event.SourceTypeOrder, 1234, "ORD-1234", event.EventCategoryAssigned,
			[]event.UpdatedProperty{{PropertyName: "assignee", NewValue: "7"}},
			&session.Identity{ID: 333, Name: "user333", Nickname: "Bob"}, now)

		assert.NotZero(t, record.ID)
		assert.Equal(t, record, seen)
		assert.Equal(t, "Bob", record.CreatorName)
		assert.EqualValues(t, 333, record.CreatorId)
		assert.Equal(t, now, record.Timestamp)
		assert.Equal(t, []event.EventHandleResult{{Success: true, HandlerIdentifier: "capture"}}, results)
	})

	t.Run("should tolerate missing identity", func(t *testing.T) {
		record, results := event.CreateEvent(event.SourceTypeOrder, 1, "ORD-1", event.EventCategoryUnassigned, nil, nil, time.Now())
		assert.Zero(t, record.CreatorId)
		assert.Empty(t, results)
	})
}
