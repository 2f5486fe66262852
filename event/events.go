package event

import (
	"dispatcher/common"
	"dispatcher/session"
	"time"

	"github.com/fundwit/go-commons/types"
)

var idWorker = common.NewIdWorker()

// CreateEvent stamps a record and hands it to the registered handlers.
func CreateEvent(sourceType string, sourceId types.ID, sourceDesc string, category EventCategory,
	updatedProperties []UpdatedProperty, identity *session.Identity, timestamp time.Time) (*EventRecord, []EventHandleResult) {

	record := &EventRecord{
		ID: common.NextId(idWorker),
		Event: Event{
			SourceType: sourceType,
			SourceId:   sourceId,
			SourceDesc: sourceDesc,

			EventCategory:     category,
			UpdatedProperties: updatedProperties,
		},
		Timestamp: timestamp,
	}
	if identity != nil {
		record.CreatorId = identity.ID
		record.CreatorName = identity.DisplayName()
	}
	return record, InvokeHandlersFunc(record)
}
