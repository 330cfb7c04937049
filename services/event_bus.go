package services

import (
	"time"

	"github.com/ethan-ignatius/gymbuddy/models"
)

type eventDeps struct {
	store EventStore
	rt    *RealtimeHub
}

var _events eventDeps

func InitEventBus(store EventStore, rt *RealtimeHub) {
	_events = eventDeps{store: store, rt: rt}
}

// EmitScheduleEvent persists a feed entry and pushes it to any live
// dashboard sockets. Safe to call anywhere; a no-op before InitEventBus.
func EmitScheduleEvent(userID uint, kind, message string) {
	if _events.store == nil {
		return
	}
	e := &models.ScheduleEvent{UserID: userID, Kind: kind, Message: message, CreatedAt: time.Now()}
	_ = _events.store.Append(e)

	if _events.rt != nil {
		_events.rt.Broadcast(userID, map[string]any{
			"kind":  e.Kind,
			"event": e,
		})
	}
}
