package realtime

import (
	"sync"

	"cherries_service/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conn is the live endpoint of one subscriber. Send must be safe to call from
// the broadcasting goroutine and should return an error once the underlying
// transport is gone.
type Conn interface {
	Send(data []byte) error
}

type Event struct {
	Type    string    `json:"type"`
	QuestID uuid.UUID `json:"quest_id"`
}

const EventScoreboardUpdate = "scoreboard_update"

func ScoreboardUpdate(questID uuid.UUID) Event {
	return Event{Type: EventScoreboardUpdate, QuestID: questID}
}

// Registry tracks live subscribers per quest and delivers best-effort
// notifications. At most one connection is registered per (quest, user); a
// reconnect replaces the previous entry and the stale connection is cleaned up
// when its own send fails or its read loop exits.
type Registry struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[uuid.UUID]Conn
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[uuid.UUID]map[uuid.UUID]Conn),
	}
}

func (r *Registry) Subscribe(questID, userID uuid.UUID, conn Conn) {
	r.mu.Lock()
	room, ok := r.rooms[questID]
	if !ok {
		room = make(map[uuid.UUID]Conn)
		r.rooms[questID] = room
	}
	_, replaced := room[userID]
	room[userID] = conn
	r.mu.Unlock()

	if !replaced {
		subscribersGauge.Inc()
	}
}

// Unsubscribe removes the mapping for (quest, user). Unknown pairs are a
// no-op; the room entry itself is dropped once its last subscriber leaves.
func (r *Registry) Unsubscribe(questID, userID uuid.UUID) {
	r.mu.Lock()
	removed := r.removeLocked(questID, userID, nil)
	r.mu.Unlock()

	if removed {
		subscribersGauge.Dec()
	}
}

// UnsubscribeConn removes the mapping only while conn is still the registered
// entry, so a stale connection's teardown cannot evict its replacement.
func (r *Registry) UnsubscribeConn(questID, userID uuid.UUID, conn Conn) {
	r.mu.Lock()
	removed := r.removeLocked(questID, userID, conn)
	r.mu.Unlock()

	if removed {
		subscribersGauge.Dec()
	}
}

// Broadcast delivers event to every subscriber of the quest except
// excludeUserID (uuid.Nil excludes nobody). Delivery is best-effort: a failed
// send evicts that subscriber and never affects the others or the caller.
func (r *Registry) Broadcast(questID uuid.UUID, event Event, excludeUserID uuid.UUID) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Logger().Error("failed to marshal event",
			zap.String("quest_id", questID.String()),
			zap.Error(err))
		return
	}

	type target struct {
		userID uuid.UUID
		conn   Conn
	}

	r.mu.RLock()
	room := r.rooms[questID]
	targets := make([]target, 0, len(room))
	for userID, conn := range room {
		if userID == excludeUserID {
			continue
		}
		targets = append(targets, target{userID: userID, conn: conn})
	}
	r.mu.RUnlock()

	// Sends happen outside the lock: a slow or dead peer must not block
	// Subscribe/Unsubscribe or delivery to the rest of the room.
	for _, t := range targets {
		if err := t.conn.Send(payload); err != nil {
			logger.Logger().Info("dropping subscriber after failed send",
				zap.String("quest_id", questID.String()),
				zap.String("user_id", t.userID.String()),
				zap.Error(err))
			broadcastsTotal.WithLabelValues("failed").Inc()
			r.UnsubscribeConn(questID, t.userID, t.conn)
			continue
		}
		broadcastsTotal.WithLabelValues("delivered").Inc()
	}
}

// removeLocked deletes the (quest, user) entry. When conn is non-nil the
// entry is only deleted if it still holds that exact connection.
func (r *Registry) removeLocked(questID, userID uuid.UUID, conn Conn) bool {
	room, ok := r.rooms[questID]
	if !ok {
		return false
	}
	current, ok := room[userID]
	if !ok {
		return false
	}
	if conn != nil && current != conn {
		return false
	}

	delete(room, userID)
	if len(room) == 0 {
		delete(r.rooms, questID)
	}
	return true
}
