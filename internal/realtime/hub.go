// Package realtime implements the fan-out bus: mutations committed by the
// HTTP handlers are pushed to every live subscriber scoped to an event.
// Delivery is best-effort and at-most-once; a disconnected client re-fetches
// current state on reconnect.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EntityKind identifies the record type carried by a change event.
type EntityKind string

const (
	KindQuestion EntityKind = "question"
	KindPoll     EntityKind = "poll"
	KindVote     EntityKind = "vote"
)

// Op identifies the mutation that produced a change event.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// ChangeEvent carries the full resulting record snapshot, never a delta.
type ChangeEvent struct {
	Kind   EntityKind      `json:"kind"`
	Op     Op              `json:"op"`
	Record json.RawMessage `json:"record"`
}

// NewChangeEvent marshals record into a ChangeEvent. Marshal failures return
// a zero event and false; callers skip publishing in that case.
func NewChangeEvent(kind EntityKind, op Op, record interface{}) (ChangeEvent, bool) {
	data, err := json.Marshal(record)
	if err != nil {
		return ChangeEvent{}, false
	}
	return ChangeEvent{Kind: kind, Op: op, Record: data}, true
}

// Bridge relays events between instances. Implementations must not block
// the caller for long; errors are logged and dropped.
type Bridge interface {
	Publish(eventID uuid.UUID, payload []byte) error
	Subscribe(eventID uuid.UUID, handler func(payload []byte)) (cancel func(), err error)
}

// Subscription is one subscriber's cancellable event stream.
type Subscription struct {
	// C delivers change events until Cancel is called. Events are dropped
	// for this subscriber alone if it falls behind.
	C <-chan ChangeEvent

	id      string
	eventID uuid.UUID
	hub     *Hub
	once    sync.Once
}

// Cancel releases all hub resources tied to this subscription. It does not
// affect other subscribers.
func (s *Subscription) Cancel() {
	s.once.Do(func() { s.hub.unsubscribe(s.eventID, s.id) })
}

type subscriber struct {
	id    string
	kinds map[EntityKind]bool // empty means all kinds
	ch    chan ChangeEvent
}

func (s *subscriber) wants(kind EntityKind) bool {
	return len(s.kinds) == 0 || s.kinds[kind]
}

// bridgeEnvelope is the wire form relayed between instances. Instance tags
// let a node skip events it already delivered locally.
type bridgeEnvelope struct {
	Instance string      `json:"instance"`
	Event    ChangeEvent `json:"event"`
}

// Hub maintains event_id -> subscribers and fans out change events. A
// Bridge (Redis pub/sub in production) relays events across instances; the
// per-event bridge subscription starts with the first local subscriber and
// stops with the last.
type Hub struct {
	mu            sync.RWMutex
	events        map[uuid.UUID]map[string]*subscriber
	bridgeStarted map[uuid.UUID]bool
	bridgeCancels map[uuid.UUID]func()
	bridge        Bridge
	instanceID    string
	buffer        int
	logger        *zap.Logger
}

// NewHub creates a fan-out hub. bridge may be nil for single-instance
// deployments and tests. buffer is the per-subscriber queue size.
func NewHub(logger *zap.Logger, bridge Bridge, buffer int) *Hub {
	if buffer <= 0 {
		buffer = 256
	}
	return &Hub{
		events:        make(map[uuid.UUID]map[string]*subscriber),
		bridgeStarted: make(map[uuid.UUID]bool),
		bridgeCancels: make(map[uuid.UUID]func()),
		bridge:        bridge,
		instanceID:    uuid.New().String(),
		buffer:        buffer,
		logger:        logger,
	}
}

// Subscribe registers interest in a subset of entity kinds for one event.
// No kinds means all kinds.
func (h *Hub) Subscribe(eventID uuid.UUID, kinds ...EntityKind) *Subscription {
	sub := &subscriber{
		id:    uuid.New().String(),
		kinds: make(map[EntityKind]bool, len(kinds)),
		ch:    make(chan ChangeEvent, h.buffer),
	}
	for _, k := range kinds {
		sub.kinds[k] = true
	}

	h.mu.Lock()
	if h.events[eventID] == nil {
		h.events[eventID] = make(map[string]*subscriber)
	}
	h.events[eventID][sub.id] = sub
	startBridge := h.bridge != nil && !h.bridgeStarted[eventID]
	if startBridge {
		h.bridgeStarted[eventID] = true
	}
	h.mu.Unlock()

	if startBridge {
		h.startBridge(eventID)
	}

	h.logger.Debug("subscriber joined", zap.String("event_id", eventID.String()), zap.String("sub_id", sub.id))
	return &Subscription{C: sub.ch, id: sub.id, eventID: eventID, hub: h}
}

// startBridge connects the cross-instance relay for one event. It runs
// outside the hub lock: the broker handshake can stall, and publishers on
// other events must keep flowing while it does. Local delivery for the new
// subscriber works immediately either way.
func (h *Hub) startBridge(eventID uuid.UUID) {
	cancel, err := h.bridge.Subscribe(eventID, func(payload []byte) {
		h.handleBridge(eventID, payload)
	})
	if err != nil {
		h.logger.Warn("bridge subscribe failed", zap.String("event_id", eventID.String()), zap.Error(err))
		h.mu.Lock()
		delete(h.bridgeStarted, eventID)
		h.mu.Unlock()
		return
	}

	h.mu.Lock()
	_, dup := h.bridgeCancels[eventID]
	if h.bridgeStarted[eventID] && !dup {
		h.bridgeCancels[eventID] = cancel
		h.mu.Unlock()
		return
	}
	// the last subscriber left (or another start won) while the relay
	// was connecting
	h.mu.Unlock()
	cancel()
}

func (h *Hub) unsubscribe(eventID uuid.UUID, subID string) {
	h.mu.Lock()
	if m, ok := h.events[eventID]; ok {
		if sub, ok := m[subID]; ok {
			delete(m, subID)
			close(sub.ch)
		}
		if len(m) == 0 {
			delete(h.events, eventID)
			delete(h.bridgeStarted, eventID)
			if cancel, ok := h.bridgeCancels[eventID]; ok {
				cancel()
				delete(h.bridgeCancels, eventID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("subscriber left", zap.String("event_id", eventID.String()), zap.String("sub_id", subID))
}

// Publish fans ev out to local subscribers and relays it to other instances.
// It never blocks on a slow subscriber and never surfaces delivery failures
// to the writer.
func (h *Hub) Publish(eventID uuid.UUID, ev ChangeEvent) {
	h.deliverLocal(eventID, ev)

	if h.bridge == nil {
		return
	}
	payload, err := json.Marshal(bridgeEnvelope{Instance: h.instanceID, Event: ev})
	if err != nil {
		return
	}
	if err := h.bridge.Publish(eventID, payload); err != nil {
		h.logger.Warn("bridge publish failed", zap.String("event_id", eventID.String()), zap.Error(err))
	}
}

func (h *Hub) handleBridge(eventID uuid.UUID, payload []byte) {
	var env bridgeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return
	}
	if env.Instance == h.instanceID {
		// already delivered locally by Publish
		return
	}
	h.deliverLocal(eventID, env.Event)
}

// deliverLocal sends under the read lock so a concurrent Cancel (which takes
// the write lock before closing the channel) cannot race a send.
func (h *Hub) deliverLocal(eventID uuid.UUID, ev ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.events[eventID] {
		if !sub.wants(ev.Kind) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// subscriber fell behind; it resyncs on reconnect
		}
	}
}

// SubscriberCount returns the number of live subscribers for an event.
func (h *Hub) SubscriberCount(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events[eventID])
}
