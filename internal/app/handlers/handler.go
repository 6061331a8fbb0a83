// Package handlers decodes request frames, dispatches them to the store or
// the bus, and frames the replies.
package handlers

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/arpanpaul-gh/InMemory-DB/internal/adapter/metrics"
	"github.com/arpanpaul-gh/InMemory-DB/internal/core/constants"
	"github.com/arpanpaul-gh/InMemory-DB/internal/core/domain"
	"github.com/arpanpaul-gh/InMemory-DB/internal/core/ports"
	"github.com/arpanpaul-gh/InMemory-DB/pkg/pool"
)

// requestPool recycles decoded request frames across connections.
var requestPool = pool.NewLitePool(func() *domain.Request {
	return &domain.Request{}
})

// Handler is the protocol layer for one server. It owns no connection
// state: the subscriber argument threaded through Handle identifies the
// calling connection for pub/sub operations.
type Handler struct {
	store      ports.KeyValueStore
	bus        ports.PubSub
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	onMutation func()
}

// New wires the protocol layer. onMutation, when non-nil, runs after every
// successful data-plane mutation and its auto-publish; the server uses it
// to trigger an inline snapshot save.
func New(store ports.KeyValueStore, bus ports.PubSub, m *metrics.Metrics, logger *slog.Logger, onMutation func()) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Handler{
		store:      store,
		bus:        bus,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		onMutation: onMutation,
	}
}

// Handle decodes one frame from sub and returns the reply to write back.
// Errors never escape as Go errors: every failure mode has a framed reply.
func (h *Handler) Handle(frame []byte, sub ports.Subscriber) domain.Reply {
	req := requestPool.Get()
	defer requestPool.Put(req)

	if err := json.Unmarshal(frame, req); err != nil {
		h.logger.Debug("undecodable frame", "error", err)
		h.metrics.CommandErrors.Inc()
		return domain.ErrorReply("Invalid JSON")
	}

	var reply domain.Reply
	if req.Type == constants.RequestTypePubSub {
		reply = h.handlePubSub(req, sub)
	} else {
		reply = h.handleData(req)
	}

	h.metrics.CommandsTotal.WithLabelValues(req.Action).Inc()
	if _, failed := reply["error"]; failed {
		h.metrics.CommandErrors.Inc()
	}
	return reply
}

func (h *Handler) handleData(req *domain.Request) domain.Reply {
	switch req.Action {
	case constants.ActionGet:
		value, remaining, found := h.store.Get(req.Key)
		if !found {
			return domain.Reply{"result": nil, "ttl_remaining": nil}
		}
		return domain.Reply{"result": value, "ttl_remaining": remaining}

	case constants.ActionSet:
		h.store.Set(req.Key, req.Value)
		h.mutated(req.Action, req.Key)
		return domain.OKReply()

	case constants.ActionSetWithTTL:
		ttl, err := parseTTL(req.TTL)
		if err != nil {
			return domain.ErrorReply(err.Error())
		}
		h.store.SetWithTTL(req.Key, req.Value, time.Duration(ttl)*time.Second)
		h.mutated(req.Action, req.Key)
		return domain.Reply{"result": "OK", "ttl_set": ttl}

	case constants.ActionDelete:
		if !h.store.Delete(req.Key) {
			return domain.Reply{"result": "Key not found"}
		}
		h.mutated(req.Action, req.Key)
		return domain.OKReply()

	case constants.ActionKeys:
		return domain.Reply{"result": h.store.Keys()}

	default:
		return domain.ErrorReply(domain.ErrInvalidAction.Error())
	}
}

func (h *Handler) handlePubSub(req *domain.Request, sub ports.Subscriber) domain.Reply {
	switch {
	case req.Action == constants.ActionSubscribe && req.Channel != "":
		h.bus.Subscribe(req.Channel, sub)
		return pubsubReply(true, req.Action, req.Channel)

	case req.Action == constants.ActionUnsubscribe && req.Channel != "":
		changed := h.bus.Unsubscribe(req.Channel, sub)
		return pubsubReply(changed, req.Action, req.Channel)

	case req.Action == constants.ActionPublish && req.Channel != "" && req.Message != nil:
		existed := h.bus.Publish(req.Channel, req.Message)
		h.metrics.PublishedTotal.Inc()
		return pubsubReply(existed, req.Action, req.Channel)

	case req.Action == constants.ActionBroadcast && req.Message != nil:
		h.bus.Broadcast(req.Message)
		h.metrics.PublishedTotal.Inc()
		return domain.Reply{"result": "OK", "action": req.Action}

	case req.Action == constants.ActionListChannels:
		return domain.Reply{"result": "OK", "action": req.Action, "channels": h.bus.Channels()}

	case req.Action == constants.ActionListSubscribers && req.Channel != "":
		count := h.bus.Subscribers(req.Channel)
		return domain.Reply{"result": "OK", "action": req.Action, "channel": req.Channel, "count": count}

	default:
		return domain.ErrorReply(domain.ErrInvalidPubSub.Error())
	}
}

// mutated publishes the automatic change notification and fires the
// server's mutation hook. Both are fire and forget relative to the client's
// reply.
func (h *Handler) mutated(action, key string) {
	h.bus.Publish(constants.UpdatesChannel, domain.Mutation{
		Operation: action,
		Key:       key,
		Timestamp: float64(h.now().UnixNano()) / float64(time.Second),
	})
	h.metrics.NotificationsTotal.Inc()
	if h.onMutation != nil {
		h.onMutation()
	}
}

func pubsubReply(ok bool, action, channel string) domain.Reply {
	result := "OK"
	if !ok {
		result = "ERROR"
	}
	return domain.Reply{"result": result, "action": action, "channel": channel}
}
