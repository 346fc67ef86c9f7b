// Package ws serves route queries and state mutations over a websocket.
package ws

import (
	"encoding/json"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"roomnav/internal/nav"
	"roomnav/internal/net/proto"
	"roomnav/internal/route"
	"roomnav/internal/telemetry"
	lognet "roomnav/logging/network"
)

type session interface {
	WriteMessage(messageType int, data []byte) error
	LastCommandSeq() uint64
	StoreLastCommandSeq(seq uint64)
}

type HandlerConfig struct {
	Logger telemetry.Logger
}

type Handler struct {
	service  *route.Service
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

func NewHandler(service *route.Service, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = service.Logger()
	}
	return &Handler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// Handle upgrades the request and serves the session until the client
// disconnects or a write fails.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed: %v", err)
		return
	}

	sub, greeting := h.service.Subscribe(conn)
	h.serve(conn, sub, greeting)
}

func (h *Handler) serve(conn *websocket.Conn, sub *route.Session, greeting proto.StateMessage) {
	id := sub.ID
	var s session = sub

	writeJSON := func(payload any) bool {
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Printf("failed to marshal response for %s: %v", id, err)
			return true
		}
		if err := s.WriteMessage(websocket.TextMessage, data); err != nil {
			h.service.Disconnect(id, err)
			return false
		}
		return true
	}

	if !writeJSON(greeting) {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.service.Disconnect(id, closeCause(err))
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message from %s: %v", id, err)
			h.service.RejectMessage(id, lognet.RejectPayload{Reason: proto.RejectInvalidMessage})
			if !writeJSON(proto.NewReject(msg.Seq, proto.RejectInvalidMessage)) {
				return
			}
			continue
		}

		reject := func(reason string) bool {
			h.service.RejectMessage(id, lognet.RejectPayload{MessageType: msg.Type, Seq: msg.Seq, Reason: reason})
			return writeJSON(proto.NewReject(msg.Seq, reason))
		}

		// Mutations carry a sequence number; replays of an applied one are
		// acknowledged without being applied again.
		applyMutation := func(apply func() error) bool {
			if msg.Seq > 0 {
				if last := s.LastCommandSeq(); last > 0 && msg.Seq <= last {
					return writeJSON(proto.NewAck(msg.Seq))
				}
			}
			if err := apply(); err != nil {
				return reject(rejectReason(err))
			}
			if msg.Seq > 0 {
				s.StoreLastCommandSeq(msg.Seq)
			}
			return writeJSON(proto.NewAck(msg.Seq))
		}

		ok := true
		switch msg.Type {
		case proto.TypePath:
			query, valid := msg.PathQuery()
			if !valid {
				ok = reject(proto.RejectInvalidMessage)
				break
			}
			ok = writeJSON(proto.NewPathResult(msg.Seq, h.service.FindPath(query)))
		case proto.TypeSetPortal:
			if msg.ID == "" || msg.Open == nil {
				ok = reject(proto.RejectInvalidMessage)
				break
			}
			open := *msg.Open
			ok = applyMutation(func() error { return h.service.SetPortalOpen(msg.ID, open) })
		case proto.TypeSetCost:
			if msg.ID == "" || msg.Multiplier == nil {
				ok = reject(proto.RejectInvalidMessage)
				break
			}
			multiplier := *msg.Multiplier
			ok = applyMutation(func() error { return h.service.SetPortalCost(msg.ID, multiplier) })
		case proto.TypeSetIndoor:
			if msg.Region == nil || msg.Indoor == nil {
				ok = reject(proto.RejectInvalidMessage)
				break
			}
			region, indoor := *msg.Region, *msg.Indoor
			ok = applyMutation(func() error { return h.service.SetRegionIndoor(region, indoor) })
		case proto.TypeHeartbeat:
			now := time.Now()
			rtt, known := h.service.UpdateHeartbeat(id, now, msg.SentAt)
			if !known {
				return
			}
			ok = writeJSON(proto.HeartbeatMessage{
				Ver:        proto.Version,
				Type:       proto.TypeHeartbeat,
				ServerTime: now.UnixMilli(),
				ClientTime: msg.SentAt,
				RTTMillis:  rtt.Milliseconds(),
			})
		default:
			h.logger.Printf("unknown message type %q from %s", msg.Type, id)
			ok = reject(proto.RejectUnknownType)
		}
		if !ok {
			return
		}
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, nav.ErrNotFound):
		return proto.RejectNotFound
	case errors.Is(err, nav.ErrNotInitialized):
		return proto.RejectNotInitialized
	case errors.Is(err, nav.ErrInvalidCost):
		return proto.RejectInvalidCost
	default:
		return proto.RejectInvalidMessage
	}
}

// closeCause drops the error for a normal client close so it is not logged
// as a failure.
func closeCause(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return nil
	}
	return err
}
