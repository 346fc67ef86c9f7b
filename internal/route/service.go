// Package route serializes access to one navigator for the transport layer
// and fans mutation updates out to websocket sessions.
package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"roomnav/internal/nav"
	"roomnav/internal/net/proto"
	"roomnav/internal/telemetry"
	"roomnav/logging"
	lognet "roomnav/logging/network"
)

const writeWait = 10 * time.Second

// Counter keys reported through /diagnostics.
const (
	MetricPathQueries    = "path_queries_total"
	MetricPathFailures   = "path_failures_total"
	MetricPathExpansions = "path_expansions_total"
	MetricMutations      = "mutations_total"
	MetricSessions       = "sessions_active"
	MetricBroadcastBytes = "broadcast_bytes_total"
)

type Config struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Service owns the process navigator. Every navigator call happens under mu.
type Service struct {
	mu sync.Mutex
	// broadcastMu is held from a mutation through its broadcast so sessions
	// see portalState messages in revision order.
	broadcastMu sync.Mutex
	nav         *nav.Navigator
	revision    uint64
	sessions    map[string]*Session
	nextSession atomic.Uint64

	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
}

// Session is one subscribed websocket connection.
type Session struct {
	ID   string
	conn *websocket.Conn

	mu            sync.Mutex
	lastSeq       uint64
	lastHeartbeat time.Time
	lastRTT       time.Duration
}

// WriteMessage serializes writes to the connection.
func (s *Session) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// LastCommandSeq is the highest mutation sequence already applied for the
// session.
func (s *Session) LastCommandSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeq
}

func (s *Session) StoreLastCommandSeq(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.lastSeq {
		s.lastSeq = seq
	}
}

func NewService(n *nav.Navigator, cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.WrapMetrics(&logging.Metrics{})
	}
	publisher := logging.WithFields(cfg.Publisher, map[string]any{"component": "route"})
	return &Service{
		nav:       n,
		sessions:  make(map[string]*Session),
		logger:    logger,
		metrics:   metrics,
		publisher: publisher,
	}
}

// FindPath runs one query against the navigator.
func (s *Service) FindPath(query nav.PathQuery) nav.PathResponse {
	s.mu.Lock()
	resp := s.nav.FindPath(query)
	s.mu.Unlock()

	s.metrics.Add(MetricPathQueries, 1)
	s.metrics.Add(MetricPathExpansions, uint64(resp.Expanded))
	if !resp.OK {
		s.metrics.Add(MetricPathFailures, 1)
	}
	return resp
}

func (s *Service) SetPortalOpen(id string, open bool) error {
	return s.mutate(func(n *nav.Navigator) error { return n.SetPortalOpen(id, open) })
}

func (s *Service) SetPortalCost(id string, multiplier float64) error {
	return s.mutate(func(n *nav.Navigator) error { return n.SetPortalCost(id, multiplier) })
}

func (s *Service) SetRegionIndoor(id int, indoor bool) error {
	return s.mutate(func(n *nav.Navigator) error { return n.SetRegionIndoor(id, indoor) })
}

// mutate applies a state change and broadcasts the new portal state to every
// session once mu is released. Queries only wait on mu.
func (s *Service) mutate(apply func(*nav.Navigator) error) error {
	s.broadcastMu.Lock()
	defer s.broadcastMu.Unlock()

	s.mu.Lock()
	if err := apply(s.nav); err != nil {
		s.mu.Unlock()
		return err
	}
	s.revision++
	msg := s.portalStateLocked()
	s.mu.Unlock()

	s.metrics.Add(MetricMutations, 1)
	s.broadcast(msg)
	return nil
}

func (s *Service) portalStateLocked() proto.PortalStateMessage {
	return proto.PortalStateMessage{
		Ver:        proto.Version,
		Type:       proto.TypePortalState,
		Revision:   s.revision,
		Portals:    s.nav.Portals(),
		Regions:    proto.RegionStates(s.nav.Regions()),
		ServerTime: time.Now().UnixMilli(),
	}
}

// PortalState returns the message a mutation would broadcast right now.
func (s *Service) PortalState() proto.PortalStateMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portalStateLocked()
}

func (s *Service) Stats() nav.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Stats()
}

func (s *Service) Portals() []nav.PortalInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Portals()
}

func (s *Service) Regions() []nav.RegionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Regions()
}

// Render returns the ASCII dump of the map.
func (s *Service) Render(regions bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Render(regions)
}

func (s *Service) TelemetrySnapshot() map[string]uint64 {
	return s.metrics.Snapshot()
}

// Subscribe registers a connection and returns its session plus the greeting
// carrying the current portal and region states.
func (s *Service) Subscribe(conn *websocket.Conn) (*Session, proto.StateMessage) {
	id := fmt.Sprintf("session-%d", s.nextSession.Add(1))
	session := &Session{ID: id, conn: conn, lastHeartbeat: time.Now()}

	s.mu.Lock()
	s.sessions[id] = session
	count := len(s.sessions)
	state := s.portalStateLocked()
	s.mu.Unlock()

	s.metrics.Store(MetricSessions, uint64(count))
	lognet.SessionOpened(context.Background(), s.publisher, sessionRef(id), lognet.SessionPayload{Sessions: count})
	return session, proto.StateMessage{
		Ver:        proto.Version,
		Type:       proto.TypeState,
		SessionID:  id,
		Portals:    state.Portals,
		Regions:    state.Regions,
		ServerTime: state.ServerTime,
	}
}

// Disconnect removes a session and closes its connection. It reports
// whether the session was still registered.
func (s *Service) Disconnect(id string, cause error) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return false
	}
	session.conn.Close()
	s.metrics.Store(MetricSessions, uint64(count))
	var extra map[string]any
	if cause != nil && !errors.Is(cause, websocket.ErrCloseSent) {
		extra = map[string]any{"error": cause.Error()}
	}
	lognet.SessionClosed(context.Background(), s.publisher, sessionRef(id), lognet.SessionPayload{Sessions: count}, extra)
	return true
}

// UpdateHeartbeat records a heartbeat and returns the measured round trip.
func (s *Service) UpdateHeartbeat(id string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.lastHeartbeat = receivedAt
	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt := receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			session.lastRTT = rtt
		}
	}
	return session.lastRTT, true
}

func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RejectMessage records a refused client message.
func (s *Service) RejectMessage(sessionID string, payload lognet.RejectPayload) {
	lognet.MessageRejected(context.Background(), s.publisher, sessionRef(sessionID), payload)
}

func (s *Service) Logger() telemetry.Logger {
	return s.logger
}

func (s *Service) broadcast(msg proto.PortalStateMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("failed to marshal portal state: %v", err)
		return
	}

	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	for _, session := range sessions {
		if err := session.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Printf("failed to send portal state to %s: %v", session.ID, err)
			s.Disconnect(session.ID, err)
			continue
		}
		s.metrics.Add(MetricBroadcastBytes, uint64(len(data)))
	}
}

func sessionRef(id string) logging.EntityRef {
	return logging.EntityRef{ID: id, Kind: logging.EntityKindSession}
}
