package proto

import (
	"encoding/json"
	"fmt"

	"roomnav/internal/nav"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1
)

// Client message type identifiers.
const (
	TypePath      = "path"
	TypeSetPortal = "setPortal"
	TypeSetCost   = "setPortalCost"
	TypeSetIndoor = "setIndoor"
	TypeHeartbeat = "heartbeat"
)

// Server message type identifiers.
const (
	TypeState       = "state"
	TypePathResult  = "pathResult"
	TypeAck         = "ack"
	TypeReject      = "reject"
	TypePortalState = "portalState"
)

// Reject reasons sent to clients.
const (
	RejectInvalidMessage = "invalid_message"
	RejectNotFound       = "not_found"
	RejectNotInitialized = "not_initialized"
	RejectInvalidCost    = "invalid_cost"
	RejectUnknownType    = "unknown_type"
)

// ClientMessage captures an inbound websocket message. Which fields are read
// depends on Type.
type ClientMessage struct {
	Ver          int                `json:"ver,omitempty"`
	Type         string             `json:"type"`
	Seq          uint64             `json:"seq,omitempty"`
	Start        *nav.Point         `json:"start,omitempty"`
	Goal         *nav.Point         `json:"goal,omitempty"`
	CostBias     map[string]float64 `json:"costBias,omitempty"`
	PreferIndoor bool               `json:"preferIndoor,omitempty"`
	ID           string             `json:"id,omitempty"`
	Region       *int               `json:"region,omitempty"`
	Open         *bool              `json:"open,omitempty"`
	Indoor       *bool              `json:"indoor,omitempty"`
	Multiplier   *float64           `json:"multiplier,omitempty"`
	SentAt       int64              `json:"sentAt,omitempty"`
}

// DecodeClientMessage converts a raw websocket payload into a structured
// message. A missing version is treated as the current one.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("missing message type")
	}
	return msg, nil
}

// PathQuery extracts the query of a path message.
func (m ClientMessage) PathQuery() (nav.PathQuery, bool) {
	if m.Type != TypePath || m.Start == nil || m.Goal == nil {
		return nav.PathQuery{}, false
	}
	return nav.PathQuery{
		Start:        *m.Start,
		Goal:         *m.Goal,
		CostBias:     m.CostBias,
		PreferIndoor: m.PreferIndoor,
	}, true
}

// StateMessage greets a new session with the current portal and region
// states.
type StateMessage struct {
	Ver        int              `json:"ver"`
	Type       string           `json:"type"`
	SessionID  string           `json:"sessionId"`
	Portals    []nav.PortalInfo `json:"portals"`
	Regions    []RegionState    `json:"regions"`
	ServerTime int64            `json:"serverTime"`
}

// RegionState is the mutable part of a region sent to clients.
type RegionState struct {
	ID     int  `json:"id"`
	Indoor bool `json:"indoor"`
}

type PathResultMessage struct {
	Ver    int              `json:"ver"`
	Type   string           `json:"type"`
	Seq    uint64           `json:"seq,omitempty"`
	Result nav.PathResponse `json:"result"`
}

type AckMessage struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
}

type RejectMessage struct {
	Ver    int    `json:"ver"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq,omitempty"`
	Reason string `json:"reason"`
}

type HeartbeatMessage struct {
	Ver        int    `json:"ver"`
	Type       string `json:"type"`
	ServerTime int64  `json:"serverTime"`
	ClientTime int64  `json:"clientTime"`
	RTTMillis  int64  `json:"rtt"`
}

// PortalStateMessage is broadcast to every session after a mutation so
// agents holding cached routes can re-plan.
type PortalStateMessage struct {
	Ver        int              `json:"ver"`
	Type       string           `json:"type"`
	Revision   uint64           `json:"revision"`
	Portals    []nav.PortalInfo `json:"portals"`
	Regions    []RegionState    `json:"regions"`
	ServerTime int64            `json:"serverTime"`
}

func NewPathResult(seq uint64, resp nav.PathResponse) PathResultMessage {
	return PathResultMessage{Ver: Version, Type: TypePathResult, Seq: seq, Result: resp}
}

func NewAck(seq uint64) AckMessage {
	return AckMessage{Ver: Version, Type: TypeAck, Seq: seq}
}

func NewReject(seq uint64, reason string) RejectMessage {
	return RejectMessage{Ver: Version, Type: TypeReject, Seq: seq, Reason: reason}
}

// RegionStates projects region infos onto their wire form.
func RegionStates(regions []nav.RegionInfo) []RegionState {
	out := make([]RegionState, len(regions))
	for i, r := range regions {
		out[i] = RegionState{ID: r.ID, Indoor: r.Indoor}
	}
	return out
}
