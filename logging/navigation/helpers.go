package navigation

import (
	"context"

	"roomnav/logging"
)

const (
	// EventTopologyBuilt is emitted after regions and portals are rebuilt.
	EventTopologyBuilt logging.EventType = "nav.topology_built"
	// EventPortalDiscarded is emitted for a door run touching fewer than two regions.
	EventPortalDiscarded logging.EventType = "nav.portal_discarded"
	// EventPortalAmbiguous is emitted for door tiles touching more than two regions.
	EventPortalAmbiguous logging.EventType = "nav.portal_ambiguous"
	// EventPortalState is emitted when a portal's open flag or cost changes.
	EventPortalState logging.EventType = "nav.portal_state"
	// EventRegionState is emitted when a region's indoor flag changes.
	EventRegionState logging.EventType = "nav.region_state"
	// EventSearchCeiling is emitted when a query exhausts its expansion budget.
	EventSearchCeiling logging.EventType = "nav.search_ceiling"
)

type TopologyBuiltPayload struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Regions  int `json:"regions"`
	Portals  int `json:"portals"`
	Discards int `json:"discards"`
}

// DoorRunPayload describes a door run that did not become a clean portal.
type DoorRunPayload struct {
	Door    string   `json:"door"`
	Tiles   [][2]int `json:"tiles"`
	Regions []int    `json:"regions"`
}

type PortalStatePayload struct {
	Open           bool    `json:"open"`
	CostMultiplier float64 `json:"costMultiplier"`
}

type RegionStatePayload struct {
	Indoor bool `json:"indoor"`
}

type SearchCeilingPayload struct {
	Expanded int `json:"expanded"`
	Budget   int `json:"budget"`
}

func TopologyBuilt(ctx context.Context, pub logging.Publisher, mapID string, actor logging.EntityRef, payload TopologyBuiltPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTopologyBuilt,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryTopology,
		Payload:  payload,
		MapID:    mapID,
	})
}

// PortalDiscarded publishes a warning for a dropped door run.
func PortalDiscarded(ctx context.Context, pub logging.Publisher, mapID string, actor logging.EntityRef, payload DoorRunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPortalDiscarded,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryTopology,
		Payload:  payload,
		MapID:    mapID,
	})
}

// PortalAmbiguous publishes a warning for door tiles that border three or
// more regions and joined only their two strongest contacts.
func PortalAmbiguous(ctx context.Context, pub logging.Publisher, mapID string, actor logging.EntityRef, payload DoorRunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPortalAmbiguous,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryTopology,
		Payload:  payload,
		MapID:    mapID,
	})
}

func PortalState(ctx context.Context, pub logging.Publisher, mapID string, actor logging.EntityRef, portal logging.EntityRef, payload PortalStatePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPortalState,
		Actor:    actor,
		Targets:  []logging.EntityRef{portal},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryState,
		Payload:  payload,
		MapID:    mapID,
	})
}

func RegionState(ctx context.Context, pub logging.Publisher, mapID string, actor logging.EntityRef, region logging.EntityRef, payload RegionStatePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRegionState,
		Actor:    actor,
		Targets:  []logging.EntityRef{region},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryState,
		Payload:  payload,
		MapID:    mapID,
	})
}

// SearchCeiling publishes a warning when a query is cut off by the
// expansion ceiling.
func SearchCeiling(ctx context.Context, pub logging.Publisher, mapID string, actor logging.EntityRef, payload SearchCeilingPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSearchCeiling,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryQuery,
		Payload:  payload,
		MapID:    mapID,
	})
}
