// Package net exposes the route service over HTTP and mounts the websocket
// endpoint.
package net

import (
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"roomnav/internal/nav"
	"roomnav/internal/net/ws"
	"roomnav/internal/observability"
	"roomnav/internal/route"
	"roomnav/internal/telemetry"
)

type HTTPHandlerConfig struct {
	Logger        telemetry.Logger
	Observability observability.Config
}

type portalOpenRequest struct {
	ID   string `json:"id"`
	Open *bool  `json:"open"`
}

type portalCostRequest struct {
	ID         string   `json:"id"`
	Multiplier *float64 `json:"multiplier"`
}

type regionIndoorRequest struct {
	ID     *int  `json:"id"`
	Indoor *bool `json:"indoor"`
}

func NewHTTPHandler(service *route.Service, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = service.Logger()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		stats := service.Stats()
		payload := struct {
			Status     string    `json:"status"`
			ServerTime int64     `json:"serverTime"`
			Map        nav.Stats `json:"map"`
			Regions    int       `json:"regions"`
			Portals    int       `json:"portals"`
			Sessions   int       `json:"sessions"`
			Telemetry  any       `json:"telemetry"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Map:        stats,
			Regions:    stats.Regions,
			Portals:    stats.Portals,
			Sessions:   service.SessionCount(),
			Telemetry:  service.TelemetrySnapshot(),
		}
		writeJSON(w, logger, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/path", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var query nav.PathQuery
		if !decodeBody(w, r, &query) {
			return
		}
		writeJSON(w, logger, nethttp.StatusOK, service.FindPath(query))
	})

	mux.HandleFunc("/portals", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, nethttp.StatusOK, service.Portals())
	})

	mux.HandleFunc("/portals/open", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req portalOpenRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ID == "" || req.Open == nil {
			httpError(w, "id and open are required", nethttp.StatusBadRequest)
			return
		}
		writeMutation(w, service.SetPortalOpen(req.ID, *req.Open))
	})

	mux.HandleFunc("/portals/cost", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req portalCostRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ID == "" || req.Multiplier == nil {
			httpError(w, "id and multiplier are required", nethttp.StatusBadRequest)
			return
		}
		writeMutation(w, service.SetPortalCost(req.ID, *req.Multiplier))
	})

	mux.HandleFunc("/regions", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, logger, nethttp.StatusOK, service.Regions())
	})

	mux.HandleFunc("/regions/indoor", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		var req regionIndoorRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.ID == nil || req.Indoor == nil {
			httpError(w, "id and indoor are required", nethttp.StatusBadRequest)
			return
		}
		writeMutation(w, service.SetRegionIndoor(*req.ID, *req.Indoor))
	})

	mux.HandleFunc("/map", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, service.Render(r.URL.Query().Get("regions") != ""))
	})

	mux.HandleFunc("/ws", ws.NewHandler(service, ws.HandlerConfig{Logger: logger}).Handle)

	if cfg.Observability.EnablePprofTrace {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

func decodeBody(w nethttp.ResponseWriter, r *nethttp.Request, dst any) bool {
	if r.Body == nil {
		httpError(w, "missing payload", nethttp.StatusBadRequest)
		return false
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		httpError(w, "invalid payload", nethttp.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w nethttp.ResponseWriter, logger telemetry.Logger, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("failed to encode response: %v", err)
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeMutation(w nethttp.ResponseWriter, err error) {
	switch {
	case err == nil:
		w.WriteHeader(nethttp.StatusNoContent)
	case errors.Is(err, nav.ErrNotFound):
		httpError(w, err.Error(), nethttp.StatusNotFound)
	case errors.Is(err, nav.ErrNotInitialized):
		httpError(w, err.Error(), nethttp.StatusServiceUnavailable)
	case errors.Is(err, nav.ErrInvalidCost):
		httpError(w, err.Error(), nethttp.StatusBadRequest)
	default:
		httpError(w, err.Error(), nethttp.StatusInternalServerError)
	}
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
