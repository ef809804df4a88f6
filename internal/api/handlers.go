// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/habitus-analytics/habitus/internal/analytics"
	"github.com/habitus-analytics/habitus/internal/logging"
	"github.com/habitus-analytics/habitus/internal/models"
)

// OverviewBuilder is the slice of the analytics engine the API depends on.
type OverviewBuilder interface {
	Overview(ctx context.Context, start, end *time.Time) (*models.DashboardOverview, error)
}

// Pinger reports whether the backing event store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the HTTP handlers and their collaborators.
type Handler struct {
	engine    OverviewBuilder
	store     Pinger
	version   string
	startedAt time.Time
}

// NewHandler creates the API handler set.
func NewHandler(engine OverviewBuilder, store Pinger, version string) *Handler {
	return &Handler{
		engine:    engine,
		store:     store,
		version:   version,
		startedAt: time.Now(),
	}
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Database      string `json:"database"`
}

// Health reports liveness plus a database reachability check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Database:      "ok",
	}

	if err := h.store.Ping(r.Context()); err != nil {
		logging.CtxErr(r.Context(), err).Msg("Health check: database unreachable")
		resp.Status = "degraded"
		resp.Database = "unavailable"
		NewResponseWriter(w, r).writeJSON(http.StatusServiceUnavailable, APIResponse{
			Success: true,
			Data:    resp,
		})
		return
	}
	WriteSuccess(w, r, resp)
}

// Overview serves the full dashboard payload for the requested period.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	start, end, err := parseOverviewRequest(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	overview, err := h.engine.Overview(r.Context(), start, end)
	if err != nil {
		switch {
		case errors.Is(err, analytics.ErrInvalidDateRange):
			rw.BadRequest(err.Error())
		case errors.Is(err, analytics.ErrDataSourceUnavailable):
			logging.CtxErr(r.Context(), err).Msg("Overview failed: event store unavailable")
			rw.ServiceUnavailable("Event store temporarily unavailable")
		default:
			logging.CtxErr(r.Context(), err).Msg("Overview computation failed")
			rw.InternalError("Failed to compute dashboard overview")
		}
		return
	}
	rw.Success(overview)
}
