// Habitus - Engagement and Retention Analytics for Learning Platforms
// Copyright 2026 Habitus Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/habitus-analytics/habitus

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// dateLayout is the only accepted format for date query parameters.
const dateLayout = "2006-01-02"

var validate = validator.New(validator.WithRequiredStructEnabled())

// OverviewRequest carries the optional period bounds of an overview request.
// Both dates are inclusive; omitted bounds fall back to the trailing month.
type OverviewRequest struct {
	Start string `validate:"omitempty,datetime=2006-01-02"`
	End   string `validate:"omitempty,datetime=2006-01-02"`
}

// parseOverviewRequest validates the start/end query parameters and converts
// them to timestamps. Malformed dates fail the whole request rather than
// being silently replaced with defaults.
func parseOverviewRequest(r *http.Request) (start, end *time.Time, err error) {
	req := OverviewRequest{
		Start: r.URL.Query().Get("start"),
		End:   r.URL.Query().Get("end"),
	}
	if err := validate.Struct(req); err != nil {
		return nil, nil, fmt.Errorf("dates must use the %s format", dateLayout)
	}

	if req.Start != "" {
		t, err := time.Parse(dateLayout, req.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start date %q", req.Start)
		}
		start = &t
	}
	if req.End != "" {
		t, err := time.Parse(dateLayout, req.End)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end date %q", req.End)
		}
		end = &t
	}
	return start, end, nil
}
