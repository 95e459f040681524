package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"shadowcheck/core-go/internal/explorer"
)

type networkListResponse struct {
	OK                 bool                   `json:"ok"`
	Data               []explorer.NetworkView `json:"data"`
	Pagination         explorer.Pagination    `json:"pagination"`
	FilterTransparency explorer.Transparency  `json:"filterTransparency"`
	ForensicIntegrity  explorer.Integrity     `json:"forensicIntegrity"`
}

type featureCollectionResponse struct {
	OK                 bool                  `json:"ok"`
	Type               string                `json:"type"`
	Features           []explorer.Feature    `json:"features"`
	FilterTransparency explorer.Transparency `json:"filterTransparency"`
	Meta               explorer.Meta         `json:"meta"`
}

type observationsResponse struct {
	OK                 bool                  `json:"ok"`
	Data               []explorer.PointView  `json:"data"`
	FilterTransparency explorer.Transparency `json:"filterTransparency"`
	Meta               explorer.Meta         `json:"meta"`
}

type analyticsResponse struct {
	OK                 bool                   `json:"ok"`
	Data               explorer.AnalyticsData `json:"data"`
	FilterTransparency explorer.Transparency  `json:"filterTransparency"`
	Meta               explorer.Meta          `json:"meta"`
}

func filterQuery(q url.Values) explorer.Query {
	return explorer.Query{Filters: q.Get("filters"), Enabled: q.Get("enabled")}
}

// parseIntParam returns 0 for an absent value so the service applies its
// default.
func parseIntParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseBSSIDs(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, &explorer.ParamError{Name: "bssids", Err: err}
	}
	return out, nil
}

func (h *Handler) handleListNetworks(w http.ResponseWriter, r *http.Request) {
	if !h.ensureExplorer(w) {
		return
	}
	q := r.URL.Query()

	limit, err := parseIntParam(q.Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid limit", map[string]any{"error": err.Error()})
		return
	}
	offset, err := parseIntParam(q.Get("offset"))
	if err != nil || offset < 0 {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid offset", nil)
		return
	}

	page, err := h.explorer.ListNetworks(r.Context(), explorer.NetworkRequest{
		Query:  filterQuery(q),
		Limit:  limit,
		Offset: offset,
		Sort:   q.Get("sort"),
		Order:  q.Get("order"),
	})
	if err != nil {
		h.writeExplorerError(w, err, "list networks")
		return
	}

	h.writeJSON(w, http.StatusOK, networkListResponse{
		OK:                 true,
		Data:               page.Networks,
		Pagination:         page.Pagination,
		FilterTransparency: page.Transparency,
		ForensicIntegrity:  page.Integrity,
	})
}

func (h *Handler) pointRequest(w http.ResponseWriter, r *http.Request) (explorer.PointRequest, bool) {
	q := r.URL.Query()

	limit, err := parseIntParam(q.Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid limit", map[string]any{"error": err.Error()})
		return explorer.PointRequest{}, false
	}
	bssids, err := parseBSSIDs(q.Get("bssids"))
	if err != nil {
		h.writeExplorerError(w, err, "parse bssids")
		return explorer.PointRequest{}, false
	}
	includeTotal := false
	if raw := strings.TrimSpace(q.Get("includeTotal")); raw != "" {
		if includeTotal, err = strconv.ParseBool(raw); err != nil {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid includeTotal", nil)
			return explorer.PointRequest{}, false
		}
	}
	return explorer.PointRequest{
		Query:          filterQuery(q),
		Limit:          limit,
		SelectedBSSIDs: bssids,
		IncludeTotal:   includeTotal,
	}, true
}

func (h *Handler) handleGeospatial(w http.ResponseWriter, r *http.Request) {
	if !h.ensureExplorer(w) {
		return
	}
	req, ok := h.pointRequest(w, r)
	if !ok {
		return
	}

	set, err := h.explorer.Geospatial(r.Context(), req)
	if err != nil {
		h.writeExplorerError(w, err, "load geospatial points")
		return
	}

	h.writeJSON(w, http.StatusOK, featureCollectionResponse{
		OK:                 true,
		Type:               "FeatureCollection",
		Features:           explorer.Features(set.Points),
		FilterTransparency: set.Transparency,
		Meta:               set.Meta,
	})
}

func (h *Handler) handleObservations(w http.ResponseWriter, r *http.Request) {
	if !h.ensureExplorer(w) {
		return
	}
	req, ok := h.pointRequest(w, r)
	if !ok {
		return
	}

	set, err := h.explorer.Observations(r.Context(), req)
	if err != nil {
		h.writeExplorerError(w, err, "load observations")
		return
	}

	h.writeJSON(w, http.StatusOK, observationsResponse{
		OK:                 true,
		Data:               set.Points,
		FilterTransparency: set.Transparency,
		Meta:               set.Meta,
	})
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if !h.ensureExplorer(w) {
		return
	}

	report, err := h.explorer.Analytics(r.Context(), filterQuery(r.URL.Query()))
	if err != nil {
		h.writeExplorerError(w, err, "load analytics")
		return
	}

	h.writeJSON(w, http.StatusOK, analyticsResponse{
		OK:                 true,
		Data:               report.Data,
		FilterTransparency: report.Transparency,
		Meta:               report.Meta,
	})
}

func (h *Handler) writeExplorerError(w http.ResponseWriter, err error, op string) {
	var pe *explorer.ParamError
	var ve *explorer.ValidationError
	switch {
	case errors.As(err, &pe):
		h.writeError(w, http.StatusBadRequest, "invalid_json", pe.Error(), map[string]any{"param": pe.Name})
	case errors.As(err, &ve):
		h.writeError(w, http.StatusBadRequest, "validation_failed", "Filter validation failed.", map[string]any{"errors": ve.Errors})
	case errors.Is(err, explorer.ErrHomeLocationRequired):
		h.writeError(w, http.StatusBadRequest, "home_location_required", "Home location is required for distance filters.", nil)
	case errors.Is(err, explorer.ErrHomeLocationAmbiguous):
		h.writeError(w, http.StatusBadRequest, "home_location_required", "Exactly one home location is required for distance filters.", nil)
	case errors.Is(err, explorer.ErrHomeMarkersMissing):
		h.writeError(w, http.StatusBadRequest, "home_location_required", "Home location markers table is missing (app.location_markers).", nil)
	case errors.Is(err, explorer.ErrUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database unavailable", nil)
	case errors.Is(err, context.DeadlineExceeded):
		h.log.Warn().Err(err).Msg(op + " timed out")
		h.writeError(w, http.StatusGatewayTimeout, "db_error", "query timed out", nil)
	default:
		h.log.Error().Err(err).Msg(op + " failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to "+op, nil)
	}
}
