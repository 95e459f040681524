package explorer

import (
	"time"

	"shadowcheck/core-go/internal/filterquery"
	"shadowcheck/core-go/internal/sqlcgen"
)

// NetworkView is a network row as returned by the list endpoint.
type NetworkView struct {
	BSSID                   string           `json:"bssid"`
	SSID                    *string          `json:"ssid"`
	Type                    string           `json:"type"`
	Security                string           `json:"security"`
	Frequency               *int             `json:"frequency"`
	Channel                 *int             `json:"channel"`
	Capabilities            *string          `json:"capabilities"`
	Observations            *int64           `json:"observations"`
	FirstSeen               *time.Time       `json:"firstSeen"`
	LastSeen                *time.Time       `json:"lastSeen"`
	Signal                  *int             `json:"signal"`
	Lat                     *float64         `json:"lat"`
	Lon                     *float64         `json:"lon"`
	AccuracyMeters          *float64         `json:"accuracyMeters"`
	Manufacturer            *string          `json:"manufacturer"`
	DistanceFromHomeKm      *float64         `json:"distanceFromHomeKm"`
	StationaryConfidence    *float64         `json:"stationaryConfidence"`
	Threat                  map[string]any   `json:"threat"`
	ThreatReasons           []string         `json:"threatReasons"`
	ThreatEvidence          []ThreatEvidence `json:"threatEvidence"`
	ThreatTransparencyError bool             `json:"threatTransparencyError"`
}

// PointView is one observation, used for GeoJSON properties and the raw
// observation export.
type PointView struct {
	BSSID                   string           `json:"bssid"`
	SSID                    *string          `json:"ssid"`
	Lat                     float64          `json:"lat"`
	Lon                     float64          `json:"lon"`
	Signal                  *int             `json:"signal"`
	Accuracy                *float64         `json:"accuracy"`
	Altitude                *float64         `json:"altitude"`
	Time                    time.Time        `json:"time"`
	Number                  int64            `json:"number"`
	RadioFrequency          *int             `json:"radio_frequency"`
	RadioCapabilities       *string          `json:"radio_capabilities"`
	RadioType               string           `json:"radio_type"`
	Security                string           `json:"security"`
	Threat                  map[string]any   `json:"threat"`
	ThreatReasons           []string         `json:"threatReasons"`
	ThreatEvidence          []ThreatEvidence `json:"threatEvidence"`
	ThreatTransparencyError bool             `json:"threatTransparencyError"`
}

func networkView(n sqlcgen.Network) NetworkView {
	caps := deref(n.Capabilities)
	freq := deref(n.Frequency)

	security := deref(n.Security)
	if security == "" {
		security = filterquery.InferSecurity(caps, "")
	}

	var channel *int
	if ch := filterquery.Channel(freq); ch > 0 {
		channel = &ch
	}

	tt := NormalizeThreat(n.Threat)
	return NetworkView{
		BSSID:                   n.BSSID,
		SSID:                    n.SSID,
		Type:                    filterquery.InferRadioType(deref(n.Type), deref(n.SSID), freq, caps),
		Security:                security,
		Frequency:               n.Frequency,
		Channel:                 channel,
		Capabilities:            n.Capabilities,
		Observations:            n.Observations,
		FirstSeen:               n.FirstSeen,
		LastSeen:                n.LastSeen,
		Signal:                  n.Signal,
		Lat:                     n.Lat,
		Lon:                     n.Lon,
		AccuracyMeters:          n.AccuracyMeters,
		Manufacturer:            n.Manufacturer,
		DistanceFromHomeKm:      n.DistanceFromHomeKm,
		StationaryConfidence:    n.StationaryConfidence,
		Threat:                  n.Threat,
		ThreatReasons:           tt.Reasons,
		ThreatEvidence:          tt.Evidence,
		ThreatTransparencyError: tt.Error,
	}
}

func pointView(p sqlcgen.ObservationPoint) PointView {
	tt := NormalizeThreat(p.Threat)
	return PointView{
		BSSID:                   p.BSSID,
		SSID:                    p.SSID,
		Lat:                     p.Lat,
		Lon:                     p.Lon,
		Signal:                  p.Level,
		Accuracy:                p.Accuracy,
		Altitude:                p.Altitude,
		Time:                    p.Time,
		Number:                  p.Number,
		RadioFrequency:          p.Frequency,
		RadioCapabilities:       p.Capabilities,
		RadioType:               p.RadioType,
		Security:                p.Security,
		Threat:                  p.Threat,
		ThreatReasons:           tt.Reasons,
		ThreatEvidence:          tt.Evidence,
		ThreatTransparencyError: tt.Error,
	}
}

// Feature is a GeoJSON point feature.
type Feature struct {
	Type       string    `json:"type"`
	Geometry   Geometry  `json:"geometry"`
	Properties PointView `json:"properties"`
}

type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Features wraps points as GeoJSON with [lon, lat] coordinates.
func Features(points []PointView) []Feature {
	out := make([]Feature, 0, len(points))
	for _, p := range points {
		out = append(out, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: [2]float64{p.Lon, p.Lat}},
			Properties: p,
		})
	}
	return out
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
