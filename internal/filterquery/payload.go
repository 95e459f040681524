package filterquery

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Timeframe bounds a temporal filter either by a relative window such as
// "7d" or by an absolute start/end range.
type Timeframe struct {
	Type           string     `json:"type,omitempty"`
	RelativeWindow string     `json:"relativeWindow,omitempty"`
	StartTimestamp *time.Time `json:"startTimestamp,omitempty"`
	EndTimestamp   *time.Time `json:"endTimestamp,omitempty"`
}

// BoundingBox is a lat/lon rectangle. A box missing any edge is skipped.
type BoundingBox struct {
	North *float64 `json:"north,omitempty" validate:"omitempty,latitude"`
	South *float64 `json:"south,omitempty" validate:"omitempty,latitude"`
	East  *float64 `json:"east,omitempty" validate:"omitempty,longitude"`
	West  *float64 `json:"west,omitempty" validate:"omitempty,longitude"`
}

func (b *BoundingBox) complete() bool {
	return b != nil && b.North != nil && b.South != nil && b.East != nil && b.West != nil
}

// RadiusFilter selects points within RadiusMeters of a center.
type RadiusFilter struct {
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	RadiusMeters *float64 `json:"radiusMeters,omitempty" validate:"omitempty,gt=0"`
}

func (r *RadiusFilter) complete() bool {
	return r != nil && r.Latitude != nil && r.Longitude != nil && r.RadiusMeters != nil
}

// Filters is the decoded filter payload. Zero values mean "absent".
type Filters struct {
	SSID         string
	BSSID        string
	Manufacturer string
	NetworkID    string

	RadioTypes     []string
	FrequencyBands []string
	ChannelMin     *int
	ChannelMax     *int
	RSSIMin        *float64
	RSSIMax        *float64

	EncryptionTypes []string
	AuthMethods     []string
	InsecureFlags   []string
	SecurityFlags   []string

	Timeframe     *Timeframe
	TemporalScope string

	DistanceFromHomeMin *float64
	DistanceFromHomeMax *float64
	BoundingBox         *BoundingBox
	RadiusFilter        *RadiusFilter

	GPSAccuracyMax       *float64
	ExcludeInvalidCoords bool
	ObservationCountMin  *int
	ObservationCountMax  *int

	ThreatScoreMin          *float64
	ThreatScoreMax          *float64
	ThreatCategories        []string
	StationaryConfidenceMin *float64
	StationaryConfidenceMax *float64
}

// Enabled toggles filters independently of their configured values.
type Enabled map[Key]bool

// ErrNotObject is returned when a payload is valid JSON but not an object.
var ErrNotObject = errors.New("payload must be a JSON object")

// DecodeFilters parses a JSON filter payload. Only malformed JSON is an
// error; unknown keys and values of the wrong type are dropped.
func DecodeFilters(raw string) (Filters, error) {
	var f Filters
	m, err := decodeObject(raw)
	if err != nil {
		return f, err
	}
	for name, v := range m {
		switch Key(name) {
		case KeySSID:
			f.SSID = asString(v)
		case KeyBSSID:
			f.BSSID = asString(v)
		case KeyManufacturer:
			f.Manufacturer = asString(v)
		case KeyNetworkID:
			f.NetworkID = asString(v)
		case KeyRadioTypes:
			f.RadioTypes = asStrings(v)
		case KeyFrequencyBands:
			f.FrequencyBands = asStrings(v)
		case KeyChannelMin:
			f.ChannelMin = asInt(v)
		case KeyChannelMax:
			f.ChannelMax = asInt(v)
		case KeyRSSIMin:
			f.RSSIMin = asFloat(v)
		case KeyRSSIMax:
			f.RSSIMax = asFloat(v)
		case KeyEncryptionTypes:
			f.EncryptionTypes = asStrings(v)
		case KeyAuthMethods:
			f.AuthMethods = asStrings(v)
		case KeyInsecureFlags:
			f.InsecureFlags = asStrings(v)
		case KeySecurityFlags:
			f.SecurityFlags = asStrings(v)
		case KeyTimeframe:
			f.Timeframe = asTimeframe(v)
		case KeyTemporalScope:
			f.TemporalScope = asString(v)
		case KeyDistanceFromHomeMin:
			f.DistanceFromHomeMin = asFloat(v)
		case KeyDistanceFromHomeMax:
			f.DistanceFromHomeMax = asFloat(v)
		case KeyBoundingBox:
			if obj, ok := v.(map[string]any); ok {
				f.BoundingBox = &BoundingBox{
					North: asFloat(obj["north"]),
					South: asFloat(obj["south"]),
					East:  asFloat(obj["east"]),
					West:  asFloat(obj["west"]),
				}
			}
		case KeyRadiusFilter:
			if obj, ok := v.(map[string]any); ok {
				f.RadiusFilter = &RadiusFilter{
					Latitude:     asFloat(obj["latitude"]),
					Longitude:    asFloat(obj["longitude"]),
					RadiusMeters: asFloat(obj["radiusMeters"]),
				}
			}
		case KeyGPSAccuracyMax:
			f.GPSAccuracyMax = asFloat(v)
		case KeyExcludeInvalidCoords:
			f.ExcludeInvalidCoords = truthy(v)
		case KeyObservationCountMin:
			f.ObservationCountMin = asInt(v)
		case KeyObservationCountMax:
			f.ObservationCountMax = asInt(v)
		case KeyThreatScoreMin:
			f.ThreatScoreMin = asFloat(v)
		case KeyThreatScoreMax:
			f.ThreatScoreMax = asFloat(v)
		case KeyThreatCategories:
			f.ThreatCategories = asStrings(v)
		case KeyStationaryConfidenceMin:
			f.StationaryConfidenceMin = asFloat(v)
		case KeyStationaryConfidenceMax:
			f.StationaryConfidenceMax = asFloat(v)
		}
	}
	return f, nil
}

// DecodeEnabled parses a JSON enabled map. Values count as enabled when they
// are true, a non-zero number, or the strings "true" and "1".
func DecodeEnabled(raw string) (Enabled, error) {
	m, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	out := make(Enabled, len(m))
	for name, v := range m {
		if truthy(v) {
			out[Key(name)] = true
		}
	}
	return out, nil
}

func decodeObject(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

// Has reports whether k carries a usable value.
func (f Filters) Has(k Key) bool {
	switch k {
	case KeySSID:
		return f.SSID != ""
	case KeyBSSID:
		return f.BSSID != ""
	case KeyManufacturer:
		return f.Manufacturer != ""
	case KeyNetworkID:
		return f.NetworkID != ""
	case KeyRadioTypes:
		return len(f.RadioTypes) > 0
	case KeyFrequencyBands:
		return len(f.FrequencyBands) > 0
	case KeyChannelMin:
		return f.ChannelMin != nil
	case KeyChannelMax:
		return f.ChannelMax != nil
	case KeyRSSIMin:
		return f.RSSIMin != nil
	case KeyRSSIMax:
		return f.RSSIMax != nil
	case KeyEncryptionTypes:
		return len(f.EncryptionTypes) > 0
	case KeyAuthMethods:
		return len(f.AuthMethods) > 0
	case KeyInsecureFlags:
		return len(f.InsecureFlags) > 0
	case KeySecurityFlags:
		return len(f.SecurityFlags) > 0
	case KeyTimeframe:
		return f.Timeframe != nil
	case KeyTemporalScope:
		return f.TemporalScope != ""
	case KeyDistanceFromHomeMin:
		return f.DistanceFromHomeMin != nil
	case KeyDistanceFromHomeMax:
		return f.DistanceFromHomeMax != nil
	case KeyBoundingBox:
		return f.BoundingBox != nil
	case KeyRadiusFilter:
		return f.RadiusFilter != nil
	case KeyGPSAccuracyMax:
		return f.GPSAccuracyMax != nil
	case KeyExcludeInvalidCoords:
		return f.ExcludeInvalidCoords
	case KeyObservationCountMin:
		return f.ObservationCountMin != nil
	case KeyObservationCountMax:
		return f.ObservationCountMax != nil
	case KeyThreatScoreMin:
		return f.ThreatScoreMin != nil
	case KeyThreatScoreMax:
		return f.ThreatScoreMax != nil
	case KeyThreatCategories:
		return len(f.ThreatCategories) > 0
	case KeyStationaryConfidenceMin:
		return f.StationaryConfidenceMin != nil
	case KeyStationaryConfidenceMax:
		return f.StationaryConfidenceMax != nil
	default:
		return false
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asStrings(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func asFloat(v any) *float64 {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

func asInt(v any) *int {
	f := asFloat(v)
	if f == nil || *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		return nil
	}
	n := int(*f)
	return &n
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "1"
	default:
		return false
	}
}

func asTimeframe(v any) *Timeframe {
	switch t := v.(type) {
	case string:
		if w := strings.TrimSpace(t); w != "" {
			return &Timeframe{Type: "relative", RelativeWindow: w}
		}
	case map[string]any:
		tf := &Timeframe{
			Type:           strings.ToLower(asString(t["type"])),
			RelativeWindow: asString(t["relativeWindow"]),
			StartTimestamp: asTime(t["startTimestamp"]),
			EndTimestamp:   asTime(t["endTimestamp"]),
		}
		if tf.Type == "" {
			if tf.StartTimestamp != nil || tf.EndTimestamp != nil {
				tf.Type = "absolute"
			} else {
				tf.Type = "relative"
			}
		}
		return tf
	}
	return nil
}

func asTime(v any) *time.Time {
	s := asString(v)
	if s == "" || s == "null" || s == "undefined" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}
