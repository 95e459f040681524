package sqlcgen

import "time"

// Network is one row of public.api_network_explorer.
type Network struct {
	BSSID                string
	SSID                 *string
	Type                 *string
	Security             *string
	Frequency            *int
	Capabilities         *string
	Observations         *int64
	FirstSeen            *time.Time
	LastSeen             *time.Time
	Signal               *int
	Lat                  *float64
	Lon                  *float64
	AccuracyMeters       *float64
	Manufacturer         *string
	DistanceFromHomeKm   *float64
	StationaryConfidence *float64
	Threat               map[string]any
}

// ObservationPoint is one exported sighting with its classified labels.
type ObservationPoint struct {
	BSSID        string
	SSID         *string
	Lat          float64
	Lon          float64
	Level        *int
	Accuracy     *float64
	Time         time.Time
	Frequency    *int
	Capabilities *string
	RadioType    string
	Altitude     *float64
	Security     string
	Number       int64
	Threat       map[string]any
}

// AnalyticsBucket is one (label, count) row of a dashboard panel.
type AnalyticsBucket struct {
	Label string
	Count int64
}

// AnalyticsSeriesPoint is one (day, label, count) row of a daily breakdown.
type AnalyticsSeriesPoint struct {
	Day   time.Time
	Label string
	Count int64
}

// ThreatTrend is one day of threat score aggregates.
type ThreatTrend struct {
	Day          time.Time
	AvgScore     *float64
	Critical     int64
	High         int64
	Medium       int64
	Low          int64
	NetworkCount int64
}

// TopNetwork is one network ranked by observation count.
type TopNetwork struct {
	BSSID            string
	SSID             *string
	ObservationCount int64
	FirstSeen        time.Time
	LastSeen         time.Time
}
