package explorer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shadowcheck/core-go/internal/filterquery"
	"shadowcheck/core-go/internal/sqlcgen"
)

const shapeAnalytics = "analytics"

// Bucket is one labelled count of a dashboard panel.
type Bucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
	Count int64     `json:"count"`
}

type ThreatTrendPoint struct {
	Date         time.Time `json:"date"`
	AvgScore     float64   `json:"avgScore"`
	Critical     int64     `json:"criticalCount"`
	High         int64     `json:"highCount"`
	Medium       int64     `json:"mediumCount"`
	Low          int64     `json:"lowCount"`
	NetworkCount int64     `json:"networkCount"`
}

type TopNetworkView struct {
	BSSID            string    `json:"bssid"`
	SSID             *string   `json:"ssid"`
	ObservationCount int64     `json:"observationCount"`
	FirstSeen        time.Time `json:"firstSeen"`
	LastSeen         time.Time `json:"lastSeen"`
}

// AnalyticsData is the dashboard payload, one field per panel.
type AnalyticsData struct {
	NetworkTypes       []Bucket           `json:"networkTypes"`
	SignalStrength     []Bucket           `json:"signalStrength"`
	Security           []Bucket           `json:"security"`
	Channels           []Bucket           `json:"channels"`
	Manufacturers      []Bucket           `json:"manufacturers"`
	ThreatDistribution []Bucket           `json:"threatDistribution"`
	TemporalActivity   []Bucket           `json:"temporalActivity"`
	RadioTypeOverTime  []SeriesPoint      `json:"radioTypeOverTime"`
	ThreatTrends       []ThreatTrendPoint `json:"threatTrends"`
	TopNetworks        []TopNetworkView   `json:"topNetworks"`
}

type AnalyticsReport struct {
	Data         AnalyticsData
	Transparency Transparency
	Meta         Meta
}

// Analytics runs every dashboard aggregate over the same filtered
// observations. Panels run one after another through the breaker; the first
// failure aborts the report.
func (s *Service) Analytics(ctx context.Context, q Query) (AnalyticsReport, error) {
	b, err := s.compile(q)
	if err != nil {
		return AnalyticsReport{}, err
	}
	if s.store == nil {
		return AnalyticsReport{}, ErrUnavailable
	}

	qs := b.BuildAnalyticsQueries()
	if b.RequiresHome() {
		if err := s.ensureHome(ctx); err != nil {
			return AnalyticsReport{}, err
		}
	}
	applied := b.AppliedFilters()
	s.metrics.ObserveFilterBuild(shapeAnalytics, categoriesOf(applied))

	start := time.Now()
	var data AnalyticsData
	buckets := []struct {
		name string
		q    filterquery.QueryResult
		dst  *[]Bucket
	}{
		{"networkTypes", qs.NetworkTypes, &data.NetworkTypes},
		{"signalStrength", qs.SignalStrength, &data.SignalStrength},
		{"security", qs.Security, &data.Security},
		{"channels", qs.Channels, &data.Channels},
		{"manufacturers", qs.Manufacturers, &data.Manufacturers},
		{"threatDistribution", qs.ThreatDistribution, &data.ThreatDistribution},
		{"temporalActivity", qs.TemporalActivity, &data.TemporalActivity},
	}
	for _, p := range buckets {
		rows, err := run(s, shapeAnalytics, func() ([]sqlcgen.AnalyticsBucket, error) {
			return s.store.ListAnalyticsBuckets(ctx, p.q.SQL, p.q.Params...)
		})
		if err != nil {
			return AnalyticsReport{}, fmt.Errorf("analytics %s: %w", p.name, err)
		}
		out := make([]Bucket, 0, len(rows))
		for _, r := range rows {
			out = append(out, Bucket{Label: r.Label, Count: r.Count})
		}
		*p.dst = out
	}

	series, err := run(s, shapeAnalytics, func() ([]sqlcgen.AnalyticsSeriesPoint, error) {
		return s.store.ListAnalyticsSeries(ctx, qs.RadioTypeOverTime.SQL, qs.RadioTypeOverTime.Params...)
	})
	if err != nil {
		return AnalyticsReport{}, fmt.Errorf("analytics radioTypeOverTime: %w", err)
	}
	data.RadioTypeOverTime = make([]SeriesPoint, 0, len(series))
	for _, r := range series {
		data.RadioTypeOverTime = append(data.RadioTypeOverTime, SeriesPoint{Date: r.Day, Label: r.Label, Count: r.Count})
	}

	trends, err := run(s, shapeAnalytics, func() ([]sqlcgen.ThreatTrend, error) {
		return s.store.ListThreatTrends(ctx, qs.ThreatTrends.SQL, qs.ThreatTrends.Params...)
	})
	if err != nil {
		return AnalyticsReport{}, fmt.Errorf("analytics threatTrends: %w", err)
	}
	data.ThreatTrends = make([]ThreatTrendPoint, 0, len(trends))
	for _, r := range trends {
		data.ThreatTrends = append(data.ThreatTrends, ThreatTrendPoint{
			Date:         r.Day,
			AvgScore:     deref(r.AvgScore),
			Critical:     r.Critical,
			High:         r.High,
			Medium:       r.Medium,
			Low:          r.Low,
			NetworkCount: r.NetworkCount,
		})
	}

	top, err := run(s, shapeAnalytics, func() ([]sqlcgen.TopNetwork, error) {
		return s.store.ListTopNetworks(ctx, qs.TopNetworks.SQL, qs.TopNetworks.Params...)
	})
	if err != nil {
		return AnalyticsReport{}, fmt.Errorf("analytics topNetworks: %w", err)
	}
	data.TopNetworks = make([]TopNetworkView, 0, len(top))
	for _, r := range top {
		data.TopNetworks = append(data.TopNetworks, TopNetworkView(r))
	}
	elapsed := time.Since(start)

	enabledCount := b.EnabledCount()
	s.logQuery(shapeAnalytics, elapsed, len(data.TopNetworks), filterquery.TopNetworksLimit, 0, enabledCount, len(applied))

	return AnalyticsReport{
		Data: data,
		Transparency: Transparency{
			AppliedFilters: applied,
			IgnoredFilters: b.IgnoredFilters(),
			Warnings:       b.Warnings(),
			FilterCount:    len(applied),
			EnabledCount:   enabledCount,
		},
		Meta: Meta{
			QueryID:         uuid.NewString(),
			QueryTime:       s.now().UTC(),
			QueryDurationMs: elapsed.Milliseconds(),
			ResultCount:     len(data.TopNetworks),
			Limit:           filterquery.TopNetworksLimit,
		},
	}, nil
}
