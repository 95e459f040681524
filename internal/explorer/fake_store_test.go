package explorer

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"shadowcheck/core-go/internal/sqlcgen"
)

type fakeStore struct {
	homeCount int64
	homeErr   error
	networks  []sqlcgen.Network
	total     int64
	points    []sqlcgen.ObservationPoint
	pointsN   int64
	buckets   []sqlcgen.AnalyticsBucket
	series    []sqlcgen.AnalyticsSeriesPoint
	trends    []sqlcgen.ThreatTrend
	top       []sqlcgen.TopNetwork
	err       error

	calls    []string
	lastSQL  string
	lastArgs []any
}

func (f *fakeStore) CountHomeLocationMarkers(context.Context) (int64, error) {
	f.calls = append(f.calls, "home")
	return f.homeCount, f.homeErr
}

func (f *fakeStore) ListFilteredNetworks(_ context.Context, query string, args ...any) ([]sqlcgen.Network, error) {
	f.calls = append(f.calls, "list")
	f.lastSQL, f.lastArgs = query, args
	if f.err != nil {
		return nil, f.err
	}
	return f.networks, nil
}

func (f *fakeStore) CountFilteredNetworks(_ context.Context, query string, args ...any) (int64, error) {
	f.calls = append(f.calls, "count")
	if f.err != nil {
		return 0, f.err
	}
	return f.total, nil
}

func (f *fakeStore) ListObservationPoints(_ context.Context, query string, args ...any) ([]sqlcgen.ObservationPoint, error) {
	f.calls = append(f.calls, "points")
	f.lastSQL, f.lastArgs = query, args
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

func (f *fakeStore) CountObservationPoints(_ context.Context, query string, args ...any) (int64, error) {
	f.calls = append(f.calls, "points_count")
	f.lastSQL, f.lastArgs = query, args
	if f.err != nil {
		return 0, f.err
	}
	return f.pointsN, nil
}

func (f *fakeStore) ListAnalyticsBuckets(_ context.Context, query string, args ...any) ([]sqlcgen.AnalyticsBucket, error) {
	f.calls = append(f.calls, "buckets")
	f.lastSQL, f.lastArgs = query, args
	if f.err != nil {
		return nil, f.err
	}
	return f.buckets, nil
}

func (f *fakeStore) ListAnalyticsSeries(_ context.Context, query string, args ...any) ([]sqlcgen.AnalyticsSeriesPoint, error) {
	f.calls = append(f.calls, "series")
	f.lastSQL, f.lastArgs = query, args
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

func (f *fakeStore) ListThreatTrends(_ context.Context, query string, args ...any) ([]sqlcgen.ThreatTrend, error) {
	f.calls = append(f.calls, "trends")
	f.lastSQL, f.lastArgs = query, args
	if f.err != nil {
		return nil, f.err
	}
	return f.trends, nil
}

func (f *fakeStore) ListTopNetworks(_ context.Context, query string, args ...any) ([]sqlcgen.TopNetwork, error) {
	f.calls = append(f.calls, "top")
	f.lastSQL, f.lastArgs = query, args
	if f.err != nil {
		return nil, f.err
	}
	return f.top, nil
}

func testOptions() Options {
	return Options{
		Networks:     Limits{Default: 500, Max: 5000},
		Geospatial:   Limits{Default: 5000, Max: 500000},
		Observations: Limits{Default: 500000, Max: 1000000},
		SlowQuery:    time.Second,
		Breaker: BreakerSettings{
			Name:             "test",
			MaxRequests:      1,
			Timeout:          time.Minute,
			FailureThreshold: 2,
		},
	}
}

func newTestService(store Store) *Service {
	return NewService(zerolog.New(io.Discard), store, nil, testOptions())
}
