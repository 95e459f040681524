package explorer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"shadowcheck/core-go/internal/sqlcgen"
)

func TestAnalytics_RunsEveryPanel(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	avg := 61.5
	store := &fakeStore{
		buckets: []sqlcgen.AnalyticsBucket{{Label: "WPA2-P", Count: 4}},
		series:  []sqlcgen.AnalyticsSeriesPoint{{Day: day, Label: "WiFi", Count: 9}},
		trends:  []sqlcgen.ThreatTrend{{Day: day, AvgScore: &avg, High: 2, NetworkCount: 3}},
		top:     []sqlcgen.TopNetwork{{BSSID: "AA:BB:CC:00:11:22", ObservationCount: 9, FirstSeen: day, LastSeen: day}},
	}
	svc := newTestService(store)

	report, err := svc.Analytics(context.Background(), Query{
		Filters: `{"ssid":"cafe","observationCountMin":2}`,
		Enabled: `{"ssid":true,"observationCountMin":true,"excludeInvalidCoords":true}`,
	})
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}

	want := "buckets,buckets,buckets,buckets,buckets,buckets,buckets,series,trends,top"
	if got := strings.Join(store.calls, ","); got != want {
		t.Fatalf("unexpected store calls: %s", got)
	}
	if !strings.HasPrefix(store.lastSQL, "WITH filtered AS (") || len(store.lastArgs) != 2 {
		t.Fatalf("unexpected last statement %s %v", store.lastSQL, store.lastArgs)
	}

	d := report.Data
	if len(d.Security) != 1 || d.Security[0] != (Bucket{Label: "WPA2-P", Count: 4}) {
		t.Fatalf("unexpected security panel: %+v", d.Security)
	}
	if len(d.RadioTypeOverTime) != 1 || !d.RadioTypeOverTime[0].Date.Equal(day) {
		t.Fatalf("unexpected series: %+v", d.RadioTypeOverTime)
	}
	if len(d.ThreatTrends) != 1 || d.ThreatTrends[0].AvgScore != 61.5 || d.ThreatTrends[0].High != 2 {
		t.Fatalf("unexpected trends: %+v", d.ThreatTrends)
	}
	if len(d.TopNetworks) != 1 || d.TopNetworks[0].ObservationCount != 9 {
		t.Fatalf("unexpected top networks: %+v", d.TopNetworks)
	}

	tr := report.Transparency
	if tr.FilterCount != 2 || tr.EnabledCount != 2 || len(tr.IgnoredFilters) != 0 {
		t.Fatalf("expected both filters applied, got %+v", tr)
	}
	if report.Meta.QueryID == "" || report.Meta.Limit != 50 || report.Meta.ResultCount != 1 {
		t.Fatalf("unexpected meta: %+v", report.Meta)
	}
}

func TestAnalytics_StopsOnFirstFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("boom")}
	svc := newTestService(store)

	_, err := svc.Analytics(context.Background(), Query{})
	if err == nil || !strings.Contains(err.Error(), "analytics networkTypes") {
		t.Fatalf("expected wrapped panel error, got %v", err)
	}
	if len(store.calls) != 1 {
		t.Fatalf("expected one store call, got %v", store.calls)
	}
}

func TestAnalytics_HomeGuard(t *testing.T) {
	store := &fakeStore{homeCount: 0}
	svc := newTestService(store)

	_, err := svc.Analytics(context.Background(), Query{
		Filters: `{"distanceFromHomeMin":1}`,
		Enabled: `{"distanceFromHomeMin":true}`,
	})
	if !errors.Is(err, ErrHomeLocationRequired) {
		t.Fatalf("expected ErrHomeLocationRequired, got %v", err)
	}
	if strings.Join(store.calls, ",") != "home" {
		t.Fatalf("analytics must not run without home, calls=%v", store.calls)
	}
}

func TestGeospatial_IncludeTotalCountsWithoutLimit(t *testing.T) {
	store := &fakeStore{pointsN: 12345}
	svc := newTestService(store)

	set, err := svc.Geospatial(context.Background(), PointRequest{Limit: 10, IncludeTotal: true})
	if err != nil {
		t.Fatalf("Geospatial: %v", err)
	}
	if strings.Join(store.calls, ",") != "points,points_count" {
		t.Fatalf("unexpected store calls: %v", store.calls)
	}
	if !strings.HasPrefix(store.lastSQL, "SELECT COUNT(*) AS total") || len(store.lastArgs) != 0 {
		t.Fatalf("unexpected count statement %s %v", store.lastSQL, store.lastArgs)
	}
	if set.Meta.Total == nil || *set.Meta.Total != 12345 || set.Meta.Limit != 10 {
		t.Fatalf("unexpected meta: %+v", set.Meta)
	}
}
