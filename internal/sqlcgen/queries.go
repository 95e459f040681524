package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const countHomeLocationMarkers = `-- name: CountHomeLocationMarkers :one
SELECT COUNT(*)
FROM app.location_markers
WHERE marker_type = 'home'
`

func (q *Queries) CountHomeLocationMarkers(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countHomeLocationMarkers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// The statements below are compiled per request by the filter builder; the
// projection order is fixed by filterquery.NetworkColumns and
// filterquery.GeospatialColumns.

// ListFilteredNetworks runs a network list statement.
func (q *Queries) ListFilteredNetworks(ctx context.Context, query string, args ...any) ([]Network, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Network{}
	for rows.Next() {
		var i Network
		if err := rows.Scan(
			&i.BSSID,
			&i.SSID,
			&i.Type,
			&i.Security,
			&i.Frequency,
			&i.Capabilities,
			&i.Observations,
			&i.FirstSeen,
			&i.LastSeen,
			&i.Signal,
			&i.Lat,
			&i.Lon,
			&i.AccuracyMeters,
			&i.Manufacturer,
			&i.DistanceFromHomeKm,
			&i.StationaryConfidence,
			&i.Threat,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CountFilteredNetworks runs a COUNT statement returning one bigint.
func (q *Queries) CountFilteredNetworks(ctx context.Context, query string, args ...any) (int64, error) {
	row := q.db.QueryRow(ctx, query, args...)
	var total int64
	err := row.Scan(&total)
	return total, err
}

// ListObservationPoints runs a geospatial export statement.
func (q *Queries) ListObservationPoints(ctx context.Context, query string, args ...any) ([]ObservationPoint, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ObservationPoint{}
	for rows.Next() {
		var i ObservationPoint
		if err := rows.Scan(
			&i.BSSID,
			&i.SSID,
			&i.Lat,
			&i.Lon,
			&i.Level,
			&i.Accuracy,
			&i.Time,
			&i.Frequency,
			&i.Capabilities,
			&i.RadioType,
			&i.Altitude,
			&i.Security,
			&i.Number,
			&i.Threat,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CountObservationPoints runs a geospatial COUNT statement.
func (q *Queries) CountObservationPoints(ctx context.Context, query string, args ...any) (int64, error) {
	row := q.db.QueryRow(ctx, query, args...)
	var total int64
	err := row.Scan(&total)
	return total, err
}

// ListAnalyticsBuckets runs a panel statement projecting (label, count).
func (q *Queries) ListAnalyticsBuckets(ctx context.Context, query string, args ...any) ([]AnalyticsBucket, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []AnalyticsBucket{}
	for rows.Next() {
		var i AnalyticsBucket
		if err := rows.Scan(&i.Label, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListAnalyticsSeries runs a statement projecting (day, label, count).
func (q *Queries) ListAnalyticsSeries(ctx context.Context, query string, args ...any) ([]AnalyticsSeriesPoint, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []AnalyticsSeriesPoint{}
	for rows.Next() {
		var i AnalyticsSeriesPoint
		if err := rows.Scan(&i.Day, &i.Label, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListThreatTrends runs a statement projecting (day, avg_score, critical,
// high, medium, low, network_count).
func (q *Queries) ListThreatTrends(ctx context.Context, query string, args ...any) ([]ThreatTrend, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ThreatTrend{}
	for rows.Next() {
		var i ThreatTrend
		if err := rows.Scan(
			&i.Day,
			&i.AvgScore,
			&i.Critical,
			&i.High,
			&i.Medium,
			&i.Low,
			&i.NetworkCount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListTopNetworks runs a statement projecting (bssid, ssid,
// observation_count, first_seen, last_seen).
func (q *Queries) ListTopNetworks(ctx context.Context, query string, args ...any) ([]TopNetwork, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TopNetwork{}
	for rows.Next() {
		var i TopNetwork
		if err := rows.Scan(
			&i.BSSID,
			&i.SSID,
			&i.ObservationCount,
			&i.FirstSeen,
			&i.LastSeen,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
