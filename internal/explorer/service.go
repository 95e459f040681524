// Package explorer runs compiled filter queries against PostGIS and shapes
// the rows for the network explorer endpoints.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"shadowcheck/core-go/internal/filterquery"
	"shadowcheck/core-go/internal/metrics"
	"shadowcheck/core-go/internal/sqlcgen"
)

// Store is the read side of PostGIS used by the service. *sqlcgen.Queries
// satisfies it.
type Store interface {
	CountHomeLocationMarkers(ctx context.Context) (int64, error)
	ListFilteredNetworks(ctx context.Context, query string, args ...any) ([]sqlcgen.Network, error)
	CountFilteredNetworks(ctx context.Context, query string, args ...any) (int64, error)
	ListObservationPoints(ctx context.Context, query string, args ...any) ([]sqlcgen.ObservationPoint, error)
	CountObservationPoints(ctx context.Context, query string, args ...any) (int64, error)
	ListAnalyticsBuckets(ctx context.Context, query string, args ...any) ([]sqlcgen.AnalyticsBucket, error)
	ListAnalyticsSeries(ctx context.Context, query string, args ...any) ([]sqlcgen.AnalyticsSeriesPoint, error)
	ListThreatTrends(ctx context.Context, query string, args ...any) ([]sqlcgen.ThreatTrend, error)
	ListTopNetworks(ctx context.Context, query string, args ...any) ([]sqlcgen.TopNetwork, error)
}

const (
	shapeNetworkList  = "network_list"
	shapeNetworkCount = "network_count"
	shapeGeospatial   = "geospatial"
	shapeGeoCount     = "geospatial_count"
	shapeObservations = "observations"
	shapeHomeGuard    = "home_guard"
)

// Limits is the default and maximum row count of one endpoint.
type Limits struct {
	Default int
	Max     int
}

// clamp maps non-positive requests to the default and caps at Max.
func (l Limits) clamp(n int) int {
	if n <= 0 {
		n = l.Default
	}
	if l.Max > 0 && n > l.Max {
		n = l.Max
	}
	return n
}

type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

type Options struct {
	Networks     Limits
	Geospatial   Limits
	Observations Limits
	SlowQuery    time.Duration
	Breaker      BreakerSettings
}

type Service struct {
	log     zerolog.Logger
	store   Store
	metrics *metrics.Metrics
	opts    Options
	breaker *gobreaker.CircuitBreaker[any]
	now     func() time.Time
}

// NewService wires a service. A nil store makes every query return
// ErrUnavailable after request validation.
func NewService(log zerolog.Logger, store Store, m *metrics.Metrics, opts Options) *Service {
	s := &Service{log: log, store: store, metrics: m, opts: opts, now: time.Now}
	threshold := opts.Breaker.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	s.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        opts.Breaker.Name,
		MaxRequests: opts.Breaker.MaxRequests,
		Interval:    opts.Breaker.Interval,
		Timeout:     opts.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			m.SetBreakerState(name, int(to))
		},
	})
	m.SetBreakerState(opts.Breaker.Name, int(gobreaker.StateClosed))
	return s
}

// countsAsSuccess keeps query-level failures from tripping the breaker; only
// connection trouble should.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}

func run[T any](s *Service, shape string, fn func() (T, error)) (T, error) {
	var zero T
	start := time.Now()
	v, err := s.breaker.Execute(func() (any, error) { return fn() })
	s.metrics.ObserveQueryDuration(shape, time.Since(start))
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return zero, err
	}
	t, _ := v.(T)
	return t, nil
}

// Query is the raw filters/enabled pair as sent by the client.
type Query struct {
	Filters string
	Enabled string
}

type NetworkRequest struct {
	Query
	Limit  int
	Offset int
	Sort   string
	Order  string
}

type PointRequest struct {
	Query
	Limit          int
	SelectedBSSIDs []string
	// IncludeTotal also counts every matching point, ignoring Limit.
	IncludeTotal bool
}

// Transparency reports exactly which filters shaped a result.
type Transparency struct {
	AppliedFilters []filterquery.AppliedFilter `json:"appliedFilters"`
	IgnoredFilters []filterquery.IgnoredFilter `json:"ignoredFilters"`
	Warnings       []string                    `json:"warnings"`
	FilterCount    int                         `json:"filterCount"`
	EnabledCount   int                         `json:"enabledCount"`
	Validation     *ThreatValidation           `json:"validation,omitempty"`
}

type ThreatValidation struct {
	ThreatsWithoutReasons int `json:"threatsWithoutReasons"`
	TotalThreats          int `json:"totalThreats"`
}

type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"hasMore"`
}

type Integrity struct {
	QueryID             string    `json:"queryId"`
	QueryTime           time.Time `json:"queryTime"`
	ResultCount         int       `json:"resultCount"`
	NoImplicitFiltering bool      `json:"noImplicitFiltering"`
	ExplicitFiltersOnly bool      `json:"explicitFiltersOnly"`
}

type NetworkPage struct {
	Networks     []NetworkView
	Pagination   Pagination
	Transparency Transparency
	Integrity    Integrity
}

type Meta struct {
	QueryID         string    `json:"queryId"`
	QueryTime       time.Time `json:"queryTime"`
	QueryDurationMs int64     `json:"queryDurationMs"`
	ResultCount     int       `json:"resultCount"`
	Limit           int       `json:"limit"`
	Total           *int64    `json:"total,omitempty"`
}

type PointSet struct {
	Points       []PointView
	Transparency Transparency
	Meta         Meta
}

func (s *Service) compile(q Query) (*filterquery.Builder, error) {
	f, err := filterquery.DecodeFilters(q.Filters)
	if err != nil {
		return nil, &ParamError{Name: "filters", Err: err}
	}
	enabled, err := filterquery.DecodeEnabled(q.Enabled)
	if err != nil {
		return nil, &ParamError{Name: "enabled", Err: err}
	}
	if res := filterquery.ValidateFilterPayload(f, enabled); !res.OK() {
		s.metrics.IncValidationFailure()
		return nil, &ValidationError{Errors: res.Errors}
	}
	return filterquery.NewBuilder(f, enabled), nil
}

// ensureHome requires exactly one home marker.
func (s *Service) ensureHome(ctx context.Context) error {
	n, err := run(s, shapeHomeGuard, func() (int64, error) {
		return s.store.CountHomeLocationMarkers(ctx)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
			s.metrics.IncHomeGuardRejection()
			return ErrHomeMarkersMissing
		}
		return fmt.Errorf("check home location: %w", err)
	}
	switch {
	case n == 0:
		s.metrics.IncHomeGuardRejection()
		return ErrHomeLocationRequired
	case n > 1:
		s.metrics.IncHomeGuardRejection()
		return ErrHomeLocationAmbiguous
	}
	return nil
}

// ListNetworks returns one page of the network explorer plus the total
// number of matching networks.
func (s *Service) ListNetworks(ctx context.Context, req NetworkRequest) (NetworkPage, error) {
	order, err := filterquery.ParseOrderBy(req.Sort, req.Order)
	if err != nil {
		return NetworkPage{}, &ValidationError{Errors: []string{err.Error()}}
	}
	b, err := s.compile(req.Query)
	if err != nil {
		return NetworkPage{}, err
	}
	if s.store == nil {
		return NetworkPage{}, ErrUnavailable
	}

	limit := s.opts.Networks.clamp(req.Limit)
	offset := max(req.Offset, 0)
	list := b.BuildNetworkListQuery(filterquery.NetworkListOptions{Limit: &limit, Offset: &offset, OrderBy: order})
	if b.RequiresHome() {
		if err := s.ensureHome(ctx); err != nil {
			return NetworkPage{}, err
		}
	}
	count := b.BuildNetworkCountQuery()
	s.metrics.ObserveFilterBuild(shapeNetworkList, categoriesOf(list.AppliedFilters))

	start := time.Now()
	rows, err := run(s, shapeNetworkList, func() ([]sqlcgen.Network, error) {
		return s.store.ListFilteredNetworks(ctx, list.SQL, list.Params...)
	})
	if err != nil {
		return NetworkPage{}, fmt.Errorf("list networks: %w", err)
	}
	total, err := run(s, shapeNetworkCount, func() (int64, error) {
		return s.store.CountFilteredNetworks(ctx, count.SQL, count.Params...)
	})
	if err != nil {
		return NetworkPage{}, fmt.Errorf("count networks: %w", err)
	}
	elapsed := time.Since(start)

	views := make([]NetworkView, 0, len(rows))
	validation := &ThreatValidation{}
	for _, n := range rows {
		v := networkView(n)
		if threatFlagged(n.Threat) {
			validation.TotalThreats++
		}
		if v.ThreatTransparencyError {
			validation.ThreatsWithoutReasons++
		}
		views = append(views, v)
	}

	enabledCount := b.EnabledCount()
	s.logQuery(shapeNetworkList, elapsed, len(rows), limit, 0, enabledCount, len(list.AppliedFilters))

	return NetworkPage{
		Networks: views,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: int64(offset+limit) < total,
		},
		Transparency: Transparency{
			AppliedFilters: list.AppliedFilters,
			IgnoredFilters: list.IgnoredFilters,
			Warnings:       list.Warnings,
			FilterCount:    len(list.AppliedFilters),
			EnabledCount:   enabledCount,
			Validation:     validation,
		},
		Integrity: Integrity{
			QueryID:             uuid.NewString(),
			QueryTime:           s.now().UTC(),
			ResultCount:         len(views),
			NoImplicitFiltering: enabledCount == len(list.AppliedFilters)+len(list.IgnoredFilters),
			ExplicitFiltersOnly: true,
		},
	}, nil
}

// Geospatial returns observation points for the map.
func (s *Service) Geospatial(ctx context.Context, req PointRequest) (PointSet, error) {
	return s.points(ctx, req, shapeGeospatial, s.opts.Geospatial)
}

// Observations returns the raw observation export with a larger row cap.
func (s *Service) Observations(ctx context.Context, req PointRequest) (PointSet, error) {
	return s.points(ctx, req, shapeObservations, s.opts.Observations)
}

func (s *Service) points(ctx context.Context, req PointRequest, shape string, limits Limits) (PointSet, error) {
	b, err := s.compile(req.Query)
	if err != nil {
		return PointSet{}, err
	}
	if s.store == nil {
		return PointSet{}, ErrUnavailable
	}

	limit := limits.clamp(req.Limit)
	q := b.BuildGeospatialQuery(filterquery.GeospatialOptions{Limit: &limit, SelectedBSSIDs: req.SelectedBSSIDs})
	if b.RequiresHome() {
		if err := s.ensureHome(ctx); err != nil {
			return PointSet{}, err
		}
	}
	s.metrics.ObserveFilterBuild(shape, categoriesOf(q.AppliedFilters))

	start := time.Now()
	rows, err := run(s, shape, func() ([]sqlcgen.ObservationPoint, error) {
		return s.store.ListObservationPoints(ctx, q.SQL, q.Params...)
	})
	if err != nil {
		return PointSet{}, fmt.Errorf("list %s points: %w", shape, err)
	}
	var total *int64
	if req.IncludeTotal {
		count := b.BuildGeospatialCountQuery(filterquery.GeospatialCountOptions{SelectedBSSIDs: req.SelectedBSSIDs})
		n, err := run(s, shapeGeoCount, func() (int64, error) {
			return s.store.CountObservationPoints(ctx, count.SQL, count.Params...)
		})
		if err != nil {
			return PointSet{}, fmt.Errorf("count %s points: %w", shape, err)
		}
		total = &n
	}
	elapsed := time.Since(start)

	points := make([]PointView, 0, len(rows))
	for _, p := range rows {
		points = append(points, pointView(p))
	}

	enabledCount := b.EnabledCount()
	s.logQuery(shape, elapsed, len(rows), limit, len(req.SelectedBSSIDs), enabledCount, len(q.AppliedFilters))

	return PointSet{
		Points: points,
		Transparency: Transparency{
			AppliedFilters: q.AppliedFilters,
			IgnoredFilters: q.IgnoredFilters,
			Warnings:       q.Warnings,
			FilterCount:    len(q.AppliedFilters),
			EnabledCount:   enabledCount,
		},
		Meta: Meta{
			QueryID:         uuid.NewString(),
			QueryTime:       s.now().UTC(),
			QueryDurationMs: elapsed.Milliseconds(),
			ResultCount:     len(points),
			Limit:           limit,
			Total:           total,
		},
	}, nil
}

func (s *Service) logQuery(shape string, elapsed time.Duration, rows, limit, selected, enabled, applied int) {
	ev := s.log.Debug()
	if s.opts.SlowQuery > 0 && elapsed > s.opts.SlowQuery {
		ev = s.log.Info()
	}
	ev.Str("shape", shape).
		Int64("durationMs", elapsed.Milliseconds()).
		Int("rows", rows).
		Int("limit", limit).
		Int("selectedBssids", selected).
		Int("enabledCount", enabled).
		Int("appliedCount", applied).
		Msg("filtered query")
}

func categoriesOf(applied []filterquery.AppliedFilter) []string {
	out := make([]string, 0, len(applied))
	for _, a := range applied {
		out = append(out, string(a.Type))
	}
	return out
}
