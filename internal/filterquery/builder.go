package filterquery

import (
	"fmt"
	"strings"
)

// AppliedFilter records a filter that contributed a predicate.
type AppliedFilter struct {
	Type  Category `json:"type"`
	Field string   `json:"field"`
	Value any      `json:"value"`
}

// Reasons an enabled filter did not fire.
const (
	ReasonEnabledWithoutValue = "enabled_without_value"
	ReasonIncompleteValue     = "incomplete_value"
	ReasonNoRecognizedValues  = "no_recognized_values"
	ReasonNetworkOnly         = "network_only"
	ReasonRequiresTimeframe   = "requires_timeframe"
	ReasonUnsupported         = "unsupported_backend"
)

// IgnoredFilter records an enabled filter that produced no predicate.
type IgnoredFilter struct {
	Type   Category `json:"type"`
	Field  string   `json:"field"`
	Reason string   `json:"reason"`
}

// Fragments is the composable form of the observation filters. Where entries
// are ANDed; joins are already deduplicated.
type Fragments struct {
	Where []string `json:"where"`
	Joins []string `json:"joins"`
}

// QueryResult is a statement and its positional parameters.
type QueryResult struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

// BuildResult is a full statement plus the filter audit trail.
type BuildResult struct {
	SQL            string          `json:"sql"`
	Params         []any           `json:"params"`
	AppliedFilters []AppliedFilter `json:"appliedFilters"`
	IgnoredFilters []IgnoredFilter `json:"ignoredFilters"`
	Warnings       []string        `json:"warnings"`
}

// NetworkListOptions shapes the paginated network list. Nil Limit means no
// cap; nil Offset means no OFFSET clause. OrderBy must come from ParseOrderBy.
type NetworkListOptions struct {
	Limit   *int
	Offset  *int
	OrderBy OrderBy
}

// GeospatialOptions shapes the point export.
type GeospatialOptions struct {
	Limit          *int
	SelectedBSSIDs []string
}

// buildContext is the mutable state of one build pass.
type buildContext struct {
	rel     *relation
	filters Filters
	enabled Enabled
	// skip excludes keys that another pass over a different relation owns.
	skip func(Key) bool

	params       paramList
	where        []string
	joins        []join
	applied      []AppliedFilter
	ignored      []IgnoredFilter
	warnings     []string
	requiresHome bool
}

func (c *buildContext) addWhere(clauses ...string) {
	c.where = append(c.where, clauses...)
}

func (c *buildContext) addJoin(j join) {
	for _, existing := range c.joins {
		if existing.table == j.table {
			return
		}
	}
	c.joins = append(c.joins, j)
}

func (c *buildContext) apply(k Key, value any) {
	c.applyField(k.Category(), string(k), value)
}

func (c *buildContext) applyField(cat Category, field string, value any) {
	c.applied = append(c.applied, AppliedFilter{Type: cat, Field: field, Value: value})
}

func (c *buildContext) ignore(k Key, reason string) {
	c.ignored = append(c.ignored, IgnoredFilter{Type: k.Category(), Field: string(k), Reason: reason})
}

func (c *buildContext) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// gate reports whether k should be evaluated against the current relation,
// recording why not when it is enabled but cannot fire.
func (c *buildContext) gate(k Key) bool {
	if !c.enabled[k] || (c.skip != nil && c.skip(k)) {
		return false
	}
	if !c.filters.Has(k) {
		c.ignore(k, ReasonEnabledWithoutValue)
		return false
	}
	if k.NetworkOnly() && !c.rel.aggregated {
		c.ignore(k, ReasonNetworkOnly)
		return false
	}
	return true
}

func (c *buildContext) whereClause() string {
	if len(c.where) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(c.where, "\n  AND ")
}

func (c *buildContext) joinClause() string {
	parts := make([]string, 0, len(c.joins))
	for _, j := range c.joins {
		parts = append(parts, j.sql)
	}
	return strings.Join(parts, "\n")
}

var categoryKeys = func() map[Category][]Key {
	m := make(map[Category][]Key, len(Categories))
	for _, c := range Categories {
		m[c] = keysIn(c)
	}
	return m
}()

// evaluate runs every category in order against the context's relation.
func evaluate(c *buildContext) {
	for _, cat := range Categories {
		for _, k := range categoryKeys[cat] {
			if !c.gate(k) {
				continue
			}
			switch cat {
			case CategoryIdentity:
				applyIdentity(c, k)
			case CategoryRadio:
				applyRadio(c, k)
			case CategorySecurity:
				applySecurity(c, k)
			case CategoryTemporal:
				applyTemporal(c, k)
			case CategorySpatial:
				applySpatial(c, k)
			case CategoryQuality:
				applyQuality(c, k)
			case CategoryThreat:
				applyThreat(c, k)
			}
		}
	}
}

// Builder compiles one request's filters. It is not safe for concurrent
// use; each build call replaces the state read by Params, AppliedFilters and
// RequiresHome.
type Builder struct {
	filters Filters
	enabled Enabled
	last    *buildContext
}

// NewBuilder returns a builder over f, with filters toggled by enabled.
func NewBuilder(f Filters, enabled Enabled) *Builder {
	if enabled == nil {
		enabled = Enabled{}
	}
	return &Builder{filters: f, enabled: enabled}
}

func (b *Builder) run(rel *relation) *buildContext {
	c := &buildContext{rel: rel, filters: b.filters, enabled: b.enabled}
	evaluate(c)
	b.last = c
	return c
}

// Params returns the positional parameters of the most recent build.
func (b *Builder) Params() []any {
	if b.last == nil {
		return []any{}
	}
	return b.last.params.snapshot()
}

// AppliedFilters returns the filters that fired in the most recent build.
func (b *Builder) AppliedFilters() []AppliedFilter {
	if b.last == nil {
		return []AppliedFilter{}
	}
	return nonNil(b.last.applied)
}

// IgnoredFilters returns enabled filters that did not fire in the most
// recent build.
func (b *Builder) IgnoredFilters() []IgnoredFilter {
	if b.last == nil {
		return []IgnoredFilter{}
	}
	return nonNil(b.last.ignored)
}

// Warnings returns non-fatal notes from the most recent build.
func (b *Builder) Warnings() []string {
	if b.last == nil {
		return []string{}
	}
	return nonNil(b.last.warnings)
}

// RequiresHome reports whether the most recent build references the home
// marker. Callers must confirm the marker exists before executing.
func (b *Builder) RequiresHome() bool {
	return b.last != nil && b.last.requiresHome
}

// EnabledCount counts enabled keys from the known vocabulary that are
// reported in the audit trail. excludeInvalidCoords only toggles coordinate
// sanity predicates and is never echoed, so it is not counted.
func (b *Builder) EnabledCount() int {
	n := 0
	for _, k := range AllKeys {
		if b.enabled[k] && k != KeyExcludeInvalidCoords {
			n++
		}
	}
	return n
}

// BuildObservationFilters returns WHERE and JOIN fragments over the raw
// observation relation aliased o.
func (b *Builder) BuildObservationFilters() Fragments {
	c := b.run(observationRelation)
	joins := make([]string, 0, len(c.joins))
	for _, j := range c.joins {
		joins = append(joins, j.sql)
	}
	return Fragments{Where: nonNil(c.where), Joins: joins}
}

// NetworkColumns is the projection of the network list, in scan order.
const NetworkColumns = `ne.bssid,
  ne.ssid,
  ne.type,
  ne.security,
  ne.frequency,
  ne.capabilities,
  ne.observations,
  ne.first_seen,
  ne.last_seen,
  ne.signal,
  ne.lat,
  ne.lon,
  ne.accuracy_meters,
  ne.manufacturer,
  ne.distance_from_home_km,
  ne.stationary_confidence,
  ne.threat`

// BuildNetworkListQuery returns the paginated network list over the
// aggregated relation aliased ne.
func (b *Builder) BuildNetworkListQuery(opts NetworkListOptions) BuildResult {
	c := b.run(networkRelation)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(NetworkColumns)
	sb.WriteString("\nFROM ")
	sb.WriteString(c.rel.from)
	writeLine(&sb, c.joinClause())
	writeLine(&sb, c.whereClause())
	sb.WriteString("\nORDER BY ")
	sb.WriteString(opts.OrderBy.String())
	if opts.Limit != nil {
		sb.WriteString("\nLIMIT ")
		sb.WriteString(c.params.add(*opts.Limit))
	}
	if opts.Offset != nil {
		sb.WriteString("\nOFFSET ")
		sb.WriteString(c.params.add(*opts.Offset))
	}
	return c.result(sb.String())
}

// BuildNetworkCountQuery counts the rows BuildNetworkListQuery would page
// through.
func (b *Builder) BuildNetworkCountQuery() QueryResult {
	c := b.run(networkRelation)

	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) AS total\nFROM ")
	sb.WriteString(c.rel.from)
	writeLine(&sb, c.joinClause())
	writeLine(&sb, c.whereClause())
	return QueryResult{SQL: sb.String(), Params: c.params.snapshot()}
}

// GeospatialColumns is the projection of the point export, in scan order.
var GeospatialColumns = `o.bssid,
  o.ssid,
  o.lat,
  o.lon,
  o.level,
  o.accuracy,
  o.time,
  o.radio_frequency,
  o.radio_capabilities,
  ` + observationRelation.radioType + ` AS radio_type,
  o.altitude,
  ` + observationRelation.security + ` AS security,
  ROW_NUMBER() OVER (PARTITION BY o.bssid ORDER BY o.time) AS obs_number,
  ne.threat`

// GeospatialCountOptions narrows the geospatial count like GeospatialOptions.
type GeospatialCountOptions struct {
	SelectedBSSIDs []string
}

// geospatial runs the observation pass and prepends the point-export
// predicates: sentinel and missing BSSIDs and points without coordinates are
// always excluded.
func (b *Builder) geospatial(selected []string) *buildContext {
	c := b.run(observationRelation)
	c.addJoin(join{
		table: "public.api_network_explorer",
		sql:   "LEFT JOIN public.api_network_explorer ne ON ne.bssid = o.bssid",
	})

	where := append([]string{
		"o.bssid IS NOT NULL",
		"o.bssid NOT IN ('00:00:00:00:00:00', 'FF:FF:FF:FF:FF:FF')",
		"o.lat IS NOT NULL",
		"o.lon IS NOT NULL",
	}, c.where...)
	if len(selected) > 0 {
		upper := make([]string, 0, len(selected))
		for _, s := range selected {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				upper = append(upper, s)
			}
		}
		if len(upper) > 0 {
			where = append(where, "UPPER(o.bssid) = ANY("+c.params.add(upper)+")")
		}
	}
	c.where = where
	return c
}

// BuildGeospatialQuery returns observation points for map export.
func (b *Builder) BuildGeospatialQuery(opts GeospatialOptions) BuildResult {
	c := b.geospatial(opts.SelectedBSSIDs)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(GeospatialColumns)
	sb.WriteString("\nFROM ")
	sb.WriteString(c.rel.from)
	writeLine(&sb, c.joinClause())
	writeLine(&sb, c.whereClause())
	sb.WriteString("\nORDER BY o.time ASC")
	if opts.Limit != nil {
		sb.WriteString("\nLIMIT ")
		sb.WriteString(c.params.add(*opts.Limit))
	}
	return c.result(sb.String())
}

// BuildGeospatialCountQuery counts the points BuildGeospatialQuery would
// return without a limit.
func (b *Builder) BuildGeospatialCountQuery(opts GeospatialCountOptions) QueryResult {
	c := b.geospatial(opts.SelectedBSSIDs)

	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) AS total\nFROM ")
	sb.WriteString(c.rel.from)
	writeLine(&sb, c.joinClause())
	writeLine(&sb, c.whereClause())
	return QueryResult{SQL: sb.String(), Params: c.params.snapshot()}
}

func (c *buildContext) result(sql string) BuildResult {
	return BuildResult{
		SQL:            sql,
		Params:         c.params.snapshot(),
		AppliedFilters: nonNil(c.applied),
		IgnoredFilters: nonNil(c.ignored),
		Warnings:       nonNil(c.warnings),
	}
}

func writeLine(sb *strings.Builder, s string) {
	if s == "" {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(s)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
