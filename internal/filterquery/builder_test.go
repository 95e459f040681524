package filterquery

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

func newTestBuilder(t *testing.T, filters, enabled string) *Builder {
	t.Helper()
	f, err := DecodeFilters(filters)
	if err != nil {
		t.Fatalf("decode filters: %v", err)
	}
	e, err := DecodeEnabled(enabled)
	if err != nil {
		t.Fatalf("decode enabled: %v", err)
	}
	return NewBuilder(f, e)
}

func containsClause(clauses []string, want string) bool {
	for _, c := range clauses {
		if strings.Contains(c, want) {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// maxPlaceholder returns the highest $n referenced by sql.
func maxPlaceholder(sql string) int {
	max := 0
	for _, m := range placeholderPattern.FindAllStringSubmatch(sql, -1) {
		n, _ := strconv.Atoi(m[1])
		if n > max {
			max = n
		}
	}
	return max
}

func TestBuildObservationFilters_RadioTypesWithInvalidCoords(t *testing.T) {
	b := newTestBuilder(t,
		`{"radioTypes":["W"],"excludeInvalidCoords":true}`,
		`{"radioTypes":true,"excludeInvalidCoords":true}`)

	frag := b.BuildObservationFilters()

	if !containsClause(frag.Where, "= ANY($1)") {
		t.Fatalf("expected ANY radio type predicate, got %v", frag.Where)
	}
	for _, want := range []string{
		"o.lat IS NOT NULL",
		"o.lon IS NOT NULL",
		"o.lat BETWEEN -90 AND 90",
		"o.lon BETWEEN -180 AND 180",
	} {
		found := false
		for _, w := range frag.Where {
			if w == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected verbatim %q in %v", want, frag.Where)
		}
	}
	if len(frag.Joins) != 0 {
		t.Fatalf("expected no joins, got %v", frag.Joins)
	}

	params := b.Params()
	if len(params) != 1 || !reflect.DeepEqual(params[0], []string{"W"}) {
		t.Fatalf("expected params [[W]], got %#v", params)
	}
	applied := b.AppliedFilters()
	if len(applied) != 1 {
		t.Fatalf("expected exactly one applied filter, got %#v", applied)
	}
	if applied[0].Type != CategoryRadio || applied[0].Field != "radioTypes" {
		t.Fatalf("unexpected applied filter %#v", applied[0])
	}
}

func TestBuild_DisabledOrEmptyFiltersAreNoOps(t *testing.T) {
	b := newTestBuilder(t,
		`{"rssiMin":-70,"ssid":"","radioTypes":[],"bssid":"AA:BB"}`,
		`{"rssiMin":false,"ssid":true,"radioTypes":true}`)

	frag := b.BuildObservationFilters()
	if len(frag.Where) != 0 || len(frag.Joins) != 0 {
		t.Fatalf("expected empty fragments, got %#v", frag)
	}
	if len(b.Params()) != 0 || len(b.AppliedFilters()) != 0 {
		t.Fatalf("expected no params/applied, got %v %v", b.Params(), b.AppliedFilters())
	}

	ignored := b.IgnoredFilters()
	if len(ignored) != 2 {
		t.Fatalf("expected 2 ignored filters, got %#v", ignored)
	}
	for _, ig := range ignored {
		if ig.Reason != ReasonEnabledWithoutValue {
			t.Fatalf("expected enabled_without_value, got %#v", ig)
		}
	}

	list := b.BuildNetworkListQuery(NetworkListOptions{})
	if strings.Contains(list.SQL, "WHERE") || len(list.Params) != 0 {
		t.Fatalf("expected unfiltered list query, got %s %v", list.SQL, list.Params)
	}
}

func TestBuild_BSSIDFullMACUsesEquality(t *testing.T) {
	b := newTestBuilder(t, `{"bssid":"aa:bb:cc:dd:ee:ff"}`, `{"bssid":true}`)
	frag := b.BuildObservationFilters()

	if len(frag.Where) != 1 || frag.Where[0] != "o.bssid = $1" {
		t.Fatalf("expected equality predicate, got %v", frag.Where)
	}
	if got := b.Params(); len(got) != 1 || got[0] != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("expected uppercased MAC param, got %v", got)
	}
}

func TestBuild_BSSIDPartialUsesPrefixLike(t *testing.T) {
	for _, tc := range []struct {
		in    string
		param string
	}{
		{"AA:BB:CC", "AA:BB:CC%"},
		{"aa:bb:cc:dd:ee", "AA:BB:CC:DD:EE%"},
		{"AA_B", `AA\_B%`},
	} {
		b := newTestBuilder(t, `{"bssid":"`+tc.in+`"}`, `{"bssid":true}`)
		frag := b.BuildObservationFilters()
		if len(frag.Where) != 1 || !strings.Contains(frag.Where[0], "LIKE $1") {
			t.Fatalf("%s: expected LIKE predicate, got %v", tc.in, frag.Where)
		}
		if got := b.Params(); len(got) != 1 || got[0] != tc.param {
			t.Fatalf("%s: expected param %q, got %v", tc.in, tc.param, got)
		}
	}
}

func TestBuild_ManufacturerOUIJoinsLookupOnce(t *testing.T) {
	b := newTestBuilder(t, `{"manufacturer":"00a0c9"}`, `{"manufacturer":true}`)
	frag := b.BuildObservationFilters()

	if len(frag.Joins) != 1 || !strings.Contains(frag.Joins[0], "app.radio_manufacturers rm") {
		t.Fatalf("expected one manufacturer join, got %v", frag.Joins)
	}
	if !containsClause(frag.Where, "rm.prefix_24bit = $1") {
		t.Fatalf("expected OUI predicate, got %v", frag.Where)
	}
	if got := b.Params(); got[0] != "00A0C9" {
		t.Fatalf("expected uppercased OUI, got %v", got)
	}
	if applied := b.AppliedFilters(); applied[0].Field != "manufacturerOui" {
		t.Fatalf("expected manufacturerOui field, got %#v", applied)
	}

	b = newTestBuilder(t, `{"manufacturer":"Cisco"}`, `{"manufacturer":true}`)
	frag = b.BuildObservationFilters()
	if !containsClause(frag.Where, "rm.organization_name ILIKE $1") {
		t.Fatalf("expected name predicate, got %v", frag.Where)
	}
	if applied := b.AppliedFilters(); applied[0].Field != "manufacturer" {
		t.Fatalf("expected manufacturer field, got %#v", applied)
	}
}

func TestBuildContext_JoinsDeduplicateByTable(t *testing.T) {
	c := &buildContext{rel: observationRelation}
	c.addJoin(homeJoin)
	c.addJoin(homeJoin)
	c.addJoin(observationRelation.manufacturerJoin)
	if len(c.joins) != 2 {
		t.Fatalf("expected 2 joins, got %d", len(c.joins))
	}
}

func TestBuild_DistanceFromHomeRequiresHome(t *testing.T) {
	b := newTestBuilder(t,
		`{"distanceFromHomeMin":0.5,"distanceFromHomeMax":10}`,
		`{"distanceFromHomeMin":true,"distanceFromHomeMax":true}`)

	if b.RequiresHome() {
		t.Fatalf("expected requiresHome false before any build")
	}
	frag := b.BuildObservationFilters()
	if !b.RequiresHome() {
		t.Fatalf("expected requiresHome after build")
	}
	if !containsClause(frag.Where, "ST_Distance") {
		t.Fatalf("expected ST_Distance predicate, got %v", frag.Where)
	}
	if len(frag.Joins) != 1 || !strings.Contains(frag.Joins[0], "marker_type = 'home'") {
		t.Fatalf("expected a single home join, got %v", frag.Joins)
	}
	if got := b.Params(); !reflect.DeepEqual(got, []any{0.5, 10.0}) {
		t.Fatalf("unexpected params %v", got)
	}

	list := b.BuildNetworkListQuery(NetworkListOptions{})
	if !b.RequiresHome() || !strings.Contains(list.SQL, "ST_Distance") {
		t.Fatalf("expected network list to require home, got %s", list.SQL)
	}
}

func TestBuild_ObservationCountOnlyAffectsNetworkList(t *testing.T) {
	b := newTestBuilder(t, `{"observationCountMin":10}`, `{"observationCountMin":true}`)

	frag := b.BuildObservationFilters()
	if len(frag.Where) != 0 || len(b.Params()) != 0 || len(b.AppliedFilters()) != 0 {
		t.Fatalf("expected no observation effect, got %v %v", frag.Where, b.Params())
	}
	if ig := b.IgnoredFilters(); len(ig) != 1 || ig[0].Reason != ReasonNetworkOnly {
		t.Fatalf("expected network_only ignore, got %#v", ig)
	}

	list := b.BuildNetworkListQuery(NetworkListOptions{})
	if !strings.Contains(list.SQL, "ne.observations >= $1") {
		t.Fatalf("expected observation count predicate, got %s", list.SQL)
	}
	if len(list.Params) != 1 || list.Params[0] != 10 {
		t.Fatalf("expected params [10], got %v", list.Params)
	}
	if len(list.AppliedFilters) != 1 || list.AppliedFilters[0].Type != CategoryQuality {
		t.Fatalf("unexpected applied filters %#v", list.AppliedFilters)
	}
}

func TestBuild_ThreatCategoriesEchoRawValueAndMatchMappedLevel(t *testing.T) {
	b := newTestBuilder(t, `{"threatCategories":["critical"]}`, `{"threatCategories":true}`)
	list := b.BuildNetworkListQuery(NetworkListOptions{})

	if !strings.Contains(list.SQL, "(ne.threat->>'level') = ANY($1)") {
		t.Fatalf("expected threat level predicate, got %s", list.SQL)
	}
	if !reflect.DeepEqual(list.Params, []any{[]string{"HIGH"}}) {
		t.Fatalf("expected mapped HIGH param, got %#v", list.Params)
	}
	applied := list.AppliedFilters
	if len(applied) != 1 || applied[0].Type != CategoryThreat || !reflect.DeepEqual(applied[0].Value, []string{"critical"}) {
		t.Fatalf("expected raw critical echo, got %#v", applied)
	}
}

func TestBuild_RadiusFilterParamOrder(t *testing.T) {
	b := newTestBuilder(t,
		`{"radiusFilter":{"latitude":43.6,"longitude":-79.4,"radiusMeters":250}}`,
		`{"radiusFilter":true}`)
	frag := b.BuildObservationFilters()

	if !containsClause(frag.Where, "ST_DWithin(") || !containsClause(frag.Where, "ST_MakePoint($2, $1)") {
		t.Fatalf("unexpected radius predicate %v", frag.Where)
	}
	if got := b.Params(); !reflect.DeepEqual(got, []any{43.6, -79.4, 250.0}) {
		t.Fatalf("expected lat, lon, radius params, got %v", got)
	}
}

func TestBuild_IncompleteStructuredFiltersAreSkipped(t *testing.T) {
	b := newTestBuilder(t,
		`{"boundingBox":{"south":1,"east":2,"west":0},"radiusFilter":{"latitude":1}}`,
		`{"boundingBox":true,"radiusFilter":true}`)
	frag := b.BuildObservationFilters()

	if len(frag.Where) != 0 || len(b.Params()) != 0 {
		t.Fatalf("expected nothing emitted, got %v %v", frag.Where, b.Params())
	}
	ignored := b.IgnoredFilters()
	if len(ignored) != 2 || ignored[0].Reason != ReasonIncompleteValue {
		t.Fatalf("expected incomplete_value ignores, got %#v", ignored)
	}
}

func TestBuild_BoundingBox(t *testing.T) {
	b := newTestBuilder(t,
		`{"boundingBox":{"north":44,"south":43,"east":-79,"west":-80}}`,
		`{"boundingBox":true}`)
	frag := b.BuildObservationFilters()

	want := []string{"o.lat <= $1", "o.lat >= $2", "o.lon <= $3", "o.lon >= $4"}
	if !reflect.DeepEqual(frag.Where, want) {
		t.Fatalf("expected %v, got %v", want, frag.Where)
	}
	if got := b.Params(); !reflect.DeepEqual(got, []any{44.0, 43.0, -79.0, -80.0}) {
		t.Fatalf("unexpected params %v", got)
	}
}

func TestBuild_TemporalScopeSelectsRelation(t *testing.T) {
	b := newTestBuilder(t, `{"timeframe":{"type":"relative","relativeWindow":"7d"}}`, `{"timeframe":true}`)
	frag := b.BuildObservationFilters()
	if !reflect.DeepEqual(frag.Where, []string{"o.time >= NOW() - $1::text::interval"}) || len(frag.Joins) != 0 {
		t.Fatalf("unexpected observation_time fragments %#v", frag)
	}
	if got := b.Params(); got[0] != "7 days" {
		t.Fatalf("expected interval param, got %v", got)
	}

	b = newTestBuilder(t,
		`{"timeframe":"30d","temporalScope":"network_lifetime"}`,
		`{"timeframe":true,"temporalScope":true}`)
	frag = b.BuildObservationFilters()
	if len(frag.Joins) != 1 || frag.Joins[0] != "JOIN public.access_points ap ON ap.bssid = o.bssid" {
		t.Fatalf("expected access point join, got %v", frag.Joins)
	}
	if !containsClause(frag.Where, "ap.last_seen >= NOW()") {
		t.Fatalf("expected lifetime predicate, got %v", frag.Where)
	}
	applied := b.AppliedFilters()
	if len(applied) != 2 || applied[1].Field != "temporalScope" || applied[1].Value != "network_lifetime" {
		t.Fatalf("unexpected applied filters %#v", applied)
	}

	list := b.BuildNetworkListQuery(NetworkListOptions{})
	if strings.Contains(list.SQL, "access_points") || !strings.Contains(list.SQL, "ne.last_seen >= NOW()") {
		t.Fatalf("expected network relation lifetime columns, got %s", list.SQL)
	}
}

func TestBuild_AbsoluteTimeframeAndThreatWindow(t *testing.T) {
	b := newTestBuilder(t,
		`{"timeframe":{"type":"absolute","startTimestamp":"2025-01-01T00:00:00Z","endTimestamp":"2025-02-01T00:00:00Z"},"temporalScope":"threat_window"}`,
		`{"timeframe":true,"temporalScope":true}`)
	frag := b.BuildObservationFilters()

	if !reflect.DeepEqual(frag.Where, []string{"o.time >= $1", "o.time <= $2"}) {
		t.Fatalf("unexpected absolute predicates %v", frag.Where)
	}
	if len(b.Warnings()) != 1 {
		t.Fatalf("expected threat_window warning, got %v", b.Warnings())
	}

	b = newTestBuilder(t, `{"timeframe":"all"}`, `{"timeframe":true}`)
	if frag := b.BuildObservationFilters(); len(frag.Where) != 0 {
		t.Fatalf("expected unbounded window to emit nothing, got %v", frag.Where)
	}
	if applied := b.AppliedFilters(); len(applied) != 1 || applied[0].Field != "timeframe" {
		t.Fatalf("expected unbounded timeframe to be echoed as applied, got %#v", applied)
	}
}

func TestBuild_UnusableTimeframeIgnoresDependentScope(t *testing.T) {
	b := newTestBuilder(t,
		`{"timeframe":{"type":"relative","relativeWindow":"forever"},"temporalScope":"network_lifetime"}`,
		`{"timeframe":true,"temporalScope":true}`)
	frag := b.BuildObservationFilters()

	if len(frag.Where) != 0 || len(frag.Joins) != 0 {
		t.Fatalf("expected nothing emitted, got %#v", frag)
	}
	want := []IgnoredFilter{
		{Type: CategoryTemporal, Field: "timeframe", Reason: ReasonIncompleteValue},
		{Type: CategoryTemporal, Field: "temporalScope", Reason: ReasonRequiresTimeframe},
	}
	if got := b.IgnoredFilters(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %#v, got %#v", want, got)
	}
}

func TestBuild_EveryCountedKeyIsAppliedOrIgnored(t *testing.T) {
	b := newTestBuilder(t, everyFilter, enableAll())

	for name, run := range map[string]func(){
		"observations": func() { b.BuildObservationFilters() },
		"networks":     func() { b.BuildNetworkListQuery(NetworkListOptions{}) },
		"geospatial":   func() { b.BuildGeospatialQuery(GeospatialOptions{}) },
	} {
		run()
		seen := make(map[string]int)
		for _, a := range b.AppliedFilters() {
			seen[a.Field]++
		}
		for _, ig := range b.IgnoredFilters() {
			seen[ig.Field]++
		}
		if len(seen) != b.EnabledCount() {
			t.Fatalf("%s: %d enabled keys but %d reported: %v", name, b.EnabledCount(), len(seen), seen)
		}
		for field, n := range seen {
			if n != 1 {
				t.Fatalf("%s: %s reported %d times", name, field, n)
			}
		}
		if seen[string(KeyExcludeInvalidCoords)] != 0 {
			t.Fatalf("%s: excludeInvalidCoords must not be echoed", name)
		}
	}
}

func TestBuilder_EnabledCountSkipsCoordinateSanity(t *testing.T) {
	b := newTestBuilder(t, `{"excludeInvalidCoords":true,"ssid":"x"}`, `{"excludeInvalidCoords":true,"ssid":true,"nope":true}`)
	if got := b.EnabledCount(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestBuild_SecurityFiltersUseOnePlaceholderPerLabel(t *testing.T) {
	b := newTestBuilder(t,
		`{"authMethods":["Enterprise"],"insecureFlags":["open"],"securityFlags":["bogus"]}`,
		`{"authMethods":true,"insecureFlags":true,"securityFlags":true}`)
	frag := b.BuildObservationFilters()

	if len(frag.Where) != 2 {
		t.Fatalf("expected two security predicates, got %v", frag.Where)
	}
	if !strings.HasSuffix(frag.Where[0], "IN ($1, $2)") || !strings.HasSuffix(frag.Where[1], "IN ($3)") {
		t.Fatalf("unexpected placeholders %v", frag.Where)
	}
	if got := b.Params(); !reflect.DeepEqual(got, []any{"WPA2-E", "WPA3-E", "OPEN"}) {
		t.Fatalf("unexpected params %v", got)
	}
	if ig := b.IgnoredFilters(); len(ig) != 1 || ig[0].Field != "securityFlags" || ig[0].Reason != ReasonNoRecognizedValues {
		t.Fatalf("expected unrecognized securityFlags ignore, got %#v", ig)
	}
}

func TestBuild_SecurityKeysComposeByAnd(t *testing.T) {
	b := newTestBuilder(t,
		`{"encryptionTypes":["WPA2","WPA3"],"authMethods":["PSK"]}`,
		`{"encryptionTypes":true,"authMethods":true}`)
	frag := b.BuildObservationFilters()

	if len(frag.Where) != 2 {
		t.Fatalf("expected one ANDed entry per security key, got %v", frag.Where)
	}
	if !strings.HasSuffix(frag.Where[0], "IN ($1, $2, $3, $4)") || !strings.HasSuffix(frag.Where[1], "IN ($5, $6, $7)") {
		t.Fatalf("unexpected placeholders %v", frag.Where)
	}
	if got := len(b.AppliedFilters()); got != 2 {
		t.Fatalf("expected both keys applied, got %d", got)
	}
}

func TestBuild_FrequencyBandsAreParameterFree(t *testing.T) {
	b := newTestBuilder(t, `{"frequencyBands":["2.4GHz","5GHz"]}`, `{"frequencyBands":true}`)
	frag := b.BuildObservationFilters()

	want := "(o.radio_frequency BETWEEN 2412 AND 2484 OR o.radio_frequency BETWEEN 5000 AND 5900)"
	if len(frag.Where) != 1 || frag.Where[0] != want {
		t.Fatalf("expected %q, got %v", want, frag.Where)
	}
	if len(b.Params()) != 0 {
		t.Fatalf("expected no params, got %v", b.Params())
	}
}

func TestBuildNetworkListQuery_LimitAndOffset(t *testing.T) {
	b := newTestBuilder(t, `{"rssiMin":-80}`, `{"rssiMin":true}`)

	res := b.BuildNetworkListQuery(NetworkListOptions{Limit: intPtr(50), Offset: intPtr(100)})
	if !strings.HasSuffix(res.SQL, "ORDER BY ne.last_seen DESC NULLS LAST\nLIMIT $2\nOFFSET $3") {
		t.Fatalf("unexpected tail: %s", res.SQL)
	}
	if !reflect.DeepEqual(res.Params, []any{-80.0, 50, 100}) {
		t.Fatalf("unexpected params %v", res.Params)
	}

	res = b.BuildNetworkListQuery(NetworkListOptions{})
	if strings.Contains(res.SQL, "LIMIT") || strings.Contains(res.SQL, "OFFSET") {
		t.Fatalf("expected no pagination clauses, got %s", res.SQL)
	}

	count := b.BuildNetworkCountQuery()
	if !strings.HasPrefix(count.SQL, "SELECT COUNT(*) AS total") || !reflect.DeepEqual(count.Params, []any{-80.0}) {
		t.Fatalf("unexpected count query %s %v", count.SQL, count.Params)
	}
}

func TestBuildGeospatialQuery_Shape(t *testing.T) {
	b := newTestBuilder(t, `{"radioTypes":["W","E"]}`, `{"radioTypes":true}`)
	res := b.BuildGeospatialQuery(GeospatialOptions{Limit: intPtr(5000), SelectedBSSIDs: []string{"aa:bb:cc:dd:ee:ff"}})

	for _, want := range []string{
		"FROM public.observations o",
		"LEFT JOIN public.api_network_explorer ne ON ne.bssid = o.bssid",
		"o.bssid NOT IN ('00:00:00:00:00:00', 'FF:FF:FF:FF:FF:FF')",
		"UPPER(o.bssid) = ANY($2)",
		"ORDER BY o.time ASC\nLIMIT $3",
	} {
		if !strings.Contains(res.SQL, want) {
			t.Fatalf("expected %q in %s", want, res.SQL)
		}
	}
	if strings.Contains(res.SQL, "OFFSET") {
		t.Fatalf("geospatial query must not paginate by offset")
	}
	want := []any{[]string{"W", "E"}, []string{"AA:BB:CC:DD:EE:FF"}, 5000}
	if !reflect.DeepEqual(res.Params, want) {
		t.Fatalf("expected %#v, got %#v", want, res.Params)
	}
}

const everyFilter = `{
  "ssid":"cafe","bssid":"AA:BB","manufacturer":"Apple","radioTypes":["W"],"frequencyBands":["6GHz","BLE"],
  "channelMin":1,"channelMax":11,"rssiMin":-90,"rssiMax":-20,"encryptionTypes":["WPA2","WEP"],
  "authMethods":["PSK"],"insecureFlags":["wps"],"securityFlags":["personal"],
  "timeframe":{"type":"absolute","startTimestamp":"2025-01-01T00:00:00Z"},"temporalScope":"network_lifetime",
  "distanceFromHomeMin":1,"distanceFromHomeMax":5,"boundingBox":{"north":50,"south":40,"east":-70,"west":-80},
  "radiusFilter":{"latitude":45,"longitude":-75,"radiusMeters":1000},"gpsAccuracyMax":50,"excludeInvalidCoords":true,
  "observationCountMin":2,"observationCountMax":500,"threatScoreMin":10,"threatScoreMax":90,
  "threatCategories":["high","low"],"stationaryConfidenceMin":0.1,"stationaryConfidenceMax":0.9
}`

func enableAll() string {
	parts := make([]string, 0, len(AllKeys))
	for _, k := range AllKeys {
		parts = append(parts, `"`+string(k)+`":true`)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func TestBuild_PlaceholdersMatchParams(t *testing.T) {
	b := newTestBuilder(t, everyFilter, enableAll())

	list := b.BuildNetworkListQuery(NetworkListOptions{Limit: intPtr(10), Offset: intPtr(0)})
	if got := maxPlaceholder(list.SQL); got != len(list.Params) {
		t.Fatalf("list: highest placeholder $%d but %d params", got, len(list.Params))
	}
	geo := b.BuildGeospatialQuery(GeospatialOptions{Limit: intPtr(10), SelectedBSSIDs: []string{"x"}})
	if got := maxPlaceholder(geo.SQL); got != len(geo.Params) {
		t.Fatalf("geo: highest placeholder $%d but %d params", got, len(geo.Params))
	}
	frag := b.BuildObservationFilters()
	if got := maxPlaceholder(strings.Join(frag.Where, " ")); got != len(b.Params()) {
		t.Fatalf("fragments: highest placeholder $%d but %d params", got, len(b.Params()))
	}
	if len(list.AppliedFilters) <= len(b.AppliedFilters()) {
		t.Fatalf("expected network list to apply more filters than observations")
	}
}

func TestBuild_IsDeterministic(t *testing.T) {
	first := newTestBuilder(t, everyFilter, enableAll())
	second := newTestBuilder(t, everyFilter, enableAll())

	a := first.BuildNetworkListQuery(NetworkListOptions{Limit: intPtr(25)})
	b := second.BuildNetworkListQuery(NetworkListOptions{Limit: intPtr(25)})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical network list builds")
	}
	fa := first.BuildObservationFilters()
	fb := second.BuildObservationFilters()
	if !reflect.DeepEqual(fa, fb) || !reflect.DeepEqual(first.Params(), second.Params()) {
		t.Fatalf("expected identical observation fragments")
	}
}

func TestBuild_NoFilterValueIsInterpolated(t *testing.T) {
	b := newTestBuilder(t,
		`{"ssid":"x'; DROP TABLE observations; --","manufacturer":"Robert'); --"}`,
		`{"ssid":true,"manufacturer":true}`)
	res := b.BuildNetworkListQuery(NetworkListOptions{})
	if strings.Contains(res.SQL, "DROP TABLE") || strings.Contains(res.SQL, "Robert") {
		t.Fatalf("filter value leaked into SQL: %s", res.SQL)
	}
}
