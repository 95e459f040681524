package filterquery

// join is a JOIN clause keyed by the relation it brings in, so two filters
// needing the same table share one clause.
type join struct {
	table string
	sql   string
}

const homeJoinSQL = "CROSS JOIN (SELECT ST_SetSRID(location::geometry, 4326)::geography AS home_point " +
	"FROM app.location_markers WHERE marker_type = 'home' LIMIT 1) home"

var homeJoin = join{table: "app.location_markers", sql: homeJoinSQL}

// relation describes the columns one build shape filters on.
type relation struct {
	alias string
	from  string

	bssid, ssid, lat, lon string
	signal, accuracy      string
	frequency             string
	radioType, security   string
	point                 string

	observedAt          string
	lifetimeJoin        *join
	firstSeen, lastSeen string

	manufacturerJoin join
	// manufacturerName is matched by name; it needs manufacturerJoin when
	// nameViaJoin is set.
	manufacturerName string
	nameViaJoin      bool

	// Aggregated relations carry per-network columns.
	aggregated           bool
	observations         string
	threatScore          string
	threatLevel          string
	stationaryConfidence string
}

func manufacturerJoinFor(alias string) join {
	return join{
		table: "app.radio_manufacturers",
		sql: "LEFT JOIN app.radio_manufacturers rm ON rm.prefix_24bit = UPPER(REPLACE(SUBSTRING(" +
			alias + ".bssid, 1, 8), ':', ''))",
	}
}

var observationRelation = &relation{
	alias:      "o",
	from:       "public.observations o",
	bssid:      "o.bssid",
	ssid:       "o.ssid",
	lat:        "o.lat",
	lon:        "o.lon",
	signal:     "o.level",
	accuracy:   "o.accuracy",
	frequency:  "o.radio_frequency",
	radioType:  radioTypeExpr("o.radio_type", "o.ssid", "o.radio_frequency", "o.radio_capabilities"),
	security:   securityExpr("o.radio_capabilities"),
	point:      "COALESCE(o.geom::geography, ST_SetSRID(ST_MakePoint(o.lon, o.lat), 4326)::geography)",
	observedAt: "o.time",
	lifetimeJoin: &join{
		table: "public.access_points",
		sql:   "JOIN public.access_points ap ON ap.bssid = o.bssid",
	},
	firstSeen:        "ap.first_seen",
	lastSeen:         "ap.last_seen",
	manufacturerJoin: manufacturerJoinFor("o"),
	manufacturerName: "rm.organization_name",
	nameViaJoin:      true,
}

var networkRelation = &relation{
	alias:                "ne",
	from:                 "public.api_network_explorer ne",
	bssid:                "ne.bssid",
	ssid:                 "ne.ssid",
	lat:                  "ne.lat",
	lon:                  "ne.lon",
	signal:               "ne.signal",
	accuracy:             "ne.accuracy_meters",
	frequency:            "ne.frequency",
	radioType:            radioTypeExpr("ne.type", "ne.ssid", "ne.frequency", "ne.capabilities"),
	security:             securityExpr("COALESCE(NULLIF(ne.capabilities, ''), ne.security)"),
	point:                "ST_SetSRID(ST_MakePoint(ne.lon, ne.lat), 4326)::geography",
	observedAt:           "ne.last_seen",
	firstSeen:            "ne.first_seen",
	lastSeen:             "ne.last_seen",
	manufacturerJoin:     manufacturerJoinFor("ne"),
	manufacturerName:     "ne.manufacturer",
	aggregated:           true,
	observations:         "ne.observations",
	threatScore:          "(ne.threat->>'score')::numeric",
	threatLevel:          "(ne.threat->>'level')",
	stationaryConfidence: "ne.stationary_confidence",
}
