package filterquery

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	fullMACPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)
	ouiPattern     = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)
	windowPattern  = regexp.MustCompile(`^(\d{1,4})(h|d|w|mo|y)$`)
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func applyIdentity(c *buildContext, k Key) {
	f, rel := c.filters, c.rel
	switch k {
	case KeySSID:
		p := c.params.add("%" + likeEscaper.Replace(f.SSID) + "%")
		c.addWhere(fmt.Sprintf("%s ILIKE %s", rel.ssid, p))
		c.apply(k, f.SSID)
	case KeyBSSID:
		value := strings.ToUpper(f.BSSID)
		if fullMACPattern.MatchString(value) {
			value = strings.ReplaceAll(value, "-", ":")
			c.addWhere(fmt.Sprintf("%s = %s", rel.bssid, c.params.add(value)))
		} else {
			p := c.params.add(likeEscaper.Replace(value) + "%")
			c.addWhere(fmt.Sprintf("UPPER(%s) LIKE %s", rel.bssid, p))
		}
		c.apply(k, f.BSSID)
	case KeyManufacturer:
		if ouiPattern.MatchString(f.Manufacturer) {
			c.addJoin(rel.manufacturerJoin)
			c.addWhere("rm.prefix_24bit = " + c.params.add(strings.ToUpper(f.Manufacturer)))
			c.applyField(CategoryIdentity, "manufacturerOui", f.Manufacturer)
			return
		}
		if rel.nameViaJoin {
			c.addJoin(rel.manufacturerJoin)
		}
		p := c.params.add("%" + likeEscaper.Replace(f.Manufacturer) + "%")
		c.addWhere(fmt.Sprintf("%s ILIKE %s", rel.manufacturerName, p))
		c.apply(k, f.Manufacturer)
	case KeyNetworkID:
		c.ignore(k, ReasonUnsupported)
		c.warn("networkId filter is not supported by this backend")
	}
}

// bandPredicate returns the fixed predicate for a frequency band label.
func bandPredicate(rel *relation, label string) (string, bool) {
	switch strings.ToLower(strings.ReplaceAll(label, " ", "")) {
	case "2.4ghz", "2.4":
		return fmt.Sprintf("%s BETWEEN 2412 AND 2484", rel.frequency), true
	case "5ghz", "5":
		return fmt.Sprintf("%s BETWEEN 5000 AND 5900", rel.frequency), true
	case "6ghz", "6":
		return fmt.Sprintf("%s BETWEEN 5925 AND 7125", rel.frequency), true
	case "ble":
		return fmt.Sprintf("(%s) = '%s'", rel.radioType, RadioBLE), true
	case "cellular":
		return fmt.Sprintf("(%s) IN ('%s', '%s', '%s', '%s', '%s')",
			rel.radioType, RadioLTE, RadioGSM, RadioNR, RadioWCDMA, RadioCDMA), true
	default:
		return "", false
	}
}

func applyRadio(c *buildContext, k Key) {
	f, rel := c.filters, c.rel
	switch k {
	case KeyRadioTypes:
		types := append([]string(nil), f.RadioTypes...)
		c.addWhere(fmt.Sprintf("(%s) = ANY(%s)", rel.radioType, c.params.add(types)))
		c.apply(k, f.RadioTypes)
	case KeyFrequencyBands:
		var ors []string
		for _, label := range f.FrequencyBands {
			if pred, ok := bandPredicate(rel, label); ok {
				ors = append(ors, pred)
			}
		}
		if len(ors) == 0 {
			c.ignore(k, ReasonNoRecognizedValues)
			return
		}
		c.addWhere("(" + strings.Join(ors, " OR ") + ")")
		c.apply(k, f.FrequencyBands)
	case KeyChannelMin:
		c.addWhere(fmt.Sprintf("%s >= %s", channelExpr(rel.frequency), c.params.add(*f.ChannelMin)))
		c.apply(k, *f.ChannelMin)
	case KeyChannelMax:
		c.addWhere(fmt.Sprintf("%s <= %s", channelExpr(rel.frequency), c.params.add(*f.ChannelMax)))
		c.apply(k, *f.ChannelMax)
	case KeyRSSIMin:
		c.addWhere(fmt.Sprintf("%s >= %s", rel.signal, c.params.add(*f.RSSIMin)))
		c.apply(k, *f.RSSIMin)
	case KeyRSSIMax:
		c.addWhere(fmt.Sprintf("%s <= %s", rel.signal, c.params.add(*f.RSSIMax)))
		c.apply(k, *f.RSSIMax)
	}
}

var (
	encryptionLabels = map[string][]string{
		"OPEN": {SecurityOpen},
		"WEP":  {SecurityWEP},
		"WPA":  {SecurityWPA},
		"WPA2": {SecurityWPA2P, SecurityWPA2E},
		"WPA3": {SecurityWPA3P, SecurityWPA3E},
		"WPS":  {SecurityWPS},
	}
	authLabels = map[string][]string{
		"psk":        {SecurityWPA, SecurityWPA2P, SecurityWPA3P},
		"enterprise": {SecurityWPA2E, SecurityWPA3E},
		"sae":        {SecurityWPA3P},
		"none":       {SecurityOpen},
	}
	insecureLabels = map[string][]string{
		"open":       {SecurityOpen},
		"wep":        {SecurityWEP},
		"wps":        {SecurityWPS},
		"deprecated": {SecurityWEP, SecurityWPS},
	}
	securityFlagLabels = map[string][]string{
		"insecure":   {SecurityOpen, SecurityWEP, SecurityWPS},
		"deprecated": {SecurityWEP},
		"enterprise": {SecurityWPA2E, SecurityWPA3E},
		"personal":   {SecurityWPA, SecurityWPA2P, SecurityWPA3P},
		"unknown":    {SecurityUnknown},
	}
)

func encryptionKey(v string) string {
	v = strings.ToUpper(v)
	if strings.Contains(v, "WEP") {
		return "WEP"
	}
	return v
}

// resolveLabels maps each value through table and returns the distinct
// classification labels in first-seen order.
func resolveLabels(values []string, table map[string][]string, normalize func(string) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		for _, label := range table[normalize(v)] {
			if !seen[label] {
				seen[label] = true
				out = append(out, label)
			}
		}
	}
	return out
}

func applySecurity(c *buildContext, k Key) {
	f := c.filters
	var values []string
	var table map[string][]string
	normalize := strings.ToLower
	switch k {
	case KeyEncryptionTypes:
		values, table, normalize = f.EncryptionTypes, encryptionLabels, encryptionKey
	case KeyAuthMethods:
		values, table = f.AuthMethods, authLabels
	case KeyInsecureFlags:
		values, table = f.InsecureFlags, insecureLabels
	case KeySecurityFlags:
		values, table = f.SecurityFlags, securityFlagLabels
	default:
		return
	}
	labels := resolveLabels(values, table, normalize)
	if len(labels) == 0 {
		c.ignore(k, ReasonNoRecognizedValues)
		return
	}
	placeholders := c.params.addEach(labels)
	c.addWhere(fmt.Sprintf("(%s) IN (%s)", c.rel.security, strings.Join(placeholders, ", ")))
	c.apply(k, values)
}

// Temporal scopes.
const (
	ScopeObservationTime = "observation_time"
	ScopeNetworkLifetime = "network_lifetime"
	ScopeThreatWindow    = "threat_window"
)

var windowUnits = map[string]string{
	"h":  "hours",
	"d":  "days",
	"w":  "weeks",
	"mo": "months",
	"y":  "years",
}

// windowInterval converts "7d" to "7 days". "all" yields ok with an empty
// interval, meaning unbounded.
func windowInterval(w string) (string, bool) {
	w = strings.ToLower(strings.TrimSpace(w))
	if w == "all" {
		return "", true
	}
	m := windowPattern.FindStringSubmatch(w)
	if m == nil || strings.TrimLeft(m[1], "0") == "" {
		return "", false
	}
	return m[1] + " " + windowUnits[m[2]], true
}

func applyTemporal(c *buildContext, k Key) {
	switch k {
	case KeyTimeframe:
		applyTimeframe(c)
	case KeyTemporalScope:
		if !c.enabled[KeyTimeframe] || !c.filters.Has(KeyTimeframe) {
			c.ignore(k, ReasonRequiresTimeframe)
		}
	}
}

func applyTimeframe(c *buildContext) {
	f, rel := c.filters, c.rel
	tf := f.Timeframe

	scopeActive := c.enabled[KeyTemporalScope] && f.TemporalScope != ""
	scope := ScopeObservationTime
	if scopeActive {
		scope = strings.ToLower(f.TemporalScope)
	}
	switch scope {
	case ScopeObservationTime, ScopeNetworkLifetime:
	case ScopeThreatWindow:
		c.warn("temporalScope threat_window is evaluated as observation_time")
		scope = ScopeObservationTime
	default:
		c.warn("unknown temporalScope %q; using observation_time", f.TemporalScope)
		scope = ScopeObservationTime
	}

	lower, upper := rel.observedAt, rel.observedAt
	if scope == ScopeNetworkLifetime {
		lower, upper = rel.lastSeen, rel.firstSeen
	}

	var clauses []string
	if tf.Type == "absolute" {
		if tf.StartTimestamp == nil && tf.EndTimestamp == nil {
			ignoreTimeframe(c, scopeActive)
			return
		}
		if tf.StartTimestamp != nil {
			clauses = append(clauses, fmt.Sprintf("%s >= %s", lower, c.params.add(*tf.StartTimestamp)))
		}
		if tf.EndTimestamp != nil {
			clauses = append(clauses, fmt.Sprintf("%s <= %s", upper, c.params.add(*tf.EndTimestamp)))
		}
	} else {
		interval, ok := windowInterval(tf.RelativeWindow)
		if !ok {
			ignoreTimeframe(c, scopeActive)
			return
		}
		if interval != "" {
			clauses = append(clauses, fmt.Sprintf("%s >= NOW() - %s::text::interval", lower, c.params.add(interval)))
		}
	}

	if len(clauses) > 0 && scope == ScopeNetworkLifetime && rel.lifetimeJoin != nil {
		c.addJoin(*rel.lifetimeJoin)
	}
	c.addWhere(clauses...)
	c.apply(KeyTimeframe, tf)
	if scopeActive {
		c.apply(KeyTemporalScope, f.TemporalScope)
	}
}

// ignoreTimeframe records an unusable timeframe along with the scope that
// depended on it.
func ignoreTimeframe(c *buildContext, scopeActive bool) {
	c.ignore(KeyTimeframe, ReasonIncompleteValue)
	if scopeActive {
		c.ignore(KeyTemporalScope, ReasonRequiresTimeframe)
	}
}

func applySpatial(c *buildContext, k Key) {
	f, rel := c.filters, c.rel
	distance := fmt.Sprintf("ST_Distance(home.home_point, %s) / 1000.0", rel.point)
	switch k {
	case KeyDistanceFromHomeMin:
		c.requiresHome = true
		c.addJoin(homeJoin)
		c.addWhere(fmt.Sprintf("%s >= %s", distance, c.params.add(*f.DistanceFromHomeMin)))
		c.apply(k, *f.DistanceFromHomeMin)
	case KeyDistanceFromHomeMax:
		c.requiresHome = true
		c.addJoin(homeJoin)
		c.addWhere(fmt.Sprintf("%s <= %s", distance, c.params.add(*f.DistanceFromHomeMax)))
		c.apply(k, *f.DistanceFromHomeMax)
	case KeyBoundingBox:
		b := f.BoundingBox
		if !b.complete() {
			c.ignore(k, ReasonIncompleteValue)
			return
		}
		c.addWhere(
			fmt.Sprintf("%s <= %s", rel.lat, c.params.add(*b.North)),
			fmt.Sprintf("%s >= %s", rel.lat, c.params.add(*b.South)),
			fmt.Sprintf("%s <= %s", rel.lon, c.params.add(*b.East)),
			fmt.Sprintf("%s >= %s", rel.lon, c.params.add(*b.West)),
		)
		c.apply(k, b)
	case KeyRadiusFilter:
		r := f.RadiusFilter
		if !r.complete() {
			c.ignore(k, ReasonIncompleteValue)
			return
		}
		lat := c.params.add(*r.Latitude)
		lon := c.params.add(*r.Longitude)
		radius := c.params.add(*r.RadiusMeters)
		c.addWhere(fmt.Sprintf("ST_DWithin(%s, ST_SetSRID(ST_MakePoint(%s, %s), 4326)::geography, %s)",
			rel.point, lon, lat, radius))
		c.apply(k, r)
	}
}

func applyQuality(c *buildContext, k Key) {
	f, rel := c.filters, c.rel
	switch k {
	case KeyGPSAccuracyMax:
		c.addWhere(fmt.Sprintf("%s <= %s", rel.accuracy, c.params.add(*f.GPSAccuracyMax)))
		c.apply(k, *f.GPSAccuracyMax)
	case KeyExcludeInvalidCoords:
		// Sanity predicates only; not echoed as an applied filter.
		c.addWhere(
			rel.lat+" IS NOT NULL",
			rel.lon+" IS NOT NULL",
			rel.lat+" BETWEEN -90 AND 90",
			rel.lon+" BETWEEN -180 AND 180",
		)
	case KeyObservationCountMin:
		c.addWhere(fmt.Sprintf("%s >= %s", rel.observations, c.params.add(*f.ObservationCountMin)))
		c.apply(k, *f.ObservationCountMin)
	case KeyObservationCountMax:
		c.addWhere(fmt.Sprintf("%s <= %s", rel.observations, c.params.add(*f.ObservationCountMax)))
		c.apply(k, *f.ObservationCountMax)
	}
}

// threatLevelTable maps client threat categories onto stored levels.
var threatLevelTable = map[string][]string{
	"critical": {"HIGH"},
	"high":     {"HIGH"},
	"medium":   {"MED"},
	"low":      {"LOW"},
}

func applyThreat(c *buildContext, k Key) {
	f, rel := c.filters, c.rel
	switch k {
	case KeyThreatScoreMin:
		c.addWhere(fmt.Sprintf("%s >= %s", rel.threatScore, c.params.add(*f.ThreatScoreMin)))
		c.apply(k, *f.ThreatScoreMin)
	case KeyThreatScoreMax:
		c.addWhere(fmt.Sprintf("%s <= %s", rel.threatScore, c.params.add(*f.ThreatScoreMax)))
		c.apply(k, *f.ThreatScoreMax)
	case KeyThreatCategories:
		levels := resolveLabels(f.ThreatCategories, threatLevelTable, strings.ToLower)
		if len(levels) == 0 {
			c.ignore(k, ReasonNoRecognizedValues)
			return
		}
		c.addWhere(fmt.Sprintf("%s = ANY(%s)", rel.threatLevel, c.params.add(levels)))
		c.apply(k, f.ThreatCategories)
	case KeyStationaryConfidenceMin:
		c.addWhere(fmt.Sprintf("%s >= %s", rel.stationaryConfidence, c.params.add(*f.StationaryConfidenceMin)))
		c.apply(k, *f.StationaryConfidenceMin)
	case KeyStationaryConfidenceMax:
		c.addWhere(fmt.Sprintf("%s <= %s", rel.stationaryConfidence, c.params.add(*f.StationaryConfidenceMax)))
		c.apply(k, *f.StationaryConfidenceMax)
	}
}
