package filterquery

import (
	"fmt"
	"strings"
)

// AnalyticsQueries holds one aggregate statement per dashboard panel. Every
// statement reads the same filtered CTE and shares one parameter list.
//
// The bucket panels project (label text, count bigint). RadioTypeOverTime
// projects (day, label, count). ThreatTrends and TopNetworks have their own
// row shapes, documented on the scanners in sqlcgen.
type AnalyticsQueries struct {
	NetworkTypes       QueryResult
	SignalStrength     QueryResult
	Security           QueryResult
	Channels           QueryResult
	Manufacturers      QueryResult
	ThreatDistribution QueryResult
	TemporalActivity   QueryResult
	RadioTypeOverTime  QueryResult
	ThreatTrends       QueryResult
	TopNetworks        QueryResult
}

// TopNetworksLimit caps the top networks panel.
const TopNetworksLimit = 50

// ManufacturersLimit caps the manufacturer panel.
const ManufacturersLimit = 20

var networkTypeLabel = fmt.Sprintf("CASE (%s)"+
	" WHEN '%s' THEN 'WiFi' WHEN '%s' THEN 'BLE' WHEN '%s' THEN 'BT'"+
	" WHEN '%s' THEN 'LTE' WHEN '%s' THEN 'NR' WHEN '%s' THEN 'GSM'"+
	" ELSE 'Other' END",
	observationRelation.radioType,
	RadioWiFi, RadioBLE, RadioBluetooth, RadioLTE, RadioNR, RadioGSM)

const threatScoreExpr = "COALESCE((ne.threat->>'score')::numeric, 0)"

// analyticsScope evaluates observation-level filters against o and
// network-only filters against ne, then renders the shared CTE. Each key is
// owned by exactly one of the two passes.
func (b *Builder) analyticsScope() (*buildContext, string) {
	c := &buildContext{rel: observationRelation, filters: b.filters, enabled: b.enabled, skip: Key.NetworkOnly}
	evaluate(c)
	obsWhere, obsJoins := c.where, c.joinClause()

	c.rel, c.where, c.joins = networkRelation, nil, nil
	c.skip = func(k Key) bool { return !k.NetworkOnly() }
	evaluate(c)
	netWhere := c.where
	b.last = c

	where := append([]string{
		"o.bssid IS NOT NULL",
		"o.bssid NOT IN ('00:00:00:00:00:00', 'FF:FF:FF:FF:FF:FF')",
	}, obsWhere...)
	if len(netWhere) > 0 {
		where = append(where, "o.bssid IN (\n    SELECT ne.bssid FROM public.api_network_explorer ne\n    WHERE "+
			strings.Join(netWhere, "\n      AND ")+")")
	}

	var sb strings.Builder
	sb.WriteString("WITH filtered AS (\n  SELECT o.*\n  FROM public.observations o")
	if obsJoins != "" {
		sb.WriteString("\n  ")
		sb.WriteString(strings.ReplaceAll(obsJoins, "\n", "\n  "))
	}
	sb.WriteString("\n  WHERE ")
	sb.WriteString(strings.Join(where, "\n    AND "))
	sb.WriteString("\n)")
	return c, sb.String()
}

// BuildAnalyticsQueries returns the dashboard aggregates over the filtered
// observations. Network-only filters restrict the observed BSSIDs through
// the aggregated relation instead of being ignored.
func (b *Builder) BuildAnalyticsQueries() AnalyticsQueries {
	c, cte := b.analyticsScope()
	q := func(body string) QueryResult {
		return QueryResult{SQL: cte + "\n" + body, Params: c.params.snapshot()}
	}
	rel := observationRelation

	return AnalyticsQueries{
		NetworkTypes: q(`SELECT ` + networkTypeLabel + ` AS label,
  COUNT(DISTINCT o.bssid) AS count
FROM filtered o
GROUP BY 1
ORDER BY count DESC`),

		SignalStrength: q(`SELECT CASE
    WHEN o.level >= -30 THEN '-30'
    WHEN o.level >= -40 THEN '-40'
    WHEN o.level >= -50 THEN '-50'
    WHEN o.level >= -60 THEN '-60'
    WHEN o.level >= -70 THEN '-70'
    WHEN o.level >= -80 THEN '-80'
    ELSE '-90' END AS label,
  COUNT(*) AS count
FROM (
  SELECT DISTINCT ON (o.bssid) o.bssid, o.level
  FROM filtered o
  WHERE o.level IS NOT NULL
  ORDER BY o.bssid, o.time DESC
) o
GROUP BY 1
ORDER BY 1 DESC`),

		Security: q(`SELECT ` + rel.security + ` AS label,
  COUNT(DISTINCT o.bssid) AS count
FROM filtered o
GROUP BY 1
ORDER BY count DESC`),

		Channels: q(`SELECT (` + channelExpr(rel.frequency) + `)::int::text AS label,
  COUNT(DISTINCT o.bssid) AS count
FROM filtered o
WHERE ` + channelExpr(rel.frequency) + ` IS NOT NULL
GROUP BY 1
ORDER BY MIN(` + channelExpr(rel.frequency) + `)`),

		Manufacturers: q(fmt.Sprintf(`SELECT UPPER(SUBSTRING(o.bssid, 1, 8)) AS label,
  COUNT(DISTINCT o.bssid) AS count
FROM filtered o
GROUP BY 1
ORDER BY count DESC
LIMIT %d`, ManufacturersLimit)),

		ThreatDistribution: q(`SELECT CASE
    WHEN ` + threatScoreExpr + ` >= 80 THEN '80-100'
    WHEN ` + threatScoreExpr + ` >= 60 THEN '60-80'
    WHEN ` + threatScoreExpr + ` >= 40 THEN '40-60'
    WHEN ` + threatScoreExpr + ` >= 20 THEN '20-40'
    ELSE '0-20' END AS label,
  COUNT(DISTINCT ne.bssid) AS count
FROM public.api_network_explorer ne
WHERE ne.bssid IN (SELECT DISTINCT bssid FROM filtered)
GROUP BY 1
ORDER BY 1 DESC`),

		TemporalActivity: q(`SELECT EXTRACT(HOUR FROM o.time)::int::text AS label,
  COUNT(*) AS count
FROM filtered o
GROUP BY EXTRACT(HOUR FROM o.time)
ORDER BY EXTRACT(HOUR FROM o.time)`),

		RadioTypeOverTime: q(`SELECT DATE_TRUNC('day', o.time) AS day,
  ` + networkTypeLabel + ` AS label,
  COUNT(*) AS count
FROM filtered o
GROUP BY 1, 2
ORDER BY 1, 2`),

		ThreatTrends: q(`SELECT d.day,
  AVG(` + threatScoreExpr + `)::float8 AS avg_score,
  COUNT(*) FILTER (WHERE ` + threatScoreExpr + ` >= 80) AS critical,
  COUNT(*) FILTER (WHERE ` + threatScoreExpr + ` >= 60 AND ` + threatScoreExpr + ` < 80) AS high,
  COUNT(*) FILTER (WHERE ` + threatScoreExpr + ` >= 40 AND ` + threatScoreExpr + ` < 60) AS medium,
  COUNT(*) FILTER (WHERE ` + threatScoreExpr + ` >= 20 AND ` + threatScoreExpr + ` < 40) AS low,
  COUNT(*) AS network_count
FROM (
  SELECT DISTINCT DATE_TRUNC('day', o.time) AS day, o.bssid
  FROM filtered o
) d
LEFT JOIN public.api_network_explorer ne ON ne.bssid = d.bssid
GROUP BY d.day
ORDER BY d.day`),

		TopNetworks: q(fmt.Sprintf(`SELECT o.bssid,
  MAX(o.ssid) AS ssid,
  COUNT(*) AS observation_count,
  MIN(o.time) AS first_seen,
  MAX(o.time) AS last_seen
FROM filtered o
GROUP BY o.bssid
ORDER BY observation_count DESC, o.bssid
LIMIT %d`, TopNetworksLimit)),
	}
}
