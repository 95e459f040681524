package filterquery

import (
	"fmt"
	"strings"
)

var sortColumns = map[string]string{
	"last_seen":             "ne.last_seen",
	"first_seen":            "ne.first_seen",
	"observed_at":           "ne.last_seen",
	"ssid":                  "ne.ssid",
	"bssid":                 "ne.bssid",
	"signal":                "ne.signal",
	"observations":          "ne.observations",
	"threat":                "(ne.threat->>'score')::numeric",
	"threat_score":          "(ne.threat->>'score')::numeric",
	"security":              "ne.security",
	"type":                  "ne.type",
	"manufacturer":          "ne.manufacturer",
	"distance_from_home_km": "ne.distance_from_home_km",
	"stationary_confidence": "ne.stationary_confidence",
	"frequency":             "ne.frequency",
	"channel":               channelExpr("ne.frequency"),
}

type orderTerm struct {
	expr string
	desc bool
}

// OrderBy is a validated ORDER BY list. The zero value sorts by most recently
// seen.
type OrderBy struct {
	terms []orderTerm
}

func (o OrderBy) String() string {
	if len(o.terms) == 0 {
		return "ne.last_seen DESC NULLS LAST"
	}
	parts := make([]string, 0, len(o.terms))
	for _, t := range o.terms {
		dir := "ASC"
		if t.desc {
			dir = "DESC"
		}
		parts = append(parts, t.expr+" "+dir+" NULLS LAST")
	}
	return strings.Join(parts, ", ")
}

// ParseOrderBy turns comma separated sort columns and directions into an
// ORDER BY list. Directions pair with columns by position; missing ones
// default to DESC. Unknown columns and directions are errors.
func ParseOrderBy(sort, order string) (OrderBy, error) {
	cols := splitList(sort)
	dirs := splitList(order)
	if len(cols) == 0 {
		if len(dirs) == 0 {
			return OrderBy{}, nil
		}
		cols = []string{"last_seen"}
	}
	if len(dirs) > len(cols) {
		return OrderBy{}, fmt.Errorf("order has %d entries for %d sort columns", len(dirs), len(cols))
	}
	terms := make([]orderTerm, 0, len(cols))
	for i, col := range cols {
		expr, ok := sortColumns[strings.ToLower(col)]
		if !ok {
			return OrderBy{}, fmt.Errorf("invalid sort column %q", col)
		}
		desc := true
		if i < len(dirs) {
			switch strings.ToUpper(dirs[i]) {
			case "ASC":
				desc = false
			case "DESC":
			default:
				return OrderBy{}, fmt.Errorf("invalid sort order %q", dirs[i])
			}
		}
		terms = append(terms, orderTerm{expr: expr, desc: desc})
	}
	return OrderBy{terms: terms}, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
