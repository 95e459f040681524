package explorer

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ThreatEvidence explains one scoring rule that fired for a network.
type ThreatEvidence struct {
	Rule          string `json:"rule"`
	ObservedValue any    `json:"observedValue"`
	Threshold     any    `json:"threshold"`
}

// ThreatTransparency is the explanation attached to every returned row.
type ThreatTransparency struct {
	Reasons  []string
	Evidence []ThreatEvidence
	// Error marks a flagged network whose score arrived without reasons.
	Error bool
}

const MissingThreatReasons = "MISSING_THREAT_REASONS"

var ruleThresholds = map[string]any{
	"EXCESSIVE_MOVEMENT":     0.2,
	"SPEED_PATTERN":          20,
	"TEMPORAL_PATTERN":       2,
	"HIGH_OBSERVATION_COUNT": 20,
	"HOME_AND_AWAY":          "home & away",
}

// NormalizeThreat derives reasons and evidence from a stored threat object.
// Flags win over signal codes as reasons.
func NormalizeThreat(threat map[string]any) ThreatTransparency {
	out := ThreatTransparency{Reasons: []string{}, Evidence: []ThreatEvidence{}}

	for _, f := range asList(threat["flags"]) {
		if s, ok := f.(string); ok && s != "" {
			out.Reasons = append(out.Reasons, s)
		}
	}
	fromFlags := len(out.Reasons) > 0

	for _, raw := range asList(threat["signals"]) {
		signal, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		code, _ := signal["code"].(string)
		rule := code
		if rule == "" {
			rule, _ = signal["rule"].(string)
		}
		if rule == "" {
			rule = "UNKNOWN"
		}
		if !fromFlags && code != "" {
			out.Reasons = append(out.Reasons, code)
		}
		out.Evidence = append(out.Evidence, ThreatEvidence{
			Rule:          rule,
			ObservedValue: observedValue(signal["evidence"]),
			Threshold:     ruleThresholds[rule],
		})
	}

	if threatFlagged(threat) && len(out.Reasons) == 0 {
		out.Reasons = []string{MissingThreatReasons}
		out.Error = true
	}
	return out
}

func threatFlagged(threat map[string]any) bool {
	level := "NONE"
	if s, ok := threat["level"].(string); ok && s != "" {
		level = strings.ToUpper(s)
	}
	return threatScore(threat) > 0 || level != "NONE"
}

func threatScore(threat map[string]any) float64 {
	switch v := threat["score"].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// observedValue unwraps single-key evidence objects and serializes larger
// ones.
func observedValue(evidence any) any {
	obj, ok := evidence.(map[string]any)
	if !ok {
		return evidence
	}
	if len(obj) == 1 {
		for _, v := range obj {
			return v
		}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	return string(b)
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}
