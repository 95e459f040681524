package filterquery

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Bounds enforced before any query is built.
const (
	RSSINoiseFloor       = -95
	RSSICeiling          = 0
	MaxGPSAccuracyMeters = 1000
	MaxThreatScore       = 100
)

// ValidationResult carries every human-readable problem found in a payload.
type ValidationResult struct {
	Errors []string `json:"errors"`
}

// OK reports whether the payload passed.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return structValidator
}

// ValidateFilterPayload checks range and cross-field rules. Values are
// checked whenever present, enabled or not, so a misconfigured filter that
// is toggled off still surfaces.
func ValidateFilterPayload(f Filters, _ Enabled) ValidationResult {
	var errs []string
	add := func(msg string) { errs = append(errs, msg) }

	if f.RSSIMin != nil && *f.RSSIMin < RSSINoiseFloor {
		add("RSSI minimum below noise floor (-95 dBm).")
	}
	if f.RSSIMax != nil && *f.RSSIMax > RSSICeiling {
		add("RSSI maximum above 0 dBm.")
	}
	if f.RSSIMin != nil && f.RSSIMax != nil && *f.RSSIMin > *f.RSSIMax {
		add("RSSI minimum greater than maximum.")
	}

	if f.GPSAccuracyMax != nil && *f.GPSAccuracyMax > MaxGPSAccuracyMeters {
		add("GPS accuracy limit too high (>1000m).")
	}

	if f.ThreatScoreMin != nil && outside(*f.ThreatScoreMin, 0, MaxThreatScore) {
		add("Threat score minimum out of range (0-100).")
	}
	if f.ThreatScoreMax != nil && outside(*f.ThreatScoreMax, 0, MaxThreatScore) {
		add("Threat score maximum out of range (0-100).")
	}
	if f.ThreatScoreMin != nil && f.ThreatScoreMax != nil && *f.ThreatScoreMin > *f.ThreatScoreMax {
		add("Threat score minimum greater than maximum.")
	}

	if f.StationaryConfidenceMin != nil && outside(*f.StationaryConfidenceMin, 0, 1) {
		add("Stationary confidence minimum out of range (0.0-1.0).")
	}
	if f.StationaryConfidenceMax != nil && outside(*f.StationaryConfidenceMax, 0, 1) {
		add("Stationary confidence maximum out of range (0.0-1.0).")
	}
	if f.StationaryConfidenceMin != nil && f.StationaryConfidenceMax != nil && *f.StationaryConfidenceMin > *f.StationaryConfidenceMax {
		add("Stationary confidence minimum greater than maximum.")
	}

	if f.ChannelMin != nil && f.ChannelMax != nil && *f.ChannelMin > *f.ChannelMax {
		add("Channel minimum greater than maximum.")
	}

	if f.ObservationCountMin != nil && *f.ObservationCountMin < 0 {
		add("Observation count minimum must be non-negative.")
	}
	if f.ObservationCountMax != nil && *f.ObservationCountMax < 0 {
		add("Observation count maximum must be non-negative.")
	}
	if f.ObservationCountMin != nil && f.ObservationCountMax != nil && *f.ObservationCountMin > *f.ObservationCountMax {
		add("Observation count minimum greater than maximum.")
	}

	if f.DistanceFromHomeMin != nil && *f.DistanceFromHomeMin < 0 {
		add("Distance from home minimum must be non-negative.")
	}
	if f.DistanceFromHomeMax != nil && *f.DistanceFromHomeMax < 0 {
		add("Distance from home maximum must be non-negative.")
	}
	if f.DistanceFromHomeMin != nil && f.DistanceFromHomeMax != nil && *f.DistanceFromHomeMin > *f.DistanceFromHomeMax {
		add("Distance from home minimum greater than maximum.")
	}

	if b := f.BoundingBox; b != nil {
		if len(fieldErrors(b)) > 0 {
			add("Bounding box coordinates out of range.")
		}
		if b.North != nil && b.South != nil && *b.North < *b.South {
			add("Bounding box north is below south.")
		}
	}

	if r := f.RadiusFilter; r != nil {
		var coords, radius bool
		for _, fe := range fieldErrors(r) {
			if fe.StructField() == "RadiusMeters" {
				radius = true
			} else {
				coords = true
			}
		}
		if coords {
			add("Radius filter coordinates out of range.")
		}
		if radius {
			add("Radius must be greater than 0 meters.")
		}
	}

	if errs == nil {
		errs = []string{}
	}
	return ValidationResult{Errors: errs}
}

func outside(v, lo, hi float64) bool { return v < lo || v > hi }

func fieldErrors(s any) validator.ValidationErrors {
	err := getValidator().Struct(s)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
