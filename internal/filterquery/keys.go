// Package filterquery compiles a client filter payload into parameterized
// PostGIS SQL for the network explorer, the observation export and the map.
package filterquery

// Key names one filter in the closed payload vocabulary.
type Key string

const (
	KeySSID         Key = "ssid"
	KeyBSSID        Key = "bssid"
	KeyManufacturer Key = "manufacturer"
	KeyNetworkID    Key = "networkId"

	KeyRadioTypes     Key = "radioTypes"
	KeyFrequencyBands Key = "frequencyBands"
	KeyChannelMin     Key = "channelMin"
	KeyChannelMax     Key = "channelMax"
	KeyRSSIMin        Key = "rssiMin"
	KeyRSSIMax        Key = "rssiMax"

	KeyEncryptionTypes Key = "encryptionTypes"
	KeyAuthMethods     Key = "authMethods"
	KeyInsecureFlags   Key = "insecureFlags"
	KeySecurityFlags   Key = "securityFlags"

	KeyTimeframe     Key = "timeframe"
	KeyTemporalScope Key = "temporalScope"

	KeyDistanceFromHomeMin Key = "distanceFromHomeMin"
	KeyDistanceFromHomeMax Key = "distanceFromHomeMax"
	KeyBoundingBox         Key = "boundingBox"
	KeyRadiusFilter        Key = "radiusFilter"

	KeyGPSAccuracyMax       Key = "gpsAccuracyMax"
	KeyExcludeInvalidCoords Key = "excludeInvalidCoords"
	KeyObservationCountMin  Key = "observationCountMin"
	KeyObservationCountMax  Key = "observationCountMax"

	KeyThreatScoreMin          Key = "threatScoreMin"
	KeyThreatScoreMax          Key = "threatScoreMax"
	KeyThreatCategories        Key = "threatCategories"
	KeyStationaryConfidenceMin Key = "stationaryConfidenceMin"
	KeyStationaryConfidenceMax Key = "stationaryConfidenceMax"
)

// AllKeys lists the vocabulary in evaluation order.
var AllKeys = []Key{
	KeySSID, KeyBSSID, KeyManufacturer, KeyNetworkID,
	KeyRadioTypes, KeyFrequencyBands, KeyChannelMin, KeyChannelMax, KeyRSSIMin, KeyRSSIMax,
	KeyEncryptionTypes, KeyAuthMethods, KeyInsecureFlags, KeySecurityFlags,
	KeyTimeframe, KeyTemporalScope,
	KeyDistanceFromHomeMin, KeyDistanceFromHomeMax, KeyBoundingBox, KeyRadiusFilter,
	KeyGPSAccuracyMax, KeyExcludeInvalidCoords, KeyObservationCountMin, KeyObservationCountMax,
	KeyThreatScoreMin, KeyThreatScoreMax, KeyThreatCategories, KeyStationaryConfidenceMin, KeyStationaryConfidenceMax,
}

// Category groups filters for evaluation order and for the applied-filter echo.
type Category string

const (
	CategoryIdentity Category = "identity"
	CategoryRadio    Category = "radio"
	CategorySecurity Category = "security"
	CategoryTemporal Category = "temporal"
	CategorySpatial  Category = "spatial"
	CategoryQuality  Category = "quality"
	CategoryThreat   Category = "threat"
)

// Categories is the fixed evaluation order shared by every build shape.
var Categories = []Category{
	CategoryIdentity,
	CategoryRadio,
	CategorySecurity,
	CategoryTemporal,
	CategorySpatial,
	CategoryQuality,
	CategoryThreat,
}

// Category reports which group k belongs to. Unknown keys report "".
func (k Key) Category() Category {
	switch k {
	case KeySSID, KeyBSSID, KeyManufacturer, KeyNetworkID:
		return CategoryIdentity
	case KeyRadioTypes, KeyFrequencyBands, KeyChannelMin, KeyChannelMax, KeyRSSIMin, KeyRSSIMax:
		return CategoryRadio
	case KeyEncryptionTypes, KeyAuthMethods, KeyInsecureFlags, KeySecurityFlags:
		return CategorySecurity
	case KeyTimeframe, KeyTemporalScope:
		return CategoryTemporal
	case KeyDistanceFromHomeMin, KeyDistanceFromHomeMax, KeyBoundingBox, KeyRadiusFilter:
		return CategorySpatial
	case KeyGPSAccuracyMax, KeyExcludeInvalidCoords, KeyObservationCountMin, KeyObservationCountMax:
		return CategoryQuality
	case KeyThreatScoreMin, KeyThreatScoreMax, KeyThreatCategories, KeyStationaryConfidenceMin, KeyStationaryConfidenceMax:
		return CategoryThreat
	default:
		return ""
	}
}

// NetworkOnly reports whether k only has meaning against the aggregated
// per-network relation.
func (k Key) NetworkOnly() bool {
	switch k {
	case KeyObservationCountMin, KeyObservationCountMax,
		KeyThreatScoreMin, KeyThreatScoreMax, KeyThreatCategories,
		KeyStationaryConfidenceMin, KeyStationaryConfidenceMax:
		return true
	default:
		return false
	}
}

func keysIn(c Category) []Key {
	out := make([]Key, 0, 6)
	for _, k := range AllKeys {
		if k.Category() == c {
			out = append(out, k)
		}
	}
	return out
}
