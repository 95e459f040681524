package filterquery

import "strings"

// Security classification labels.
const (
	SecurityOpen    = "OPEN"
	SecurityWEP     = "WEP"
	SecurityWPA     = "WPA"
	SecurityWPA2P   = "WPA2-P"
	SecurityWPA2E   = "WPA2-E"
	SecurityWPA3P   = "WPA3-P"
	SecurityWPA3E   = "WPA3-E"
	SecurityWPS     = "WPS"
	SecurityUnknown = "Unknown"
)

// Radio type codes as stored in observations.radio_type.
const (
	RadioWiFi      = "W"
	RadioBLE       = "E"
	RadioBluetooth = "B"
	RadioLTE       = "L"
	RadioNR        = "N"
	RadioWCDMA     = "D"
	RadioGSM       = "G"
	RadioCDMA      = "C"
	RadioUnknown   = "?"
)

// InferSecurity derives a security label from a capability string, falling
// back to the encryption string when capabilities are empty. The SQL form in
// securityExpr must keep the same precedence.
func InferSecurity(capabilities, encryption string) string {
	raw := capabilities
	if raw == "" {
		raw = encryption
	}
	c := strings.ToUpper(raw)
	if c == "" {
		return SecurityOpen
	}
	enterprise := strings.Contains(c, "EAP") || strings.Contains(c, "MGT")
	switch {
	case strings.Contains(c, "WPA3") || strings.Contains(c, "SAE"):
		if enterprise {
			return SecurityWPA3E
		}
		return SecurityWPA3P
	case strings.Contains(c, "WPA2") || strings.Contains(c, "RSN"):
		if enterprise {
			return SecurityWPA2E
		}
		return SecurityWPA2P
	case strings.Contains(c, "WPA"):
		return SecurityWPA
	case strings.Contains(c, "WEP"):
		return SecurityWEP
	case strings.Contains(c, "WPS"):
		return SecurityWPS
	default:
		return SecurityUnknown
	}
}

// radioRule matches keywords against the uppercased SSID and capabilities.
type radioRule struct {
	code string
	ssid []string
	caps []string
}

var radioKeywordRules = []radioRule{
	{RadioNR, []string{"5G"}, []string{"NR"}},
	{RadioLTE, []string{"LTE", "4G"}, []string{"LTE", "EARFCN"}},
	{RadioWCDMA, []string{"WCDMA", "3G", "UMTS"}, []string{"WCDMA", "UMTS", "UARFCN"}},
	{RadioGSM, []string{"GSM", "2G"}, []string{"GSM", "ARFCN"}},
	{RadioCDMA, []string{"CDMA"}, []string{"CDMA"}},
	{RadioLTE, []string{"T-MOBILE", "VERIZON", "AT&T", "ATT", "SPRINT", "CARRIER", "3GPP"}, nil},
	{RadioBLE, []string{"[UNKNOWN / SPOOFED RADIO]", "BLE", "BTLE"}, []string{"BLE", "BTLE", "BLUETOOTH LOW ENERGY"}},
}

var (
	wifiCapKeywords  = []string{"WPA", "WEP", "WPS", "RSN", "ESS", "CCMP", "TKIP"}
	wifiFrequencyMHz = [][2]int{{2412, 2484}, {5000, 5900}, {5925, 7125}}
)

// InferRadioType returns radioType when stored, otherwise classifies the
// sighting from its SSID, frequency and capabilities. It never guesses WiFi
// without evidence.
func InferRadioType(radioType, ssid string, frequency int, capabilities string) string {
	if radioType != "" {
		return radioType
	}
	s := strings.ToUpper(ssid)
	c := strings.ToUpper(capabilities)

	for _, r := range radioKeywordRules {
		if containsAny(s, r.ssid) || containsAny(c, r.caps) {
			return r.code
		}
	}
	if strings.Contains(s, "BLUETOOTH") || strings.Contains(c, "BLUETOOTH") {
		if strings.Contains(c, "LOW ENERGY") || strings.Contains(c, "BLE") {
			return RadioBLE
		}
		return RadioBluetooth
	}
	for _, band := range wifiFrequencyMHz {
		if frequency >= band[0] && frequency <= band[1] {
			return RadioWiFi
		}
	}
	if containsAny(c, wifiCapKeywords) {
		return RadioWiFi
	}
	return RadioUnknown
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
