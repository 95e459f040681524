package filterquery

import (
	"fmt"
	"strings"
)

// SQL renditions of the classifiers. They are generated from the same keyword
// tables as InferRadioType and InferSecurity so both paths classify alike.

func sqlHasAny(expr string, words []string) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, fmt.Sprintf("strpos(%s, '%s') > 0", expr, w))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func sqlUpper(col string) string {
	return fmt.Sprintf("UPPER(COALESCE(%s, ''))", col)
}

// radioTypeExpr mirrors InferRadioType over the given columns.
func radioTypeExpr(typeCol, ssidCol, freqCol, capsCol string) string {
	s, c := sqlUpper(ssidCol), sqlUpper(capsCol)
	var b strings.Builder
	fmt.Fprintf(&b, "COALESCE(NULLIF(%s, ''), CASE", typeCol)
	for _, r := range radioKeywordRules {
		var conds []string
		if len(r.ssid) > 0 {
			conds = append(conds, sqlHasAny(s, r.ssid))
		}
		if len(r.caps) > 0 {
			conds = append(conds, sqlHasAny(c, r.caps))
		}
		fmt.Fprintf(&b, " WHEN %s THEN '%s'", strings.Join(conds, " OR "), r.code)
	}
	bluetooth := fmt.Sprintf("(%s OR %s)", sqlHasAny(s, []string{"BLUETOOTH"}), sqlHasAny(c, []string{"BLUETOOTH"}))
	fmt.Fprintf(&b, " WHEN %s AND %s THEN '%s'", bluetooth, sqlHasAny(c, []string{"LOW ENERGY", "BLE"}), RadioBLE)
	fmt.Fprintf(&b, " WHEN %s THEN '%s'", bluetooth, RadioBluetooth)
	bands := make([]string, 0, len(wifiFrequencyMHz))
	for _, band := range wifiFrequencyMHz {
		bands = append(bands, fmt.Sprintf("%s BETWEEN %d AND %d", freqCol, band[0], band[1]))
	}
	fmt.Fprintf(&b, " WHEN %s THEN '%s'", strings.Join(bands, " OR "), RadioWiFi)
	fmt.Fprintf(&b, " WHEN %s THEN '%s'", sqlHasAny(c, wifiCapKeywords), RadioWiFi)
	fmt.Fprintf(&b, " ELSE '%s' END)", RadioUnknown)
	return b.String()
}

// securityExpr mirrors InferSecurity over an already-coalesced capability
// expression.
func securityExpr(capsExpr string) string {
	c := sqlUpper(capsExpr)
	enterprise := sqlHasAny(c, []string{"EAP", "MGT"})
	wpa3 := sqlHasAny(c, []string{"WPA3", "SAE"})
	wpa2 := sqlHasAny(c, []string{"WPA2", "RSN"})
	return fmt.Sprintf("CASE WHEN %s = '' THEN '%s'"+
		" WHEN %s AND %s THEN '%s' WHEN %s THEN '%s'"+
		" WHEN %s AND %s THEN '%s' WHEN %s THEN '%s'"+
		" WHEN %s THEN '%s' WHEN %s THEN '%s' WHEN %s THEN '%s'"+
		" ELSE '%s' END",
		c, SecurityOpen,
		wpa3, enterprise, SecurityWPA3E, wpa3, SecurityWPA3P,
		wpa2, enterprise, SecurityWPA2E, wpa2, SecurityWPA2P,
		sqlHasAny(c, []string{"WPA"}), SecurityWPA,
		sqlHasAny(c, []string{"WEP"}), SecurityWEP,
		sqlHasAny(c, []string{"WPS"}), SecurityWPS,
		SecurityUnknown)
}

// channelExpr converts a frequency in MHz to a WiFi channel number.
func channelExpr(freqCol string) string {
	return fmt.Sprintf("(CASE"+
		" WHEN %[1]s = 2484 THEN 14"+
		" WHEN %[1]s BETWEEN 2412 AND 2483 THEN FLOOR((%[1]s - 2412) / 5) + 1"+
		" WHEN %[1]s BETWEEN 5000 AND 5900 THEN FLOOR((%[1]s - 5000) / 5)"+
		" WHEN %[1]s BETWEEN 5925 AND 7125 THEN FLOOR((%[1]s - 5925) / 5)"+
		" ELSE NULL END)", freqCol)
}

// Channel returns the WiFi channel for a frequency in MHz, or 0 outside the
// 2.4/5/6 GHz bands. It matches channelExpr.
func Channel(frequency int) int {
	switch {
	case frequency == 2484:
		return 14
	case frequency >= 2412 && frequency <= 2483:
		return (frequency-2412)/5 + 1
	case frequency >= 5000 && frequency <= 5900:
		return (frequency - 5000) / 5
	case frequency >= 5925 && frequency <= 7125:
		return (frequency - 5925) / 5
	default:
		return 0
	}
}
