package filterquery

import "testing"

func TestParseOrderBy(t *testing.T) {
	ob, err := ParseOrderBy("signal, last_seen", "asc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := ob.String(), "ne.signal ASC NULLS LAST, ne.last_seen DESC NULLS LAST"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	ob, err = ParseOrderBy("", "")
	if err != nil || ob.String() != "ne.last_seen DESC NULLS LAST" {
		t.Fatalf("expected default ordering, got %q %v", ob.String(), err)
	}

	ob, err = ParseOrderBy("", "asc")
	if err != nil || ob.String() != "ne.last_seen ASC NULLS LAST" {
		t.Fatalf("expected last_seen ASC, got %q %v", ob.String(), err)
	}
}

func TestParseOrderBy_Rejects(t *testing.T) {
	for _, tc := range [][2]string{
		{"ssid; DROP TABLE x", ""},
		{"ssid", "sideways"},
		{"ssid", "asc,desc"},
	} {
		if _, err := ParseOrderBy(tc[0], tc[1]); err == nil {
			t.Fatalf("expected error for sort=%q order=%q", tc[0], tc[1])
		}
	}
}
