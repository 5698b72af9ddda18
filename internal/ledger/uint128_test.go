package ledger

import (
	"encoding/json"
	"testing"
)

func TestParseIDRoundTrip(t *testing.T) {
	cases := []string{
		"0",
		"1",
		"42",
		"18446744073709551615",                    // max uint64
		"18446744073709551616",                    // max uint64 + 1
		"340282366920938463463374607431768211455", // max uint128
	}
	for _, raw := range cases {
		id, err := ParseID(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got := id.String(); got != raw {
			t.Fatalf("round trip %q: got %q", raw, got)
		}
	}
}

func TestParseIDRejectsInvalid(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"-1",
		"abc",
		"340282366920938463463374607431768211456", // max uint128 + 1
	}
	for _, raw := range cases {
		if _, err := ParseID(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestIDHalves(t *testing.T) {
	id, err := ParseID("18446744073709551616")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Hi != 1 || id.Lo != 0 {
		t.Fatalf("expected hi=1 lo=0, got hi=%d lo=%d", id.Hi, id.Lo)
	}
}

func TestIDJSON(t *testing.T) {
	id := ID{Hi: 1, Lo: 5}
	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"18446744073709551621"` {
		t.Fatalf("unexpected encoding %s", data)
	}

	var decoded ID
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != id {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, id)
	}
}

func TestNewRandomIDNonZero(t *testing.T) {
	seen := map[ID]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewRandomID()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if id.IsZero() {
			t.Fatal("generated zero id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
