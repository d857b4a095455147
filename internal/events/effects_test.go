package events

import (
	"encoding/json"
	"testing"
)

func TestEffectListDecodesVariants(t *testing.T) {
	raw := `[
		{"kind": "money", "amount": -250},
		{"kind": "inventory", "good_id": "silk", "qty": -1},
		{"kind": "market", "global_multiplier": 1.2, "weeks": 3, "location_id": "riverport"},
		{"kind": "chain", "event_id": "sequel"}
	]`
	var list EffectList
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 4 {
		t.Fatalf("decoded %d effects, want 4", len(list))
	}
	if m, ok := list[0].(MoneyEffect); !ok || m.Amount != -250 {
		t.Errorf("effect 0: %#v", list[0])
	}
	if m, ok := list[2].(MarketEffect); !ok || m.Weeks != 3 || m.LocationID != "riverport" {
		t.Errorf("effect 2: %#v", list[2])
	}
}

func TestEffectListRejectsBadDocs(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"unknown kind", `[{"kind": "teleport"}]`},
		{"inventory without good", `[{"kind": "inventory", "qty": 1}]`},
		{"market without duration", `[{"kind": "market", "global_multiplier": 1.2}]`},
		{"chain without target", `[{"kind": "chain"}]`},
		{"attribute without name", `[{"kind": "attribute", "delta": 1}]`},
	}
	for _, c := range cases {
		var list EffectList
		if err := json.Unmarshal([]byte(c.raw), &list); err == nil {
			t.Errorf("%s: accepted", c.name)
		}
	}
}

func TestEffectListRoundTrip(t *testing.T) {
	in := EffectList{
		DebtEffect{Amount: 150},
		CapacityEffect{Delta: 30},
		LocationEffect{LocationID: "caravan_rest"},
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out EffectList
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("round trip lost effects: %d vs %d", len(out), len(in))
	}
	if c, ok := out[1].(CapacityEffect); !ok || c.Delta != 30 {
		t.Errorf("capacity effect mangled: %#v", out[1])
	}
}
