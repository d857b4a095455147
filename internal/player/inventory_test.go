package player

import "testing"

func TestInventoryCapacity(t *testing.T) {
	p := NewState("riverport", 1000, 0, 10)
	inv := NewMemoryInventory(p)

	if r := inv.AddItem("wool", 6); !r.OK {
		t.Fatalf("add refused: %+v", r)
	}
	if r := inv.AddItem("silk", 5); r.OK || r.Reason != ReasonOverCapacity {
		t.Fatalf("over-capacity add allowed: %+v", r)
	}
	if r := inv.AddItem("silk", 4); !r.OK {
		t.Fatalf("add to exact capacity refused: %+v", r)
	}
	if inv.Total() != 10 {
		t.Fatalf("total %d, want 10", inv.Total())
	}
}

func TestInventoryUncappedWhenCapacityZero(t *testing.T) {
	p := NewState("riverport", 1000, 0, 0)
	inv := NewMemoryInventory(p)
	if r := inv.AddItem("wool", 100000); !r.OK {
		t.Fatalf("zero capacity should mean unlimited: %+v", r)
	}
}

func TestInventoryRemove(t *testing.T) {
	p := NewState("riverport", 1000, 0, 100)
	inv := NewMemoryInventory(p)
	inv.AddItem("wool", 5)

	if r := inv.RemoveItem("wool", 6); r.OK || r.Reason != ReasonInsufficient {
		t.Fatalf("overdraw allowed: %+v", r)
	}
	if r := inv.RemoveItem("wool", 5); !r.OK {
		t.Fatalf("remove refused: %+v", r)
	}
	if _, held := inv.Items()["wool"]; held {
		t.Fatal("emptied good still listed")
	}
}

func TestInventoryRejectsBadQuantities(t *testing.T) {
	p := NewState("riverport", 1000, 0, 100)
	inv := NewMemoryInventory(p)
	if r := inv.AddItem("wool", 0); r.OK || r.Reason != ReasonBadQuantity {
		t.Fatalf("zero add allowed: %+v", r)
	}
	if r := inv.RemoveItem("wool", -3); r.OK || r.Reason != ReasonBadQuantity {
		t.Fatalf("negative remove allowed: %+v", r)
	}
}

func TestInventoryRestoreDropsEmptyLines(t *testing.T) {
	p := NewState("riverport", 1000, 0, 100)
	inv := NewMemoryInventory(p)
	inv.Restore(map[string]int{"wool": 3, "silk": 0, "grain": -2})

	if inv.Quantity("wool") != 3 {
		t.Fatalf("restored wool %d", inv.Quantity("wool"))
	}
	if inv.Quantity("silk") != 0 || inv.Quantity("grain") != 0 {
		t.Fatal("non-positive lines restored")
	}
}

func TestAdjustAttribute(t *testing.T) {
	p := NewState("riverport", 1000, 0, 100)
	p.AdjustAttribute("nerve", 2)
	p.AdjustAttribute("nerve", -0.5)
	if got := p.Attribute("nerve"); got != 1.5 {
		t.Fatalf("nerve %v, want 1.5", got)
	}
}
