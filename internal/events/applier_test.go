package events

import (
	"errors"
	"testing"

	"github.com/talgya/crossroads-trader/internal/market"
)

func richDef() *Definition {
	return &Definition{
		ID:    "windfall",
		Title: "Windfall",
		Options: []Option{
			{
				Text: "take everything",
				Effects: EffectList{
					MoneyEffect{Amount: 500},
					DebtEffect{Amount: -100},
					InventoryEffect{GoodID: "silk", Qty: 2},
					AttributeEffect{Name: "reputation", Delta: 1},
					MarketEffect{GlobalMultiplier: 1.2, Weeks: 3, LocationID: "riverport"},
				},
			},
			{Text: "walk away"},
		},
		Weight:   1,
		Category: CategoryPositive,
	}
}

func TestSurfaceCountsCongestion(t *testing.T) {
	a := NewApplier()
	gs := testState(5)
	rt := NewRuntimeState()

	inst := a.Surface(richDef(), gs, rt)
	if inst.State() != StatePending {
		t.Fatal("surfaced instance not pending")
	}
	if rt.Congestion["riverport"] != 1 {
		t.Fatalf("congestion count %d, want 1", rt.Congestion["riverport"])
	}
}

func TestReinstateSkipsCongestion(t *testing.T) {
	rt := NewRuntimeState()
	inst := Reinstate(richDef(), 5)
	if inst.State() != StatePending {
		t.Fatal("reinstated instance not pending")
	}
	if len(rt.Congestion) != 0 {
		t.Fatal("reinstate touched congestion")
	}
}

func TestResolveAppliesEffects(t *testing.T) {
	a := NewApplier()
	gs := testState(5)
	gs.Player.Debt = 300
	rt := NewRuntimeState()
	inst := a.Surface(richDef(), gs, rt)

	res, err := a.Resolve(inst, 0, gs, rt)
	if err != nil {
		t.Fatal(err)
	}

	if gs.Player.Money != 2500 {
		t.Errorf("money %v, want 2500", gs.Player.Money)
	}
	if gs.Player.Debt != 200 {
		t.Errorf("debt %v, want 200", gs.Player.Debt)
	}
	if gs.Inventory.Quantity("silk") != 2 {
		t.Errorf("silk quantity %d, want 2", gs.Inventory.Quantity("silk"))
	}
	if gs.Player.Attribute("reputation") != 1 {
		t.Errorf("reputation %v, want 1", gs.Player.Attribute("reputation"))
	}

	if len(rt.Active) != 1 {
		t.Fatalf("active modifiers %d, want 1", len(rt.Active))
	}
	mod := rt.Active[0]
	if mod.SourceEventID != "windfall" || mod.WeeksLeft != 3 || mod.LocationID != "riverport" {
		t.Errorf("modifier wrong: %+v", mod)
	}

	if res.Applied.Money != 500 || res.Applied.MarketEffects != 1 {
		t.Errorf("summary wrong: %+v", res.Applied)
	}
	if !rt.WasTriggered("windfall") {
		t.Error("event not marked triggered")
	}
	if until := rt.Cooldowns["windfall"]; until != 5+CooldownWeeks {
		t.Errorf("cooldown until week %d, want %d", until, 5+CooldownWeeks)
	}
	if len(rt.History) != 1 || rt.History[0].EventID != "windfall" {
		t.Errorf("history wrong: %+v", rt.History)
	}
}

func TestResolveInvalidOptionLeavesStateUntouched(t *testing.T) {
	a := NewApplier()
	gs := testState(5)
	rt := NewRuntimeState()
	inst := a.Surface(richDef(), gs, rt)

	_, err := a.Resolve(inst, 7, gs, rt)
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("got %v, want ErrInvalidOption", err)
	}
	if inst.State() != StatePending {
		t.Error("failed resolution changed instance state")
	}
	if gs.Player.Money != 2000 || len(rt.History) != 0 || rt.WasTriggered("windfall") {
		t.Error("failed resolution mutated state")
	}

	// The instance is still resolvable afterwards.
	if _, err := a.Resolve(inst, 1, gs, rt); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestResolveTwiceFails(t *testing.T) {
	a := NewApplier()
	gs := testState(5)
	rt := NewRuntimeState()
	inst := a.Surface(richDef(), gs, rt)

	if _, err := a.Resolve(inst, 1, gs, rt); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Resolve(inst, 1, gs, rt); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("got %v, want ErrAlreadyResolved", err)
	}
}

func TestResolveIneligibleOption(t *testing.T) {
	def := richDef()
	def.Options[0].Eligible = func(gs *GameState) bool { return false }

	a := NewApplier()
	gs := testState(5)
	rt := NewRuntimeState()
	inst := a.Surface(def, gs, rt)

	if _, err := a.Resolve(inst, 0, gs, rt); !errors.Is(err, ErrOptionUnavailable) {
		t.Fatalf("got %v, want ErrOptionUnavailable", err)
	}
}

func TestResolveRepeatableSkipsCooldown(t *testing.T) {
	def := richDef()
	def.Repeatable = true

	a := NewApplier()
	gs := testState(5)
	rt := NewRuntimeState()
	inst := a.Surface(def, gs, rt)

	if _, err := a.Resolve(inst, 1, gs, rt); err != nil {
		t.Fatal(err)
	}
	if _, ok := rt.Cooldowns["windfall"]; ok {
		t.Fatal("repeatable event got a cooldown")
	}
}

func TestResolveChainSchedulesNextTick(t *testing.T) {
	def := &Definition{
		ID:    "opener",
		Title: "Opener",
		Options: []Option{{
			Text:    "go",
			Effects: EffectList{ChainEffect{EventID: "sequel"}},
		}},
		Weight:   1,
		Category: CategoryNeutral,
	}

	a := NewApplier()
	gs := testState(5)
	rt := NewRuntimeState()
	inst := a.Surface(def, gs, rt)

	res, err := a.Resolve(inst, 0, gs, rt)
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied.ChainedEvent != "sequel" {
		t.Errorf("summary chained %q", res.Applied.ChainedEvent)
	}
	got := rt.DrainChained()
	if len(got) != 1 || got[0] != "sequel" {
		t.Fatalf("chained queue %v", got)
	}
	if len(rt.DrainChained()) != 0 {
		t.Fatal("drain did not empty the queue")
	}
}

func TestResolveInventoryRejectionIsRecorded(t *testing.T) {
	def := &Definition{
		ID:    "overload",
		Title: "Overload",
		Options: []Option{{
			Text:    "take it all",
			Effects: EffectList{InventoryEffect{GoodID: "timber", Qty: 500}},
		}},
		Weight:   1,
		Category: CategoryNeutral,
	}

	a := NewApplier()
	gs := testState(5) // capacity 100
	rt := NewRuntimeState()
	inst := a.Surface(def, gs, rt)

	res, err := a.Resolve(inst, 0, gs, rt)
	if err != nil {
		t.Fatal(err)
	}
	if gs.Inventory.Quantity("timber") != 0 {
		t.Error("over-capacity add went through")
	}
	if res.Applied.ItemFailures["timber"] != "over_capacity" {
		t.Errorf("failure reason %q", res.Applied.ItemFailures["timber"])
	}
}

func TestResolveFloorsDebtAndCapacity(t *testing.T) {
	def := &Definition{
		ID:    "floors",
		Title: "Floors",
		Options: []Option{{
			Text: "ok",
			Effects: EffectList{
				DebtEffect{Amount: -10000},
				CapacityEffect{Delta: -10000},
			},
		}},
		Weight:   1,
		Category: CategoryNeutral,
	}

	a := NewApplier()
	gs := testState(5)
	gs.Player.Debt = 50
	rt := NewRuntimeState()
	inst := a.Surface(def, gs, rt)

	if _, err := a.Resolve(inst, 0, gs, rt); err != nil {
		t.Fatal(err)
	}
	if gs.Player.Debt != 0 {
		t.Errorf("debt %v, want floor at 0", gs.Player.Debt)
	}
	if gs.Player.Capacity != 0 {
		t.Errorf("capacity %v, want floor at 0", gs.Player.Capacity)
	}
}

func TestTickMaintenance(t *testing.T) {
	rt := NewRuntimeState()
	rt.PushModifier(&market.ActiveModifier{GlobalMultiplier: 1.1, WeeksLeft: 2})
	rt.Cooldowns["a"] = 10
	rt.Cooldowns["b"] = 11

	if rt.TickMaintenance(10) {
		t.Fatal("no modifier expired yet")
	}
	if _, ok := rt.Cooldowns["a"]; ok {
		t.Fatal("cooldown at current week not purged")
	}
	if _, ok := rt.Cooldowns["b"]; !ok {
		t.Fatal("future cooldown purged")
	}

	if !rt.TickMaintenance(11) {
		t.Fatal("modifier expiry not reported")
	}
	if len(rt.Active) != 0 {
		t.Fatal("expired modifier retained")
	}
}
