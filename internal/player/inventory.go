package player

// ReasonCode explains an inventory operation outcome.
type ReasonCode string

const (
	ReasonOK           ReasonCode = "ok"
	ReasonOverCapacity ReasonCode = "over_capacity"
	ReasonInsufficient ReasonCode = "insufficient_quantity"
	ReasonBadQuantity  ReasonCode = "bad_quantity"
)

// InventoryResult reports success or failure with a reason code.
type InventoryResult struct {
	OK     bool       `json:"ok"`
	Reason ReasonCode `json:"reason"`
}

// InventoryService is the collaborator the event engine moves items through.
// Implementations must reject operations that would exceed capacity or drive
// a quantity negative, leaving state unchanged.
type InventoryService interface {
	AddItem(goodID string, qty int) InventoryResult
	RemoveItem(goodID string, qty int) InventoryResult
	Quantity(goodID string) int
	Total() int
}

// MemoryInventory is the in-process InventoryService used by the simulation
// session. Capacity is read from the owning player state so capacity effects
// take hold immediately.
type MemoryInventory struct {
	owner *State
	items map[string]int
}

// NewMemoryInventory returns an empty inventory bound to owner's capacity.
func NewMemoryInventory(owner *State) *MemoryInventory {
	return &MemoryInventory{owner: owner, items: make(map[string]int)}
}

// AddItem stores qty units of goodID, refusing to exceed capacity.
func (m *MemoryInventory) AddItem(goodID string, qty int) InventoryResult {
	if qty <= 0 {
		return InventoryResult{Reason: ReasonBadQuantity}
	}
	if m.owner.Capacity > 0 && m.Total()+qty > m.owner.Capacity {
		return InventoryResult{Reason: ReasonOverCapacity}
	}
	m.items[goodID] += qty
	return InventoryResult{OK: true, Reason: ReasonOK}
}

// RemoveItem takes qty units of goodID out, refusing to go negative.
func (m *MemoryInventory) RemoveItem(goodID string, qty int) InventoryResult {
	if qty <= 0 {
		return InventoryResult{Reason: ReasonBadQuantity}
	}
	if m.items[goodID] < qty {
		return InventoryResult{Reason: ReasonInsufficient}
	}
	m.items[goodID] -= qty
	if m.items[goodID] == 0 {
		delete(m.items, goodID)
	}
	return InventoryResult{OK: true, Reason: ReasonOK}
}

// Quantity returns the held amount of goodID.
func (m *MemoryInventory) Quantity(goodID string) int { return m.items[goodID] }

// Total returns the number of units held across all goods.
func (m *MemoryInventory) Total() int {
	n := 0
	for _, q := range m.items {
		n += q
	}
	return n
}

// Items returns a copy of the holdings, for serialization.
func (m *MemoryInventory) Items() map[string]int {
	out := make(map[string]int, len(m.items))
	for k, v := range m.items {
		out[k] = v
	}
	return out
}

// Restore replaces the holdings wholesale, for load-from-save.
func (m *MemoryInventory) Restore(items map[string]int) {
	m.items = make(map[string]int, len(items))
	for k, v := range items {
		if v > 0 {
			m.items[k] = v
		}
	}
}
