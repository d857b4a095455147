// Package player holds the trader's mutable state and the inventory
// collaborator interface the event engine applies effects through.
// See design doc Section 6.
package player

// State is the per-playthrough player snapshot. Only the event effect
// applier mutates it.
type State struct {
	Money      float64            `json:"money"`
	Debt       float64            `json:"debt"`
	Location   string             `json:"location"`
	Capacity   int                `json:"capacity"`
	Attributes map[string]float64 `json:"attributes,omitempty"`
}

// NewState returns a player starting at location with the given funds.
func NewState(location string, money, debt float64, capacity int) *State {
	return &State{
		Money:      money,
		Debt:       debt,
		Location:   location,
		Capacity:   capacity,
		Attributes: make(map[string]float64),
	}
}

// Attribute returns the named attribute, zero when unset.
func (s *State) Attribute(name string) float64 {
	return s.Attributes[name]
}

// AdjustAttribute adds delta to the named attribute.
func (s *State) AdjustAttribute(name string, delta float64) {
	if s.Attributes == nil {
		s.Attributes = make(map[string]float64)
	}
	s.Attributes[name] += delta
}
