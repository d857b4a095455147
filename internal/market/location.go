package market

import "fmt"

// Location is a trading post. PriceFactor is the multiplicative adjustment
// applied to every price computed there; Specialties get a further 10%
// discount in the location-aware batch update.
type Location struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	PriceFactor float64  `json:"price_factor"`
	Specialties []string `json:"specialties,omitempty"`
}

// specialtyDiscount is the extra multiplier for a location's specialty goods.
const specialtyDiscount = 0.9

// Validate rejects malformed location entries at catalog load.
func (l *Location) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("location: missing id")
	}
	if l.PriceFactor <= 0 {
		return fmt.Errorf("location %s: price factor must be positive, got %.2f", l.ID, l.PriceFactor)
	}
	return nil
}

// IsSpecialty reports whether goodID is one of the location's specialties.
func (l *Location) IsSpecialty(goodID string) bool {
	for _, id := range l.Specialties {
		if id == goodID {
			return true
		}
	}
	return false
}

// EffectiveFactor returns the location factor to feed the calculator for a
// given good, folding in the specialty discount. Applied here rather than in
// the cache layer so cache keys stay honest.
func (l *Location) EffectiveFactor(goodID string) float64 {
	f := l.PriceFactor
	if l.IsSpecialty(goodID) {
		f *= specialtyDiscount
	}
	return f
}
