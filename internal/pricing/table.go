package pricing

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownTier       = errors.New("unknown room tier")
	ErrEmptyTable        = errors.New("pricing table has no tiers")
	ErrInvalidPartySize  = errors.New("select number of people first")
	ErrCustomArrangement = errors.New("contact us for custom arrangements")
	ErrInvalidStay       = errors.New("check-out date must be after check-in date")
)

// Tier is a named room category. A party fits the first tier whose
// capacity is at least the party size.
type Tier struct {
	Name        string `yaml:"name" json:"name"`
	Capacity    int    `yaml:"capacity" json:"capacity"`
	PricePerDay int64  `yaml:"price_per_day" json:"price_per_day"`
}

// Label renders the decorated string shown next to the room selector.
func (t Tier) Label() string {
	return fmt.Sprintf("%s (%d People - ₹%d/Day)", t.Name, t.Capacity, t.PricePerDay)
}

// Table is the single source of truth for room prices.
type Table struct {
	Tiers []Tier `yaml:"tiers" json:"tiers"`
}

// DefaultTable returns the homestay's published tiers.
func DefaultTable() *Table {
	return &Table{Tiers: []Tier{
		{Name: "Couple's Nest", Capacity: 2, PricePerDay: 6800},
		{Name: "Mountain View Suite", Capacity: 4, PricePerDay: 8000},
		{Name: "Group Lodge", Capacity: 6, PricePerDay: 22000},
	}}
}

// LoadTable reads a YAML pricing file. An empty path yields DefaultTable.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse pricing file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("pricing file %s: %w", path, err)
	}
	return &t, nil
}

// Validate checks that tiers are ordered by strictly increasing capacity
// and carry positive prices.
func (t *Table) Validate() error {
	if len(t.Tiers) == 0 {
		return ErrEmptyTable
	}
	seen := make(map[string]struct{}, len(t.Tiers))
	prev := 0
	for _, tier := range t.Tiers {
		name := strings.TrimSpace(tier.Name)
		if name == "" {
			return errors.New("tier name must not be empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate tier %q", name)
		}
		seen[name] = struct{}{}
		if tier.Capacity <= prev {
			return fmt.Errorf("tier %q: capacity %d must exceed %d", name, tier.Capacity, prev)
		}
		if tier.PricePerDay <= 0 {
			return fmt.Errorf("tier %q: price must be positive", name)
		}
		prev = tier.Capacity
	}
	return nil
}

// MaxCapacity is the largest party a single tier can host.
func (t *Table) MaxCapacity() int {
	if len(t.Tiers) == 0 {
		return 0
	}
	return t.Tiers[len(t.Tiers)-1].Capacity
}

// Tier looks up a tier by exact name.
func (t *Table) Tier(name string) (Tier, bool) {
	for _, tier := range t.Tiers {
		if tier.Name == name {
			return tier, true
		}
	}
	return Tier{}, false
}

// ParseTierName strips a trailing " (...)" annotation from a display label,
// so "Group Lodge (6 People - ₹22000/Day)" becomes "Group Lodge".
func ParseTierName(label string) string {
	name, _, _ := strings.Cut(label, " (")
	return strings.TrimSpace(name)
}

// Lookup resolves a plain or decorated tier label.
func (t *Table) Lookup(label string) (Tier, error) {
	name := ParseTierName(label)
	tier, ok := t.Tier(name)
	if !ok {
		return Tier{}, fmt.Errorf("%w: %q", ErrUnknownTier, name)
	}
	return tier, nil
}
