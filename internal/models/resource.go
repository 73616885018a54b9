package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Resource is bookable reference data. Capacity is only set for room tiers.
// Available mirrors vehicle_types.is_available and is a hint, not a lock.
type Resource struct {
	Identifier  string       `json:"identifier"`
	Kind        ResourceType `json:"kind"`
	PricePerDay int64        `json:"price_per_day"`
	Capacity    int          `json:"capacity,omitempty"`
	Available   bool         `json:"is_available"`
}

// DateRange is an inclusive span of calendar days in UTC.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SingleDay returns a range covering exactly one date.
func SingleDay(d time.Time) DateRange {
	return DateRange{Start: d, End: d}
}

// Overlaps uses the inclusive-inclusive test other.Start <= r.End && other.End >= r.Start.
func (r DateRange) Overlaps(other DateRange) bool {
	return !other.Start.After(r.End) && !other.End.Before(r.Start)
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// ParseDate parses a YYYY-MM-DD string as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Quote is a derived price for a stay. It is never persisted.
type Quote struct {
	Tier        string `json:"tier"`
	Capacity    int    `json:"capacity"`
	PricePerDay int64  `json:"price_per_day"`
	Nights      int    `json:"nights"`
	TotalAmount int64  `json:"total_amount"`
}
