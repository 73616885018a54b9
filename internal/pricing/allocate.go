package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"homestay-booking/internal/models"
)

type Outcome int

const (
	OutcomeInvalid Outcome = iota
	OutcomeTier
	OutcomeCustom
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTier:
		return "tier"
	case OutcomeCustom:
		return "custom"
	default:
		return "invalid"
	}
}

// Allocation is the result of matching a party to a room tier.
// Tier is only meaningful when Outcome is OutcomeTier.
type Allocation struct {
	Outcome Outcome
	Tier    Tier
}

// Err returns nil for a tier match and the matching sentinel otherwise.
func (a Allocation) Err() error {
	switch a.Outcome {
	case OutcomeTier:
		return nil
	case OutcomeCustom:
		return ErrCustomArrangement
	default:
		return ErrInvalidPartySize
	}
}

// Allocate picks the first tier that fits partySize.
func (t *Table) Allocate(partySize int) Allocation {
	if partySize <= 0 {
		return Allocation{Outcome: OutcomeInvalid}
	}
	for _, tier := range t.Tiers {
		if partySize <= tier.Capacity {
			return Allocation{Outcome: OutcomeTier, Tier: tier}
		}
	}
	return Allocation{Outcome: OutcomeCustom}
}

// AllocateInput is Allocate for raw form input; non-numeric input is invalid.
func (t *Table) AllocateInput(members string) Allocation {
	n, err := strconv.Atoi(strings.TrimSpace(members))
	if err != nil {
		return Allocation{Outcome: OutcomeInvalid}
	}
	return t.Allocate(n)
}

// Stay is the number of nights between two dates.
type Stay struct {
	Nights int
	Valid  bool
}

// ComputeStay counts whole calendar days from checkIn to checkOut.
// A stay is valid only when checkOut is strictly after checkIn.
func ComputeStay(checkIn, checkOut time.Time) Stay {
	nights := int(civilDay(checkOut) - civilDay(checkIn))
	return Stay{Nights: nights, Valid: nights >= 1}
}

// civilDay numbers calendar days since the Unix epoch.
func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

const secondsPerDay = 24 * 60 * 60

// Total multiplies nights by the tier's daily price.
func (s Stay) Total(tier Tier) int64 {
	return int64(s.Nights) * tier.PricePerDay
}

// Quote allocates a tier for partySize and prices the stay.
func (t *Table) Quote(partySize int, checkIn, checkOut time.Time) (models.Quote, error) {
	alloc := t.Allocate(partySize)
	if err := alloc.Err(); err != nil {
		return models.Quote{}, err
	}
	stay := ComputeStay(checkIn, checkOut)
	if !stay.Valid {
		return models.Quote{}, fmt.Errorf("%w: %d nights", ErrInvalidStay, stay.Nights)
	}
	return models.Quote{
		Tier:        alloc.Tier.Name,
		Capacity:    alloc.Tier.Capacity,
		PricePerDay: alloc.Tier.PricePerDay,
		Nights:      stay.Nights,
		TotalAmount: stay.Total(alloc.Tier),
	}, nil
}
