package booking

import (
	"context"
	"fmt"
	"time"

	"homestay-booking/internal/models"
)

// Store is the persistence the booking flow depends on.
// database.Service satisfies it.
type Store interface {
	CountRoomConflicts(ctx context.Context, tier string, dates models.DateRange) (int, error)
	CountVehicleConflicts(ctx context.Context, vehicle string, date time.Time) (int, error)
	CreateRoomBooking(ctx context.Context, booking *models.Booking) error
	CreateVehicleBooking(ctx context.Context, booking *models.Booking) error
	CancelBooking(ctx context.Context, kind models.ResourceType, id int64) (*models.Booking, error)
	GetVehicle(ctx context.Context, name string) (*models.Resource, error)
	SetVehicleAvailability(ctx context.Context, name string, available bool) error
}

// Availability is the answer to an availability query. A positive answer
// is advisory: a later submission can still lose the race.
type Availability struct {
	Available        bool `json:"available"`
	ConflictingCount int  `json:"bookings"`
}

// Checker answers availability queries without mutating anything.
type Checker struct {
	store Store
}

func NewChecker(store Store) *Checker {
	return &Checker{store: store}
}

// IsAvailable counts non-cancelled bookings that conflict with dates.
// Rooms conflict on any overlap of inclusive ranges; vehicles only when the
// rental date equals dates.Start.
func (c *Checker) IsAvailable(ctx context.Context, kind models.ResourceType, resourceID string, dates models.DateRange) (Availability, error) {
	if resourceID == "" {
		return Availability{}, reject(ErrValidation, "A %s must be specified.", kindNoun(kind))
	}

	var (
		n   int
		err error
	)
	switch kind {
	case models.ResourceRoom:
		if dates.End.Before(dates.Start) {
			return Availability{}, reject(ErrValidation, "Check-out date must not be before check-in date.")
		}
		n, err = c.store.CountRoomConflicts(ctx, resourceID, dates)
	case models.ResourceVehicle:
		n, err = c.store.CountVehicleConflicts(ctx, resourceID, dates.Start)
	default:
		return Availability{}, reject(ErrValidation, "Unknown resource type %q.", kind)
	}
	if err != nil {
		return Availability{}, &Error{Kind: ErrPersistence, Message: "Could not check availability.", Err: fmt.Errorf("availability of %s: %w", resourceID, err)}
	}

	return Availability{Available: n == 0, ConflictingCount: n}, nil
}

func kindNoun(kind models.ResourceType) string {
	if kind == models.ResourceVehicle {
		return "vehicle"
	}
	return "room type"
}
