package models

import "time"

type ResourceType string

const (
	ResourceRoom    ResourceType = "room"
	ResourceVehicle ResourceType = "vehicle"
)

// Valid reports whether t is one of the bookable resource kinds.
func (t ResourceType) Valid() bool {
	return t == ResourceRoom || t == ResourceVehicle
}

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking is a persisted reservation of a room tier or a vehicle.
// Vehicle bookings have StartDate == EndDate (the rental date).
type Booking struct {
	ID             int64         `json:"id"`
	GuestName      string        `json:"guest_name"`
	ContactEmail   string        `json:"contact_email,omitempty"`
	ContactPhone   string        `json:"contact_phone,omitempty"`
	ResourceType   ResourceType  `json:"resource_type"`
	ResourceID     string        `json:"resource_id"`
	StartDate      time.Time     `json:"start_date"`
	EndDate        time.Time     `json:"end_date"`
	PartySizeOrAge int           `json:"party_size_or_age"`
	Days           int           `json:"days,omitempty"`
	TotalAmount    int64         `json:"total_amount"`
	Status         BookingStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Range returns the booked dates.
func (b *Booking) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}
