package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"homestay-booking/internal/database"
	"homestay-booking/internal/models"
	"homestay-booking/internal/pricing"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// MinRentalAge is the youngest renter allowed to book a vehicle.
const MinRentalAge = 18

const notifyTimeout = 30 * time.Second

// Notifier delivers a confirmation message.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Processor validates, prices and persists bookings.
type Processor struct {
	store    Store
	checker  *Checker
	prices   *pricing.Table
	notifier Notifier
	validate *validator.Validate
	log      logrus.FieldLogger

	pending sync.WaitGroup
}

// NewProcessor wires a processor. notifier may be nil.
func NewProcessor(store Store, prices *pricing.Table, notifier Notifier, log logrus.FieldLogger) *Processor {
	return &Processor{
		store:    store,
		checker:  NewChecker(store),
		prices:   prices,
		notifier: notifier,
		validate: newValidator(),
		log:      log,
	}
}

// Checker returns the availability checker sharing this processor's store.
func (p *Processor) Checker() *Checker {
	return p.checker
}

// Prices returns the pricing table in use.
func (p *Processor) Prices() *pricing.Table {
	return p.prices
}

// Wait blocks until in-flight notifications finish.
func (p *Processor) Wait() {
	p.pending.Wait()
}

// QuoteRoom allocates a tier for the party and prices the stay.
func (p *Processor) QuoteRoom(members, checkIn, checkOut string) (models.Quote, pricing.Tier, error) {
	alloc := p.prices.AllocateInput(members)
	tier, err := p.allocated(alloc)
	if err != nil {
		return models.Quote{}, pricing.Tier{}, err
	}
	_, stay, err := parseStay(checkIn, checkOut)
	if err != nil {
		return models.Quote{}, pricing.Tier{}, err
	}
	return models.Quote{
		Tier:        tier.Name,
		Capacity:    tier.Capacity,
		PricePerDay: tier.PricePerDay,
		Nights:      stay.Nights,
		TotalAmount: stay.Total(tier),
	}, tier, nil
}

// QuoteVehicle prices a rental from the vehicle catalogue.
func (p *Processor) QuoteVehicle(ctx context.Context, vehicle, days string) (models.Quote, error) {
	n, err := parseDays(days)
	if err != nil {
		return models.Quote{}, err
	}
	v, err := p.vehicle(ctx, vehicle)
	if err != nil {
		return models.Quote{}, err
	}
	return models.Quote{
		Tier:        v.Identifier,
		PricePerDay: v.PricePerDay,
		Nights:      n,
		TotalAmount: v.PricePerDay * int64(n),
	}, nil
}

// SubmitRoom runs a room booking through validation, pricing and
// persistence. The booking is only reported confirmed once the insert
// has committed.
func (p *Processor) SubmitRoom(ctx context.Context, req RoomRequest) (*Result, error) {
	log := p.log.WithFields(logrus.Fields{"resource_type": models.ResourceRoom, "room_type": req.RoomType})

	if err := p.validate.Struct(req); err != nil {
		return nil, reject(ErrValidation, "%s.", validationMessage(err))
	}

	dates, stay, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	tier, err := p.allocated(p.prices.AllocateInput(req.Members))
	if err != nil {
		return nil, err
	}
	selected, err := p.prices.Lookup(req.RoomType)
	if err != nil {
		return nil, &Error{Kind: ErrUnknownResource, Message: fmt.Sprintf("Unknown room type %q.", pricing.ParseTierName(req.RoomType)), Err: err}
	}
	if selected.Name != tier.Name {
		return nil, reject(ErrInvalidRoomSelection, "%s does not fit a party of %s; %s is required.", selected.Name, strings.TrimSpace(req.Members), tier.Name)
	}

	booking := &models.Booking{
		GuestName:      strings.TrimSpace(req.Name),
		ContactEmail:   strings.TrimSpace(req.Email),
		ContactPhone:   strings.TrimSpace(req.Phone),
		ResourceType:   models.ResourceRoom,
		ResourceID:     tier.Name,
		StartDate:      dates.Start,
		EndDate:        dates.End,
		PartySizeOrAge: mustAtoi(req.Members),
		TotalAmount:    stay.Total(tier),
	}

	if err := p.ensureAvailable(ctx, booking); err != nil {
		return nil, err
	}

	if err := p.store.CreateRoomBooking(ctx, booking); err != nil {
		return nil, p.persistenceError(err, "Error processing booking")
	}

	log.WithFields(logrus.Fields{"booking_id": booking.ID, "total_amount": booking.TotalAmount, "nights": stay.Nights}).Info("Room booking confirmed")
	p.notify(booking)

	return &Result{
		Status:      "success",
		Message:     "Booking confirmed successfully!",
		BookingID:   booking.ID,
		TotalAmount: booking.TotalAmount,
	}, nil
}

// SubmitVehicle books a vehicle for a single rental date. Renters under
// MinRentalAge are rejected before anything else is looked at.
func (p *Processor) SubmitVehicle(ctx context.Context, req VehicleRequest) (*Result, error) {
	log := p.log.WithFields(logrus.Fields{"resource_type": models.ResourceVehicle, "vehicle": req.BikeName})

	age, ageErr := strconv.Atoi(strings.TrimSpace(req.Age))
	if ageErr == nil && age < MinRentalAge {
		return nil, reject(ErrAgeRestriction, "Must be at least %d years old to rent a vehicle", MinRentalAge)
	}

	if err := p.validate.Struct(req); err != nil {
		return nil, reject(ErrValidation, "%s.", validationMessage(err))
	}
	if ageErr != nil {
		return nil, reject(ErrValidation, "age must be a whole number.")
	}

	date, err := models.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, reject(ErrValidation, "Rental %s.", err)
	}
	days, err := parseDays(req.Days)
	if err != nil {
		return nil, err
	}

	vehicle, err := p.vehicle(ctx, strings.TrimSpace(req.BikeName))
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		GuestName:      strings.TrimSpace(req.Name),
		ResourceType:   models.ResourceVehicle,
		ResourceID:     vehicle.Identifier,
		StartDate:      date,
		EndDate:        date,
		PartySizeOrAge: age,
		Days:           days,
		TotalAmount:    vehicle.PricePerDay * int64(days),
	}

	if err := p.ensureAvailable(ctx, booking); err != nil {
		return nil, err
	}

	if err := p.store.CreateVehicleBooking(ctx, booking); err != nil {
		return nil, p.persistenceError(err, "Error processing rental")
	}

	// Advisory flag only; the booking itself is already committed.
	if err := p.store.SetVehicleAvailability(ctx, vehicle.Identifier, false); err != nil {
		log.WithError(err).Warn("Could not update vehicle availability flag")
	}

	log.WithFields(logrus.Fields{"booking_id": booking.ID, "total_amount": booking.TotalAmount}).Info("Vehicle rental confirmed")

	return &Result{
		Status:      "success",
		Message:     "Vehicle rental confirmed successfully!",
		BookingID:   booking.ID,
		TotalAmount: booking.TotalAmount,
	}, nil
}

// Cancel moves a confirmed booking to cancelled.
func (p *Processor) Cancel(ctx context.Context, kind models.ResourceType, id int64) (*models.Booking, error) {
	if !kind.Valid() {
		return nil, reject(ErrValidation, "Unknown resource type %q.", kind)
	}
	booking, err := p.store.CancelBooking(ctx, kind, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, reject(ErrNotFound, "No confirmed %s booking with id %d.", kind, id)
	}
	if err != nil {
		return nil, &Error{Kind: ErrPersistence, Message: "Error cancelling booking: " + err.Error(), Err: err}
	}

	if kind == models.ResourceVehicle {
		if err := p.store.SetVehicleAvailability(ctx, booking.ResourceID, true); err != nil {
			p.log.WithError(err).WithField("vehicle", booking.ResourceID).Warn("Could not restore vehicle availability flag")
		}
	}
	p.log.WithFields(logrus.Fields{"booking_id": id, "resource_type": kind}).Info("Booking cancelled")
	return booking, nil
}

func (p *Processor) allocated(alloc pricing.Allocation) (pricing.Tier, error) {
	switch alloc.Outcome {
	case pricing.OutcomeTier:
		return alloc.Tier, nil
	case pricing.OutcomeCustom:
		return pricing.Tier{}, &Error{
			Kind:    ErrInvalidRoomSelection,
			Message: fmt.Sprintf("Contact us for custom arrangements. We recommend contacting us for groups larger than %d.", p.prices.MaxCapacity()),
			Err:     pricing.ErrCustomArrangement,
		}
	default:
		return pricing.Tier{}, &Error{
			Kind:    ErrValidation,
			Message: "Please select the number of people and ensure a suitable room is suggested.",
			Err:     pricing.ErrInvalidPartySize,
		}
	}
}

func (p *Processor) vehicle(ctx context.Context, name string) (*models.Resource, error) {
	if name == "" {
		return nil, reject(ErrValidation, "bikeName is required.")
	}
	v, err := p.store.GetVehicle(ctx, name)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &Error{Kind: ErrUnknownResource, Message: "Vehicle not found in database", Err: err}
	}
	if err != nil {
		return nil, &Error{Kind: ErrPersistence, Message: "Could not look up vehicle.", Err: err}
	}
	return v, nil
}

func (p *Processor) ensureAvailable(ctx context.Context, booking *models.Booking) error {
	avail, err := p.checker.IsAvailable(ctx, booking.ResourceType, booking.ResourceID, booking.Range())
	if err != nil {
		return err
	}
	if !avail.Available {
		return unavailable(booking)
	}
	return nil
}

func (p *Processor) persistenceError(err error, prefix string) error {
	if errors.Is(err, database.ErrConflict) {
		return &Error{Kind: ErrUnavailable, Message: "The selected dates were just booked by someone else.", Err: err}
	}
	p.log.WithError(err).Error(prefix)
	return &Error{Kind: ErrPersistence, Message: prefix + ": " + err.Error(), Err: err}
}

func unavailable(booking *models.Booking) *Error {
	if booking.ResourceType == models.ResourceVehicle {
		return reject(ErrUnavailable, "%s is already booked on %s.", booking.ResourceID, booking.StartDate.Format(models.DateLayout))
	}
	return reject(ErrUnavailable, "%s is not available from %s.", booking.ResourceID, booking.Range())
}

// notify sends the confirmation in the background. Failures are logged and
// never change the booking outcome.
func (p *Processor) notify(booking *models.Booking) {
	if p.notifier == nil || booking.ContactEmail == "" {
		return
	}
	subject, body := confirmationEmail(booking)

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := p.notifier.Send(ctx, booking.ContactEmail, subject, body); err != nil {
			p.log.WithError(err).WithField("booking_id", booking.ID).Warn("Confirmation email not sent")
		}
	}()
}

func confirmationEmail(b *models.Booking) (subject, body string) {
	subject = "Booking Confirmation - Hillside Retreats"
	var sb strings.Builder
	fmt.Fprintf(&sb, "Dear %s,\n\n", b.GuestName)
	sb.WriteString("Thank you for booking with Hillside Retreats!\n\n")
	sb.WriteString("Booking Details:\n")
	fmt.Fprintf(&sb, "Booking ID: %d\n", b.ID)
	fmt.Fprintf(&sb, "Room: %s\n", b.ResourceID)
	fmt.Fprintf(&sb, "Check-in: %s\n", b.StartDate.Format(models.DateLayout))
	fmt.Fprintf(&sb, "Check-out: %s\n", b.EndDate.Format(models.DateLayout))
	fmt.Fprintf(&sb, "Number of Guests: %d\n", b.PartySizeOrAge)
	fmt.Fprintf(&sb, "Total Amount: ₹%d\n\n", b.TotalAmount)
	sb.WriteString("We look forward to hosting you!\n\n")
	sb.WriteString("Best regards,\nHillside Retreats Team")
	return subject, sb.String()
}

func parseStay(checkIn, checkOut string) (models.DateRange, pricing.Stay, error) {
	if strings.TrimSpace(checkIn) == "" || strings.TrimSpace(checkOut) == "" {
		return models.DateRange{}, pricing.Stay{}, reject(ErrValidation, "Please select both check-in and check-out dates.")
	}
	in, err := models.ParseDate(strings.TrimSpace(checkIn))
	if err != nil {
		return models.DateRange{}, pricing.Stay{}, reject(ErrValidation, "Check-in %s.", err)
	}
	out, err := models.ParseDate(strings.TrimSpace(checkOut))
	if err != nil {
		return models.DateRange{}, pricing.Stay{}, reject(ErrValidation, "Check-out %s.", err)
	}
	stay := pricing.ComputeStay(in, out)
	if !stay.Valid {
		return models.DateRange{}, pricing.Stay{}, &Error{Kind: ErrValidation, Message: "Check-out date must be after check-in date.", Err: pricing.ErrInvalidStay}
	}
	return models.DateRange{Start: in, End: out}, stay, nil
}

func parseDays(days string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(days))
	if err != nil || n < 1 {
		return 0, reject(ErrValidation, "days must be a whole number of at least 1.")
	}
	return n, nil
}

// mustAtoi is only called on input the allocator already accepted.
func mustAtoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
