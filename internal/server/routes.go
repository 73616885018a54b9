package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"homestay-booking/internal/booking"
	"homestay-booking/internal/idempotency"
	"homestay-booking/internal/models"
	"homestay-booking/internal/pricing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RegisterRoutes sets up the router with all endpoints.
func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(s.visitors.middleware)

	r.Get("/health", s.healthHandler)
	r.Get("/availability", s.AvailabilityHandler)
	r.Get("/quote", s.RoomQuoteHandler)
	r.Get("/quote/vehicle", s.VehicleQuoteHandler)
	r.Get("/vehicles", s.ListVehiclesHandler)

	// Endpoints for bookings
	r.Get("/bookings", s.GetAllBookingsHandler)
	r.Post("/bookings/room", s.CreateRoomBookingHandler)
	r.Post("/bookings/vehicle", s.CreateVehicleBookingHandler)
	r.Post("/bookings/{type}/{id}/cancel", s.CancelBookingHandler)

	return r
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type quoteResponse struct {
	models.Quote
	Label string `json:"label,omitempty"`
}

// healthHandler provides health information.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := s.db.Health()
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, stats)
}

// AvailabilityHandler answers whether a room tier or vehicle is free.
// Rooms use check_in/check_out when given and fall back to date.
func (s *Server) AvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := models.ResourceType(q.Get("type"))

	var (
		resourceID string
		dates      models.DateRange
		err        error
	)
	switch kind {
	case models.ResourceRoom:
		resourceID = pricing.ParseTierName(q.Get("room_type"))
		if resourceID != "" {
			if _, ok := s.bookings.Prices().Tier(resourceID); !ok {
				s.writeError(w, &booking.Error{Kind: booking.ErrUnknownResource, Message: fmt.Sprintf("Unknown room type %q.", resourceID)})
				return
			}
		}
		dates, err = roomRange(q)
	case models.ResourceVehicle:
		resourceID = q.Get("vehicle")
		dates, err = singleDate(q.Get("date"))
	default:
		s.writeError(w, &booking.Error{Kind: booking.ErrValidation, Message: "type must be room or vehicle"})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	avail, err := s.bookings.Checker().IsAvailable(r.Context(), kind, resourceID, dates)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, avail)
}

func roomRange(q url.Values) (models.DateRange, error) {
	start := q.Get("check_in")
	if start == "" {
		start = q.Get("date")
	}
	end := q.Get("check_out")
	if end == "" {
		end = start
	}
	from, err := singleDate(start)
	if err != nil {
		return models.DateRange{}, err
	}
	to, err := singleDate(end)
	if err != nil {
		return models.DateRange{}, err
	}
	return models.DateRange{Start: from.Start, End: to.Start}, nil
}

func singleDate(s string) (models.DateRange, error) {
	if s == "" {
		return models.DateRange{}, &booking.Error{Kind: booking.ErrValidation, Message: "date is required"}
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return models.DateRange{}, &booking.Error{Kind: booking.ErrValidation, Message: err.Error(), Err: err}
	}
	return models.SingleDay(d), nil
}

// RoomQuoteHandler suggests a room for the party and prices the stay.
func (s *Server) RoomQuoteHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quote, tier, err := s.bookings.QuoteRoom(q.Get("members"), q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Quote: quote, Label: tier.Label()})
}

// VehicleQuoteHandler prices a rental of days days.
func (s *Server) VehicleQuoteHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quote, err := s.bookings.QuoteVehicle(r.Context(), q.Get("vehicle"), q.Get("days"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{Quote: quote})
}

// ListVehiclesHandler returns the vehicle catalogue.
func (s *Server) ListVehiclesHandler(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.db.ListVehicles(r.Context())
	if err != nil {
		s.log.WithError(err).Error("Error retrieving vehicles")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: "Internal Server Error"})
		return
	}
	if vehicles == nil {
		vehicles = []models.Resource{}
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// GetAllBookingsHandler retrieves bookings of one type, or both when type is empty.
func (s *Server) GetAllBookingsHandler(w http.ResponseWriter, r *http.Request) {
	kinds := []models.ResourceType{models.ResourceRoom, models.ResourceVehicle}
	if t := r.URL.Query().Get("type"); t != "" {
		kind := models.ResourceType(t)
		if !kind.Valid() {
			s.writeError(w, &booking.Error{Kind: booking.ErrValidation, Message: "type must be room or vehicle"})
			return
		}
		kinds = []models.ResourceType{kind}
	}

	bookings := []models.Booking{}
	for _, kind := range kinds {
		list, err := s.db.GetAllBookings(r.Context(), kind)
		if err != nil {
			s.log.WithError(err).Error("Error retrieving bookings")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: "Internal Server Error"})
			return
		}
		bookings = append(bookings, list...)
	}

	writeJSON(w, http.StatusOK, bookings)
}

// CreateRoomBookingHandler handles homestay booking submissions.
func (s *Server) CreateRoomBookingHandler(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		s.writeError(w, &booking.Error{Kind: booking.ErrValidation, Message: "Invalid request payload", Err: err})
		return
	}

	req := booking.RoomRequest{
		Name:     form.Get("name"),
		Email:    form.Get("email"),
		Phone:    form.Get("phone"),
		CheckIn:  form.Get("check_in"),
		CheckOut: form.Get("check_out"),
		Members:  form.Get("members"),
		RoomType: form.Get("room_type"),
	}

	s.submit(w, r, "room", func() (*booking.Result, error) {
		return s.bookings.SubmitRoom(r.Context(), req)
	})
}

// CreateVehicleBookingHandler handles vehicle rental submissions.
func (s *Server) CreateVehicleBookingHandler(w http.ResponseWriter, r *http.Request) {
	form, err := formValues(r)
	if err != nil {
		s.writeError(w, &booking.Error{Kind: booking.ErrValidation, Message: "Invalid request payload", Err: err})
		return
	}

	req := booking.VehicleRequest{
		Name:     form.Get("name"),
		Age:      form.Get("age"),
		BikeName: form.Get("bikeName"),
		Date:     form.Get("date"),
		Days:     form.Get("days"),
	}

	s.submit(w, r, "vehicle", func() (*booking.Result, error) {
		return s.bookings.SubmitVehicle(r.Context(), req)
	})
}

// submit runs fn, replaying a stored result when the Idempotency-Key header
// matches an earlier successful submission.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, scope string, fn func() (*booking.Result, error)) {
	ctx := r.Context()
	key := ""
	if h := strings.TrimSpace(r.Header.Get("Idempotency-Key")); h != "" && s.idem != nil {
		key = scope + ":" + h
		replay, err := s.idem.Begin(ctx, key)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			writeJSON(w, http.StatusConflict, errorResponse{Status: "error", Message: err.Error()})
			return
		case err != nil:
			s.log.WithError(err).Warn("Idempotency store unavailable")
			key = ""
		case replay != nil:
			writeJSON(w, http.StatusOK, replay)
			return
		}
	}

	res, err := fn()
	if err != nil {
		if key != "" {
			if abortErr := s.idem.Abort(ctx, key); abortErr != nil {
				s.log.WithError(abortErr).Warn("Could not release idempotency key")
			}
		}
		s.writeError(w, err)
		return
	}

	if key != "" {
		if err := s.idem.Complete(ctx, key, res); err != nil {
			s.log.WithError(err).Warn("Could not store idempotent result")
		}
	}
	writeJSON(w, http.StatusCreated, res)
}

// CancelBookingHandler cancels a confirmed booking.
func (s *Server) CancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	kind := models.ResourceType(chi.URLParam(r, "type"))
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, &booking.Error{Kind: booking.ErrValidation, Message: "booking id must be a positive integer"})
		return
	}

	cancelled, err := s.bookings.Cancel(r.Context(), kind, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelled)
}

// formValues accepts urlencoded, multipart and JSON bodies. JSON numbers
// are kept in their literal form.
func formValues(r *http.Request) (url.Values, error) {
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/json"):
		var body map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return nil, err
		}
		values := url.Values{}
		for k, v := range body {
			if v == nil {
				continue
			}
			values.Set(k, fmt.Sprint(v))
		}
		return values, nil
	case strings.HasPrefix(ct, "multipart/form-data"):
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrAgeRestriction):
		return http.StatusForbidden
	case errors.Is(err, booking.ErrValidation), errors.Is(err, booking.ErrInvalidRoomSelection):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrUnknownResource), errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrUnavailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := "Internal Server Error"
	var bErr *booking.Error
	if errors.As(err, &bErr) {
		msg = bErr.Message
	}
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("Request failed")
	}
	writeJSON(w, status, errorResponse{Status: "error", Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
