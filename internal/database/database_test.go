package database

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"homestay-booking/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockService(t *testing.T) (*service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, _ := test.NewNullLogger()
	return &service{db: db, name: "homestay", log: log}, mock
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCountRoomConflicts(t *testing.T) {
	s, mock := newMockService(t)

	dates := models.DateRange{Start: day(2024, time.July, 3), End: day(2024, time.July, 6)}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM homestay_bookings")).
		WithArgs("Group Lodge", dates.Start, dates.End).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	n, err := s.CountRoomConflicts(context.Background(), "Group Lodge", dates)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountVehicleConflicts(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM vehicle_bookings")).
		WithArgs("Activa", day(2024, time.July, 2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	n, err := s.CountVehicleConflicts(context.Background(), "Activa", day(2024, time.July, 2))
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func roomBooking() *models.Booking {
	return &models.Booking{
		GuestName:      "Asha",
		ContactEmail:   "asha@example.com",
		ContactPhone:   "9800000000",
		ResourceType:   models.ResourceRoom,
		ResourceID:     "Group Lodge",
		StartDate:      day(2024, time.July, 1),
		EndDate:        day(2024, time.July, 5),
		PartySizeOrAge: 5,
		TotalAmount:    88000,
	}
}

func TestCreateRoomBooking(t *testing.T) {
	s, mock := newMockService(t)
	booking := roomBooking()
	created := time.Date(2024, time.June, 20, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM homestay_bookings")).
		WithArgs("Group Lodge", booking.StartDate, booking.EndDate).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO homestay_bookings")).
		WithArgs("Asha", "asha@example.com", "9800000000", booking.StartDate, booking.EndDate, 5, "Group Lodge", int64(88000), models.StatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))
	mock.ExpectCommit()

	err := s.CreateRoomBooking(context.Background(), booking)
	require.NoError(t, err)
	assert.Equal(t, int64(42), booking.ID)
	assert.Equal(t, created, booking.CreatedAt)
	assert.Equal(t, models.StatusConfirmed, booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRoomBooking_ConflictDoesNotInsert(t *testing.T) {
	s, mock := newMockService(t)
	booking := roomBooking()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM homestay_bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := s.CreateRoomBooking(context.Background(), booking)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Zero(t, booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRoomBooking_SerializationFailureIsConflict(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM homestay_bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO homestay_bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))
	mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})

	err := s.CreateRoomBooking(context.Background(), roomBooking())
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVehicleBooking_UniqueViolationIsConflict(t *testing.T) {
	s, mock := newMockService(t)
	booking := &models.Booking{
		GuestName:      "Ravi",
		ResourceType:   models.ResourceVehicle,
		ResourceID:     "Activa",
		StartDate:      day(2024, time.July, 1),
		EndDate:        day(2024, time.July, 1),
		PartySizeOrAge: 25,
		Days:           2,
		TotalAmount:    800,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM vehicle_bookings")).
		WithArgs("Activa", booking.StartDate).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO vehicle_bookings")).
		WithArgs("Ravi", 25, "Activa", booking.StartDate, 2, int64(800), models.StatusConfirmed).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := s.CreateVehicleBooking(context.Background(), booking)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVehicleBooking_InsertFailureSurfaces(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM vehicle_bookings")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO vehicle_bookings")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := s.CreateVehicleBooking(context.Background(), &models.Booking{ResourceID: "Activa", StartDate: day(2024, time.July, 1)})
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllBookings_Vehicles(t *testing.T) {
	s, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{"id", "name", "age", "bike_name", "rental_date", "num_days", "total_amount", "status", "created_at"}).
		AddRow(int64(1), "Ravi", 25, "Activa", day(2024, time.July, 1), 3, int64(1200), "confirmed", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicle_bookings ORDER BY id")).WillReturnRows(rows)

	bookings, err := s.GetAllBookings(context.Background(), models.ResourceVehicle)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Activa", bookings[0].ResourceID)
	assert.Equal(t, bookings[0].StartDate, bookings[0].EndDate)
	assert.Equal(t, models.ResourceVehicle, bookings[0].ResourceType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllBookings_UnknownType(t *testing.T) {
	s, _ := newMockService(t)

	_, err := s.GetAllBookings(context.Background(), models.ResourceType("boat"))
	assert.Error(t, err)
}

func TestCancelBooking(t *testing.T) {
	s, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "phone", "check_in_date", "check_out_date", "num_members", "room_type", "total_amount", "status", "created_at"}).
		AddRow(int64(9), "Asha", "asha@example.com", "98", day(2024, time.July, 1), day(2024, time.July, 5), 5, "Group Lodge", int64(88000), "cancelled", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE homestay_bookings SET status = 'cancelled'")).
		WithArgs(int64(9)).
		WillReturnRows(rows)

	booking, err := s.CancelBooking(context.Background(), models.ResourceRoom, 9)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBooking_NotFound(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE vehicle_bookings SET status = 'cancelled'")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.CancelBooking(context.Background(), models.ResourceVehicle, 3)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVehicle(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicle_types WHERE vehicle_name = $1")).
		WithArgs("Royal Enfield").
		WillReturnRows(sqlmock.NewRows([]string{"vehicle_name", "price_per_day", "is_available"}).AddRow("Royal Enfield", int64(1200), true))
	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicle_types WHERE vehicle_name = $1")).
		WithArgs("Scooty").
		WillReturnError(sql.ErrNoRows)

	v, err := s.GetVehicle(context.Background(), "Royal Enfield")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), v.PricePerDay)
	assert.True(t, v.Available)

	_, err = s.GetVehicle(context.Background(), "Scooty")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetVehicleAvailability(t *testing.T) {
	s, mock := newMockService(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE vehicle_types SET is_available = $1")).
		WithArgs(false, "Activa").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, s.SetVehicleAvailability(context.Background(), "Activa", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	log, _ := test.NewNullLogger()
	s := &service{db: db, log: log}

	mock.ExpectPing()

	stats := s.Health()
	assert.Equal(t, "up", stats["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
