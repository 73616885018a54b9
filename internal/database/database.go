package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"homestay-booking/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	// PostgreSQL driver
	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	// ErrConflict is returned when an insert would double-book a resource.
	ErrConflict = errors.New("resource already booked for the requested dates")
	ErrNotFound = errors.New("not found")
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error

	CountRoomConflicts(ctx context.Context, tier string, dates models.DateRange) (int, error)
	CountVehicleConflicts(ctx context.Context, vehicle string, date time.Time) (int, error)

	// CreateRoomBooking and CreateVehicleBooking check for conflicts and
	// insert inside one serializable transaction. They return ErrConflict
	// instead of inserting when the resource is taken.
	CreateRoomBooking(ctx context.Context, booking *models.Booking) error
	CreateVehicleBooking(ctx context.Context, booking *models.Booking) error

	GetAllBookings(ctx context.Context, kind models.ResourceType) ([]models.Booking, error)
	CancelBooking(ctx context.Context, kind models.ResourceType, id int64) (*models.Booking, error)

	GetVehicle(ctx context.Context, name string) (*models.Resource, error)
	ListVehicles(ctx context.Context) ([]models.Resource, error)
	SetVehicleAvailability(ctx context.Context, name string, available bool) error
}

// Config holds connection settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Schema   string
}

// DSN renders the pgx connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Schema,
	)
}

type service struct {
	db   *sql.DB
	name string
	log  logrus.FieldLogger
}

// New opens a connection pool. The caller owns the returned Service and
// must Close it.
func New(cfg Config, log logrus.FieldLogger) (Service, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %s: %w", cfg.Database, err)
	}

	log.WithField("database", cfg.Database).Info("Connected to database")
	return NewWithDB(db, cfg.Database, log), nil
}

// NewWithDB wraps an existing handle.
func NewWithDB(db *sql.DB, name string, log logrus.FieldLogger) Service {
	return &service{db: db, name: name, log: log}
}

// DB exposes the underlying handle for migrations.
func DB(s Service) (*sql.DB, bool) {
	svc, ok := s.(*service)
	if !ok {
		return nil, false
	}
	return svc.db, true
}

// Health checks the health of the database connection by pinging the database.
// It returns a map with keys indicating various health statistics.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	// Ping the database
	err := s.db.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.log.WithError(err).Error("db down")
		return stats
	}

	// Database is up, add more statistics
	stats["status"] = "up"
	stats["message"] = "It's healthy"

	// Get database stats (like open connections, in use, idle, etc.)
	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	// Evaluate stats to provide a health message
	if dbStats.OpenConnections > 20 {
		stats["message"] = "The database is experiencing heavy load."
	}

	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	s.log.WithField("database", s.name).Info("Disconnected from database")
	return s.db.Close()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conflict predicate for rooms: existing.check_in <= end AND existing.check_out >= start.
const roomConflictQuery = `
		SELECT COUNT(*) FROM homestay_bookings
		WHERE room_type = $1
		AND check_in_date <= $3
		AND check_out_date >= $2
		AND status <> 'cancelled'
	`

const vehicleConflictQuery = `
		SELECT COUNT(*) FROM vehicle_bookings
		WHERE bike_name = $1
		AND rental_date = $2
		AND status <> 'cancelled'
	`

func countConflicts(ctx context.Context, q queryer, query string, args ...any) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *service) CountRoomConflicts(ctx context.Context, tier string, dates models.DateRange) (int, error) {
	n, err := countConflicts(ctx, s.db, roomConflictQuery, tier, dates.Start, dates.End)
	if err != nil {
		return 0, fmt.Errorf("count room conflicts: %w", err)
	}
	return n, nil
}

func (s *service) CountVehicleConflicts(ctx context.Context, vehicle string, date time.Time) (int, error) {
	n, err := countConflicts(ctx, s.db, vehicleConflictQuery, vehicle, date)
	if err != nil {
		return 0, fmt.Errorf("count vehicle conflicts: %w", err)
	}
	return n, nil
}

func (s *service) CreateRoomBooking(ctx context.Context, booking *models.Booking) error {
	insert := `
		INSERT INTO homestay_bookings (name, email, phone, check_in_date, check_out_date, num_members, room_type, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	return s.insertExclusive(ctx, booking,
		func(tx *sql.Tx) (int, error) {
			return countConflicts(ctx, tx, roomConflictQuery, booking.ResourceID, booking.StartDate, booking.EndDate)
		},
		insert,
		booking.GuestName,
		booking.ContactEmail,
		booking.ContactPhone,
		booking.StartDate,
		booking.EndDate,
		booking.PartySizeOrAge,
		booking.ResourceID,
		booking.TotalAmount,
		models.StatusConfirmed,
	)
}

func (s *service) CreateVehicleBooking(ctx context.Context, booking *models.Booking) error {
	insert := `
		INSERT INTO vehicle_bookings (name, age, bike_name, rental_date, num_days, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return s.insertExclusive(ctx, booking,
		func(tx *sql.Tx) (int, error) {
			return countConflicts(ctx, tx, vehicleConflictQuery, booking.ResourceID, booking.StartDate)
		},
		insert,
		booking.GuestName,
		booking.PartySizeOrAge,
		booking.ResourceID,
		booking.StartDate,
		booking.Days,
		booking.TotalAmount,
		models.StatusConfirmed,
	)
}

// insertExclusive runs the conflict check and the insert in one
// serializable transaction so two concurrent requests cannot both succeed.
func (s *service) insertExclusive(ctx context.Context, booking *models.Booking, conflicts func(*sql.Tx) (int, error), insert string, args ...any) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := conflicts(tx)
	if err != nil {
		return classify(fmt.Errorf("check conflicts: %w", err))
	}
	if n > 0 {
		return ErrConflict
	}

	var id int64
	var createdAt time.Time
	if err := tx.QueryRowContext(ctx, insert, args...).Scan(&id, &createdAt); err != nil {
		return classify(fmt.Errorf("insert booking: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit booking: %w", err))
	}

	booking.ID = id
	booking.CreatedAt = createdAt
	booking.Status = models.StatusConfirmed
	return nil
}

// classify maps serialization failures and unique violations to ErrConflict.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "23505":
			return fmt.Errorf("%w (%s)", ErrConflict, pgErr.Code)
		}
	}
	return err
}

const roomColumns = `id, name, email, phone, check_in_date, check_out_date, num_members, room_type, total_amount, status, created_at`

const vehicleColumns = `id, name, age, bike_name, rental_date, num_days, total_amount, status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(row scanner) (models.Booking, error) {
	b := models.Booking{ResourceType: models.ResourceRoom}
	err := row.Scan(
		&b.ID,
		&b.GuestName,
		&b.ContactEmail,
		&b.ContactPhone,
		&b.StartDate,
		&b.EndDate,
		&b.PartySizeOrAge,
		&b.ResourceID,
		&b.TotalAmount,
		&b.Status,
		&b.CreatedAt,
	)
	return b, err
}

func scanVehicle(row scanner) (models.Booking, error) {
	b := models.Booking{ResourceType: models.ResourceVehicle}
	err := row.Scan(
		&b.ID,
		&b.GuestName,
		&b.PartySizeOrAge,
		&b.ResourceID,
		&b.StartDate,
		&b.Days,
		&b.TotalAmount,
		&b.Status,
		&b.CreatedAt,
	)
	b.EndDate = b.StartDate
	return b, err
}

func tableFor(kind models.ResourceType) (table, columns string, scan func(scanner) (models.Booking, error), err error) {
	switch kind {
	case models.ResourceRoom:
		return "homestay_bookings", roomColumns, scanRoom, nil
	case models.ResourceVehicle:
		return "vehicle_bookings", vehicleColumns, scanVehicle, nil
	}
	return "", "", nil, fmt.Errorf("unknown resource type %q", kind)
}

func (s *service) GetAllBookings(ctx context.Context, kind models.ResourceType) ([]models.Booking, error) {
	table, columns, scan, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY id`, columns, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		booking, err := scan(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// CancelBooking moves a confirmed booking to cancelled. Bookings that are
// missing or already cancelled yield ErrNotFound.
func (s *service) CancelBooking(ctx context.Context, kind models.ResourceType, id int64) (*models.Booking, error) {
	table, columns, scan, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE %s SET status = 'cancelled'
		WHERE id = $1 AND status = 'confirmed'
		RETURNING %s
	`, table, columns)

	booking, err := scan(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cancel booking %d: %w", id, err)
	}
	return &booking, nil
}

func (s *service) GetVehicle(ctx context.Context, name string) (*models.Resource, error) {
	query := `SELECT vehicle_name, price_per_day, is_available FROM vehicle_types WHERE vehicle_name = $1`

	v := models.Resource{Kind: models.ResourceVehicle}
	err := s.db.QueryRowContext(ctx, query, name).Scan(&v.Identifier, &v.PricePerDay, &v.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vehicle %q: %w", name, err)
	}
	return &v, nil
}

func (s *service) ListVehicles(ctx context.Context) ([]models.Resource, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vehicle_name, price_per_day, is_available FROM vehicle_types ORDER BY vehicle_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Resource
	for rows.Next() {
		v := models.Resource{Kind: models.ResourceVehicle}
		if err := rows.Scan(&v.Identifier, &v.PricePerDay, &v.Available); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (s *service) SetVehicleAvailability(ctx context.Context, name string, available bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE vehicle_types SET is_available = $1 WHERE vehicle_name = $2`, available, name)
	if err != nil {
		return fmt.Errorf("update availability of %q: %w", name, err)
	}
	return nil
}
