package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"homestay-booking/internal/booking"
	"homestay-booking/internal/database"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Idempotency replays booking results for retried submissions.
// *idempotency.Store satisfies it.
type Idempotency interface {
	Begin(ctx context.Context, key string) (*booking.Result, error)
	Complete(ctx context.Context, key string, res *booking.Result) error
	Abort(ctx context.Context, key string) error
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	DB          database.Service
	Bookings    *booking.Processor
	Idempotency Idempotency // optional
	Log         logrus.FieldLogger
	RateLimit   rate.Limit
	Burst       int
}

type Server struct {
	db       database.Service
	bookings *booking.Processor
	idem     Idempotency
	log      logrus.FieldLogger
	visitors *visitors
}

func newServer(deps Deps) *Server {
	return &Server{
		db:       deps.DB,
		bookings: deps.Bookings,
		idem:     deps.Idempotency,
		log:      deps.Log,
		visitors: newVisitors(deps.RateLimit, deps.Burst),
	}
}

// NewServer builds the HTTP server listening on port.
func NewServer(port int, deps Deps) *http.Server {
	s := newServer(deps)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
