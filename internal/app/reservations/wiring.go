package reservations

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	availabilityhandlers "staybook/internal/app/handlers/availability"
	bookinghandlers "staybook/internal/app/handlers/booking"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
)

// Options configure the engine. Zero values fall back to the defaults.
type Options struct {
	Factory           uow.UoWFactory
	Idempotency       middleware.IdempotencyStore
	IdempotencyTTL    time.Duration
	Authorizer        domainbooking.Authorizer
	MaxNights         int
	CutoffDays        int
	TxRetries         int
	TxBackoff         time.Duration
	SweepBatch        int
	StalePendingAfter time.Duration
	Clock             func() time.Time
	NewID             func() string
	EventHeaders      func(ctx context.Context) map[string]string
	Logger            *slog.Logger
}

// New registers every handler on fresh buses and wraps the command bus with
// validation, authorization, idempotency, retry and transaction middleware,
// outermost first.
func New(opts Options) *Service {
	if opts.Factory == nil {
		panic("reservations: uow factory required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lifecycle := domainbooking.NewLifecycle(opts.Authorizer, opts.CutoffDays)
	encoder := outbox.JSONEventEncoder{IDGenerator: uuid.NewString, Headers: opts.EventHeaders}

	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookinghandlers.CreateBookingCommand, dto.Booking](cmdBus, bookinghandlers.CreateBookingKey,
		&bookinghandlers.CreateBookingHandler{MaxNights: opts.MaxNights, Encoder: encoder})
	commands.RegisterHandler[bookinghandlers.TransitionBookingCommand, dto.Booking](cmdBus, bookinghandlers.TransitionBookingKey,
		&bookinghandlers.TransitionBookingHandler{Lifecycle: lifecycle, Encoder: encoder})
	commands.RegisterHandler[bookinghandlers.RescheduleBookingCommand, dto.Booking](cmdBus, bookinghandlers.RescheduleBookingKey,
		&bookinghandlers.RescheduleBookingHandler{Lifecycle: lifecycle, MaxNights: opts.MaxNights, Encoder: encoder})

	mws := []middleware.CommandMiddleware{
		middleware.Validation(middleware.StructValidator{}),
		middleware.Authorization(middleware.RequireActor),
	}
	if opts.Idempotency != nil {
		mws = append(mws, middleware.Idempotency(opts.Idempotency, nil, opts.IdempotencyTTL))
	}
	mws = append(mws,
		middleware.Retry(middleware.RetryPolicy{
			Attempts:  opts.TxRetries,
			Backoff:   opts.TxBackoff,
			Exhausted: domainbooking.ErrUnavailable,
			Logger:    logger,
		}),
		middleware.Transaction(opts.Factory, nil),
	)

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[bookinghandlers.GetBookingQuery, dto.Booking](queryBus, bookinghandlers.GetBookingKey,
		&bookinghandlers.GetBookingHandler{UoWFactory: opts.Factory, Lifecycle: lifecycle})
	queries.RegisterHandler[bookinghandlers.ListListingBookingsQuery, dto.BookingCollection](queryBus, bookinghandlers.ListListingBookingsKey,
		&bookinghandlers.ListListingBookingsHandler{UoWFactory: opts.Factory})
	queries.RegisterHandler[bookinghandlers.ListMyBookingsQuery, dto.BookingCollection](queryBus, bookinghandlers.ListMyBookingsKey,
		&bookinghandlers.ListMyBookingsHandler{UoWFactory: opts.Factory})
	queries.RegisterHandler[bookinghandlers.FindSweepCandidatesQuery, []domainbooking.BookingID](queryBus, bookinghandlers.FindSweepCandidatesKey,
		&bookinghandlers.FindSweepCandidatesHandler{UoWFactory: opts.Factory})
	queries.RegisterHandler[availabilityhandlers.GetCalendarQuery, dto.Calendar](queryBus, availabilityhandlers.GetCalendarKey,
		&availabilityhandlers.GetCalendarHandler{UoWFactory: opts.Factory})

	queryMws := []middleware.QueryMiddleware{
		middleware.QueryValidation(middleware.StructValidator{}),
		middleware.QueryAuthorization(middleware.RequireActor),
	}

	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Service{
		Commands:          middleware.ChainCommands(cmdBus, mws...),
		Queries:           middleware.ChainQueries(queryBus, queryMws...),
		Clock:             clock,
		NewID:             newID,
		SweepBatch:        opts.SweepBatch,
		StalePendingAfter: opts.StalePendingAfter,
		Logger:            logger,
	}
}
