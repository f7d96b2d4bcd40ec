package booking

import "errors"

// Error taxonomy shared by the reservation engine. Callers match kinds with
// errors.Is; concrete errors wrap one of these with context.
var (
	ErrValidation        = errors.New("validation error")
	ErrListingInactive   = errors.New("listing inactive")
	ErrDateUnavailable   = errors.New("date unavailable")
	ErrBookingOverlap    = errors.New("booking overlap")
	ErrOutOfWindow       = errors.New("out of window")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("unavailable")
)

// ErrConcurrentUpdate is returned by repositories when the stored version no
// longer matches; the surrounding transaction is retried.
var ErrConcurrentUpdate = errors.New("booking: concurrent update")

var kinds = []struct {
	err  error
	name string
}{
	{ErrValidation, "ValidationError"},
	{ErrListingInactive, "ListingInactive"},
	{ErrDateUnavailable, "DateUnavailable"},
	{ErrBookingOverlap, "BookingOverlap"},
	{ErrOutOfWindow, "OutOfWindow"},
	{ErrInvalidTransition, "InvalidTransition"},
	{ErrNotAuthorized, "NotAuthorized"},
	{ErrNotFound, "NotFound"},
	{ErrUnavailable, "Unavailable"},
}

// KindOf names the taxonomy kind of err, or "Internal" when it has none.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}
