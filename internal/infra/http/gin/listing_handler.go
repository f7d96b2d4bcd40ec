package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/reservations"
	"staybook/internal/domain/shared/daterange"
)

const defaultCalendarDays = 30

type ListingHandler struct {
	Service *reservations.Service
	Logger  *slog.Logger
}

// Bookings pages through a listing's bookings. Without from/to every date
// matches; the caller's role narrows what is visible.
func (h ListingHandler) Bookings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var dr daterange.DateRange
	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, err := parseDays(c.Query("from"), c.Query("to"))
		if err != nil {
			badRequest(c, err)
			return
		}
		if dr, err = daterange.New(from, to); err != nil {
			badRequest(c, err)
			return
		}
	}
	page, err := parsePage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Service.ListBookingsForListing(c.Request.Context(), strings.TrimSpace(c.Param("id")), dr, &actor, page)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Availability returns the day-by-day calendar; the range defaults to the
// next 30 days.
func (h ListingHandler) Availability(c *gin.Context) {
	from := h.Service.Today()
	to := from.AddDate(0, 0, defaultCalendarDays)
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = daterange.ParseDay(raw); err != nil {
			badRequest(c, err)
			return
		}
		to = from.AddDate(0, 0, defaultCalendarDays)
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = daterange.ParseDay(raw); err != nil {
			badRequest(c, err)
			return
		}
	}
	if !to.After(from) {
		badRequest(c, errors.New("to must be after from"))
		return
	}
	result, err := h.Service.ListingCalendar(c.Request.Context(), strings.TrimSpace(c.Param("id")), from, to)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type AdminHandler struct {
	Service *reservations.Service
	Logger  *slog.Logger
}

func (h AdminHandler) CompletionSweep(c *gin.Context) {
	h.runSweep(c, reservations.SweepCompletion)
}

func (h AdminHandler) ExpirySweep(c *gin.Context) {
	h.runSweep(c, reservations.SweepExpiry)
}

// runSweep accepts an optional as_of day; it defaults to now.
func (h AdminHandler) runSweep(c *gin.Context, sweep reservations.Sweep) {
	if _, ok := requireAdmin(c); !ok {
		return
	}
	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		day, err := daterange.ParseDay(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		asOf = day
	}
	report, err := h.Service.Sweep(c.Request.Context(), sweep, asOf)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

var (
	_ ListingHTTP = ListingHandler{}
	_ AdminHTTP   = AdminHandler{}
)
