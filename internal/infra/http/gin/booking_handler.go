package ginserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/dto"
	"staybook/internal/app/reservations"
	"staybook/internal/domain/shared/daterange"
)

type BookingHandler struct {
	Service *reservations.Service
	Logger  *slog.Logger
}

type createBookingRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

type rescheduleRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

func (h BookingHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := parseDays(req.StartDate, req.EndDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Service.CreateBooking(c.Request.Context(), reservations.CreateBookingParams{
		ListingID:      strings.TrimSpace(req.ListingID),
		TenantID:       actor.ID,
		Start:          start,
		End:            end,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List pages through the caller's bookings, newest first. Admins see all of
// them and landlords those on their listings.
func (h BookingHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	page, err := parsePage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Service.ListMyBookings(c.Request.Context(), actor, page)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	result, err := h.Service.GetBooking(c.Request.Context(), strings.TrimSpace(c.Param("id")), &actor)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Confirm(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	result, err := h.Service.ConfirmBooking(c.Request.Context(), strings.TrimSpace(c.Param("id")), actor)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	result, err := h.Service.CancelBooking(c.Request.Context(), strings.TrimSpace(c.Param("id")), actor)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Reschedule(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	start, end, err := parseDays(req.StartDate, req.EndDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Service.RescheduleBooking(c.Request.Context(), strings.TrimSpace(c.Param("id")), start, end, actor)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseDays(start, end string) (s, e time.Time, err error) {
	if s, err = daterange.ParseDay(strings.TrimSpace(start)); err != nil {
		return s, e, fmt.Errorf("start_date: %w", err)
	}
	if e, err = daterange.ParseDay(strings.TrimSpace(end)); err != nil {
		return s, e, fmt.Errorf("end_date: %w", err)
	}
	return s, e, nil
}

// parsePage reads page and page_size; page_size above the maximum is clamped.
func parsePage(c *gin.Context) (dto.PageRequest, error) {
	var p dto.PageRequest
	for name, dst := range map[string]*int{"page": &p.Page, "page_size": &p.PageSize} {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, fmt.Errorf("%s must be a positive integer", name)
		}
		*dst = n
	}
	return p.Normalize(), nil
}

var _ BookingHTTP = BookingHandler{}
