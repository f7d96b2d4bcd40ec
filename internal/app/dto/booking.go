package dto

import (
	"time"

	domainavailability "staybook/internal/domain/availability"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type Booking struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	LandlordID string    `json:"landlord_id,omitempty"`
	TenantID   string    `json:"tenant_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Nights     int       `json:"nights"`
	TotalPrice MoneyDTO  `json:"total_price"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Version    int64     `json:"version"`
}

// BookingCollection is one page of bookings. Total counts matches across
// all pages.
type BookingCollection struct {
	Items    []Booking `json:"items"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int       `json:"total"`
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest asks for a 1-based page. Zero values take the defaults and
// PageSize is capped at MaxPageSize.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

type CalendarDay struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}

type Calendar struct {
	ListingID string        `json:"listing_id"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Days      []CalendarDay `json:"days"`
}

// SweepReport is returned by the completion and expiry sweeps.
type SweepReport struct {
	Sweep     string `json:"sweep"`
	AsOf      string `json:"as_of"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.String(), Currency: value.Currency}
}

func MapBooking(b *domainbooking.Booking, landlordID string) Booking {
	return Booking{
		ID:         string(b.ID),
		ListingID:  string(b.ListingID),
		LandlordID: landlordID,
		TenantID:   b.TenantID,
		StartDate:  daterange.FormatDay(b.Range.Start),
		EndDate:    daterange.FormatDay(b.Range.End),
		Nights:     b.Range.Nights(),
		TotalPrice: MapMoney(b.TotalPrice),
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
		Version:    b.Version,
	}
}

func MapCalendar(listingID string, dr daterange.DateRange, slots []domainavailability.Slot) Calendar {
	days := make([]CalendarDay, 0, len(slots))
	for _, s := range slots {
		days = append(days, CalendarDay{Date: daterange.FormatDay(s.Date), Available: s.Available})
	}
	return Calendar{
		ListingID: listingID,
		From:      daterange.FormatDay(dr.Start),
		To:        daterange.FormatDay(dr.End),
		Days:      days,
	}
}
