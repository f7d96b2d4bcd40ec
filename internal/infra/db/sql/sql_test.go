package sql

import (
	stdsql "database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func TestClassifyRetryableDriverErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"pg serialization", &pgconn.PgError{Code: "40001"}, true},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"pg lock timeout", &pgconn.PgError{Code: "55P03"}, true},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205}, true},
		{"mysql syntax", &mysql.MySQLError{Number: 1064}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := uow.IsRetryable(classify(tc.err)); got != tc.want {
				t.Fatalf("retryable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseIsolation(t *testing.T) {
	cases := map[string]stdsql.IsolationLevel{
		"":                stdsql.LevelSerializable,
		"SERIALIZABLE":    stdsql.LevelSerializable,
		"repeatable_read": stdsql.LevelRepeatableRead,
		"read-committed":  stdsql.LevelReadCommitted,
	}
	for in, want := range cases {
		got, err := ParseIsolation(in)
		if err != nil {
			t.Fatalf("ParseIsolation(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseIsolation(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseIsolation("snapshot"); err == nil {
		t.Fatal("expected error for unsupported isolation")
	}
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	if _, err := Open("sqlite", "file::memory:"); !errors.Is(err, ErrUnknownDialect) {
		t.Fatalf("expected ErrUnknownDialect, got %v", err)
	}
}

func TestBookingRowRoundTrip(t *testing.T) {
	start := time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC)
	b := &domainbooking.Booking{
		ID:         "bk-9",
		ListingID:  "lst-2",
		TenantID:   "tenant-7",
		Range:      daterange.Nights(start, 2),
		TotalPrice: money.Money{Amount: decimal.RequireFromString("199.98"), Currency: "USD"},
		Status:     domainbooking.StatusPending,
		CreatedAt:  start.Add(-time.Hour),
		UpdatedAt:  start.Add(-time.Hour),
		Version:    1,
	}
	got, err := newBookingRow(b).toAggregate()
	if err != nil {
		t.Fatalf("toAggregate: %v", err)
	}
	if got.Range != b.Range || !got.TotalPrice.Equal(b.TotalPrice) || got.Status != b.Status || got.Version != 1 {
		t.Fatalf("unexpected booking %+v", got)
	}
}
