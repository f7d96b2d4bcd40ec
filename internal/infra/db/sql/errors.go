package sql

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"staybook/internal/app/uow"
)

var retryablePgCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

var retryableMySQLNumbers = map[uint16]bool{
	1213: true, // ER_LOCK_DEADLOCK
	1205: true, // ER_LOCK_WAIT_TIMEOUT
}

// classify marks lock and serialization failures as retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && retryablePgCodes[pgErr.Code] {
		return fmt.Errorf("%w: %v", uow.ErrTxConflict, err)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && retryableMySQLNumbers[myErr.Number] {
		return fmt.Errorf("%w: %v", uow.ErrTxConflict, err)
	}
	return err
}
