package mongo

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"staybook/internal/app/uow"
)

const writeConflictCode = 112

// classify marks transaction conflicts as retryable. Two units claiming the
// same slot documents collide here: the later writer gets a WriteConflict.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorLabel("TransientTransactionError") ||
			se.HasErrorLabel("UnknownTransactionCommitResult") ||
			se.HasErrorCode(writeConflictCode) {
			return fmt.Errorf("%w: %v", uow.ErrTxConflict, err)
		}
	}
	return err
}
