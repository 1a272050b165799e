package database

import (
	"database/sql/driver"
	"errors"

	"github.com/lib/pq"

	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

const (
	pqUniqueViolation      = "23505"
	pqExclusionViolation   = "23P01"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqConnectionException  = "08"
)

// classifyError maps driver failures to application errors. Constraint and
// serialization failures mean another writer won the slot.
func classifyError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqExclusionViolation:
			return apperrors.NewConflictError("the selected time slot is already taken")
		case pqSerializationFailure, pqDeadlockDetected:
			return apperrors.NewConflictError("the appointment was modified concurrently")
		}
		if string(pqErr.Code.Class()) == pqConnectionException {
			return apperrors.NewTransientError(msg, err)
		}
		return apperrors.NewInternalError(msg, err)
	}

	if errors.Is(err, driver.ErrBadConn) {
		return apperrors.NewTransientError(msg, err)
	}

	return apperrors.NewInternalError(msg, err)
}
