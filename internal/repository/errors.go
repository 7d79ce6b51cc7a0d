// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them to domain-level responses: a duplicate registration and an
// unknown event are both client errors, while anything else is an
// upstream store failure that should abort the operation.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicateRegistration is returned when an insert violates the
// unique (event_id, email) constraint, i.e. the same party is already
// registered for the event. Handlers translate this into a 400 with a
// friendly message.
var ErrDuplicateRegistration = errors.New("duplicate registration")

// ErrEventNotFound is returned when an insert references an event_id
// with no matching row in the events relation (foreign key violation),
// or when an event lookup finds nothing.
var ErrEventNotFound = errors.New("event not found")

// ErrRegistrationNotFound is returned when a lookup or update targets a
// registration id that does not exist.
var ErrRegistrationNotFound = errors.New("registration not found")

// ErrNotCompleted is returned when a refund update targets a registration
// whose payment_status is not "completed". A registration must pass
// through completed before it can be refunded.
var ErrNotCompleted = errors.New("registration not in completed state")

// MySQL server error numbers for constraint violations.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrNoReferencedRow = 1452
)

// MapInsertError converts driver-level constraint violations into the
// package's sentinel errors. Any other error passes through unchanged.
func MapInsertError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDuplicateEntry:
			return ErrDuplicateRegistration
		case mysqlErrNoReferencedRow:
			return ErrEventNotFound
		}
	}
	return err
}
