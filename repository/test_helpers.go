package repository

import (
	"royale/application"
	"royale/database"
	"royale/domain/events"
)

// NewTestUnitOfWorkFactory creates a unit of work factory for tests.
// Tests that care about emitted events should subscribe on the bus they pass in.
func NewTestUnitOfWorkFactory(db *database.DB, bus *events.Bus) application.UnitOfWorkFactory {
	return NewUnitOfWorkFactory(db, bus)
}
