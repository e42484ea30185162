package database

import (
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// NewMockPool creates a pgxmock pool for tests. It satisfies DBTX, TxBeginner
// and MigrationDB, so it can stand in for the real pool behind repositories,
// a Transactor or RunMigrations. Call ExpectationsWereMet() at the end of
// each test.
func NewMockPool() (pgxmock.PgxPoolIface, error) {
	return pgxmock.NewPool()
}
