package persistence

import (
	"context"

	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type postgresProvider struct{}

func (p *postgresProvider) Name() string { return "postgres" }

func (p *postgresProvider) Open(uri string) (gorm.Dialector, error) {
	return postgresdriver.Open(uri), nil
}

func (p *postgresProvider) MigrationDatabaseURL(uri string) string {
	return uri
}

// TakeNamedLock takes a transaction-scoped postgres advisory lock, held
// for the duration of the enclosing database transaction.
func (p *postgresProvider) TakeNamedLock(ctx context.Context, dbTX DBTX, hashedLockName int64) error {
	return dbTX.DB().WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", hashedLockName).Error
}
