package tenant

import (
	"database/sql/driver"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type providerRow struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid"`
	Name     string
}

func (providerRow) TableName() string { return "providers" }

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func emptyProviders() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "tenant_id", "name"})
}

func TestScopes_FilterByTenant(t *testing.T) {
	acme := uuid.New()

	tests := []struct {
		name  string
		scope func(*gorm.DB) *gorm.DB
		query string
		args  []driver.Value
	}{
		{
			name:  "tenant scope",
			scope: TenantScope(acme),
			query: `SELECT \* FROM "providers" WHERE tenant_id = \$1`,
			args:  []driver.Value{acme},
		},
		{
			name:  "optional scope with a tenant",
			scope: OptionalScope(DefaultColumn, &acme),
			query: `SELECT \* FROM "providers" WHERE tenant_id = \$1`,
			args:  []driver.Value{acme},
		},
		{
			name:  "optional scope without a tenant is system wide",
			scope: OptionalScope(DefaultColumn, nil),
			query: `SELECT \* FROM "providers"$`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := mockDB(t)
			mock.ExpectQuery(tt.query).WithArgs(tt.args...).WillReturnRows(emptyProviders())

			var rows []providerRow
			require.NoError(t, db.Scopes(tt.scope).Find(&rows).Error)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestScopes_NilTenantNeverQueries(t *testing.T) {
	for name, scope := range map[string]func(*gorm.DB) *gorm.DB{
		"tenant scope":   TenantScope(uuid.Nil),
		"column scope":   ColumnScope("p.tenant_id", uuid.Nil),
		"optional scope": OptionalScope(DefaultColumn, &uuid.Nil),
	} {
		t.Run(name, func(t *testing.T) {
			db, mock := mockDB(t)

			var rows []providerRow
			err := db.Scopes(scope).Find(&rows).Error
			assert.ErrorIs(t, err, ErrTenantIDRequired)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestColumnScope_JoinedQuery(t *testing.T) {
	db, mock := mockDB(t)
	acme := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM providers AS p WHERE p.tenant_id = \$1`).
		WithArgs(acme).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	var count int64
	require.NoError(t, db.Table("providers AS p").Scopes(ColumnScope("p.tenant_id", acme)).Count(&count).Error)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
