package testutil

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	idb "expense_reminder/internal/infra/database"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// TestDatabase is a migrated PostgreSQL container for repository tests.
type TestDatabase struct {
	Container *postgres.PostgresContainer
	DB        *sql.DB
	URL       string
}

// SetupTestDatabase starts a PostgreSQL container and applies the embedded migrations.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("expense_reminder_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Labels: map[string]string{
					"test":      "expense-reminder-repository",
					"test-name": t.Name(),
					"cleanup":   "auto",
				},
			},
		}),
	)
	require.NoError(t, err)

	testDB := &TestDatabase{Container: container}
	t.Cleanup(func() { testDB.cleanup(t) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	require.NoError(t, idb.MigrateUp(connStr, logrus.NewEntry(quiet)))

	db, err := idb.NewPostgresConnection(connStr)
	require.NoError(t, err)

	testDB.DB = db
	testDB.URL = connStr
	return testDB
}

func (td *TestDatabase) cleanup(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Logf("Panic during container cleanup (recovered): %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if td.DB != nil {
		td.DB.Close()
	}
	if td.Container != nil {
		if err := td.Container.Terminate(ctx); err != nil {
			t.Logf("Warning: Failed to terminate test container: %v", err)
		}
	}
}
