package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// withMock routes Connect to a sqlmock database that records pings.
func withMock(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	prevOpen, prevSleep := openDB, sleep
	openDB = func(driver, dsn string) (*sql.DB, error) {
		if driver != "pgx" {
			t.Fatalf("expected pgx driver, got %q", driver)
		}
		return mockDB, nil
	}
	sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	t.Cleanup(func() {
		openDB, sleep = prevOpen, prevSleep
		mockDB.Close()
	})
	return mock
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONNECT_ATTEMPTS", "9")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")
	t.Setenv("DB_RETRY_DELAY", "250ms")

	opts := OptionsFromEnv(DefaultServerOptions())
	want := Options{
		MaxOpenConns:    7,
		MaxIdleConns:    3,
		ConnMaxLifetime: 20 * time.Minute,
		ConnMaxIdleTime: 45 * time.Second,
		PingTimeout:     time.Second,
		ConnectAttempts: 9,
		RetryDelay:      250 * time.Millisecond,
	}
	if opts != want {
		t.Fatalf("unexpected options:\n got %+v\nwant %+v", opts, want)
	}
}

func TestOptionsFromEnvIgnoresInvalid(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("DB_PING_TIMEOUT", "soon")

	defaults := DefaultWorkerOptions()
	if opts := OptionsFromEnv(defaults); opts != defaults {
		t.Fatalf("expected defaults, got %+v", opts)
	}
}

func TestConnectRetriesUntilPingSucceeds(t *testing.T) {
	mock := withMock(t)
	mock.ExpectPing().WillReturnError(errors.New("the database system is starting up"))
	mock.ExpectPing()

	opts := DefaultServerOptions()
	opts.MaxOpenConns = 4
	db, err := Connect(context.Background(), "postgres://sst@localhost/sst", opts)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := db.Stats().MaxOpenConnections; got != 4 {
		t.Fatalf("expected max open 4, got %d", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConnectGivesUp(t *testing.T) {
	mock := withMock(t)
	down := errors.New("connection refused")
	mock.ExpectPing().WillReturnError(down)
	mock.ExpectPing().WillReturnError(down)

	opts := DefaultWorkerOptions()
	opts.ConnectAttempts = 2
	if _, err := Connect(context.Background(), "postgres://sst@localhost/sst", opts); !errors.Is(err, down) {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestConnectRejectsBadInput(t *testing.T) {
	if _, err := Connect(context.Background(), "  ", DefaultServerOptions()); err == nil {
		t.Fatalf("expected error for empty url")
	}

	prev := openDB
	openDB = func(driver, dsn string) (*sql.DB, error) { return nil, errors.New("bad dsn") }
	defer func() { openDB = prev }()
	if _, err := Connect(context.Background(), "::", DefaultMigrateOptions()); err == nil {
		t.Fatalf("expected open failure")
	}
}

func TestMigrateNilDatabaseIsNoop(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestMigrateRejectsUnknownCommand(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()
	if err := Migrate(context.Background(), mockDB, "redo-all"); err == nil {
		t.Fatalf("expected unknown command error")
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	want := []string{"00001_users.sql", "00002_signature_requests.sql", "00003_notifications.sql", "00004_rendered_documents.sql"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Fatalf("migration %d: expected %s, got %s", i, want[i], e.Name())
		}
	}
}
