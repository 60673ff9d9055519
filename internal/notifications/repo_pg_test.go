package notifications

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var notificationCols = []string{"id", "recipient_user_id", "recipient_role", "title", "message", "route", "read", "hidden", "created_at"}

func TestPGRepoCreateRoleTarget(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(nil, "admin", "Nueva solicitud", "pendiente", nil).
		WillReturnRows(sqlmock.NewRows(notificationCols).
			AddRow(int64(7), nil, "admin", "Nueva solicitud", "pendiente", nil, false, false, now))

	role := "admin"
	repo := &PGRepo{DB: db}
	n, err := repo.Create(context.Background(), Notification{RecipientRole: &role, Title: "Nueva solicitud", Message: "pendiente"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.ID != 7 || n.RecipientUserID != nil || n.RecipientRole == nil || *n.RecipientRole != "admin" || n.Route != nil {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoListVisible(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT hidden")).
		WithArgs("u-1", "employee", int64(100)).
		WillReturnRows(sqlmock.NewRows(notificationCols).
			AddRow(int64(2), "u-1", nil, "Firma Documento Rechazado", "faltan datos", "/requests/3", false, false, now).
			AddRow(int64(1), "u-1", nil, "Firma Documento Aprobado", "ok", nil, true, false, now.Add(-time.Hour)))

	repo := &PGRepo{DB: db}
	items, err := repo.ListVisible(context.Background(), "u-1", "employee", 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Route == nil || *items[0].Route != "/requests/3" || !items[1].Read {
		t.Fatalf("unexpected items: %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoSetReadMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read = TRUE")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(notificationCols))

	repo := &PGRepo{DB: db}
	if err := repo.SetRead(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
