package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hitoshi/tenki/internal/model"
)

func TestPostgresSessionRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)
	now := time.Now()
	session := &model.Session{ID: "s-1", UserID: "user-1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs("s-1", "user-1", session.ExpiresAt, session.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("Create がエラーを返した: %v", err)
	}
	assertExpectations(t, mock)
}

func TestPostgresSessionRepo_FindByID_ExcludesExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)FROM sessions\s+WHERE id = \$1 AND expires_at > now\(\)`).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "created_at"}).
			AddRow("s-1", "user-1", now.Add(time.Hour), now))

	got, err := repo.FindByID(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("FindByID がエラーを返した: %v", err)
	}
	if got == nil || got.UserID != "user-1" {
		t.Errorf("セッション = %+v", got)
	}
	assertExpectations(t, mock)
}

func TestPostgresSessionRepo_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectQuery(`FROM sessions`).
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	got, err := repo.FindByID(context.Background(), "gone")
	if err != nil {
		t.Fatalf("FindByID がエラーを返した: %v", err)
	}
	if got != nil {
		t.Errorf("見つからない場合はnilを返すべき: %+v", got)
	}
	assertExpectations(t, mock)
}

func TestPostgresSessionRepo_DeleteByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteByID(context.Background(), "s-1"); err != nil {
		t.Fatalf("DeleteByID がエラーを返した: %v", err)
	}
	assertExpectations(t, mock)
}

func TestPostgresSessionRepo_DeleteByUserID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteByUserID(context.Background(), "user-1"); err != nil {
		t.Fatalf("DeleteByUserID がエラーを返した: %v", err)
	}
	assertExpectations(t, mock)
}

func TestPostgresSessionRepo_DeleteExpired_ReturnsCount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)
	before := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= \$1`).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteExpired(context.Background(), before)
	if err != nil {
		t.Fatalf("DeleteExpired がエラーを返した: %v", err)
	}
	if n != 7 {
		t.Errorf("削除件数 = %d, want 7", n)
	}
	assertExpectations(t, mock)
}

func TestPostgresSessionRepo_DeleteExpired_Error(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgresSessionRepo(db)

	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at`).
		WillReturnError(errors.New("connection refused"))

	if _, err := repo.DeleteExpired(context.Background(), time.Now()); err == nil {
		t.Fatal("DBエラー時はエラーを返すべき")
	}
	assertExpectations(t, mock)
}
