package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm duplicated", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		{"pg 23505", &pgconn.PgError{Code: "23505"}, true},
		{"pg other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite text", errors.New("UNIQUE constraint failed: bookmark.user_id, bookmark.lesson_id"), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want, got)
		}
	}
}

func TestPostgresDSN(t *testing.T) {
	got := PostgresConfig{Host: "db", Port: "5432", User: "app", Password: "p@ss", Name: "study"}.DSN()
	want := "postgres://app:p%40ss@db:5432/study?sslmode=disable"
	if got != want {
		t.Fatalf("dsn: want=%q got=%q", want, got)
	}
}
