package store

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapErrNoRows(t *testing.T) {
	if err := mapErr("op", sql.ErrNoRows); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMapErrSchema(t *testing.T) {
	for _, code := range []string{pgUndefinedTable, pgUndefinedColumn} {
		err := mapErr("list dwell", fmt.Errorf("query: %w", &pgconn.PgError{Code: code, Message: "relation \"port_dwell\" does not exist"}))
		if !errors.Is(err, ErrSchema) {
			t.Fatalf("%s: want ErrSchema, got %v", code, err)
		}
	}
}

func TestMapErrPassthrough(t *testing.T) {
	if mapErr("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	base := &pgconn.PgError{Code: "23505"}
	err := mapErr("op", base)
	if errors.Is(err, ErrSchema) || errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected sentinel: %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Fatalf("underlying error should be wrapped: %v", err)
	}
}
