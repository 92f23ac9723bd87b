package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestViolationHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		unique bool
		fk     bool
		check  bool
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, true, false, false},
		{"wrapped fk", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), false, true, false},
		{"check", &pgconn.PgError{Code: "23514"}, false, false, true},
		{"plain error", errors.New("boom"), false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsUniqueViolation(tc.err); got != tc.unique {
				t.Fatalf("IsUniqueViolation = %v, want %v", got, tc.unique)
			}
			if got := IsForeignKeyViolation(tc.err); got != tc.fk {
				t.Fatalf("IsForeignKeyViolation = %v, want %v", got, tc.fk)
			}
			if got := IsCheckViolation(tc.err); got != tc.check {
				t.Fatalf("IsCheckViolation = %v, want %v", got, tc.check)
			}
		})
	}
}
