package pgstore

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixmarkets/authcore"
)

func TestNullableUUID(t *testing.T) {
	if nullableUUID(uuid.Nil).Valid {
		t.Fatal("nil uuid should map to NULL")
	}

	id := uuid.New()
	n := nullableUUID(id)
	if !n.Valid || n.UUID != id {
		t.Fatalf("non-nil uuid lost: %+v", n)
	}
}

func TestNullableString(t *testing.T) {
	if nullableString("") != nil {
		t.Fatal("empty string should map to NULL")
	}
	if got := nullableString("d"); got == nil || *got != "d" {
		t.Fatalf("non-empty string lost: %v", got)
	}
}

func TestEncodeJSONFields(t *testing.T) {
	a := &authcore.Account{}

	profile, history, err := encodeJSONFields(a)
	if err != nil {
		t.Fatalf("encodeJSONFields: %v", err)
	}
	if len(profile) == 0 {
		t.Fatal("empty profile payload")
	}
	if string(history) != "[]" {
		t.Fatalf("nil history = %q, want []", history)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: uniqueViolation}) {
		t.Fatal("unique violation not detected")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign-key violation misclassified")
	}
	if isUniqueViolation(errors.New("plain")) {
		t.Fatal("plain error misclassified")
	}
}

func TestSchemaCoversAllColumns(t *testing.T) {
	for _, col := range strings.Split(accountColumns, ",") {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		if !strings.Contains(Schema, col) {
			t.Errorf("column %q missing from Schema", col)
		}
	}
}
