package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("quantity must be positive"), KindValidation},
		{"not found", NotFound("order", 7), KindNotFound},
		{"wrapped not found", fmt.Errorf("get order: %w", NotFound("order", 7)), KindNotFound},
		{"conflict", Conflict("order %s is shipped", "ORD-202601-0001"), KindConflict},
		{"insufficient stock", ErrInsufficientStock, KindConflict},
		{"invalid operation", fmt.Errorf("adjust: %w", ErrInvalidOperation), KindConflict},
		{"duplicate key", ErrDuplicateKey, KindConflict},
		{"forbidden", Forbidden("buyer scope"), KindForbidden},
		{"unknown", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("%s: KindOf() = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestSpecificErrorsStayDistinct(t *testing.T) {
	if errors.Is(ErrInsufficientStock, ErrDuplicateKey) {
		t.Fatal("insufficient stock must not match duplicate key")
	}
	if !errors.Is(fmt.Errorf("insert: %w", ErrDuplicateKey), ErrDuplicateKey) {
		t.Fatal("wrapped duplicate key must still match")
	}
}
