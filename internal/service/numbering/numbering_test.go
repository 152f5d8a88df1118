package numbering

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/trade/internal/errs"
)

type fixedSequence struct {
	mu     sync.Mutex
	values []int64
}

func (s *fixedSequence) Next(_ context.Context, _, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[0]
	s.values = s.values[1:]

	return v, nil
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
}

func TestNextFormat(t *testing.T) {
	g := NewGenerator(&fixedSequence{values: []int64{42}}, WithClock(fixedClock))
	no, err := g.Next(context.Background(), PrefixOrder)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if no != "ORD-202601-0042" {
		t.Fatalf("Next() = %s, want ORD-202601-0042", no)
	}
}

func TestRandomSequenceMatchesContract(t *testing.T) {
	pattern := regexp.MustCompile(`^TXN-\d{6}-\d{4}$`)
	g := NewGenerator(nil)
	for i := 0; i < 200; i++ {
		no, err := g.Next(context.Background(), PrefixTransaction)
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		if !pattern.MatchString(no) {
			t.Fatalf("Next() = %s does not match contract", no)
		}
	}
}

func TestAssignRetriesOnCollision(t *testing.T) {
	g := NewGenerator(&fixedSequence{values: []int64{1, 1, 2}}, WithClock(fixedClock))
	taken := map[string]bool{"ORD-202601-0001": true}

	var attempts int
	no, err := g.Assign(context.Background(), PrefixOrder, func(candidate string) error {
		attempts++
		if taken[candidate] {
			return errs.ErrDuplicateKey
		}
		taken[candidate] = true

		return nil
	})
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if no != "ORD-202601-0002" || attempts != 3 {
		t.Fatalf("Assign() = %s after %d attempts, want ORD-202601-0002 after 3", no, attempts)
	}
}

func TestAssignStopsOnOtherErrors(t *testing.T) {
	g := NewGenerator(nil)
	boom := errors.New("connection reset")
	_, err := g.Assign(context.Background(), PrefixShipment, func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Assign() error = %v, want %v", err, boom)
	}
}

func TestAssignGivesUp(t *testing.T) {
	g := NewGenerator(nil, WithMaxAttempts(3))
	_, err := g.Assign(context.Background(), PrefixOrder, func(string) error { return errs.ErrDuplicateKey })
	if errs.KindOf(err) != errs.KindInternal {
		t.Fatalf("Assign() error kind = %s, want internal", errs.KindOf(err))
	}
}

func TestNextRejectsSerialsOutsideBlock(t *testing.T) {
	g := NewGenerator(&fixedSequence{values: []int64{MaxSerial, MaxSerial + 1}}, WithClock(fixedClock))
	ctx := context.Background()

	no, err := g.Next(ctx, PrefixOrder)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if no != "ORD-202601-9999" {
		t.Fatalf("Next = %s, want ORD-202601-9999", no)
	}

	inserted := false
	_, err = g.Assign(ctx, PrefixOrder, func(string) error {
		inserted = true

		return nil
	})
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("exhausted month err = %v, want conflict", err)
	}
	if inserted {
		t.Fatal("insert must not run once the month is exhausted")
	}
}
